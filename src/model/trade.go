package model

import "time"

const (
	TradeSideBuy  = "buy"
	TradeSideSell = "sell"
)

// Trade is an append-only ledger entry. Rows are never updated or deleted;
// the sum of Pnl over a challenge's trades plus its start balance must equal
// the challenge's equity at every observation point.
type Trade struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Reference   string    `gorm:"size:36;uniqueIndex" json:"reference"`
	ChallengeID uint      `gorm:"index;not null" json:"challenge_id"`
	Symbol      string    `gorm:"size:20;not null" json:"symbol"`
	Side        string    `gorm:"size:10;not null" json:"side"`
	Qty         float64   `gorm:"not null" json:"qty"`
	Price       float64   `gorm:"not null" json:"price"`
	Pnl         float64   `gorm:"not null;default:0" json:"pnl"`
	ExecutedAt  time.Time `gorm:"index" json:"executed_at"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Trade) TableName() string {
	return "trades"
}
