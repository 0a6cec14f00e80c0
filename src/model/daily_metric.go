package model

import "time"

// DailyMetric tracks one calendar day of equity movement for a challenge.
// Exactly one row exists per (challenge_id, date) pair, enforced by the
// composite unique index. DayStartEquity is captured the first time the
// challenge is touched on that date and is immutable afterwards;
// MaxIntradayDrawdownPct only ever becomes more negative within the day.
type DailyMetric struct {
	ID                     uint      `gorm:"primaryKey" json:"id"`
	ChallengeID            uint      `gorm:"not null;index:idx_challenge_date,unique" json:"challenge_id"`
	Date                   string    `gorm:"size:10;not null;index:idx_challenge_date,unique" json:"date"`
	DayStartEquity         float64   `gorm:"not null" json:"day_start_equity"`
	DayEndEquity           float64   `gorm:"not null" json:"day_end_equity"`
	DayPnl                 float64   `gorm:"not null;default:0" json:"day_pnl"`
	MaxIntradayDrawdownPct float64   `gorm:"not null;default:0" json:"max_intraday_drawdown_pct"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

func (DailyMetric) TableName() string {
	return "daily_metrics"
}

// MetricDateLayout is the canonical format for DailyMetric.Date.
const MetricDateLayout = "2006-01-02"
