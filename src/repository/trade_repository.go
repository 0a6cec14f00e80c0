package repository

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradesense/src/database"
	"tradesense/src/model"
)

// TradeRepository handles the append-only trade ledger.
type TradeRepository struct {
	db *gorm.DB
}

// NewTradeRepository creates a new repository instance using the main read/write database.
func NewTradeRepository() *TradeRepository {
	logger.WithField("component", "TradeRepository").
		Info("Creating new TradeRepository with MainDB")

	return &TradeRepository{
		db: database.MainDB,
	}
}

// WithDB allows overriding the underlying *gorm.DB instance.
// Useful for tests or when using a specific session/transaction.
func (r *TradeRepository) WithDB(db *gorm.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

// Append inserts a new trade into the ledger. Trades are immutable once created;
// there is deliberately no update or delete method on this repository.
func (r *TradeRepository) Append(
	ctx context.Context,
	trade *model.Trade,
) error {

	logger.WithFields(map[string]interface{}{
		"repo":         "TradeRepository",
		"op":           "Append",
		"challenge_id": trade.ChallengeID,
		"symbol":       trade.Symbol,
		"side":         trade.Side,
		"qty":          trade.Qty,
		"pnl":          trade.Pnl,
	}).Debug("Appending trade to ledger")

	err := r.db.WithContext(ctx).Create(trade).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "TradeRepository",
			"op":   "Append",
		}).WithError(err).Error("Failed to append trade")

		return err
	}

	logger.WithFields(map[string]interface{}{
		"repo":      "TradeRepository",
		"op":        "Append",
		"trade_id":  trade.ID,
		"reference": trade.Reference,
	}).Info("Trade appended")

	return nil
}

// FindByChallenge returns all trades of a challenge, newest first.
func (r *TradeRepository) FindByChallenge(
	ctx context.Context,
	challengeID uint,
) ([]model.Trade, error) {

	logger.WithFields(map[string]interface{}{
		"repo":         "TradeRepository",
		"op":           "FindByChallenge",
		"challenge_id": challengeID,
	}).Debug("Fetching trades for challenge")

	var trades []model.Trade

	err := r.db.WithContext(ctx).
		Where("challenge_id = ?", challengeID).
		Order("executed_at DESC").
		Find(&trades).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":         "TradeRepository",
			"op":           "FindByChallenge",
			"challenge_id": challengeID,
		}).WithError(err).Error("Failed to fetch trades")

		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"repo":         "TradeRepository",
		"op":           "FindByChallenge",
		"challenge_id": challengeID,
		"rows_return":  len(trades),
	}).Info("Trades fetched")

	return trades, nil
}

// SumPnlByChallenge returns the total realized PnL recorded in the ledger for a
// challenge. The settlement engine compares this against the cached equity to
// detect ledger/equity drift.
func (r *TradeRepository) SumPnlByChallenge(
	ctx context.Context,
	challengeID uint,
) (float64, error) {

	var total float64

	err := r.db.WithContext(ctx).
		Model(&model.Trade{}).
		Where("challenge_id = ?", challengeID).
		Select("COALESCE(SUM(pnl), 0)").
		Scan(&total).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":         "TradeRepository",
			"op":           "SumPnlByChallenge",
			"challenge_id": challengeID,
		}).WithError(err).Error("Failed to sum trade pnl")

		return 0, err
	}

	return total, nil
}
