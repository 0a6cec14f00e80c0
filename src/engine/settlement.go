package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradesense/src/model"
)

// maxPnlSwing bounds the synthetic per-trade return at +/-3% of trade value.
const maxPnlSwing = 0.03

// round2 rounds a monetary value to 2 decimal places.
func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// validateTradeRequest rejects malformed trade intents before any state is read.
func validateTradeRequest(symbol, side string, qty float64) error {
	if symbol == "" {
		return fmt.Errorf("%w: symbol is required", ErrInvalidTradeRequest)
	}
	if side != model.TradeSideBuy && side != model.TradeSideSell {
		return fmt.Errorf("%w: side must be buy or sell, got %q", ErrInvalidTradeRequest, side)
	}
	if qty <= 0 {
		return fmt.Errorf("%w: qty must be positive, got %v", ErrInvalidTradeRequest, qty)
	}
	return nil
}

// Settle applies one priced trade intent to the challenge inside the given
// transaction: it draws the synthetic PnL, appends the immutable ledger entry
// and moves the cached equity. The caller must hold the per-account lock and
// must invoke the rule engine right after, in the same transaction.
func (e *Engine) Settle(
	ctx context.Context,
	tx *gorm.DB,
	challenge *model.Challenge,
	symbol string,
	side string,
	qty float64,
	executionPrice float64,
) (*model.Trade, float64, error) {

	if err := validateTradeRequest(symbol, side, qty); err != nil {
		return nil, 0, err
	}
	if executionPrice <= 0 {
		return nil, 0, fmt.Errorf("%w: execution price must be positive, got %v", ErrInvalidTradeRequest, executionPrice)
	}
	if !challenge.IsActive() {
		return nil, 0, fmt.Errorf("%w: challenge %d is %s", ErrChallengeNotActive, challenge.ID, challenge.Status)
	}

	tradeValue := executionPrice * qty

	// Synthetic return, uniform in [-3%, +3%] of trade value. Sell trades
	// invert the sign of the draw. The draw source is injectable so scenario
	// tests can be exact.
	pnl := tradeValue * e.draw()
	if side == model.TradeSideSell {
		pnl = -pnl
	}
	pnl = round2(pnl)

	now := e.now().UTC()
	trade := &model.Trade{
		Reference:   uuid.NewString(),
		ChallengeID: challenge.ID,
		Symbol:      symbol,
		Side:        side,
		Qty:         qty,
		Price:       executionPrice,
		Pnl:         pnl,
		ExecutedAt:  now,
	}

	if err := e.trades.WithDB(tx).Append(ctx, trade); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, 0, fmt.Errorf("%w: %v", ErrPersistenceConflict, err)
		}
		return nil, 0, err
	}

	challenge.Equity = round2(challenge.Equity + pnl)
	if err := e.challenges.WithDB(tx).Save(ctx, challenge); err != nil {
		return nil, 0, err
	}

	logger.WithFields(map[string]interface{}{
		"challenge_id": challenge.ID,
		"trade_id":     trade.ID,
		"symbol":       symbol,
		"side":         side,
		"qty":          qty,
		"price":        executionPrice,
		"pnl":          pnl,
		"equity":       challenge.Equity,
	}).Info("Trade settled")

	return trade, challenge.Equity, nil
}

// verifyLedger checks that the cached equity still equals start balance plus
// the ledger sum. Both sides are maintained at 2 decimal places, so anything
// beyond a float representation error is real corruption.
func (e *Engine) verifyLedger(
	ctx context.Context,
	tx *gorm.DB,
	challenge *model.Challenge,
) error {

	sum, err := e.trades.WithDB(tx).SumPnlByChallenge(ctx, challenge.ID)
	if err != nil {
		return err
	}

	expected := round2(challenge.StartBalance + sum)
	diff := challenge.Equity - expected
	if diff > 0.005 || diff < -0.005 {
		return fmt.Errorf("%w: challenge %d equity=%.2f ledger=%.2f",
			ErrInternalInconsistency, challenge.ID, challenge.Equity, expected)
	}

	return nil
}

// recordInconsistency persists an audit row for a detected ledger mismatch.
// Written outside the settlement transaction so it survives the rollback.
func (e *Engine) recordInconsistency(challengeID uint, cause error) {
	exc := &model.Exception{
		Service: "challenge_engine",
		Module:  "settlement",
		Method:  "ExecuteTrade",
		Message: cause.Error(),
		Level:   "fatal",
		Context: fmt.Sprintf(`{"challenge_id":%d,"detected_at":%q}`, challengeID, e.now().UTC().Format(time.RFC3339)),
	}

	if err := e.exceptions.Create(context.Background(), exc); err != nil {
		logger.WithError(err).Error("Failed to persist inconsistency exception")
	}
}
