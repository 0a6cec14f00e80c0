package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradesense/src/model"
	"tradesense/src/quotes"
	"tradesense/src/repository"
)

// Engine is the trade settlement and rule evaluation core. One instance is
// shared by all requests; per-account serialization happens through the keyed
// lock set, so different accounts settle fully in parallel.
type Engine struct {
	db         *gorm.DB
	quotes     quotes.Provider
	challenges *repository.ChallengeRepository
	trades     *repository.TradeRepository
	metrics    *repository.DailyMetricRepository
	exceptions *repository.ExceptionRepository

	locks accountLocks

	quoteTimeout time.Duration
	tradeTimeout time.Duration

	// Injectable for deterministic tests.
	now  func() time.Time
	draw func() float64
}

// NewEngine wires the engine onto the given database handle and quote provider.
func NewEngine(db *gorm.DB, provider quotes.Provider) *Engine {
	config := GetConfig()

	// One rng is shared by every settlement. Settlements on different
	// accounts run in parallel, so draws must take their own lock.
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	var rngMu sync.Mutex

	return &Engine{
		db:           db,
		quotes:       provider,
		challenges:   (&repository.ChallengeRepository{}).WithDB(db),
		trades:       (&repository.TradeRepository{}).WithDB(db),
		metrics:      (&repository.DailyMetricRepository{}).WithDB(db),
		exceptions:   (&repository.ExceptionRepository{}).WithDB(db),
		quoteTimeout: config.QuoteTimeout,
		tradeTimeout: config.TradeTimeout,
		now:          time.Now,
		draw: func() float64 {
			rngMu.Lock()
			defer rngMu.Unlock()
			return (rng.Float64()*2 - 1) * maxPnlSwing
		},
	}
}

// TradeOutcome bundles everything the caller needs after a successful trade:
// the ledger entry, the post-trade challenge state and the rule verdict.
// No follow-up read is needed to learn whether the account just failed or passed.
type TradeOutcome struct {
	Trade      *model.Trade     `json:"trade"`
	Challenge  *model.Challenge `json:"challenge"`
	RuleResult *RuleResult      `json:"rule_result"`
}

// ExecuteTrade runs one full unit of work: price lookup, settlement and rule
// evaluation, all committed atomically. A rejected or failed trade leaves the
// challenge exactly as it was before the call.
func (e *Engine) ExecuteTrade(
	ctx context.Context,
	challengeID uint,
	symbol string,
	side string,
	qty float64,
) (*TradeOutcome, error) {

	if err := validateTradeRequest(symbol, side, qty); err != nil {
		return nil, err
	}

	unlock := e.locks.acquire(challengeID)
	defer unlock()

	challenge, err := e.challenges.FindByID(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if challenge == nil {
		return nil, fmt.Errorf("%w: id %d", ErrChallengeNotFound, challengeID)
	}
	if !challenge.IsActive() {
		return nil, fmt.Errorf("%w: challenge %d is %s", ErrChallengeNotActive, challengeID, challenge.Status)
	}

	quoteCtx, cancelQuote := context.WithTimeout(ctx, e.quoteTimeout)
	defer cancelQuote()

	price, err := e.quotes.GetPrice(quoteCtx, symbol)
	if err != nil {
		logger.WithError(err).WithField("symbol", symbol).Warn("Quote lookup failed, trade rejected")
		return nil, fmt.Errorf("%w: %s: %v", ErrQuoteUnavailable, symbol, err)
	}
	if price <= 0 {
		return nil, fmt.Errorf("%w: %s: provider returned price %v", ErrQuoteUnavailable, symbol, price)
	}

	txCtx, cancelTx := context.WithTimeout(ctx, e.tradeTimeout)
	defer cancelTx()

	outcome := &TradeOutcome{}

	err = e.db.WithContext(txCtx).Transaction(func(tx *gorm.DB) error {
		// Reload inside the transaction so the settlement works on the row
		// the transaction actually sees.
		current, err := e.challenges.WithDB(tx).FindByID(txCtx, challengeID)
		if err != nil {
			return err
		}
		if current == nil {
			return fmt.Errorf("%w: id %d", ErrChallengeNotFound, challengeID)
		}

		trade, _, err := e.Settle(txCtx, tx, current, symbol, side, qty, price)
		if err != nil {
			return err
		}

		if err := e.verifyLedger(txCtx, tx, current); err != nil {
			return err
		}

		ruleResult, err := e.EvaluateRules(txCtx, tx, current)
		if err != nil {
			return err
		}

		outcome.Trade = trade
		outcome.Challenge = current
		outcome.RuleResult = ruleResult
		return nil
	})

	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrDuplicatedKey):
			return nil, fmt.Errorf("%w: %v", ErrPersistenceConflict, err)
		case errors.Is(err, ErrInternalInconsistency):
			logger.WithError(err).WithField("challenge_id", challengeID).
				Error("Ledger mismatch detected, settlement rolled back")
			e.recordInconsistency(challengeID, err)
			return nil, err
		default:
			return nil, err
		}
	}

	return outcome, nil
}

// Limits are the rule thresholds, in percent.
type Limits struct {
	DailyLoss    float64 `json:"dailyLoss"`
	TotalLoss    float64 `json:"totalLoss"`
	ProfitTarget float64 `json:"profitTarget"`
}

// Progress reports how much of each limit has been consumed, as positive numbers.
type Progress struct {
	DailyLossUsed  float64 `json:"dailyLossUsed"`
	TotalLossUsed  float64 `json:"totalLossUsed"`
	ProfitProgress float64 `json:"profitProgress"`
}

// ChallengeMetrics is the reporting view of a challenge's standing.
type ChallengeMetrics struct {
	StartBalance  float64  `json:"startBalance"`
	CurrentEquity float64  `json:"currentEquity"`
	TotalPnl      float64  `json:"totalPnL"`
	TotalPnlPct   float64  `json:"totalPnLPct"`
	DailyPnlPct   float64  `json:"dailyPnLPct"`
	Limits        Limits   `json:"limits"`
	Progress      Progress `json:"progress"`
}

// GetChallengeMetrics computes the reporting metrics for a challenge. It
// refreshes today's watermark row on the way, so it takes the same per-account
// lock as settlement.
func (e *Engine) GetChallengeMetrics(
	ctx context.Context,
	challengeID uint,
) (*ChallengeMetrics, error) {

	unlock := e.locks.acquire(challengeID)
	defer unlock()

	challenge, err := e.challenges.FindByID(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if challenge == nil {
		return nil, fmt.Errorf("%w: id %d", ErrChallengeNotFound, challengeID)
	}

	var dailyPnlPct float64
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pct, err := e.refreshDailyMetric(ctx, tx, challenge)
		if err != nil {
			return err
		}
		dailyPnlPct = pct
		return nil
	})
	if err != nil {
		return nil, err
	}

	totalPnl := challenge.Equity - challenge.StartBalance
	totalPnlPct := 0.0
	if challenge.StartBalance > 0 {
		totalPnlPct = totalPnl / challenge.StartBalance * 100
	}

	return &ChallengeMetrics{
		StartBalance:  challenge.StartBalance,
		CurrentEquity: challenge.Equity,
		TotalPnl:      round2(totalPnl),
		TotalPnlPct:   round2(totalPnlPct),
		DailyPnlPct:   round2(dailyPnlPct),
		Limits: Limits{
			DailyLoss:    DailyLossLimitPct,
			TotalLoss:    TotalLossLimitPct,
			ProfitTarget: ProfitTargetPct,
		},
		Progress: Progress{
			DailyLossUsed:  round2(absNeg(dailyPnlPct)),
			TotalLossUsed:  round2(absNeg(totalPnlPct)),
			ProfitProgress: round2(posOnly(totalPnlPct)),
		},
	}, nil
}

func absNeg(pct float64) float64 {
	if pct < 0 {
		return -pct
	}
	return 0
}

func posOnly(pct float64) float64 {
	if pct > 0 {
		return pct
	}
	return 0
}
