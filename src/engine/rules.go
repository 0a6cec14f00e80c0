package engine

import (
	"context"
	"fmt"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradesense/src/model"
)

// Loss limits and profit target, in percent of the reference equity.
const (
	DailyLossLimitPct = -5.0
	TotalLossLimitPct = -10.0
	ProfitTargetPct   = 10.0
)

// RuleResult is the rule engine's verdict after one equity-changing event.
// Status and Triggered are contractually binding; RulesChecked is an
// informational trace only.
type RuleResult struct {
	Status       string   `json:"status"`
	Triggered    *string  `json:"triggered"`
	RulesChecked []string `json:"rules_checked"`
}

func triggeredRule(name string) *string {
	return &name
}

// EvaluateRules runs the challenge state machine against the current equity.
// It must run in the same transaction as the settlement that moved the equity,
// under the same per-account lock. The rules short-circuit: a single event
// fires at most one transition. Re-invoking on a terminal challenge is a no-op
// that reports the existing status.
func (e *Engine) EvaluateRules(
	ctx context.Context,
	tx *gorm.DB,
	challenge *model.Challenge,
) (*RuleResult, error) {

	result := &RuleResult{
		Status:       challenge.Status,
		RulesChecked: []string{},
	}

	if !challenge.IsActive() {
		result.RulesChecked = append(result.RulesChecked, "Challenge not active, skipping rules")
		return result, nil
	}

	startBalance := challenge.StartBalance
	currentEquity := challenge.Equity

	totalPnlPct := (currentEquity - startBalance) / startBalance * 100

	// Rule 1: max total loss
	if totalPnlPct <= TotalLossLimitPct {
		if err := e.markFailed(ctx, tx, challenge); err != nil {
			return nil, err
		}

		result.Status = model.ChallengeStatusFailed
		result.Triggered = triggeredRule(model.RuleMaxTotalLoss)
		result.RulesChecked = append(result.RulesChecked,
			fmt.Sprintf("Total loss %.2f%% exceeds %.0f%% limit", totalPnlPct, TotalLossLimitPct))
		return result, nil
	}

	result.RulesChecked = append(result.RulesChecked,
		fmt.Sprintf("Total loss check: %.2f%% (limit: %.0f%%)", totalPnlPct, TotalLossLimitPct))

	// Rule 2: profit target
	if totalPnlPct >= ProfitTargetPct {
		if err := e.markPassed(ctx, tx, challenge); err != nil {
			return nil, err
		}

		result.Status = model.ChallengeStatusPassed
		result.Triggered = triggeredRule(model.RuleProfitTargetReached)
		result.RulesChecked = append(result.RulesChecked,
			fmt.Sprintf("Profit target reached: %.2f%% (target: +%.0f%%)", totalPnlPct, ProfitTargetPct))
		return result, nil
	}

	result.RulesChecked = append(result.RulesChecked,
		fmt.Sprintf("Profit target check: %.2f%% (target: +%.0f%%)", totalPnlPct, ProfitTargetPct))

	// Rule 3: max daily loss
	dailyPnlPct, err := e.refreshDailyMetric(ctx, tx, challenge)
	if err != nil {
		return nil, err
	}

	if dailyPnlPct <= DailyLossLimitPct {
		if err := e.markFailed(ctx, tx, challenge); err != nil {
			return nil, err
		}

		result.Status = model.ChallengeStatusFailed
		result.Triggered = triggeredRule(model.RuleMaxDailyLoss)
		result.RulesChecked = append(result.RulesChecked,
			fmt.Sprintf("Daily loss %.2f%% exceeds %.0f%% limit", dailyPnlPct, DailyLossLimitPct))
		return result, nil
	}

	result.RulesChecked = append(result.RulesChecked,
		fmt.Sprintf("Daily loss check: %.2f%% (limit: %.0f%%)", dailyPnlPct, DailyLossLimitPct))

	return result, nil
}

func (e *Engine) markFailed(ctx context.Context, tx *gorm.DB, challenge *model.Challenge) error {
	now := e.now().UTC()
	challenge.Status = model.ChallengeStatusFailed
	challenge.FailedAt = &now

	if err := e.challenges.WithDB(tx).Save(ctx, challenge); err != nil {
		return err
	}

	logger.WithFields(map[string]interface{}{
		"challenge_id": challenge.ID,
		"equity":       challenge.Equity,
	}).Warn("Challenge failed")

	return nil
}

func (e *Engine) markPassed(ctx context.Context, tx *gorm.DB, challenge *model.Challenge) error {
	now := e.now().UTC()
	challenge.Status = model.ChallengeStatusPassed
	challenge.PassedAt = &now

	if err := e.challenges.WithDB(tx).Save(ctx, challenge); err != nil {
		return err
	}

	logger.WithFields(map[string]interface{}{
		"challenge_id": challenge.ID,
		"equity":       challenge.Equity,
	}).Info("Challenge passed, account funded")

	return nil
}

// refreshDailyMetric maintains the one-row-per-day watermark and returns the
// current day's PnL percentage.
//
// The first touch of a calendar day seeds the row with the current equity as
// both day start and day end, so the first trade of the day can never trip the
// daily-loss rule by itself. Creation is an atomic upsert on the composite
// unique index; settlement is serialized per account, so after any trade
// exactly one row exists for (challenge, date).
func (e *Engine) refreshDailyMetric(
	ctx context.Context,
	tx *gorm.DB,
	challenge *model.Challenge,
) (float64, error) {

	today := e.now().UTC().Format(model.MetricDateLayout)
	metrics := e.metrics.WithDB(tx)

	seed := &model.DailyMetric{
		ChallengeID:    challenge.ID,
		Date:           today,
		DayStartEquity: challenge.Equity,
		DayEndEquity:   challenge.Equity,
	}

	created, err := metrics.CreateIfAbsent(ctx, seed)
	if err != nil {
		return 0, err
	}
	if created {
		return 0, nil
	}

	metric, err := metrics.FindByChallengeAndDate(ctx, challenge.ID, today)
	if err != nil {
		return 0, err
	}
	if metric == nil {
		return 0, fmt.Errorf("%w: daily metric for challenge %d on %s vanished",
			ErrPersistenceConflict, challenge.ID, today)
	}

	dayStart := metric.DayStartEquity
	dayPnl := challenge.Equity - dayStart

	dayPnlPct := 0.0
	if dayStart > 0 {
		dayPnlPct = dayPnl / dayStart * 100
	}

	metric.DayEndEquity = challenge.Equity
	metric.DayPnl = dayPnl
	// Most negative intraday move wins; the watermark never recovers mid-day.
	if dayPnlPct < metric.MaxIntradayDrawdownPct {
		metric.MaxIntradayDrawdownPct = dayPnlPct
	}

	if err := metrics.Update(ctx, metric); err != nil {
		return 0, err
	}

	return dayPnlPct, nil
}
