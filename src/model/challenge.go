package model

import "time"

const (
	ChallengeStatusActive = "active"
	ChallengeStatusPassed = "passed"
	ChallengeStatusFailed = "failed"
)

// Rule verdicts reported by the rule engine after each settlement.
const (
	RuleMaxTotalLoss        = "MAX_TOTAL_LOSS"
	RuleProfitTargetReached = "PROFIT_TARGET_REACHED"
	RuleMaxDailyLoss        = "MAX_DAILY_LOSS"
)

// Challenge represents one funded-trading attempt. Equity is a cached running
// total maintained by the settlement engine; start_balance never changes after
// creation. Once status leaves "active" it never returns.
type Challenge struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	UserID       uint       `gorm:"index;not null" json:"user_id"`
	PlanID       uint       `gorm:"index;not null" json:"plan_id"`
	StartBalance float64    `gorm:"not null" json:"start_balance"`
	Equity       float64    `gorm:"not null" json:"equity"`
	Status       string     `gorm:"size:20;not null;default:active;index" json:"status"`
	PassedAt     *time.Time `json:"passed_at,omitempty"`
	FailedAt     *time.Time `json:"failed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	// One-to-many relations, append-only on the child side.
	Trades       []Trade       `gorm:"foreignKey:ChallengeID" json:"trades,omitempty"`
	DailyMetrics []DailyMetric `gorm:"foreignKey:ChallengeID" json:"daily_metrics,omitempty"`
}

func (Challenge) TableName() string {
	return "challenges"
}

// IsActive reports whether the challenge can still accept trades.
func (c *Challenge) IsActive() bool {
	return c.Status == ChallengeStatusActive
}
