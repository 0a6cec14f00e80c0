package repository

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tradesense/src/database"
	"tradesense/src/model"
)

// DailyMetricRepository handles the per-day equity watermarks of challenges.
type DailyMetricRepository struct {
	db *gorm.DB
}

// NewDailyMetricRepository creates a new repository instance using the main read/write database.
func NewDailyMetricRepository() *DailyMetricRepository {
	logger.WithField("component", "DailyMetricRepository").
		Info("Creating new DailyMetricRepository with MainDB")

	return &DailyMetricRepository{
		db: database.MainDB,
	}
}

// WithDB allows overriding the underlying *gorm.DB instance.
// Useful for tests or when using a specific session/transaction.
func (r *DailyMetricRepository) WithDB(db *gorm.DB) *DailyMetricRepository {
	return &DailyMetricRepository{db: db}
}

// FindByChallengeAndDate fetches the metric row for one challenge-day.
// Returns (nil, nil) if no row exists yet for that date.
func (r *DailyMetricRepository) FindByChallengeAndDate(
	ctx context.Context,
	challengeID uint,
	date string,
) (*model.DailyMetric, error) {

	logger.WithFields(map[string]interface{}{
		"repo":         "DailyMetricRepository",
		"op":           "FindByChallengeAndDate",
		"challenge_id": challengeID,
		"date":         date,
	}).Debug("Fetching daily metric")

	var metric model.DailyMetric

	err := r.db.WithContext(ctx).
		Where("challenge_id = ? AND date = ?", challengeID, date).
		First(&metric).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo":         "DailyMetricRepository",
			"op":           "FindByChallengeAndDate",
			"challenge_id": challengeID,
			"date":         date,
		}).WithError(err).Error("Failed to fetch daily metric")

		return nil, err
	}

	return &metric, nil
}

// CreateIfAbsent inserts the metric row for its (challenge, date) pair unless
// one already exists. The insert rides on the composite unique index, so two
// racing first-trades of the day cannot produce duplicate rows.
// Returns true when this call created the row.
func (r *DailyMetricRepository) CreateIfAbsent(
	ctx context.Context,
	metric *model.DailyMetric,
) (bool, error) {

	logger.WithFields(map[string]interface{}{
		"repo":         "DailyMetricRepository",
		"op":           "CreateIfAbsent",
		"challenge_id": metric.ChallengeID,
		"date":         metric.Date,
	}).Debug("Upserting daily metric")

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "challenge_id"}, {Name: "date"}},
			DoNothing: true,
		}).
		Create(metric)

	if result.Error != nil {
		logger.WithFields(map[string]interface{}{
			"repo":         "DailyMetricRepository",
			"op":           "CreateIfAbsent",
			"challenge_id": metric.ChallengeID,
			"date":         metric.Date,
		}).WithError(result.Error).Error("Failed to upsert daily metric")

		return false, result.Error
	}

	created := result.RowsAffected > 0
	if created {
		logger.WithFields(map[string]interface{}{
			"repo":         "DailyMetricRepository",
			"op":           "CreateIfAbsent",
			"challenge_id": metric.ChallengeID,
			"date":         metric.Date,
		}).Info("Daily metric created")
	}

	return created, nil
}

// Update persists the day-end values of an existing metric row.
// DayStartEquity is never touched after creation.
func (r *DailyMetricRepository) Update(
	ctx context.Context,
	metric *model.DailyMetric,
) error {

	logger.WithFields(map[string]interface{}{
		"repo":           "DailyMetricRepository",
		"op":             "Update",
		"challenge_id":   metric.ChallengeID,
		"date":           metric.Date,
		"day_end_equity": metric.DayEndEquity,
	}).Debug("Updating daily metric")

	err := r.db.WithContext(ctx).
		Model(&model.DailyMetric{}).
		Where("id = ?", metric.ID).
		Updates(map[string]interface{}{
			"day_end_equity":            metric.DayEndEquity,
			"day_pnl":                   metric.DayPnl,
			"max_intraday_drawdown_pct": metric.MaxIntradayDrawdownPct,
		}).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":         "DailyMetricRepository",
			"op":           "Update",
			"challenge_id": metric.ChallengeID,
			"date":         metric.Date,
		}).WithError(err).Error("Failed to update daily metric")

		return err
	}

	return nil
}

// FindByChallenge returns all metric rows of a challenge, oldest first.
func (r *DailyMetricRepository) FindByChallenge(
	ctx context.Context,
	challengeID uint,
) ([]model.DailyMetric, error) {

	var metrics []model.DailyMetric

	err := r.db.WithContext(ctx).
		Where("challenge_id = ?", challengeID).
		Order("date ASC").
		Find(&metrics).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":         "DailyMetricRepository",
			"op":           "FindByChallenge",
			"challenge_id": challengeID,
		}).WithError(err).Error("Failed to fetch daily metrics")

		return nil, err
	}

	return metrics, nil
}
