package repository

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradesense/src/database"
	"tradesense/src/model"
)

// ChallengeRepository handles read/write operations for challenge accounts.
type ChallengeRepository struct {
	db *gorm.DB
}

// NewChallengeRepository creates a new repository instance using the main read/write database.
func NewChallengeRepository() *ChallengeRepository {
	logger.WithField("component", "ChallengeRepository").
		Info("Creating new ChallengeRepository with MainDB")

	return &ChallengeRepository{
		db: database.MainDB,
	}
}

// WithDB allows overriding the underlying *gorm.DB instance.
// Useful for tests or when using a specific session/transaction.
func (r *ChallengeRepository) WithDB(db *gorm.DB) *ChallengeRepository {
	return &ChallengeRepository{db: db}
}

// Create inserts a new challenge into the database.
// The given challenge will be updated with the generated ID and timestamps.
func (r *ChallengeRepository) Create(
	ctx context.Context,
	challenge *model.Challenge,
) error {

	logger.WithFields(map[string]interface{}{
		"repo":          "ChallengeRepository",
		"op":            "Create",
		"user_id":       challenge.UserID,
		"plan_id":       challenge.PlanID,
		"start_balance": challenge.StartBalance,
	}).Debug("Creating new challenge")

	err := r.db.WithContext(ctx).Create(challenge).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "ChallengeRepository",
			"op":   "Create",
		}).WithError(err).Error("Failed to create challenge")

		return err
	}

	logger.WithFields(map[string]interface{}{
		"repo":         "ChallengeRepository",
		"op":           "Create",
		"challenge_id": challenge.ID,
	}).Info("Challenge created successfully")

	return nil
}

// FindByID fetches a single challenge by its primary ID.
// Returns (nil, nil) if the challenge is not found.
func (r *ChallengeRepository) FindByID(
	ctx context.Context,
	id uint,
) (*model.Challenge, error) {

	logger.WithFields(map[string]interface{}{
		"repo": "ChallengeRepository",
		"op":   "FindByID",
		"id":   id,
	}).Debug("Fetching challenge by ID")

	var challenge model.Challenge

	err := r.db.WithContext(ctx).First(&challenge, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.WithFields(map[string]interface{}{
				"repo": "ChallengeRepository",
				"op":   "FindByID",
				"id":   id,
			}).Info("Challenge not found")

			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo": "ChallengeRepository",
			"op":   "FindByID",
			"id":   id,
		}).WithError(err).Error("Failed to fetch challenge by ID")

		return nil, err
	}

	return &challenge, nil
}

// FindByUser returns all challenges of a user ordered from newest to oldest.
func (r *ChallengeRepository) FindByUser(
	ctx context.Context,
	userID uint,
) ([]model.Challenge, error) {

	logger.WithFields(map[string]interface{}{
		"repo":    "ChallengeRepository",
		"op":      "FindByUser",
		"user_id": userID,
	}).Debug("Fetching challenges for user")

	var challenges []model.Challenge

	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&challenges).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":    "ChallengeRepository",
			"op":      "FindByUser",
			"user_id": userID,
		}).WithError(err).Error("Failed to fetch challenges for user")

		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"repo":        "ChallengeRepository",
		"op":          "FindByUser",
		"user_id":     userID,
		"rows_return": len(challenges),
	}).Info("Challenges fetched")

	return challenges, nil
}

// FindActiveByUser fetches the user's currently active challenge.
// Returns (nil, nil) if the user has no active challenge.
func (r *ChallengeRepository) FindActiveByUser(
	ctx context.Context,
	userID uint,
) (*model.Challenge, error) {

	logger.WithFields(map[string]interface{}{
		"repo":    "ChallengeRepository",
		"op":      "FindActiveByUser",
		"user_id": userID,
	}).Debug("Fetching active challenge for user")

	var challenge model.Challenge

	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, model.ChallengeStatusActive).
		Order("created_at DESC").
		First(&challenge).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo":    "ChallengeRepository",
			"op":      "FindActiveByUser",
			"user_id": userID,
		}).WithError(err).Error("Failed to fetch active challenge")

		return nil, err
	}

	return &challenge, nil
}

// Save persists the current state of the challenge (equity, status, timestamps).
func (r *ChallengeRepository) Save(
	ctx context.Context,
	challenge *model.Challenge,
) error {

	logger.WithFields(map[string]interface{}{
		"repo":         "ChallengeRepository",
		"op":           "Save",
		"challenge_id": challenge.ID,
		"equity":       challenge.Equity,
		"status":       challenge.Status,
	}).Debug("Saving challenge")

	err := r.db.WithContext(ctx).Save(challenge).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":         "ChallengeRepository",
			"op":           "Save",
			"challenge_id": challenge.ID,
		}).WithError(err).Error("Failed to save challenge")

		return err
	}

	return nil
}

// MonthlyLeaderboardRow is one leaderboard entry with its owning user's name.
type MonthlyLeaderboardRow struct {
	UserID       uint    `json:"user_id"`
	Name         string  `json:"name"`
	ChallengeID  uint    `json:"challenge_id"`
	StartBalance float64 `json:"start_balance"`
	Equity       float64 `json:"equity"`
	Status       string  `json:"status"`
	ProfitPct    float64 `json:"profit_pct"`
}

// MonthlyTop finds the best-performing challenges created in the given month,
// ranked by total profit percentage.
func (r *ChallengeRepository) MonthlyTop(
	ctx context.Context,
	year int,
	month int,
	limit int,
) ([]MonthlyLeaderboardRow, error) {

	if limit <= 0 {
		limit = 10
	}

	logger.WithFields(map[string]interface{}{
		"repo":  "ChallengeRepository",
		"op":    "MonthlyTop",
		"year":  year,
		"month": month,
		"limit": limit,
	}).Debug("Fetching monthly leaderboard")

	var rows []MonthlyLeaderboardRow

	err := r.db.WithContext(ctx).
		Model(&model.Challenge{}).
		Select(`users.id AS user_id,
			users.name AS name,
			challenges.id AS challenge_id,
			challenges.start_balance AS start_balance,
			challenges.equity AS equity,
			challenges.status AS status,
			(challenges.equity - challenges.start_balance) / challenges.start_balance * 100 AS profit_pct`).
		Joins("JOIN users ON users.id = challenges.user_id").
		Where("EXTRACT(MONTH FROM challenges.created_at) = ? AND EXTRACT(YEAR FROM challenges.created_at) = ?", month, year).
		Order("profit_pct DESC").
		Limit(limit).
		Scan(&rows).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "ChallengeRepository",
			"op":   "MonthlyTop",
		}).WithError(err).Error("Failed to fetch monthly leaderboard")

		return nil, err
	}

	return rows, nil
}
