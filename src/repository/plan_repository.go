package repository

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradesense/src/database"
	"tradesense/src/model"
)

type PlanRepository struct {
	db *gorm.DB
}

func NewPlanRepository() *PlanRepository {
	logger.WithField("component", "PlanRepository").
		Info("Creating new PlanRepository with MainDB")

	return &PlanRepository{
		db: database.MainDB,
	}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *PlanRepository) WithDB(db *gorm.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

// FindByID fetches a plan by its primary ID. Returns (nil, nil) when missing.
func (r *PlanRepository) FindByID(
	ctx context.Context,
	id uint,
) (*model.Plan, error) {

	var plan model.Plan

	err := r.db.WithContext(ctx).First(&plan, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo": "PlanRepository",
			"op":   "FindByID",
			"id":   id,
		}).WithError(err).Error("Failed to fetch plan by ID")

		return nil, err
	}

	return &plan, nil
}

// FindBySlug fetches a plan by its slug. Returns (nil, nil) when missing.
func (r *PlanRepository) FindBySlug(
	ctx context.Context,
	slug string,
) (*model.Plan, error) {

	var plan model.Plan

	err := r.db.WithContext(ctx).
		Where("slug = ?", slug).
		First(&plan).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo": "PlanRepository",
			"op":   "FindBySlug",
			"slug": slug,
		}).WithError(err).Error("Failed to fetch plan by slug")

		return nil, err
	}

	return &plan, nil
}

// List returns all plans ordered by price ascending.
func (r *PlanRepository) List(
	ctx context.Context,
) ([]model.Plan, error) {

	var plans []model.Plan

	err := r.db.WithContext(ctx).
		Order("price_dh ASC").
		Find(&plans).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "PlanRepository",
			"op":   "List",
		}).WithError(err).Error("Failed to list plans")

		return nil, err
	}

	return plans, nil
}
