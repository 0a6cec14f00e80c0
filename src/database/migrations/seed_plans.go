package migrations

import (
	"encoding/json"
	"fmt"

	"tradesense/src/model"

	"gorm.io/gorm"
)

type planSeed struct {
	Slug         string
	Name         string
	PriceDh      float64
	StartBalance float64
	Features     []string
}

var defaultPlans = []planSeed{
	{
		Slug:         "starter",
		Name:         "Starter Challenge",
		PriceDh:      200,
		StartBalance: 5000,
		Features: []string{
			"5,000 DH Virtual Balance",
			"All Trading Instruments",
			"Real-time Market Data",
			"Basic AI Signals",
			"5% Daily Drawdown Limit",
			"10% Max Drawdown Limit",
			"10% Profit Target",
		},
	},
	{
		Slug:         "pro",
		Name:         "Pro Challenge",
		PriceDh:      500,
		StartBalance: 15000,
		Features: []string{
			"15,000 DH Virtual Balance",
			"All Trading Instruments",
			"Real-time Market Data",
			"Advanced AI Signals",
			"Priority Support",
			"5% Daily Drawdown Limit",
			"10% Max Drawdown Limit",
			"10% Profit Target",
		},
	},
	{
		Slug:         "elite",
		Name:         "Elite Challenge",
		PriceDh:      1000,
		StartBalance: 50000,
		Features: []string{
			"50,000 DH Virtual Balance",
			"All Trading Instruments",
			"Real-time Market Data",
			"Premium AI Signals",
			"VIP Support",
			"Extended Trading Hours",
			"5% Daily Drawdown Limit",
			"10% Max Drawdown Limit",
			"10% Profit Target",
		},
	},
}

// seedDefaultPlans inserts the challenge tiers if they are missing.
// Existing plans with the same slug are left untouched.
func seedDefaultPlans(db *gorm.DB) error {
	for _, seed := range defaultPlans {
		var count int64
		if err := db.Model(&model.Plan{}).
			Where("slug = ?", seed.Slug).
			Count(&count).Error; err != nil {
			return fmt.Errorf("check plan %q: %w", seed.Slug, err)
		}
		if count > 0 {
			continue
		}

		features, err := json.Marshal(seed.Features)
		if err != nil {
			return fmt.Errorf("marshal features for plan %q: %w", seed.Slug, err)
		}

		plan := model.Plan{
			Slug:         seed.Slug,
			Name:         seed.Name,
			PriceDh:      seed.PriceDh,
			StartBalance: seed.StartBalance,
			FeaturesJSON: string(features),
		}
		if err := db.Create(&plan).Error; err != nil {
			return fmt.Errorf("create plan %q: %w", seed.Slug, err)
		}
	}

	return nil
}
