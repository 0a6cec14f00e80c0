package handler

import (
	"context"
	"encoding/json"
	"net/http"

	logger "github.com/sirupsen/logrus"

	"tradesense/src/model"
)

type planLister interface {
	List(ctx context.Context) ([]model.Plan, error)
}

type planView struct {
	ID           uint     `json:"id"`
	Slug         string   `json:"slug"`
	Name         string   `json:"name"`
	PriceDh      float64  `json:"price_dh"`
	StartBalance float64  `json:"start_balance"`
	Features     []string `json:"features"`
}

// ListPlansHandler returns all purchasable challenge tiers. Public endpoint.
func ListPlansHandler(plans planLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := plans.List(r.Context())
		if err != nil {
			logger.WithError(err).Error("failed to list plans")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		views := make([]planView, 0, len(list))
		for _, plan := range list {
			view := planView{
				ID:           plan.ID,
				Slug:         plan.Slug,
				Name:         plan.Name,
				PriceDh:      plan.PriceDh,
				StartBalance: plan.StartBalance,
				Features:     []string{},
			}
			if plan.FeaturesJSON != "" {
				if err := json.Unmarshal([]byte(plan.FeaturesJSON), &view.Features); err != nil {
					logger.WithError(err).WithField("plan", plan.Slug).Warn("unparseable plan features")
				}
			}
			views = append(views, view)
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]interface{}{"plans": views}); err != nil {
			logger.WithError(err).Error("failed to encode plan list response")
		}
	}
}
