package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	logger "github.com/sirupsen/logrus"

	"tradesense/src/repository"
)

type monthlyTopper interface {
	MonthlyTop(ctx context.Context, year int, month int, limit int) ([]repository.MonthlyLeaderboardRow, error)
}

type leaderboardEntry struct {
	Rank int `json:"rank"`
	repository.MonthlyLeaderboardRow
}

// MonthlyTopHandler returns the top 10 traders of the current month by profit
// percentage. Public endpoint.
func MonthlyTopHandler(challenges monthlyTopper) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().UTC()

		rows, err := challenges.MonthlyTop(r.Context(), now.Year(), int(now.Month()), 10)
		if err != nil {
			logger.WithError(err).Error("failed to fetch leaderboard")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		leaderboard := make([]leaderboardEntry, 0, len(rows))
		for i, row := range rows {
			leaderboard = append(leaderboard, leaderboardEntry{Rank: i + 1, MonthlyLeaderboardRow: row})
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]interface{}{
			"month":       now.Format("January 2006"),
			"leaderboard": leaderboard,
		}); err != nil {
			logger.WithError(err).Error("failed to encode leaderboard response")
		}
	}
}
