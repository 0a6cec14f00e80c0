package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	logger "github.com/sirupsen/logrus"

	"tradesense/src/auth"
	"tradesense/src/engine"
	"tradesense/src/model"
)

type tradeExecutor interface {
	ExecuteTrade(ctx context.Context, challengeID uint, symbol, side string, qty float64) (*engine.TradeOutcome, error)
}

type tradeLister interface {
	FindByChallenge(ctx context.Context, challengeID uint) ([]model.Trade, error)
}

type challengeFinder interface {
	FindByID(ctx context.Context, id uint) (*model.Challenge, error)
}

type executeTradePayload struct {
	ChallengeID uint    `json:"challenge_id"`
	Symbol      string  `json:"symbol"`
	Side        string  `json:"side"`
	Qty         float64 `json:"qty"`
}

// ExecuteTradeHandler settles one simulated trade and returns the ledger
// entry, the post-trade challenge and the rule verdict in a single response.
func ExecuteTradeHandler(exec tradeExecutor, challenges challengeFinder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		var payload executeTradePayload
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&payload); err != nil {
			logger.WithError(err).Warn("invalid trade payload")
			http.Error(w, "Invalid payload", http.StatusBadRequest)
			return
		}

		if payload.ChallengeID == 0 {
			http.Error(w, "challenge_id is required", http.StatusBadRequest)
			return
		}

		challenge, err := challenges.FindByID(r.Context(), payload.ChallengeID)
		if err != nil {
			logger.WithError(err).Error("failed to load challenge for trade")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if challenge == nil {
			http.Error(w, "Challenge not found", http.StatusNotFound)
			return
		}
		if challenge.UserID != user.ID && user.Role != model.RoleAdmin {
			http.Error(w, "Unauthorized", http.StatusForbidden)
			return
		}

		symbol := strings.ToUpper(strings.TrimSpace(payload.Symbol))

		outcome, err := exec.ExecuteTrade(r.Context(), payload.ChallengeID, symbol, payload.Side, payload.Qty)
		if err != nil {
			writeTradeError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		if err := json.NewEncoder(w).Encode(map[string]interface{}{
			"message":     "Trade executed successfully",
			"trade":       outcome.Trade,
			"challenge":   outcome.Challenge,
			"rule_result": outcome.RuleResult,
		}); err != nil {
			logger.WithError(err).Error("failed to encode trade response")
		}
	}
}

// writeTradeError maps the engine's typed failures onto HTTP statuses.
func writeTradeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrInvalidTradeRequest):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, engine.ErrChallengeNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, engine.ErrChallengeNotActive):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, engine.ErrQuoteUnavailable):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	case errors.Is(err, engine.ErrPersistenceConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		logger.WithError(err).Error("trade execution failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// ListTradesHandler returns all trades of a challenge, newest first.
func ListTradesHandler(trades tradeLister, challenges challengeFinder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		raw := r.URL.Query().Get("challenge_id")
		if raw == "" {
			http.Error(w, "challenge_id is required", http.StatusBadRequest)
			return
		}

		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			http.Error(w, "invalid challenge_id", http.StatusBadRequest)
			return
		}

		challenge, err := challenges.FindByID(r.Context(), uint(id))
		if err != nil {
			logger.WithError(err).Error("failed to load challenge for trade listing")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if challenge == nil {
			http.Error(w, "Challenge not found", http.StatusNotFound)
			return
		}
		if challenge.UserID != user.ID && user.Role != model.RoleAdmin {
			http.Error(w, "Unauthorized", http.StatusForbidden)
			return
		}

		list, err := trades.FindByChallenge(r.Context(), uint(id))
		if err != nil {
			logger.WithError(err).Error("failed to list trades")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]interface{}{"trades": list}); err != nil {
			logger.WithError(err).Error("failed to encode trade list response")
		}
	}
}
