package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"

	"tradesense/src/auth"
	"tradesense/src/engine"
	"tradesense/src/model"
)

type challengeRepo interface {
	Create(ctx context.Context, challenge *model.Challenge) error
	FindByID(ctx context.Context, id uint) (*model.Challenge, error)
	FindByUser(ctx context.Context, userID uint) ([]model.Challenge, error)
	FindActiveByUser(ctx context.Context, userID uint) (*model.Challenge, error)
}

type planFinder interface {
	FindBySlug(ctx context.Context, slug string) (*model.Plan, error)
}

type metricsProvider interface {
	GetChallengeMetrics(ctx context.Context, challengeID uint) (*engine.ChallengeMetrics, error)
}

type createChallengePayload struct {
	PlanSlug string `json:"plan_slug"`
}

// CreateChallengeHandler starts a new challenge for the authenticated user
// from the selected plan. Equity starts at the plan's virtual balance.
func CreateChallengeHandler(challenges challengeRepo, plans planFinder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		var payload createChallengePayload
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&payload); err != nil {
			logger.WithError(err).Warn("invalid create challenge payload")
			http.Error(w, "Invalid payload", http.StatusBadRequest)
			return
		}

		plan, err := plans.FindBySlug(r.Context(), payload.PlanSlug)
		if err != nil {
			logger.WithError(err).Error("failed to load plan")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if plan == nil {
			http.Error(w, "Plan not found", http.StatusNotFound)
			return
		}

		existing, err := challenges.FindActiveByUser(r.Context(), user.ID)
		if err != nil {
			logger.WithError(err).Error("failed to check active challenge")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if existing != nil {
			http.Error(w, "User already has an active challenge", http.StatusConflict)
			return
		}

		challenge := &model.Challenge{
			UserID:       user.ID,
			PlanID:       plan.ID,
			StartBalance: plan.StartBalance,
			Equity:       plan.StartBalance,
			Status:       model.ChallengeStatusActive,
		}
		if err := challenges.Create(r.Context(), challenge); err != nil {
			logger.WithError(err).Error("failed to create challenge")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		if err := json.NewEncoder(w).Encode(map[string]interface{}{"challenge": challenge}); err != nil {
			logger.WithError(err).Error("failed to encode challenge response")
		}
	}
}

// GetActiveChallengeHandler returns the user's active challenge, or null.
func GetActiveChallengeHandler(challenges challengeRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		challenge, err := challenges.FindActiveByUser(r.Context(), user.ID)
		if err != nil {
			logger.WithError(err).Error("failed to fetch active challenge")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		response := map[string]interface{}{"challenge": challenge}
		if challenge == nil {
			response["message"] = "No active challenge"
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(response); err != nil {
			logger.WithError(err).Error("failed to encode active challenge response")
		}
	}
}

// ListChallengesHandler returns all challenges of the authenticated user.
func ListChallengesHandler(challenges challengeRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		list, err := challenges.FindByUser(r.Context(), user.ID)
		if err != nil {
			logger.WithError(err).Error("failed to list challenges")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]interface{}{"challenges": list}); err != nil {
			logger.WithError(err).Error("failed to encode challenge list response")
		}
	}
}

// GetChallengeHandler returns one challenge; users can only view their own
// unless they are admins.
func GetChallengeHandler(challenges challengeRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, challenge, ok := loadOwnedChallenge(w, r, challenges)
		if !ok {
			return
		}
		_ = user

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]interface{}{"challenge": challenge}); err != nil {
			logger.WithError(err).Error("failed to encode challenge response")
		}
	}
}

// ChallengeMetricsHandler reports the challenge's standing against its limits.
func ChallengeMetricsHandler(challenges challengeRepo, metrics metricsProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, challenge, ok := loadOwnedChallenge(w, r, challenges)
		if !ok {
			return
		}

		result, err := metrics.GetChallengeMetrics(r.Context(), challenge.ID)
		if err != nil {
			if errors.Is(err, engine.ErrChallengeNotFound) {
				http.Error(w, "Challenge not found", http.StatusNotFound)
				return
			}
			logger.WithError(err).Error("failed to compute challenge metrics")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(result); err != nil {
			logger.WithError(err).Error("failed to encode metrics response")
		}
	}
}

// loadOwnedChallenge resolves the {id} route param and enforces ownership.
// It writes the error response itself when returning ok=false.
func loadOwnedChallenge(
	w http.ResponseWriter,
	r *http.Request,
	challenges challengeRepo,
) (*model.User, *model.Challenge, bool) {

	user, ok := auth.GetUserFromContext(r.Context())
	if !ok || user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return nil, nil, false
	}

	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		http.Error(w, "invalid challenge id", http.StatusBadRequest)
		return nil, nil, false
	}

	challenge, err := challenges.FindByID(r.Context(), uint(id))
	if err != nil {
		logger.WithError(err).Error("failed to load challenge")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return nil, nil, false
	}
	if challenge == nil {
		http.Error(w, "Challenge not found", http.StatusNotFound)
		return nil, nil, false
	}
	if challenge.UserID != user.ID && user.Role != model.RoleAdmin {
		http.Error(w, "Unauthorized", http.StatusForbidden)
		return nil, nil, false
	}

	return user, challenge, true
}
