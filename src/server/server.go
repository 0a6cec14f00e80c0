package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	logger "github.com/sirupsen/logrus"

	"tradesense/src/auth"
	"tradesense/src/database"
	"tradesense/src/engine"
	"tradesense/src/handler"
	"tradesense/src/quotes"
	"tradesense/src/repository"
	"tradesense/src/signals"
)

func StartServer(port string) {
	challenges := repository.NewChallengeRepository()
	trades := repository.NewTradeRepository()
	plans := repository.NewPlanRepository()
	users := repository.NewUserRepository()

	provider := quotes.NewService()
	tradeEngine := engine.NewEngine(database.MainDB, provider)

	signalConfig := signals.GetConfig()
	generator := signals.NewGenerator(signalConfig)
	store := signals.NewStore(signalConfig)
	hub := signals.NewHub(generator, signalConfig)

	feedCtx, stopFeed := context.WithCancel(context.Background())
	defer stopFeed()
	go hub.Run(feedCtx)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.WithError(err).Error("/healthcheck write error")
		}
	})

	// Public routes
	r.Get("/api/plans", handler.ListPlansHandler(plans))
	r.Get("/api/market/quote", handler.QuoteHandler(provider))
	r.Get("/api/leaderboard/monthly-top10", handler.MonthlyTopHandler(challenges))
	r.Get("/api/signals/latest", handler.LatestSignalHandler(store, generator))
	r.Post("/api/signals/generate", handler.GenerateSignalHandler(store, generator))
	r.Get("/api/signals/ws", handler.SignalFeedHandler(hub))

	// Routes behind the identity middleware
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireUser(users))

		r.Post("/api/trades", handler.ExecuteTradeHandler(tradeEngine, challenges))
		r.Get("/api/trades", handler.ListTradesHandler(trades, challenges))

		r.Post("/api/challenges", handler.CreateChallengeHandler(challenges, plans))
		r.Get("/api/challenges", handler.ListChallengesHandler(challenges))
		r.Get("/api/challenges/active", handler.GetActiveChallengeHandler(challenges))
		r.Get("/api/challenges/{id}", handler.GetChallengeHandler(challenges))
		r.Get("/api/challenges/{id}/metrics", handler.ChallengeMetricsHandler(challenges, tradeEngine))
	})

	addr := ":" + port
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		logger.Infof("Listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server crashed")
		}
	}()

	// Shutdown on SIGINT or SIGTERM
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down gracefully...")
	stopFeed()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Shutdown error")
	}
}
