package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hutmovies/hutmovies/internal/api/handlers"
	"github.com/hutmovies/hutmovies/internal/api/middleware"
	"github.com/hutmovies/hutmovies/internal/config"
	"github.com/hutmovies/hutmovies/internal/controllers"
	"github.com/hutmovies/hutmovies/internal/metrics"
	"github.com/hutmovies/hutmovies/internal/models"
	"github.com/hutmovies/hutmovies/internal/player"
	"github.com/hutmovies/hutmovies/internal/services/settings"
	"github.com/hutmovies/hutmovies/internal/utils"
	"github.com/sirupsen/logrus"
)

// Dependencies are the services the HTTP surface is built on
type Dependencies struct {
	DB            *models.Database
	Catalog       *controllers.CatalogController
	Episodes      *controllers.EpisodeController
	Progress      *controllers.ProgressController
	Roulette      *controllers.RouletteController
	Subscriptions *controllers.SubscriptionController
	Notifications *controllers.NotificationController
	Sessions      *player.Manager
	Settings      settings.Store
	Checks        handlers.EpisodeCheckRunner
	Verifier      middleware.TokenVerifier
	Admins        *utils.Admins
	Metrics       *metrics.Metrics
}

// Server represents the HTTP server
type Server struct {
	server *http.Server
	deps   Dependencies
	logger *logrus.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg *config.Config, deps Dependencies, logger *logrus.Logger) *Server {
	s := &Server{
		deps:   deps,
		logger: logger,
	}

	mux := http.NewServeMux()
	s.setupRoutes(mux)

	s.server = &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      middleware.Logging(mux, deps.Metrics, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 6 * time.Minute, // Deposits wait for the wallet to sign
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the root handler with middleware applied
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(mux *http.ServeMux) {
	d := s.deps

	// Health check
	healthHandler := handlers.NewHealthHandler(s.logger)
	mux.HandleFunc("GET /health", healthHandler.ServeHTTP)

	// Status endpoint
	statusHandler := handlers.NewStatusHandler(d.DB, d.Sessions, d.Checks, s.logger)
	mux.HandleFunc("GET /status", statusHandler.ServeHTTP)

	mux.Handle("GET /metrics", d.Metrics.Handler())

	auth := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, middleware.RequireAuth(h, d.Verifier, s.logger))
	}
	admin := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, middleware.RequireAuth(middleware.RequireAdmin(h, d.Admins, s.logger), d.Verifier, s.logger))
	}

	// Progress
	progressHandler := handlers.NewProgressHandler(d.Progress, d.Episodes, s.logger)
	auth("POST /api/progress", progressHandler.Save)
	auth("GET /api/progress", progressHandler.Restore)
	auth("GET /api/last-watched", progressHandler.LastWatched)
	auth("GET /api/history", progressHandler.History)
	auth("GET /api/shows/{id}/next", progressHandler.NextEpisode)
	auth("GET /api/shows/{id}/watch-button", progressHandler.WatchButton)

	// Catalog
	catalogHandler := handlers.NewCatalogHandler(d.Catalog, s.logger)
	auth("GET /api/shows/{id}", catalogHandler.Show)
	auth("GET /api/movies/{id}", catalogHandler.Movie)
	auth("GET /api/catalog/search", catalogHandler.Search)
	admin("PUT /api/admin/shows/{id}", catalogHandler.PutShow)
	admin("PUT /api/admin/movies/{id}", catalogHandler.PutMovie)

	// Player
	playerHandler := handlers.NewPlayerHandler(d.Sessions, d.Settings, s.logger)
	auth("POST /api/player/sessions", playerHandler.Open)
	auth("GET /api/player/sessions/{id}", playerHandler.Get)
	auth("POST /api/player/sessions/{id}/events", playerHandler.Event)
	auth("DELETE /api/player/sessions/{id}", playerHandler.Close)
	auth("GET /api/player/settings", playerHandler.Settings)
	auth("PUT /api/player/settings", playerHandler.SaveSettings)

	// Roulette and ledger
	rouletteHandler := handlers.NewRouletteHandler(d.Roulette, s.logger)
	auth("POST /api/roulette/spin", rouletteHandler.Spin)
	auth("GET /api/roulette/balance", rouletteHandler.Balance)
	auth("GET /api/roulette/settings", rouletteHandler.Settings)
	auth("POST /api/roulette/deposit", rouletteHandler.Deposit)
	auth("GET /api/transactions", rouletteHandler.Transactions)
	admin("PUT /api/admin/balance", rouletteHandler.SetBalance)
	admin("PUT /api/admin/roulette", rouletteHandler.SaveSettings)

	// Subscriptions and notifications
	accountHandler := handlers.NewAccountHandler(d.Subscriptions, d.Notifications, d.Checks, s.logger)
	auth("GET /api/subscriptions/plans", accountHandler.Plans)
	auth("POST /api/subscriptions", accountHandler.Activate)
	auth("GET /api/subscriptions", accountHandler.Current)
	auth("PUT /api/shows/{id}/subscription", accountHandler.Follow)
	auth("GET /api/notifications", accountHandler.Notifications)
	admin("POST /api/admin/episode-check", accountHandler.RunEpisodeCheck)
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	s.logger.WithField("port", s.server.Addr).Info("Starting HTTP server")

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}
