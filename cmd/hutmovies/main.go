package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/hutmovies/hutmovies/internal/api"
	"github.com/hutmovies/hutmovies/internal/api/middleware"
	"github.com/hutmovies/hutmovies/internal/config"
	"github.com/hutmovies/hutmovies/internal/controllers"
	"github.com/hutmovies/hutmovies/internal/metrics"
	"github.com/hutmovies/hutmovies/internal/models"
	"github.com/hutmovies/hutmovies/internal/player"
	"github.com/hutmovies/hutmovies/internal/scheduler"
	"github.com/hutmovies/hutmovies/internal/services/settings"
	"github.com/hutmovies/hutmovies/internal/services/tonconnect"
	"github.com/hutmovies/hutmovies/internal/utils"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the background jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}

	checkCmd := &cobra.Command{
		Use:   "check-episodes",
		Short: "Check every show for new episodes once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return checkEpisodes(cmd.Context())
		},
	}

	root := &cobra.Command{
		Use:           "hutmovies",
		Short:         "Streaming backend: watch progress, player sessions, roulette and subscriptions",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serveCmd.RunE,
	}
	root.AddCommand(serveCmd, checkCmd)
	return root
}

// setup loads the configuration, the logger and the database
func setup() (*config.Config, *logrus.Logger, *models.Database, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := utils.NewLogger(cfg.LogLevel)
	logger.WithField("config_dir", filepath.Dir(cfg.DatabaseFile)).Info("Configuration loaded")

	db, err := models.NewDatabase(cfg.DatabaseFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	logger.Info("Database initialized")

	return cfg, logger, db, nil
}

func checkEpisodes(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, logger, db, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()

	notifications := controllers.NewNotificationController(db, cfg.EpisodeCheckPause, nil, logger)
	return notifications.CheckAllShows(ctx)
}

func serve() error {
	// 1. Configuration, logger, database
	cfg, logger, db, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("Starting Hutmovies")

	// 2. Observability
	m := metrics.New()
	tp := utils.NewTracerProvider(logger)
	defer tp.Shutdown(context.Background())

	// 3. Admins
	admins, err := utils.LoadAdmins(cfg.AdminsFile)
	if err != nil {
		logger.WithError(err).Warn("Failed to load admins, continuing without any")
		admins = utils.NewAdmins()
	} else {
		logger.WithField("count", admins.Count()).Info("Admins loaded")
	}

	// 4. Wallet bridge, optional
	var signer controllers.Signer
	if cfg.WalletBridgeURL != "" {
		client, err := tonconnect.NewClient(cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize wallet client: %w", err)
		}
		signer = client
		logger.Info("Wallet client initialized")
	} else {
		logger.Warn("WALLET_BRIDGE_URL not set, deposits and paid plans are disabled")
	}

	// 5. Token verifier, optional
	var verifier middleware.TokenVerifier
	if cfg.OIDCProviderURL != "" {
		oidcVerifier, err := middleware.NewOIDCVerifier(context.Background(), cfg.OIDCProviderURL, cfg.OIDCClientID)
		if err != nil {
			return fmt.Errorf("failed to initialize OIDC verifier: %w", err)
		}
		verifier = oidcVerifier
		logger.Info("OIDC verifier initialized")
	} else {
		logger.Warn("OIDC_PROVIDER_URL not set, authenticated endpoints are unavailable")
	}

	// 6. Controllers
	catalog := controllers.NewCatalogController(db, cfg.CatalogCacheTTL, logger)
	episodes := controllers.NewEpisodeController(catalog, logger)
	progress := controllers.NewProgressController(db, catalog, m, logger)
	roulette := controllers.NewRouletteController(db, cfg.SpinCost, signer, m, logger)
	subscriptions := controllers.NewSubscriptionController(db, signer, m, logger)
	notifications := controllers.NewNotificationController(db, cfg.EpisodeCheckPause, m, logger)
	logger.Info("Controllers initialized")

	// 7. Player sessions
	sessions := player.NewManager(progress, episodes, player.OptionsFromConfig(cfg), m, logger)
	defer sessions.CloseAll()

	// 8. Scheduler
	sched := scheduler.NewScheduler(notifications, sessions, cfg.EpisodeCheckCron, cfg.SessionIdleTimeout, logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	// 9. HTTP server
	server := api.NewServer(cfg, api.Dependencies{
		DB:            db,
		Catalog:       catalog,
		Episodes:      episodes,
		Progress:      progress,
		Roulette:      roulette,
		Subscriptions: subscriptions,
		Notifications: notifications,
		Sessions:      sessions,
		Settings:      settings.NewFileStore(cfg.SettingsFile),
		Checks:        sched,
		Verifier:      verifier,
		Admins:        admins,
		Metrics:       m,
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverErrChan := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil {
			serverErrChan <- err
		}
	}()

	// 10. Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Hutmovies is running")

	select {
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		logger.WithField("signal", sig).Info("Received shutdown signal")
		cancel()
		if err := server.Shutdown(context.Background()); err != nil {
			logger.WithError(err).Error("Error during server shutdown")
		}
	}

	logger.Info("Hutmovies stopped")
	return nil
}
