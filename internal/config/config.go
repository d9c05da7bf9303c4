package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// Server
	ServerPort string

	// Player
	ProgressSaveInterval time.Duration // How often a playing session persists its position (default: 30s)
	AutoplayNext         bool
	AutoplayCountdown    int           // Seconds before the next episode starts (default: 5)
	SessionIdleTimeout   time.Duration // Sessions without events are closed after this (default: 30m)

	// Episode checks
	EpisodeCheckCron  string        // Cron spec for the new-episode check (default: every 12 hours)
	EpisodeCheckPause time.Duration // Pause between shows during a check (default: 1s)

	// Catalog
	CatalogCacheTTL time.Duration

	// Roulette
	SpinCost decimal.Decimal

	// Wallet
	WalletBridgeURL      string
	WalletServiceAddress string

	// Auth
	OIDCProviderURL string
	OIDCClientID    string

	// Paths
	DatabaseFile string // $CONFIG_DIR/hutmovies.db
	SettingsFile string // $CONFIG_DIR/settings.json
	AdminsFile   string // $CONFIG_DIR/admins.txt

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Load .env file if it exists (ignore if not found)
	_ = viper.ReadInConfig()

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("PROGRESS_SAVE_INTERVAL_SECONDS", 30)
	viper.SetDefault("AUTOPLAY_NEXT", true)
	viper.SetDefault("AUTOPLAY_COUNTDOWN_SECONDS", 5)
	viper.SetDefault("SESSION_IDLE_MINUTES", 30)
	viper.SetDefault("EPISODE_CHECK_CRON", "0 */12 * * *")
	viper.SetDefault("EPISODE_CHECK_PAUSE_MS", 1000)
	viper.SetDefault("CATALOG_CACHE_MINUTES", 10)
	viper.SetDefault("ROULETTE_SPIN_COST", "0.001")

	configDir := viper.GetString("CONFIG_DIR")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config", "hutmovies")
	} else {
		absPath, err := filepath.Abs(configDir)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path for CONFIG_DIR: %w", err)
		}
		configDir = absPath
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	spinCost, err := decimal.NewFromString(viper.GetString("ROULETTE_SPIN_COST"))
	if err != nil {
		return nil, fmt.Errorf("invalid ROULETTE_SPIN_COST: %w", err)
	}

	config := &Config{
		ServerPort: viper.GetString("SERVER_PORT"),

		ProgressSaveInterval: time.Duration(viper.GetInt("PROGRESS_SAVE_INTERVAL_SECONDS")) * time.Second,
		AutoplayNext:         viper.GetBool("AUTOPLAY_NEXT"),
		AutoplayCountdown:    viper.GetInt("AUTOPLAY_COUNTDOWN_SECONDS"),
		SessionIdleTimeout:   time.Duration(viper.GetInt("SESSION_IDLE_MINUTES")) * time.Minute,

		EpisodeCheckCron:  viper.GetString("EPISODE_CHECK_CRON"),
		EpisodeCheckPause: time.Duration(viper.GetInt("EPISODE_CHECK_PAUSE_MS")) * time.Millisecond,

		CatalogCacheTTL: time.Duration(viper.GetInt("CATALOG_CACHE_MINUTES")) * time.Minute,

		SpinCost: spinCost,

		WalletBridgeURL:      viper.GetString("WALLET_BRIDGE_URL"),
		WalletServiceAddress: viper.GetString("WALLET_SERVICE_ADDRESS"),

		OIDCProviderURL: viper.GetString("OIDC_PROVIDER_URL"),
		OIDCClientID:    viper.GetString("OIDC_CLIENT_ID"),

		DatabaseFile: filepath.Join(configDir, "hutmovies.db"),
		SettingsFile: filepath.Join(configDir, "settings.json"),
		AdminsFile:   filepath.Join(configDir, "admins.txt"),

		LogLevel: viper.GetString("LOG_LEVEL"),
	}

	// Validate
	if config.ProgressSaveInterval <= 0 {
		return nil, fmt.Errorf("PROGRESS_SAVE_INTERVAL_SECONDS must be positive")
	}
	if config.AutoplayCountdown < 0 {
		return nil, fmt.Errorf("AUTOPLAY_COUNTDOWN_SECONDS must not be negative")
	}
	if config.SpinCost.IsNegative() {
		return nil, fmt.Errorf("ROULETTE_SPIN_COST must not be negative")
	}
	if config.WalletServiceAddress == "" && config.WalletBridgeURL != "" {
		return nil, fmt.Errorf("WALLET_SERVICE_ADDRESS is required when WALLET_BRIDGE_URL is set")
	}

	return config, nil
}
