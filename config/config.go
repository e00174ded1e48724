package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"tradeTracker/internal/adapters/logger" // Import the logger package for LogLevel
)

// Config holds all application configuration.
type Config struct {
	// Alpaca API
	APIKey      string
	APISecret   string
	BaseURL     string // Trading API endpoint
	DataBaseURL string // Market data endpoint, empty for the default

	// Tracking Parameters
	StrictSegmentation  bool          // Fail rebuilds on unresolvable order sequences
	ReconcileEnabled    bool          // Run broker reconciliation after each rebuild
	ImportLookback      time.Duration // How far back order import reaches
	MaxDailyImports     int           // Guard against runaway imports per account per day
	ProcessInterval     time.Duration // Delay between tracking passes in daemon mode
	QuoteRefreshEnabled bool          // Fetch fresh quotes before valuing open trades

	// Database
	DBPath string

	// Logging
	LogLevel  logger.LogLevel // Use the LogLevel type from the logger adapter
	LogFormat string          // "std" or "json"
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Alpaca API
	cfg.APIKey = getEnv("ALPACA_API_KEY", "")
	cfg.APISecret = getEnv("ALPACA_API_SECRET", "")
	cfg.BaseURL = getEnv("ALPACA_BASE_URL", "https://paper-api.alpaca.markets")
	cfg.DataBaseURL = getEnv("ALPACA_DATA_BASE_URL", "")

	if cfg.APIKey == "" {
		errs = append(errs, "ALPACA_API_KEY must be set")
	}
	if cfg.APISecret == "" {
		errs = append(errs, "ALPACA_API_SECRET must be set")
	}

	// Tracking Parameters
	cfg.StrictSegmentation = getEnvAsBool("STRICT_SEGMENTATION", false)
	cfg.ReconcileEnabled = getEnvAsBool("RECONCILE_ENABLED", true)
	cfg.QuoteRefreshEnabled = getEnvAsBool("QUOTE_REFRESH_ENABLED", true)

	lookbackDays, err := getEnvAsIntRequired("IMPORT_LOOKBACK_DAYS", 30)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid IMPORT_LOOKBACK_DAYS: %v", err))
	} else if lookbackDays <= 0 {
		errs = append(errs, "IMPORT_LOOKBACK_DAYS must be positive")
	}
	cfg.ImportLookback = time.Duration(lookbackDays) * 24 * time.Hour

	cfg.MaxDailyImports, err = getEnvAsIntRequired("MAX_DAILY_ORDER_IMPORTS", 1000)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MAX_DAILY_ORDER_IMPORTS: %v", err))
	} else if cfg.MaxDailyImports <= 0 {
		errs = append(errs, "MAX_DAILY_ORDER_IMPORTS must be positive")
	}

	intervalMinutes := getEnvAsInt("PROCESS_INTERVAL_MINUTES", 15)
	if intervalMinutes <= 0 {
		errs = append(errs, "PROCESS_INTERVAL_MINUTES must be positive")
	}
	cfg.ProcessInterval = time.Duration(intervalMinutes) * time.Minute

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/trade_tracker.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}

	// Logging
	logLevelStr := getEnv("LOG_LEVEL", "INFO")
	cfg.LogLevel = logger.ParseLevel(logLevelStr) // Use the parser from the logger package

	cfg.LogFormat = strings.ToLower(getEnv("LOG_FORMAT", "std"))
	if cfg.LogFormat != "std" && cfg.LogFormat != "json" {
		errs = append(errs, "LOG_FORMAT must be 'std' or 'json'")
	}

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		// Use default if env var is not set at all
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// Return error if env var is set but invalid
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
