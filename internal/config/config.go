// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir            string        // Base directory for all databases (always absolute)
	LogLevel           string        // debug, info, warn, error
	Port               int           // HTTP listen port
	DevMode            bool          // Disables response compression, enables verbose output
	FreshnessWindow    time.Duration // Max age of a cached price before a refetch is attempted
	QuoteTimeout       time.Duration // Bound on a single quote source fetch
	AlphaVantageAPIKey string        // Fallback quote source credential (optional)
}

// Load reads configuration from environment variables.
//
// The price freshness window is deliberately a single parameter
// (FINSIGHT_FRESHNESS_WINDOW). The default is 1 hour: prices refreshed
// lazily on read, at most once per ticker per hour.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("FINSIGHT_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:            absDataDir,
		Port:               getEnvAsInt("FINSIGHT_PORT", 8080),
		DevMode:            getEnvAsBool("DEV_MODE", false),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		FreshnessWindow:    getEnvAsDuration("FINSIGHT_FRESHNESS_WINDOW", time.Hour),
		QuoteTimeout:       getEnvAsDuration("FINSIGHT_QUOTE_TIMEOUT", 10*time.Second),
		AlphaVantageAPIKey: getEnv("ALPHAVANTAGE_API_KEY", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present and sane
func (c *Config) Validate() error {
	if c.FreshnessWindow <= 0 {
		return fmt.Errorf("freshness window must be positive, got %s", c.FreshnessWindow)
	}
	if c.QuoteTimeout <= 0 {
		return fmt.Errorf("quote timeout must be positive, got %s", c.QuoteTimeout)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
