// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir   string // Base directory for all databases (always absolute)
	Port      int
	DevMode   bool
	LogLevel  string
	LogPretty bool

	// Market data
	LookbackYears    int  // Default history window for return estimation
	CacheTTLDays     int  // Freshness window for cached price history
	SyntheticData    bool // Serve deterministic synthetic series when upstream data is unavailable
	PreloadEnabled   bool
	PreloadSchedule  string // Cron expression (with seconds) for the cache warmer
	YahooMaxRetries  int
	YahooConcurrency int // Max parallel ticker fetches

	// Optimization defaults
	RiskFreeRate   float64
	InflationRate  float64
	FrontierPoints int
	RandomCount    int // Random portfolios per analysis

	// Black-Litterman parameters
	Tau          float64 // Uncertainty scaling on the prior covariance
	RiskAversion float64 // Market-implied risk aversion (delta)
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Determine data directory with fallback logic
	// 1. Check PORTFOLIO_DATA_DIR environment variable
	// 2. If not set, default to ./data
	// 3. Always resolve to absolute path
	// 4. Ensure directory exists
	dataDir := getEnv("PORTFOLIO_DATA_DIR", "")
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
		DataDir:   absDataDir,
		Port:      getEnvAsInt("PORT", 8000),
		DevMode:   getEnvAsBool("DEV_MODE", false),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogPretty: getEnvAsBool("LOG_PRETTY", false),

		LookbackYears:    getEnvAsInt("LOOKBACK_YEARS", 2),
		CacheTTLDays:     getEnvAsInt("CACHE_TTL_DAYS", 7),
		SyntheticData:    getEnvAsBool("SYNTHETIC_FALLBACK", false),
		PreloadEnabled:   getEnvAsBool("PRELOAD_ENABLED", false),
		PreloadSchedule:  getEnv("PRELOAD_SCHEDULE", "0 0 6 * * 1-5"), // 06:00 weekdays
		YahooMaxRetries:  getEnvAsInt("YAHOO_MAX_RETRIES", 3),
		YahooConcurrency: getEnvAsInt("YAHOO_CONCURRENCY", 4),

		RiskFreeRate:   getEnvAsFloat("RISK_FREE_RATE", 0.02),
		InflationRate:  getEnvAsFloat("INFLATION_RATE", 0.025),
		FrontierPoints: getEnvAsInt("FRONTIER_POINTS", 50),
		RandomCount:    getEnvAsInt("RANDOM_PORTFOLIOS", 1000),

		Tau:          getEnvAsFloat("BL_TAU", 0.05),
		RiskAversion: getEnvAsFloat("BL_RISK_AVERSION", 2.5),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.LookbackYears < 1 || c.LookbackYears > 10 {
		return fmt.Errorf("lookback years must be between 1 and 10, got %d", c.LookbackYears)
	}
	if c.CacheTTLDays < 1 {
		return fmt.Errorf("cache TTL must be at least 1 day, got %d", c.CacheTTLDays)
	}
	if c.RiskFreeRate < 0 || c.RiskFreeRate >= 1 {
		return fmt.Errorf("risk-free rate must be in [0, 1), got %f", c.RiskFreeRate)
	}
	if c.InflationRate < 0 || c.InflationRate >= 1 {
		return fmt.Errorf("inflation rate must be in [0, 1), got %f", c.InflationRate)
	}
	if c.FrontierPoints < 2 {
		return fmt.Errorf("frontier needs at least 2 points, got %d", c.FrontierPoints)
	}
	if c.RandomCount < 1 {
		return fmt.Errorf("random portfolio count must be positive, got %d", c.RandomCount)
	}
	if c.Tau <= 0 {
		return fmt.Errorf("tau must be positive, got %f", c.Tau)
	}
	if c.RiskAversion <= 0 {
		return fmt.Errorf("risk aversion must be positive, got %f", c.RiskAversion)
	}
	if c.YahooConcurrency < 1 {
		return fmt.Errorf("yahoo concurrency must be at least 1, got %d", c.YahooConcurrency)
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
