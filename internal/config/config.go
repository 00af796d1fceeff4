package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"treasury/internal/logger"
)

// Config holds application configuration
type Config struct {
	// Server
	Env  string
	Port string

	// JWT
	JWTSecret        string
	JWTExpirationDur time.Duration

	// Recurring generation job
	JobAPIKeyHash       string
	RecurringJobEnabled bool
	RecurringJobHour    int

	// Forecast
	ForecastMaxDays int
}

var appConfig *Config

// Load loads configuration from environment variables
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Named("config").Debug(".env file not found, using process environment")
	}

	config := &Config{
		Env:  getEnv("ENV", "development"),
		Port: getEnv("PORT", "8080"),

		JWTSecret:     getEnv("JWT_SECRET", "fallback-secret-key-for-dev-only"),
		JobAPIKeyHash: getEnv("JOB_API_KEY_HASH", ""),
	}

	expStr := getEnv("JWT_EXPIRES_IN", "24h")
	expDur, err := time.ParseDuration(expStr)
	if err != nil {
		logger.Named("config").Warnf("invalid JWT_EXPIRES_IN value '%s', falling back to 24h", expStr)
		expDur = 24 * time.Hour
	}
	config.JWTExpirationDur = expDur

	config.RecurringJobEnabled = getEnvBool("RECURRING_JOB_ENABLED", true)

	config.RecurringJobHour = getEnvInt("RECURRING_JOB_HOUR", 2)
	if config.RecurringJobHour < 0 || config.RecurringJobHour > 23 {
		logger.Named("config").Warnf("RECURRING_JOB_HOUR out of range (%d), falling back to 2", config.RecurringJobHour)
		config.RecurringJobHour = 2
	}

	config.ForecastMaxDays = getEnvInt("FORECAST_MAX_DAYS", 90)
	if config.ForecastMaxDays < 1 || config.ForecastMaxDays > 90 {
		logger.Named("config").Warnf("FORECAST_MAX_DAYS out of range (%d), falling back to 90", config.ForecastMaxDays)
		config.ForecastMaxDays = 90
	}

	appConfig = config
	return config, nil
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			logger.Get().Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		logger.Named("config").Warnf("invalid %s value '%s', falling back to %d", key, raw, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		logger.Named("config").Warnf("invalid %s value '%s', falling back to %t", key, raw, defaultValue)
		return defaultValue
	}
	return b
}
