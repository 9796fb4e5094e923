package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	NodeEnv  string
	Port     string
	APIKey   string
	Database DatabaseConfig
	Garmin   GarminConfig
	Sync     SyncConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// GarminConfig holds Garmin Connect credentials and endpoints
type GarminConfig struct {
	Username   string
	Password   string
	BaseURL    string
	SessionDir string
}

// SyncConfig holds activity synchronization settings
type SyncConfig struct {
	DaysBack        int
	IntervalMinutes int // 0 disables the background loop
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	apiKey := os.Getenv("API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("API_KEY is required")
	}

	return &Config{
		NodeEnv: getEnv("NODE_ENV", "development"),
		Port:    getEnv("PORT", "8000"),
		APIKey:  apiKey,
		Database: DatabaseConfig{
			Host:     getEnv("PG_HOST", "localhost"),
			Port:     getEnv("PG_PORT", "5432"),
			Username: getEnv("PG_USERNAME", "postgres"),
			Password: os.Getenv("PG_PASSWORD"),
			Database: getEnv("PG_DATABASE", "velocoach"),
		},
		Garmin: GarminConfig{
			Username:   os.Getenv("GARMIN_USERNAME"),
			Password:   os.Getenv("GARMIN_PASSWORD"),
			BaseURL:    getEnv("GARMIN_BASE_URL", "https://connectapi.garmin.com"),
			SessionDir: getEnv("GARMIN_SESSION_DIR", "data/sessions"),
		},
		Sync: SyncConfig{
			DaysBack:        getIntEnv("SYNC_DAYS_BACK", 7),
			IntervalMinutes: getIntEnv("SYNC_INTERVAL_MINUTES", 0),
		},
	}, nil
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv gets an integer environment variable with default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
