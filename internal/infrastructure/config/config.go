package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// App
	AppVersion string

	// Server
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// MongoDB (flights and schedules)
	MongoURI      string
	MongoDB       string
	MongoUser     string
	MongoPassword string

	// PostgreSQL (airline/destination/gate reference catalogs)
	PostgresURI string

	// Scheduling engine
	MaterializeHorizon  time.Duration
	GateAlertWindow     time.Duration
	SelfMonitorInterval time.Duration
	CatalogRefreshCron  string

	// Event transport
	EventEndpoint string
	EventToken    string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	// Set defaults and override with env vars
	config := &Config{
		AppVersion:   getEnv("APP_VERSION", "1.0.0"),
		Port:         getEnv("PORT", "8080"),
		ReadTimeout:  time.Duration(getEnvAsInt("READ_TIMEOUT", 30)) * time.Second,
		WriteTimeout: time.Duration(getEnvAsInt("WRITE_TIMEOUT", 30)) * time.Second,

		MongoURI:      getEnv("MONGODB_DSN", "mongodb://localhost:27017"),
		MongoDB:       getEnv("MONGO_DB", "flightops"),
		MongoUser:     getEnv("MONGO_USER", ""),
		MongoPassword: getEnv("MONGO_PASSWORD", ""),

		PostgresURI: getEnv("POSTGRES_DSN", ""),

		MaterializeHorizon:  time.Duration(getEnvAsInt("MATERIALIZE_HORIZON_HOURS", 48)) * time.Hour,
		GateAlertWindow:     time.Duration(getEnvAsInt("GATE_ALERT_WINDOW_HOURS", 3)) * time.Hour,
		SelfMonitorInterval: time.Duration(getEnvAsInt("SELF_MONITOR_INTERVAL", 300)) * time.Second,
		CatalogRefreshCron:  getEnv("CATALOG_REFRESH_CRON", "@every 15m"),

		EventEndpoint: getEnv("EVENT_ENDPOINT", ""),
		EventToken:    getEnv("EVENT_TOKEN", ""),
	}

	return config, nil
}

// Helper functions to get environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}
