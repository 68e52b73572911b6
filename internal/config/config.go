package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Server
	Env  string
	Port string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT issued by the external identity service
	JWTSecret string

	// Redis backs idempotent ledger replays. Empty disables the feature.
	RedisURL       string
	IdempotencyTTL time.Duration

	// Pipeline (machine-to-machine) endpoints
	PipelineAPIKey string

	// Sweeper client
	SweeperAPIURL  string
	RequestTimeout time.Duration

	// Policies ending within this window are reported as expiring soon.
	ExpiringSoonWindowDays int
}

var appConfig *Config

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if not already loaded
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	config := &Config{
		Env:  getEnv("ENV", "development"),
		Port: getEnv("PORT", "8080"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "brokerage"),
		DBPassword: getEnv("DB_PASSWORD", "brokerage"),
		DBName:     getEnv("DB_NAME", "brokerage"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret: getEnv("JWT_SECRET", "fallback-secret-key-for-dev-only"),

		RedisURL:       getEnv("REDIS_URL", ""),
		PipelineAPIKey: getEnv("PIPELINE_API_KEY", ""),
		SweeperAPIURL:  getEnv("SWEEPER_API_URL", "http://localhost:8080"),
	}

	config.IdempotencyTTL = getDuration("IDEMPOTENCY_TTL", 24*time.Hour)
	config.RequestTimeout = getDuration("REQUEST_TIMEOUT", 30*time.Second)

	windowStr := getEnv("EXPIRING_SOON_DAYS", "30")
	window, err := strconv.Atoi(windowStr)
	if err != nil || window <= 0 {
		log.Printf("Warning: invalid EXPIRING_SOON_DAYS value '%s', falling back to 30\n", windowStr)
		window = 30
	}
	config.ExpiringSoonWindowDays = window

	appConfig = config
	return config, nil
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
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

func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Printf("Warning: invalid %s value '%s', falling back to %s\n", key, raw, defaultValue)
		return defaultValue
	}
	return d
}
