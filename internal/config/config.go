package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	NodeEnv    string
	Port       string
	JWTSecret  string
	TerminalID string
	Database   DatabaseConfig
	Remote     RemoteConfig
	OCR        OCRConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
	Alter    bool
}

// RemoteConfig holds the Medula backend connection settings used by the
// outbox dispatcher and the direct read-side client.
type RemoteConfig struct {
	BaseURL       string
	APIKey        string
	DrainInterval time.Duration
	Timeout       time.Duration
}

// OCRConfig holds the document extraction settings
type OCRConfig struct {
	GeminiAPIKey string
	Model        string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	drainSeconds, err := strconv.Atoi(getEnv("OUTBOX_DRAIN_INTERVAL", "15"))
	if err != nil || drainSeconds <= 0 {
		drainSeconds = 15
	}

	timeoutSeconds, err := strconv.Atoi(getEnv("REMOTE_TIMEOUT", "10"))
	if err != nil || timeoutSeconds <= 0 {
		timeoutSeconds = 10
	}

	return &Config{
		NodeEnv:    getEnv("NODE_ENV", "development"),
		Port:       getEnv("PORT", "3210"),
		JWTSecret:  jwtSecret,
		TerminalID: getEnv("TERMINAL_ID", "terminal-1"),
		Database: DatabaseConfig{
			Host:     getEnv("PG_HOST", "localhost"),
			Port:     getEnv("PG_PORT", "5432"),
			Username: getEnv("PG_USERNAME", "postgres"),
			Password: os.Getenv("PG_PASSWORD"),
			Database: getEnv("PG_DATABASE", "clinicsync"),
			Alter:    getEnv("DB_ALTER", "false") == "true",
		},
		Remote: RemoteConfig{
			BaseURL:       getEnv("MEDULA_API_URL", "https://medula.example.com/api"),
			APIKey:        os.Getenv("MEDULA_API_KEY"),
			DrainInterval: time.Duration(drainSeconds) * time.Second,
			Timeout:       time.Duration(timeoutSeconds) * time.Second,
		},
		OCR: OCRConfig{
			GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
			Model:        getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
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
