package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Port        string
	Env         string
	DatabaseURL string // PostgreSQL; SQLite is used when empty
	SQLitePath  string
	RedisURL    string

	// TypingWindow is how long a typing signal stays fresh.
	TypingWindow time.Duration

	// CORS origins allowed to call the API (the CRM frontend).
	CORSAllowedOrigins []string

	// Rate limiting
	RateLimitWhitelist []string // IPs or CIDRs exempt from rate limiting
	AutoBlockEnabled   bool     // Enable auto-blocking after repeated violations

	// Background repair workers, only started when Redis is configured.
	WorkerConcurrency int
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
// In production, missing DATABASE_URL or REDIS_URL is an error.
func Load() (*Config, error) {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		SQLitePath:         getEnv("SQLITE_PATH", "./data/messaging.db"),
		RedisURL:           os.Getenv("REDIS_URL"),
		AutoBlockEnabled:   getEnv("AUTO_BLOCK_ENABLED", "false") == "true",
		RateLimitWhitelist: splitList(os.Getenv("RATE_LIMIT_WHITELIST")),
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
	}

	window, err := time.ParseDuration(getEnv("TYPING_WINDOW", "5s"))
	if err != nil || window <= 0 {
		return nil, fmt.Errorf("TYPING_WINDOW: invalid duration %q", os.Getenv("TYPING_WINDOW"))
	}
	cfg.TypingWindow = window

	concurrency := getEnv("WORKER_CONCURRENCY", "2")
	cfg.WorkerConcurrency, err = strconv.Atoi(concurrency)
	if err != nil || cfg.WorkerConcurrency <= 0 {
		return nil, fmt.Errorf("WORKER_CONCURRENCY: invalid value %q", concurrency)
	}

	// In production, require database and redis URLs
	if cfg.Env == "production" {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required in production")
		}
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("REDIS_URL is required in production")
		}
	}

	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// splitList parses a comma-separated list, dropping blanks.
func splitList(raw string) []string {
	var out []string
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry != "" {
			out = append(out, entry)
		}
	}
	return out
}
