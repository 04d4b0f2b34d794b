// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// Server settings
	Port      string
	Env       string // "development", "staging", "production"
	LogLevel  string
	LogFormat string // "json" or "text"

	// Database
	DatabaseURL string // PostgreSQL connection string (optional, uses in-memory if not set)

	// Risk scorer (LLM endpoint, OpenAI-compatible chat completions API)
	RiskAPIURL  string
	RiskAPIKey  string // Empty = stub scorer (development only)
	RiskModel   string
	RiskTimeout time.Duration

	// Auth
	DevUsers string // "token:uid:email:name;..." static credentials for development

	// Observability
	OTLPEndpoint string

	RequestSizeLimit int64
}

// Defaults
const (
	DefaultPort        = "8080"
	DefaultEnv         = "development"
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "json"
	DefaultRiskAPIURL  = "https://api.openai.com/v1/chat/completions"
	DefaultRiskModel   = "gpt-4o-mini"
	DefaultRiskTimeout = 10 * time.Second
	DefaultRequestSize = 1 << 20 // 1MB
)

// Load reads configuration from environment variables.
// It loads .env file if present (for local development).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnv("PORT", DefaultPort),
		Env:              getEnv("ENV", DefaultEnv),
		LogLevel:         getEnv("LOG_LEVEL", DefaultLogLevel),
		LogFormat:        getEnv("LOG_FORMAT", DefaultLogFormat),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RiskAPIURL:       getEnv("RISK_API_URL", DefaultRiskAPIURL),
		RiskAPIKey:       os.Getenv("RISK_API_KEY"),
		RiskModel:        getEnv("RISK_MODEL", DefaultRiskModel),
		RiskTimeout:      getEnvDuration("RISK_TIMEOUT", DefaultRiskTimeout),
		DevUsers:         os.Getenv("DEV_USERS"),
		OTLPEndpoint:     os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		RequestSizeLimit: getEnvInt64("REQUEST_SIZE_LIMIT", DefaultRequestSize),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is consistent.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.RiskAPIKey == "" && c.Env == "production" {
		return fmt.Errorf("RISK_API_KEY is required in production")
	}
	if c.RiskAPIKey != "" && !strings.HasPrefix(c.RiskAPIURL, "http") {
		return fmt.Errorf("RISK_API_URL must be an http(s) URL, got %q", c.RiskAPIURL)
	}
	if c.RiskTimeout <= 0 {
		return fmt.Errorf("RISK_TIMEOUT must be positive")
	}
	return nil
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
