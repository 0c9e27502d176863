// Package config provides application configuration loaded from
// environment variables with defaults and validation. It centralizes
// settings such as the database path, logging, the categorization
// service credentials, batching, retry shaping, and token pricing.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// OpenAIConfig holds the categorization service settings.
type OpenAIConfig struct {
	APIKey  string // OPENAI_API_KEY
	Model   string // OPENAI_MODEL
	BaseURL string // OPENAI_BASE_URL (optional, for compatible endpoints)
}

// Config holds all configuration values for the application.
type Config struct {
	// App
	DBPath string // SQLite path

	// Logging
	LogLevel  string // debug|info|warn|error|fatal|panic
	LogPretty bool   // pretty console logs in dev

	// Categorization service
	OpenAI OpenAIConfig

	// Categorization run shaping
	BatchSize       int           // posts per batch
	ContentMaxChars int           // rune budget per request
	MaxCategories   int           // accepted suggestions cap per post
	MaxAttempts     int           // total tries per post (>= 1)
	RetryBaseDelay  time.Duration // backoff base
	RetryMaxDelay   time.Duration // backoff cap

	// Client pacing (token bucket); RateRPS 0 disables pacing.
	RateRPS   float64
	RateBurst int

	// Token pricing (USD per 1K tokens) for the usage ledger.
	PromptCostPer1K     float64
	CompletionCostPer1K float64
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables, applies
// defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// App
		DBPath: getenv("DB_PATH", "wpimport.db"),

		// Logging
		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty: getbool("LOG_PRETTY", false),

		// Categorization service
		OpenAI: OpenAIConfig{
			APIKey:  getenv("OPENAI_API_KEY", ""),
			Model:   getenv("OPENAI_MODEL", "gpt-4o-mini"),
			BaseURL: getenv("OPENAI_BASE_URL", ""),
		},

		// Run shaping
		BatchSize:       getint("BATCH_SIZE", 10),
		ContentMaxChars: getint("CONTENT_MAX_CHARS", 4000),
		MaxCategories:   getint("MAX_CATEGORIES", 6),
		MaxAttempts:     getint("MAX_ATTEMPTS", 3),
		RetryBaseDelay:  getdur("RETRY_BASE_DELAY", 2*time.Second),
		RetryMaxDelay:   getdur("RETRY_MAX_DELAY", 30*time.Second),

		// Pacing
		RateRPS:   getfloat("RATE_RPS", 1.0),
		RateBurst: getint("RATE_BURST", 1),

		// Pricing (defaults track gpt-4o-mini)
		PromptCostPer1K:     getfloat("PROMPT_COST_PER_1K", 0.00015),
		CompletionCostPer1K: getfloat("COMPLETION_COST_PER_1K", 0.0006),
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if cfg.BatchSize < 1 {
		return cfg, errors.New("BATCH_SIZE must be >= 1")
	}
	if cfg.ContentMaxChars < 1 {
		return cfg, errors.New("CONTENT_MAX_CHARS must be >= 1")
	}
	if cfg.MaxCategories < 1 {
		return cfg, errors.New("MAX_CATEGORIES must be >= 1")
	}
	if cfg.MaxAttempts < 1 {
		return cfg, errors.New("MAX_ATTEMPTS must be >= 1")
	}
	if cfg.RetryBaseDelay <= 0 || cfg.RetryMaxDelay <= 0 {
		return cfg, errors.New("retry delays must be positive durations")
	}
	if cfg.RetryMaxDelay < cfg.RetryBaseDelay {
		return cfg, errors.New("RETRY_MAX_DELAY must be >= RETRY_BASE_DELAY")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.PromptCostPer1K < 0 || cfg.CompletionCostPer1K < 0 {
		return cfg, errors.New("token prices must be >= 0")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
