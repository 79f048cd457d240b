// Package config
package config

import (
	"caselaw/packages/fetcher"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultOrigin       = "https://caselaw.nationalarchives.gov.uk/"
	DefaultSearchURL    = "https://caselaw.nationalarchives.gov.uk/judgments/search"
	DefaultFetchTimeout = 30 * time.Second
	DefaultUserAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"
)

type Config struct {
	Origin    string
	SearchURL string
	UserAgent string

	MaxAttempts  int
	BaseDelay    time.Duration
	FetchTimeout time.Duration
	MaxWorkers   int

	LogFile  string
	LogLevel string

	// Record sink: "json", "redis" or "postgres".
	StoreBackend  string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisHashKey  string

	MetricsAddr string
}

func Load() (Config, error) {
	cfg := Config{}

	cfg.Origin = getEnv("CASELAW_ORIGIN", DefaultOrigin)
	cfg.SearchURL = getEnv("CASELAW_SEARCH_URL", DefaultSearchURL)
	cfg.UserAgent = getEnv("USER_AGENT", DefaultUserAgent)

	policy := fetcher.DefaultRetryPolicy()
	cfg.MaxAttempts = getEnvInt("FETCH_MAX_ATTEMPTS", policy.MaxAttempts)
	cfg.BaseDelay = getEnvDuration("FETCH_BASE_DELAY", policy.BaseDelay)
	cfg.FetchTimeout = getEnvDuration("FETCH_TIMEOUT", DefaultFetchTimeout)
	cfg.MaxWorkers = getEnvInt("MAX_WORKERS", 1)

	cfg.LogFile = getEnv("LOG_FILE", "")
	cfg.LogLevel = getEnv("LOG_LEVEL", "info")

	cfg.StoreBackend = strings.ToLower(getEnv("STORE_BACKEND", "json"))
	cfg.DatabaseURL = getEnv("DATABASE_URL", "")
	cfg.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.RedisDB = getEnvInt("REDIS_DB", 0)
	cfg.RedisHashKey = getEnv("REDIS_HASH_KEY", "caselaw:judgments")

	cfg.MetricsAddr = getEnv("METRICS_ADDR", "")

	return cfg, cfg.Validate()
}

// Validate reports every setting that cannot be used as-is.
func (c Config) Validate() error {
	var problems []string
	if c.Origin == "" {
		problems = append(problems, "origin must not be empty")
	}
	if c.MaxAttempts < 1 {
		problems = append(problems, "max attempts must be at least 1")
	}
	if c.BaseDelay < 0 {
		problems = append(problems, "base delay must not be negative")
	}
	if c.MaxWorkers < 1 {
		problems = append(problems, "workers must be at least 1")
	}
	switch c.StoreBackend {
	case "json", "redis":
	case "postgres":
		if c.DatabaseURL == "" {
			problems = append(problems, "DATABASE_URL is required for the postgres backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown store backend %q", c.StoreBackend))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, ", "))
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

// getEnvInt falls back to defaultVal, with a warning, when the variable is set
// but not an integer.
func getEnvInt(key string, defaultVal int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		slog.Warn("Invalid integer setting, using default", "key", key, "value", value, "default", defaultVal, "error", err)
		return defaultVal
	}
	return n
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		slog.Warn("Invalid duration setting, using default", "key", key, "value", value, "default", defaultVal, "error", err)
		return defaultVal
	}
	return d
}
