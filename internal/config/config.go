package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	RedisURL           string
	ServiceToken       string
	CORSAllowedOrigins []string

	CRMBaseURL     string
	CRMAccessToken string
	CRMTimeout     time.Duration

	CatalogAllowedIDs  []string
	CatalogWarmTTL     time.Duration
	CatalogRefreshCron string

	RetryBase          time.Duration
	RetryMaxAttempts   int
	RetryJitterPercent float64
	CircuitMinReq      int
	CircuitFailureRate float64
	CircuitOpenFor     time.Duration

	CommitRateWindow time.Duration
	CommitRateMax    int
	IdempotencyTTL   time.Duration
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		RedisURL:           k.String("REDIS_URL"),
		ServiceToken:       k.String("SERVICE_TOKEN"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		CRMBaseURL:         valueOrDefault(k.String("CRM_BASE_URL"), "https://api.hubapi.com"),
		CRMAccessToken:     k.String("CRM_ACCESS_TOKEN"),
		CRMTimeout:         parseDuration(k.String("CRM_TIMEOUT"), "10s"),
		CatalogAllowedIDs:  splitAndTrim(k.String("CATALOG_ALLOWED_IDS")),
		CatalogWarmTTL:     parseDuration(k.String("CATALOG_WARM_TTL"), "24h"),
		CatalogRefreshCron: valueOrDefault(k.String("CATALOG_REFRESH_CRON"), "@every 15m"),
		RetryBase:          parseDuration(k.String("CRM_RETRY_BASE"), "200ms"),
		RetryMaxAttempts:   intOrDefault(k.Int("CRM_RETRY_MAX_ATTEMPTS"), 3),
		RetryJitterPercent: floatOrDefault(k.Float64("CRM_RETRY_JITTER"), 0.2),
		CircuitMinReq:      intOrDefault(k.Int("CRM_CIRCUIT_MIN_REQ"), 10),
		CircuitFailureRate: floatOrDefault(k.Float64("CRM_CIRCUIT_FAILURE_RATE"), 0.5),
		CircuitOpenFor:     parseDuration(k.String("CRM_CIRCUIT_OPEN_FOR"), "30s"),
		CommitRateWindow:   parseDuration(k.String("COMMIT_RATE_WINDOW"), "1m"),
		CommitRateMax:      intOrDefault(k.Int("COMMIT_RATE_MAX"), 30),
		IdempotencyTTL:     parseDuration(k.String("IDEMPOTENCY_TTL"), "10m"),
	}

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.CRMAccessToken == "" {
		return nil, errors.New("CRM_ACCESS_TOKEN is required")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func intOrDefault(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}

func floatOrDefault(value, fallback float64) float64 {
	if value <= 0 {
		return fallback
	}
	return value
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
