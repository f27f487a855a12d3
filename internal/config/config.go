// Package config loads process configuration from the environment.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DevSecret signs tokens when no secret is configured. Rejected in production.
const DevSecret = "dev-secret-change-in-production"

const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

type Config struct {
	ServiceName string
	Version     string
	Env         string // "development" (default) or "production"
	HTTPAddr    string
	LogLevel    string
	LogFile     string // optional second sink for the JSON log

	StoreDriver string // sqlite or memory
	DBPath      string

	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int

	ShutdownTimeout time.Duration

	CORSAllowedOrigins []string
	AuthRateLimitRPS   float64
	AuthRateLimitBurst int

	LowStockThreshold int

	// OTLPEndpoint enables trace export when set (host:port of an OTLP/HTTP collector).
	OTLPEndpoint string

	// Warnings collects non-fatal problems found while loading, logged once the
	// logger exists.
	Warnings []string
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// LoadFromEnv reads configuration from environment variables and applies defaults.
// Malformed numbers and durations are errors rather than silently ignored.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		ServiceName:  getenv("SERVICE_NAME", "minishop-sales"),
		Version:      getenv("SERVICE_VERSION", "dev"),
		Env:          getenv("ENV", "development"),
		HTTPAddr:     getenv("HTTP_ADDR", ":8080"),
		LogLevel:     getenv("LOG_LEVEL", "info"),
		LogFile:      os.Getenv("LOG_FILE"),
		StoreDriver:  strings.ToLower(getenv("STORE_DRIVER", DriverSQLite)),
		DBPath:       getenv("DB_PATH", "minishop.sqlite"),
		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	var errs []error
	cfg.TokenTTL = durationEnv("TOKEN_TTL", 24*time.Hour, &errs)
	cfg.ShutdownTimeout = durationEnv("SHUTDOWN_TIMEOUT", 10*time.Second, &errs)
	cfg.BcryptCost = intEnv("BCRYPT_COST", 10, &errs)
	cfg.AuthRateLimitBurst = intEnv("AUTH_RATE_LIMIT_BURST", 10, &errs)
	cfg.LowStockThreshold = intEnv("LOW_STOCK_THRESHOLD", 5, &errs)
	cfg.AuthRateLimitRPS = floatEnv("AUTH_RATE_LIMIT_RPS", 5, &errs)

	// SECRETA is the historical name of the signing secret.
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = os.Getenv("SECRETA")
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = DevSecret
		cfg.Warnings = append(cfg.Warnings, "JWT_SECRET not set, using the development secret")
	}

	cfg.CORSAllowedOrigins = []string{"*"}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.CORSAllowedOrigins = compactNonEmpty(strings.Split(v, ","))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and the production-only rules.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverSQLite, DriverMemory:
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", DriverSQLite, DriverMemory, c.StoreDriver)
	}
	if c.StoreDriver == DriverSQLite && c.DBPath == "" {
		return fmt.Errorf("DB_PATH is required for the sqlite driver")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	if c.AuthRateLimitRPS <= 0 || c.AuthRateLimitBurst <= 0 {
		return fmt.Errorf("AUTH_RATE_LIMIT_RPS and AUTH_RATE_LIMIT_BURST must be positive")
	}
	if c.LowStockThreshold < 0 {
		return fmt.Errorf("LOW_STOCK_THRESHOLD must not be negative")
	}
	if c.IsProduction() {
		if c.JWTSecret == DevSecret {
			return fmt.Errorf("JWT_SECRET must be set in production (ENV=production)")
		}
		if c.StoreDriver == DriverMemory {
			return fmt.Errorf("the memory store driver is not allowed in production")
		}
	}
	return nil
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int, errs *[]error) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func floatEnv(key string, def float64, errs *[]error) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return f
}

func durationEnv(key string, def time.Duration, errs *[]error) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

func compactNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// LoadDotEnv reads KEY=VALUE lines from path and sets the ones that are empty in the
// environment. A missing file is not an error.
func LoadDotEnv(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = stripQuotes(strings.TrimSpace(value))
		if os.Getenv(key) != "" {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("setenv %s: %w", key, err)
		}
	}
	return scanner.Err()
}

func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
