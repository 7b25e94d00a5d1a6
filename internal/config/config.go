package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

// Config holds the service settings.
type Config struct {
	Port        string        `yaml:"port"`
	DatabaseURL string        `yaml:"database_url"`
	Environment string        `yaml:"environment"`
	LogLevel    string        `yaml:"log_level"`
	ScanTimeout time.Duration `yaml:"scan_timeout"`

	// Browser origins echoed back by the CORS middleware
	AllowedOrigins []string `yaml:"allowed_origins"`

	// bcrypt hash of the token required on write routes; empty leaves them open
	AdminTokenHash string `yaml:"admin_token_hash"`

	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`
}

var (
	ErrMissingDatabaseURL = errors.New("DATABASE_URL is empty")
	ErrInvalidRateLimit   = errors.New("rate limit must be positive")
)

// Default returns the settings used when neither the file nor the
// environment sets a value.
func Default() Config {
	return Config{
		Port:        "5050",
		Environment: "local",
		LogLevel:    "info",
		ScanTimeout: 10 * time.Second,
		AllowedOrigins: []string{
			"http://localhost:5173",
			"http://localhost:5174",
		},
		RateLimitRPS:   20,
		RateLimitBurst: 40,
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// CONFIG_FILE if set, then environment variables.
//
// Environment variables:
//   - PORT (default: 5050)
//   - DATABASE_URL (required)
//   - ENVIRONMENT: "local" gives colored text logs, anything else JSON
//   - LOG_LEVEL: debug, info, warn or error
//   - SCAN_TIMEOUT: Go duration bounding each record scan (default: 10s)
//   - ALLOWED_ORIGINS: comma separated CORS allow-list
//   - ADMIN_TOKEN_HASH: bcrypt hash guarding POST /productions/add
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST: per-client request budget
func Load() (Config, error) {
	cfg := Default()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	str("PORT", &c.Port)
	str("DATABASE_URL", &c.DatabaseURL)
	str("ENVIRONMENT", &c.Environment)
	str("LOG_LEVEL", &c.LogLevel)
	str("ADMIN_TOKEN_HASH", &c.AdminTokenHash)

	if v := strings.TrimSpace(getenv("SCAN_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SCAN_TIMEOUT: %w", err)
		}
		c.ScanTimeout = d
	}
	if v := strings.TrimSpace(getenv("ALLOWED_ORIGINS")); v != "" {
		c.AllowedOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.AllowedOrigins = append(c.AllowedOrigins, o)
			}
		}
	}
	if v := strings.TrimSpace(getenv("RATE_LIMIT_RPS")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT_RPS: %w", err)
		}
		c.RateLimitRPS = f
	}
	if v := strings.TrimSpace(getenv("RATE_LIMIT_BURST")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT_BURST: %w", err)
		}
		c.RateLimitBurst = n
	}
	return nil
}

// Validate checks the settings the server cannot start without.
func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return ErrMissingDatabaseURL
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return ErrInvalidRateLimit
	}
	return nil
}
