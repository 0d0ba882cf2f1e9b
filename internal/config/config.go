// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads the storefront configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// knownWeakSecrets contains default/example secrets that must be rejected.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath        string `env:"STOREFRONT_DB_PATH" envDefault:"./data/storefront.db"`
	SessionSecret string `env:"STOREFRONT_SESSION_SECRET,required"`
	ServerHost    string `env:"STOREFRONT_SERVER_HOST" envDefault:"localhost"`
	ServerPort    int    `env:"STOREFRONT_SERVER_PORT" envDefault:"8080"`
	Env           string `env:"STOREFRONT_ENV" envDefault:"development"`
	LogLevel      string `env:"STOREFRONT_LOG_LEVEL" envDefault:"info"`

	// Cache configuration
	RedisURL     string `env:"STOREFRONT_REDIS_URL"`                           // Optional Redis URL for a shared query cache
	CachePrefix  string `env:"STOREFRONT_CACHE_PREFIX" envDefault:"storefront:"` // Redis key prefix
	CacheTTL     int    `env:"STOREFRONT_CACHE_TTL" envDefault:"60"`             // Query cache TTL in seconds
	CacheMaxSize int    `env:"STOREFRONT_CACHE_MAX_SIZE" envDefault:"10000"`     // Max memory cache entries

	// Auth
	CookiePrefix string        `env:"STOREFRONT_COOKIE_PREFIX" envDefault:"payload"`
	TokenTTL     time.Duration `env:"STOREFRONT_TOKEN_TTL" envDefault:"168h"`

	// Listing page size for products and tags
	DefaultLimit int `env:"STOREFRONT_DEFAULT_LIMIT" envDefault:"8"`

	// Rate limiting of sign-in and sign-up
	RateLimitRPS   float64 `env:"STOREFRONT_RATE_LIMIT_RPS" envDefault:"5"`
	RateLimitBurst int     `env:"STOREFRONT_RATE_LIMIT_BURST" envDefault:"10"`

	RequestTimeout time.Duration `env:"STOREFRONT_REQUEST_TIMEOUT" envDefault:"30s"`

	// Seeding configuration
	DoSeed bool `env:"STOREFRONT_DO_SEED" envDefault:"false"` // Insert the demo catalog on startup
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// CacheTTLDuration returns CacheTTL as a duration.
func (c Config) CacheTTLDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// SlogLevel maps LogLevel to a slog level. Unknown values mean info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// MinSessionSecretLength is the minimum required length for the session
// secret. It also signs auth tokens, and HS256 keys need 32 bytes.
const MinSessionSecretLength = 32

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	// Warn about low-entropy secrets
	if !hasMinimumEntropy(cfg.SessionSecret) {
		slog.Warn("STOREFRONT_SESSION_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.SessionSecret) < MinSessionSecretLength {
		return fmt.Errorf("STOREFRONT_SESSION_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinSessionSecretLength, len(c.SessionSecret))
	}
	for _, weak := range knownWeakSecrets {
		if c.SessionSecret == weak {
			return errors.New("STOREFRONT_SESSION_SECRET is a known default value and must not be used; " +
				"generate a secure secret with: openssl rand -base64 32")
		}
	}

	if c.Env != "development" && c.Env != "production" {
		return fmt.Errorf("STOREFRONT_ENV must be development or production, got %q", c.Env)
	}
	if c.DefaultLimit < 1 || c.DefaultLimit > 100 {
		return fmt.Errorf("STOREFRONT_DEFAULT_LIMIT must be between 1 and 100, got %d", c.DefaultLimit)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("STOREFRONT_CACHE_TTL must not be negative, got %d", c.CacheTTL)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("STOREFRONT_TOKEN_TTL must be positive, got %s", c.TokenTTL)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst < 1 {
		return errors.New("STOREFRONT_RATE_LIMIT_RPS and STOREFRONT_RATE_LIMIT_BURST must be positive")
	}
	return nil
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}
