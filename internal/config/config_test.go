// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"log/slog"
	"os"
	"testing"
	"time"
)

const testSecret = "test-secret-key-32-bytes-long!!!"

// cleanEnv clears the environment and sets the given variables for the test.
func cleanEnv(t *testing.T, vars map[string]string) {
	t.Helper()
	os.Clearenv()
	for k, v := range vars {
		t.Setenv(k, v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cleanEnv(t, map[string]string{"STOREFRONT_SESSION_SECRET": testSecret})

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.DBPath != "./data/storefront.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "./data/storefront.db")
	}
	if cfg.ServerAddr() != "localhost:8080" {
		t.Errorf("ServerAddr() = %q, want %q", cfg.ServerAddr(), "localhost:8080")
	}
	if !cfg.IsDevelopment() {
		t.Errorf("Env = %q, want development", cfg.Env)
	}
	if cfg.CookiePrefix != "payload" {
		t.Errorf("CookiePrefix = %q, want %q", cfg.CookiePrefix, "payload")
	}
	if cfg.TokenTTL != 168*time.Hour {
		t.Errorf("TokenTTL = %s, want 168h", cfg.TokenTTL)
	}
	if cfg.DefaultLimit != 8 {
		t.Errorf("DefaultLimit = %d, want 8", cfg.DefaultLimit)
	}
	if cfg.CacheTTLDuration() != time.Minute {
		t.Errorf("CacheTTLDuration() = %s, want 1m", cfg.CacheTTLDuration())
	}
	if cfg.UseRedisCache() {
		t.Error("UseRedisCache() = true without STOREFRONT_REDIS_URL")
	}
	if cfg.DoSeed {
		t.Error("DoSeed = true, want false")
	}
}

func TestLoad_CustomValues(t *testing.T) {
	cleanEnv(t, map[string]string{
		"STOREFRONT_SESSION_SECRET":   testSecret,
		"STOREFRONT_DB_PATH":          "/custom/path.db",
		"STOREFRONT_SERVER_HOST":      "0.0.0.0",
		"STOREFRONT_SERVER_PORT":      "3000",
		"STOREFRONT_ENV":              "production",
		"STOREFRONT_REDIS_URL":        "redis://cache:6379/0",
		"STOREFRONT_COOKIE_PREFIX":    "shop",
		"STOREFRONT_DEFAULT_LIMIT":    "24",
		"STOREFRONT_REQUEST_TIMEOUT":  "5s",
		"STOREFRONT_RATE_LIMIT_BURST": "3",
		"STOREFRONT_DO_SEED":          "true",
	})

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.DBPath != "/custom/path.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "/custom/path.db")
	}
	if cfg.ServerAddr() != "0.0.0.0:3000" {
		t.Errorf("ServerAddr() = %q, want %q", cfg.ServerAddr(), "0.0.0.0:3000")
	}
	if cfg.IsDevelopment() {
		t.Error("IsDevelopment() = true in production")
	}
	if !cfg.UseRedisCache() {
		t.Error("UseRedisCache() = false with STOREFRONT_REDIS_URL set")
	}
	if cfg.CookiePrefix != "shop" {
		t.Errorf("CookiePrefix = %q, want %q", cfg.CookiePrefix, "shop")
	}
	if cfg.DefaultLimit != 24 {
		t.Errorf("DefaultLimit = %d, want 24", cfg.DefaultLimit)
	}
	if cfg.RequestTimeout != 5*time.Second {
		t.Errorf("RequestTimeout = %s, want 5s", cfg.RequestTimeout)
	}
	if cfg.RateLimitBurst != 3 {
		t.Errorf("RateLimitBurst = %d, want 3", cfg.RateLimitBurst)
	}
	if !cfg.DoSeed {
		t.Error("DoSeed = false, want true")
	}
}

func TestLoad_RequiredSessionSecret(t *testing.T) {
	cleanEnv(t, nil)

	if _, err := Load(); err == nil {
		t.Fatal("Load() should fail when STOREFRONT_SESSION_SECRET is not set")
	}
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
	}{
		{"short secret", map[string]string{"STOREFRONT_SESSION_SECRET": "1234567890123456789012345678901"}},
		{"weak secret", map[string]string{"STOREFRONT_SESSION_SECRET": "change-me-to-32-byte-secret-key!"}},
		{"unknown env", map[string]string{"STOREFRONT_SESSION_SECRET": testSecret, "STOREFRONT_ENV": "staging"}},
		{"zero limit", map[string]string{"STOREFRONT_SESSION_SECRET": testSecret, "STOREFRONT_DEFAULT_LIMIT": "0"}},
		{"huge limit", map[string]string{"STOREFRONT_SESSION_SECRET": testSecret, "STOREFRONT_DEFAULT_LIMIT": "101"}},
		{"negative cache ttl", map[string]string{"STOREFRONT_SESSION_SECRET": testSecret, "STOREFRONT_CACHE_TTL": "-1"}},
		{"zero token ttl", map[string]string{"STOREFRONT_SESSION_SECRET": testSecret, "STOREFRONT_TOKEN_TTL": "0s"}},
		{"zero rate", map[string]string{"STOREFRONT_SESSION_SECRET": testSecret, "STOREFRONT_RATE_LIMIT_RPS": "0"}},
		{"bad port", map[string]string{"STOREFRONT_SESSION_SECRET": testSecret, "STOREFRONT_SERVER_PORT": "http"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleanEnv(t, tt.vars)
			if _, err := Load(); err == nil {
				t.Fatal("Load() should fail")
			}
		})
	}
}

func TestConfig_SlogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := Config{LogLevel: tt.level}
			if got := cfg.SlogLevel(); got != tt.want {
				t.Errorf("SlogLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHasMinimumEntropy(t *testing.T) {
	tests := []struct {
		secret string
		want   bool
	}{
		{"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", false},
		{"abcdefghABCDEFGHabcdefghABCDEFGH", false},
		{"abcdABCD1234abcdABCD1234abcdABCD", true},
		{testSecret, true},
	}

	for _, tt := range tests {
		if got := hasMinimumEntropy(tt.secret); got != tt.want {
			t.Errorf("hasMinimumEntropy(%q) = %v, want %v", tt.secret, got, tt.want)
		}
	}
}
