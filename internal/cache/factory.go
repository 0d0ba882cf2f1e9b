// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"log/slog"
	"time"
)

// Config selects and configures the cache backend.
type Config struct {
	// RedisURL enables the Redis backend when set.
	RedisURL string
	// Prefix namespaces Redis keys.
	Prefix          string
	DefaultTTL      time.Duration
	MaxSize         int
	CleanupInterval time.Duration
}

// New returns a RedisCache when RedisURL is set and reachable, otherwise a
// MemoryCache. A Redis connection failure is logged and not fatal: each
// instance then caches locally.
func New(ctx context.Context, cfg Config, logger *slog.Logger) Cacher {
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Minute
	}

	if cfg.RedisURL != "" {
		rc, err := NewRedisCache(ctx, RedisCacheOptions{
			URL:        cfg.RedisURL,
			Prefix:     cfg.Prefix,
			DefaultTTL: cfg.DefaultTTL,
		})
		if err == nil {
			logger.Info("using redis cache", "prefix", cfg.Prefix)
			return rc
		}
		logger.Warn("redis unavailable, falling back to memory cache", "error", err)
	}

	logger.Info("using memory cache", "max_size", cfg.MaxSize)
	return NewMemoryCache(MemoryCacheOptions{
		DefaultTTL:      cfg.DefaultTTL,
		MaxSize:         cfg.MaxSize,
		CleanupInterval: cfg.CleanupInterval,
	})
}
