// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package cache provides the shared query cache used to reuse listing results
// across page renders. Values are opaque bytes so that in-memory and Redis
// backends are interchangeable; TypedCache adds JSON encoding on top.
package cache

import (
	"context"
	"time"
)

// Cacher is implemented by every cache backend. Implementations are safe for
// concurrent use.
type Cacher interface {
	// Get returns ErrCacheMiss when the key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value for ttl; a zero ttl uses the backend default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	Delete(ctx context.Context, key string) error

	// DeleteByPrefix removes every key starting with prefix.
	DeleteByPrefix(ctx context.Context, prefix string) error

	Has(ctx context.Context, key string) (bool, error)

	Clear(ctx context.Context) error

	Close() error
}

// Stats holds cache counters.
type Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Sets    int64   `json:"sets"`
	Items   int     `json:"items"`
	HitRate float64 `json:"hit_rate"`
}

// StatsProvider is implemented by caches that track statistics.
type StatsProvider interface {
	Stats() Stats
	ResetStats()
}

// Error is a cache error constant.
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	// ErrCacheMiss indicates the key was not found or has expired.
	ErrCacheMiss Error = "cache miss"

	// ErrCacheClosed indicates the cache has been closed.
	ErrCacheClosed Error = "cache closed"
)

func hitRate(hits, misses int64) float64 {
	if total := hits + misses; total > 0 {
		return float64(hits) / float64(total) * 100
	}
	return 0
}
