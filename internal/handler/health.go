// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/olegiv/ocms-storefront/internal/cache"
	"github.com/olegiv/ocms-storefront/internal/version"
)

const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	db        *sql.DB
	cache     cache.Cacher
	startTime time.Time
	timeout   time.Duration
}

// NewHealthHandler creates a new health handler. queryCache may be nil.
func NewHealthHandler(db *sql.DB, queryCache cache.Cacher) *HealthHandler {
	return &HealthHandler{
		db:        db,
		cache:     queryCache,
		startTime: time.Now(),
		timeout:   2 * time.Second,
	}
}

// HealthStatus is the /healthz response.
type HealthStatus struct {
	Status    string           `json:"status"`
	Timestamp time.Time        `json:"timestamp"`
	Uptime    string           `json:"uptime"`
	Version   version.Info     `json:"version"`
	Checks    map[string]Check `json:"checks"`
}

// Check represents a single health check result.
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`

	Stats *cache.Stats `json:"stats,omitempty"`
}

// Health handles GET /healthz. It answers 503 when the database is
// unreachable. The query cache is reported but never fails the check:
// listings fall through to the CMS without it.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	db := h.checkDatabase(r.Context())

	status := HealthStatus{
		Status:    db.Status,
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Version:   version.Get(),
		Checks:    map[string]Check{"database": db},
	}
	if h.cache != nil {
		status.Checks["cache"] = h.checkCache(r.Context())
	}

	code := http.StatusOK
	if db.Status != statusHealthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

func (h *HealthHandler) checkDatabase(ctx context.Context) Check {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	start := time.Now()
	if err := h.db.PingContext(ctx); err != nil {
		return Check{Status: statusUnhealthy, Message: "database unreachable"}
	}
	return Check{Status: statusHealthy, Latency: time.Since(start).String()}
}

// checkCache pings Redis when the cache supports it and reports the
// counters of caches that track them.
func (h *HealthHandler) checkCache(ctx context.Context) Check {
	check := Check{Status: statusHealthy}

	if p, ok := h.cache.(interface{ Ping(context.Context) error }); ok {
		ctx, cancel := context.WithTimeout(ctx, h.timeout)
		defer cancel()

		start := time.Now()
		if err := p.Ping(ctx); err != nil {
			check.Status = statusUnhealthy
			check.Message = "cache unreachable"
		} else {
			check.Latency = time.Since(start).String()
		}
	}

	if sp, ok := h.cache.(cache.StatsProvider); ok {
		stats := sp.Stats()
		check.Stats = &stats
		if check.Message == "" {
			check.Message = fmt.Sprintf("hit rate %.1f%%, %d items", stats.HitRate, stats.Items)
		}
	}
	return check
}
