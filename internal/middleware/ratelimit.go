// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// maxLimiters bounds the number of tracked clients before the cache resets.
const maxLimiters = 10000

// limiterCache is a per-key rate limiter cache with double-check locking.
type limiterCache[K comparable] struct {
	limiters map[K]*rate.Limiter
	mu       sync.RWMutex
	rate     rate.Limit
	burst    int
}

func newLimiterCache[K comparable](rps float64, burst int) *limiterCache[K] {
	return &limiterCache[K]{
		limiters: make(map[K]*rate.Limiter),
		rate:     rate.Limit(rps),
		burst:    burst,
	}
}

// get returns the rate limiter for key, creating one if needed.
func (lc *limiterCache[K]) get(key K) *rate.Limiter {
	lc.mu.RLock()
	limiter, exists := lc.limiters[key]
	lc.mu.RUnlock()
	if exists {
		return limiter
	}

	lc.mu.Lock()
	defer lc.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists = lc.limiters[key]; exists {
		return limiter
	}
	limiter = rate.NewLimiter(lc.rate, lc.burst)
	lc.limiters[key] = limiter
	return limiter
}

// clearIfExceeds clears all entries if the cache exceeds maxSize.
func (lc *limiterCache[K]) clearIfExceeds(maxSize int) bool {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	if len(lc.limiters) > maxSize {
		lc.limiters = make(map[K]*rate.Limiter)
		return true
	}
	return false
}

func (lc *limiterCache[K]) len() int {
	lc.mu.RLock()
	defer lc.mu.RUnlock()
	return len(lc.limiters)
}

// RateLimiter limits requests per client IP. It guards sign-in, sign-up
// and the auth mutations of the procedure endpoint.
type RateLimiter struct {
	cache *limiterCache[string]
}

// NewRateLimiter creates a rate limiter allowing rps requests per second
// with the given burst per client.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{cache: newLimiterCache[string](rps, burst)}
}

// Allow reports whether a request from r's client may proceed.
func (rl *RateLimiter) Allow(r *http.Request) bool {
	return rl.cache.get(clientIP(r)).Allow()
}

// Prune drops every tracked client once the cache grows past its bound.
// It is run periodically by the scheduler.
func (rl *RateLimiter) Prune(context.Context) error {
	if rl.cache.clearIfExceeds(maxLimiters) {
		slog.Info("rate limiter cache cleared", "max", maxLimiters)
	}
	return nil
}

// HTMLMiddleware rejects limited requests with a plain text 429.
func (rl *RateLimiter) HTMLMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet && !rl.Allow(r) {
				slog.WarnContext(r.Context(), "rate limit exceeded", "ip", clientIP(r), "path", r.URL.Path)
				w.Header().Set("Retry-After", "1")
				http.Error(w, "Too many requests. Please wait a moment and try again.", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// JSONMiddleware rejects limited POST requests with an error body shaped
// like the procedure errors. Queries are not limited.
func (rl *RateLimiter) JSONMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost && !rl.Allow(r) {
				slog.WarnContext(r.Context(), "rate limit exceeded", "ip", clientIP(r), "path", r.URL.Path)
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]any{
						"code":      "TOO_MANY_REQUESTS",
						"message":   "Rate limit exceeded. Please slow down.",
						"retryable": true,
					},
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP returns the client address. chi's RealIP middleware has already
// rewritten RemoteAddr from X-Real-IP or X-Forwarded-For when present.
func clientIP(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
