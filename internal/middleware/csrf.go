// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"log/slog"
	"net/http"

	"filippo.io/csrf/gorilla"
)

// CSRFConfig holds configuration for CSRF protection.
// filippo.io/csrf/gorilla checks Fetch metadata and Origin headers, so the
// forms carry no token field.
type CSRFConfig struct {
	// AuthKey is kept for API compatibility with gorilla/csrf.
	AuthKey []byte

	// ErrorHandler is called when CSRF validation fails.
	ErrorHandler http.Handler

	// TrustedOrigins are host[:port] values allowed to post cross-origin.
	TrustedOrigins []string
}

// DefaultCSRFConfig returns a CSRFConfig that trusts the local dev server
// in development.
func DefaultCSRFConfig(authKey []byte, isDev bool) CSRFConfig {
	cfg := CSRFConfig{AuthKey: authKey}
	if isDev {
		cfg.TrustedOrigins = []string{"localhost:8080", "127.0.0.1:8080"}
	}
	return cfg
}

// CSRF returns a middleware that rejects cross-origin state-changing requests.
func CSRF(cfg CSRFConfig) func(http.Handler) http.Handler {
	errorHandler := cfg.ErrorHandler
	if errorHandler == nil {
		errorHandler = http.HandlerFunc(csrfErrorHandler)
	}
	opts := []csrf.Option{csrf.ErrorHandler(errorHandler)}
	if len(cfg.TrustedOrigins) > 0 {
		opts = append(opts, csrf.TrustedOrigins(cfg.TrustedOrigins))
	}
	return csrf.Protect(cfg.AuthKey, opts...)
}

func csrfErrorHandler(w http.ResponseWriter, r *http.Request) {
	reason := "unknown"
	if err := csrf.FailureReason(r); err != nil {
		reason = err.Error()
	}
	slog.WarnContext(r.Context(), "CSRF validation failed",
		"reason", reason,
		"method", r.Method,
		"path", r.URL.Path,
		"origin", r.Header.Get("Origin"),
		"sec_fetch_site", r.Header.Get("Sec-Fetch-Site"),
	)
	http.Error(w, "Forbidden - CSRF validation failed", http.StatusForbidden)
}
