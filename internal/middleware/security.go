// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides the storefront's HTTP middleware: security
// headers, request timeouts, CSRF protection, rate limiting and session
// loading.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// SecurityHeadersConfig holds configuration for security headers.
type SecurityHeadersConfig struct {
	// IsDevelopment disables HSTS.
	IsDevelopment bool

	// ContentSecurityPolicy is the CSP header value.
	ContentSecurityPolicy string

	// HSTSMaxAge is the max-age for Strict-Transport-Security in seconds.
	// Set to 0 to disable HSTS.
	HSTSMaxAge int

	HSTSIncludeSubDomains bool

	// FrameOptions controls the X-Frame-Options header.
	FrameOptions string

	ReferrerPolicy    string
	PermissionsPolicy string

	// ExcludePaths are path prefixes that skip the headers.
	ExcludePaths []string
}

// DefaultSecurityHeadersConfig returns the storefront policy. Product images
// may come from any HTTPS host; scripts and styles are same-origin only.
func DefaultSecurityHeadersConfig(isDev bool) SecurityHeadersConfig {
	cfg := SecurityHeadersConfig{
		IsDevelopment:  isDev,
		HSTSMaxAge:     31536000, // 1 year
		FrameOptions:   "DENY",
		ReferrerPolicy: "strict-origin-when-cross-origin",
		ContentSecurityPolicy: buildCSP([][2]string{
			{"default-src", "'self'"},
			{"script-src", "'self'"},
			{"style-src", "'self' 'unsafe-inline'"},
			{"img-src", "'self' data: https:"},
			{"font-src", "'self' data:"},
			{"connect-src", "'self'"},
			{"object-src", "'none'"},
			{"base-uri", "'self'"},
			{"form-action", "'self'"},
			{"frame-ancestors", "'none'"},
		}),
		PermissionsPolicy: strings.Join([]string{
			"camera=()", "geolocation=()", "microphone=()", "payment=()",
			"usb=()", "interest-cohort=()", "browsing-topics=()",
		}, ", "),
	}
	if !isDev {
		cfg.HSTSIncludeSubDomains = true
	}
	return cfg
}

// buildCSP joins ordered directives into a Content-Security-Policy value.
func buildCSP(directives [][2]string) string {
	parts := make([]string, 0, len(directives))
	for _, d := range directives {
		parts = append(parts, d[0]+" "+d[1])
	}
	return strings.Join(parts, "; ")
}

// SecurityHeaders returns a middleware that adds security headers to responses.
func SecurityHeaders(cfg SecurityHeadersConfig) func(http.Handler) http.Handler {
	hsts := ""
	if !cfg.IsDevelopment && cfg.HSTSMaxAge > 0 {
		hsts = "max-age=" + strconv.Itoa(cfg.HSTSMaxAge)
		if cfg.HSTSIncludeSubDomains {
			hsts += "; includeSubDomains"
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, prefix := range cfg.ExcludePaths {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}

			h := w.Header()
			if cfg.ContentSecurityPolicy != "" {
				h.Set("Content-Security-Policy", cfg.ContentSecurityPolicy)
			}
			if hsts != "" {
				h.Set("Strict-Transport-Security", hsts)
			}
			if cfg.FrameOptions != "" {
				h.Set("X-Frame-Options", cfg.FrameOptions)
			}
			h.Set("X-Content-Type-Options", "nosniff")
			if cfg.ReferrerPolicy != "" {
				h.Set("Referrer-Policy", cfg.ReferrerPolicy)
			}
			if cfg.PermissionsPolicy != "" {
				h.Set("Permissions-Policy", cfg.PermissionsPolicy)
			}

			next.ServeHTTP(w, r)
		})
	}
}
