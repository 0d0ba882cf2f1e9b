// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package session keeps short-lived form state between a sign-in or sign-up
// POST and the page it redirects to. Authentication itself uses the CMS
// token cookie, not this session.
package session

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
)

// Session keys.
const (
	keyFlash     = "flash"
	keyFlashKind = "flash_kind"
	keyFormEmail = "form_email"
)

// Flash kinds.
const (
	FlashError   = "error"
	FlashSuccess = "success"
)

// Flash is a one-time message shown on the next page render.
type Flash struct {
	Kind    string
	Message string
}

// New creates a session manager backed by the sessions table.
func New(db *sql.DB, isDev bool) *scs.SessionManager {
	sm := scs.New()
	sm.Store = sqlite3store.New(db)

	sm.Lifetime = time.Hour
	sm.IdleTimeout = 20 * time.Minute
	sm.Cookie.Name = "storefront_session"
	sm.Cookie.HttpOnly = true
	sm.Cookie.Path = "/"
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Secure = !isDev
	if !isDev {
		sm.Cookie.Name = "__Host-storefront_session"
	}
	return sm
}

// SetFlash stores a message for the next request.
func SetFlash(ctx context.Context, sm *scs.SessionManager, kind, message string) {
	sm.Put(ctx, keyFlash, message)
	sm.Put(ctx, keyFlashKind, kind)
}

// PopFlash returns and clears the pending message, if any.
func PopFlash(ctx context.Context, sm *scs.SessionManager) *Flash {
	message := sm.PopString(ctx, keyFlash)
	kind := sm.PopString(ctx, keyFlashKind)
	if message == "" {
		return nil
	}
	if kind == "" {
		kind = FlashError
	}
	return &Flash{Kind: kind, Message: message}
}

// SetFormEmail remembers the email typed into a failed form so it can be
// filled in again. Passwords are never kept.
func SetFormEmail(ctx context.Context, sm *scs.SessionManager, email string) {
	sm.Put(ctx, keyFormEmail, email)
}

// PopFormEmail returns and clears the remembered email.
func PopFormEmail(ctx context.Context, sm *scs.SessionManager) string {
	return sm.PopString(ctx, keyFormEmail)
}
