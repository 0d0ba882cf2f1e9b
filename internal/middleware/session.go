// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/olegiv/ocms-storefront/internal/logging"
	"github.com/olegiv/ocms-storefront/internal/model"
)

type sessionKey struct{}

// SessionFunc resolves the session of a request, normally by calling the
// auth.session procedure.
type SessionFunc func(r *http.Request) (model.Session, error)

// LoadSession resolves the session once per request and stores it in the
// context. A failed lookup is logged and the request continues anonymous.
func LoadSession(resolve SessionFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := resolve(r)
			if err != nil {
				slog.WarnContext(r.Context(), "resolving session", "error", err)
				session = model.Session{}
			}

			ctx := context.WithValue(r.Context(), sessionKey{}, session)
			if session.IsAuthenticated() {
				ctx = logging.WithUserID(ctx, session.User.ID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSession returns the session loaded by LoadSession.
func GetSession(r *http.Request) model.Session {
	session, _ := r.Context().Value(sessionKey{}).(model.Session)
	return session
}

// GetUser returns the signed-in user, or nil.
func GetUser(r *http.Request) *model.User {
	return GetSession(r).User
}
