// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package rpc

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/olegiv/ocms-storefront/internal/cms"
	"github.com/olegiv/ocms-storefront/internal/model"
)

// LoginInput is the input of auth.login.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginOutput is the result of auth.login.
type LoginOutput struct {
	Token string      `json:"token"`
	Exp   time.Time   `json:"exp"`
	User  *model.User `json:"user"`
}

// RegisterInput is the input of auth.register. Username is validated as
// typed and lowercased afterwards.
type RegisterInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Username string `json:"username" validate:"required,min=3,max=63,username"`
}

// LogoutOutput is the result of auth.logout.
type LogoutOutput struct {
	Success bool `json:"success"`
}

// Session resolves the user from the request's auth cookie or
// Authorization header. An anonymous request yields an empty session.
func (r *Router) Session(ctx context.Context, meta *Meta, _ struct{}) (model.Session, error) {
	res, err := r.backend.Auth(ctx, meta.header())
	if err != nil {
		return model.Session{}, backendError("Failed to resolve session", err)
	}
	return model.Session{User: res.User}, nil
}

// Login checks credentials and sets the auth cookie.
func (r *Router) Login(ctx context.Context, meta *Meta, in LoginInput) (LoginOutput, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := validateInput(in); err != nil {
		return LoginOutput{}, err
	}

	res, err := r.login(ctx, in.Email, in.Password)
	if err != nil {
		return LoginOutput{}, err
	}
	meta.SetCookie(r.authCookie(res.Token, res.Exp))
	return LoginOutput{Token: res.Token, Exp: res.Exp, User: res.User}, nil
}

// Register creates a user, logs it in and sets the auth cookie. A taken
// username fails with KindConflict before anything is created.
func (r *Router) Register(ctx context.Context, meta *Meta, in RegisterInput) (model.Session, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := validateInput(in); err != nil {
		return model.Session{}, err
	}
	// The pattern only admits lowercase; this keeps stored names canonical
	// if the rule is ever relaxed.
	in.Username = strings.ToLower(in.Username)

	existing, err := r.backend.Find(ctx, cms.FindParams{
		Collection: cms.CollectionUsers,
		Limit:      1,
		Where:      cms.Where{"username": {Equals: in.Username}},
	})
	if err != nil {
		return model.Session{}, backendError("Failed to check username", err)
	}
	if len(existing.Docs) > 0 {
		return model.Session{}, &Error{
			Kind:    KindConflict,
			Message: "Username already taken",
			Fields:  map[string]string{"username": "is already taken"},
		}
	}

	_, err = r.backend.Create(ctx, cms.CollectionUsers, cms.Document{
		"email":    in.Email,
		"username": in.Username,
		"password": in.Password,
	})
	if errors.Is(err, cms.ErrConflict) {
		return model.Session{}, &Error{
			Kind:    KindConflict,
			Message: "Email already registered",
			Fields:  map[string]string{"email": "is already registered"},
			Err:     err,
		}
	}
	if err != nil {
		return model.Session{}, backendError("Failed to create account", err)
	}

	res, err := r.login(ctx, in.Email, in.Password)
	if err != nil {
		return model.Session{}, err
	}
	meta.SetCookie(r.authCookie(res.Token, res.Exp))

	r.logger.Info("user registered", "username", in.Username)
	return model.Session{User: res.User}, nil
}

// Logout expires the auth cookie.
func (r *Router) Logout(_ context.Context, meta *Meta, _ struct{}) (LogoutOutput, error) {
	c := r.authCookie("", time.Time{})
	c.MaxAge = -1
	meta.SetCookie(c)
	return LogoutOutput{Success: true}, nil
}

func (r *Router) login(ctx context.Context, email, password string) (cms.LoginResult, error) {
	res, err := r.backend.Login(ctx, cms.CollectionUsers, cms.Credentials{Email: email, Password: password})
	if errors.Is(err, cms.ErrUnauthorized) {
		return res, newError(KindUnauthenticated, "Invalid email or password", err)
	}
	if err != nil {
		return res, backendError("Failed to login", err)
	}
	if res.Token == "" {
		return res, newError(KindUnauthenticated, "Failed to login", nil)
	}
	return res, nil
}

// authCookie builds the auth cookie named after the backend's cookie prefix.
func (r *Router) authCookie(token string, exp time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     r.backend.Config().CookieName(),
		Value:    token,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		Secure:   r.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
}

// CookieName returns the auth cookie name.
func (r *Router) CookieName() string {
	return r.backend.Config().CookieName()
}
