// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/olegiv/ocms-storefront/internal/middleware"
	"github.com/olegiv/ocms-storefront/internal/render"
	"github.com/olegiv/ocms-storefront/internal/rpc"
	"github.com/olegiv/ocms-storefront/internal/session"
)

const (
	msgGeneric     = "Something went wrong. Please try again."
	msgUnavailable = "The service is temporarily unavailable. Please try again."
)

// SignInForm renders the sign-in page. Signed-in users are sent home.
func (h *Storefront) SignInForm(w http.ResponseWriter, r *http.Request) {
	h.authForm(w, r, "pages/sign_in", "Sign in")
}

// SignUpForm renders the sign-up page. Signed-in users are sent home.
func (h *Storefront) SignUpForm(w http.ResponseWriter, r *http.Request) {
	h.authForm(w, r, "pages/sign_up", "Sign up")
}

func (h *Storefront) authForm(w http.ResponseWriter, r *http.Request, name, title string) {
	if middleware.GetSession(r).IsAuthenticated() {
		http.Redirect(w, r, RouteRoot, http.StatusFound)
		return
	}
	categories, _ := h.assembler.Categories(r.Context())
	h.render(w, r, http.StatusOK, name, render.TemplateData{
		Title:      title,
		Categories: categories,
	})
}

// SignIn handles POST /sign-in.
func (h *Storefront) SignIn(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.flashError(w, r, RouteSignIn, "Invalid form data")
		return
	}
	email := strings.TrimSpace(r.PostFormValue("email"))

	out, err := h.router.Caller(w, r).Login(r.Context(), rpc.LoginInput{
		Email:    email,
		Password: r.PostFormValue("password"),
	})
	if err != nil {
		h.logRejected(r, "sign in", err)
		session.SetFormEmail(r.Context(), h.sm, email)
		h.flashError(w, r, RouteSignIn, userMessage(err))
		return
	}

	if out.User == nil {
		h.flashSuccess(w, r, RouteRoot, "Welcome back!")
		return
	}
	h.logger.InfoContext(r.Context(), "user signed in", "user_id", out.User.ID)
	h.flashSuccess(w, r, RouteRoot, "Welcome back, "+out.User.Username+"!")
}

// SignUp handles POST /sign-up.
func (h *Storefront) SignUp(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.flashError(w, r, RouteSignUp, "Invalid form data")
		return
	}
	email := strings.TrimSpace(r.PostFormValue("email"))

	sess, err := h.router.Caller(w, r).Register(r.Context(), rpc.RegisterInput{
		Email:    email,
		Password: r.PostFormValue("password"),
		Username: r.PostFormValue("username"),
	})
	if err != nil {
		h.logRejected(r, "sign up", err)
		session.SetFormEmail(r.Context(), h.sm, email)
		h.flashError(w, r, RouteSignUp, userMessage(err))
		return
	}

	if sess.User == nil {
		h.flashSuccess(w, r, RouteRoot, "Account created.")
		return
	}
	h.flashSuccess(w, r, RouteRoot, "Account created. Welcome, "+sess.User.Username+"!")
}

// SignOut handles POST /sign-out.
func (h *Storefront) SignOut(w http.ResponseWriter, r *http.Request) {
	if _, err := h.router.Caller(w, r).Logout(r.Context()); err != nil {
		h.logger.ErrorContext(r.Context(), "signing out", "error", err)
		h.flashError(w, r, RouteRoot, msgGeneric)
		return
	}
	h.flashSuccess(w, r, RouteRoot, "You have been signed out.")
}

// logRejected logs backend failures; rejected input is expected and only
// logged at debug level.
func (h *Storefront) logRejected(r *http.Request, action string, err error) {
	switch rpc.KindOf(err) {
	case rpc.KindInternal:
		h.logger.ErrorContext(r.Context(), action+" failed", "error", err)
	case rpc.KindTransient:
		h.logger.WarnContext(r.Context(), action+" failed", "error", err)
	default:
		h.logger.DebugContext(r.Context(), action+" rejected", "error", err)
	}
}

func (h *Storefront) flashError(w http.ResponseWriter, r *http.Request, to, message string) {
	session.SetFlash(r.Context(), h.sm, session.FlashError, message)
	http.Redirect(w, r, to, http.StatusSeeOther)
}

func (h *Storefront) flashSuccess(w http.ResponseWriter, r *http.Request, to, message string) {
	session.SetFlash(r.Context(), h.sm, session.FlashSuccess, message)
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// userMessage turns a procedure error into text safe to show on a form.
// Field messages are sorted by field name.
func userMessage(err error) string {
	var e *rpc.Error
	if !errors.As(err, &e) {
		return msgGeneric
	}

	switch e.Kind {
	case rpc.KindValidation, rpc.KindConflict, rpc.KindUnauthenticated:
		if len(e.Fields) == 0 {
			return e.Message
		}
		fields := make([]string, 0, len(e.Fields))
		for f := range e.Fields {
			fields = append(fields, f)
		}
		slices.Sort(fields)

		parts := make([]string, len(fields))
		for i, f := range fields {
			parts[i] = capitalize(f) + " " + e.Fields[f]
		}
		return strings.Join(parts, ". ") + "."
	case rpc.KindTransient:
		return msgUnavailable
	default:
		return msgGeneric
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
