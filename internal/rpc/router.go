// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package rpc implements the storefront's typed remote procedures. Every
// procedure validates its input before calling the CMS backend and reports
// failures as *Error values with a Kind. Procedures are served over HTTP by
// Handler and called in-process by page handlers through a Caller.
package rpc

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/olegiv/ocms-storefront/internal/cms"
	"github.com/olegiv/ocms-storefront/internal/model"
)

// DefaultLimit is the listing page size when neither the input nor Options
// set one.
const DefaultLimit = 8

// MaxLimit caps the page size a client may request.
const MaxLimit = 100

// Options configures a Router.
type Options struct {
	// DefaultLimit is the page size used when a listing input has none.
	DefaultLimit int
	// SecureCookies marks the auth cookie Secure. Disable only for local
	// development over plain HTTP.
	SecureCookies bool
	Logger        *slog.Logger
}

// Router holds the procedures and their backend.
type Router struct {
	backend cms.Backend
	opts    Options
	logger  *slog.Logger
}

// New creates a Router.
func New(backend cms.Backend, opts Options) *Router {
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = DefaultLimit
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Router{
		backend: backend,
		opts:    opts,
		logger:  opts.Logger,
	}
}

// Meta carries the transport state of one call: the request headers the
// backend authenticates from, and a sink for response cookies.
type Meta struct {
	Header    http.Header
	setCookie func(*http.Cookie)
}

// NewMeta binds a call to an HTTP exchange.
func NewMeta(w http.ResponseWriter, r *http.Request) *Meta {
	return &Meta{
		Header:    r.Header,
		setCookie: func(c *http.Cookie) { http.SetCookie(w, c) },
	}
}

// SetCookie adds c to the response, if there is one.
func (m *Meta) SetCookie(c *http.Cookie) {
	if m != nil && m.setCookie != nil {
		m.setCookie(c)
	}
}

func (m *Meta) header() http.Header {
	if m == nil || m.Header == nil {
		return http.Header{}
	}
	return m.Header
}

// Caller invokes procedures in-process on behalf of one request.
type Caller struct {
	router *Router
	meta   *Meta
}

// Caller returns a Caller bound to w and r.
func (r *Router) Caller(w http.ResponseWriter, req *http.Request) *Caller {
	return &Caller{router: r, meta: NewMeta(w, req)}
}

// Session calls auth.session.
func (c *Caller) Session(ctx context.Context) (model.Session, error) {
	return c.router.Session(ctx, c.meta, struct{}{})
}

// Login calls auth.login.
func (c *Caller) Login(ctx context.Context, in LoginInput) (LoginOutput, error) {
	return c.router.Login(ctx, c.meta, in)
}

// Register calls auth.register.
func (c *Caller) Register(ctx context.Context, in RegisterInput) (model.Session, error) {
	return c.router.Register(ctx, c.meta, in)
}

// Logout calls auth.logout.
func (c *Caller) Logout(ctx context.Context) (LogoutOutput, error) {
	return c.router.Logout(ctx, c.meta, struct{}{})
}

// Categories calls categories.getMany.
func (c *Caller) Categories(ctx context.Context) ([]model.Category, error) {
	return c.router.Categories(ctx, c.meta, struct{}{})
}

// Products calls products.getMany.
func (c *Caller) Products(ctx context.Context, in ProductsInput) (model.Page[model.Product], error) {
	return c.router.Products(ctx, c.meta, in)
}

// Tags calls tags.getMany.
func (c *Caller) Tags(ctx context.Context, in TagsInput) (model.Page[model.Tag], error) {
	return c.router.Tags(ctx, c.meta, in)
}
