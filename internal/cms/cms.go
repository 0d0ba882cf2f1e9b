// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package cms defines the boundary to the content-management backend that owns
// users, categories, products and tags. The storefront never queries storage
// directly: every read, write and credential check goes through a Backend.
package cms

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/olegiv/ocms-storefront/internal/model"
)

// Collection names a backend collection.
type Collection string

// Collections used by the storefront.
const (
	CollectionUsers      Collection = "users"
	CollectionCategories Collection = "categories"
	CollectionProducts   Collection = "products"
	CollectionTags       Collection = "tags"
)

// Condition is a single field predicate. Only the non-zero members apply and
// all of them must hold.
type Condition struct {
	Equals           any    `json:"equals,omitempty"`
	Exists           *bool  `json:"exists,omitempty"`
	In               []any  `json:"in,omitempty"`
	GreaterThanEqual any    `json:"greater_than_equal,omitempty"`
	LessThanEqual    any    `json:"less_than_equal,omitempty"`
	Like             string `json:"like,omitempty"`
}

// Where maps a field path (e.g. "category.slug") to its condition.
type Where map[string]Condition

// Exists returns a pointer for Condition.Exists.
func Exists(v bool) *bool {
	return &v
}

// FindParams describes a collection query.
type FindParams struct {
	Collection Collection
	Where      Where
	// Sort is a field name, prefixed with "-" for descending order.
	Sort  string
	Limit int
	// Page is 1-based.
	Page int
	// DisablePagination returns every matching document in one page.
	DisablePagination bool
	// Depth controls relationship population: 0 returns IDs, 1 populates one level.
	Depth int
}

// Document is a raw backend document.
type Document map[string]any

// Result is one page of documents.
type Result struct {
	Docs        []Document `json:"docs"`
	TotalDocs   int        `json:"totalDocs"`
	Page        int        `json:"page"`
	HasNextPage bool       `json:"hasNextPage"`
	NextPage    int        `json:"nextPage,omitempty"`
}

// Credentials identify a user for login.
type Credentials struct {
	Email    string
	Password string
}

// LoginResult holds the issued token. An empty Token means the login failed.
type LoginResult struct {
	Token string
	Exp   time.Time
	User  *model.User
}

// AuthResult is the user resolved from request headers, nil when anonymous.
type AuthResult struct {
	User *model.User
}

// Config exposes backend settings the storefront needs.
type Config struct {
	CookiePrefix string
}

// CookieName returns the auth cookie name for the configured prefix.
func (c Config) CookieName() string {
	return c.CookiePrefix + "-token"
}

// Backend is the capability set the storefront requires from the CMS.
type Backend interface {
	Find(ctx context.Context, params FindParams) (Result, error)
	Create(ctx context.Context, collection Collection, data Document) (Document, error)
	Login(ctx context.Context, collection Collection, creds Credentials) (LoginResult, error)
	Auth(ctx context.Context, headers http.Header) (AuthResult, error)
	Config() Config
}

var (
	// ErrConflict is returned by Create when a unique field is already taken.
	ErrConflict = errors.New("cms: unique constraint violated")

	// ErrUnauthorized is returned by Login for unknown users or wrong passwords.
	ErrUnauthorized = errors.New("cms: invalid credentials")

	// ErrInvalidQuery is returned for unknown collections, fields or sort keys.
	ErrInvalidQuery = errors.New("cms: invalid query")
)

// DefaultLimit is the page size used when FindParams.Limit is zero.
const DefaultLimit = 10

// Normalize fills the paging defaults in place.
func (p *FindParams) Normalize() {
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Page <= 0 {
		p.Page = 1
	}
}

// TokenFromHeaders extracts the auth token from the auth cookie or an
// "Authorization: JWT <token>" / "Bearer <token>" header.
func TokenFromHeaders(headers http.Header, cookieName string) string {
	if authz := headers.Get("Authorization"); authz != "" {
		for _, scheme := range []string{"JWT ", "Bearer "} {
			if len(authz) > len(scheme) && authz[:len(scheme)] == scheme {
				return authz[len(scheme):]
			}
		}
	}

	req := http.Request{Header: headers}
	if c, err := req.Cookie(cookieName); err == nil {
		return c.Value
	}
	return ""
}
