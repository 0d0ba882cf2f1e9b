// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/olegiv/ocms-storefront/internal/auth"
	"github.com/olegiv/ocms-storefront/internal/cms"
)

// DefaultCookiePrefix is the auth cookie prefix used when none is configured.
const DefaultCookiePrefix = "payload"

// Backend is a cms.Backend over the storefront SQLite schema.
type Backend struct {
	db     *sql.DB
	issuer *auth.TokenIssuer
	prefix string
	now    func() time.Time
}

// NewBackend creates a backend. An empty cookiePrefix falls back to
// DefaultCookiePrefix.
func NewBackend(db *sql.DB, issuer *auth.TokenIssuer, cookiePrefix string) *Backend {
	if cookiePrefix == "" {
		cookiePrefix = DefaultCookiePrefix
	}
	return &Backend{
		db:     db,
		issuer: issuer,
		prefix: cookiePrefix,
		now:    time.Now,
	}
}

// Config implements cms.Backend.
func (b *Backend) Config() cms.Config {
	return cms.Config{CookiePrefix: b.prefix}
}

// Find implements cms.Backend.
func (b *Backend) Find(ctx context.Context, params cms.FindParams) (cms.Result, error) {
	coll, ok := collections[params.Collection]
	if !ok {
		return cms.Result{}, fmt.Errorf("%w: unknown collection %q", cms.ErrInvalidQuery, params.Collection)
	}
	params.Normalize()

	where, args, err := coll.buildWhere(params.Where)
	if err != nil {
		return cms.Result{}, err
	}
	order, err := coll.orderBy(params.Sort)
	if err != nil {
		return cms.Result{}, err
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s t WHERE %s", coll.table, where)
	if err := b.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return cms.Result{}, fmt.Errorf("counting %s: %w", coll.table, err)
	}

	query := fmt.Sprintf("SELECT t.id FROM %s t WHERE %s ORDER BY %s", coll.table, where, order)
	pageArgs := args
	if !params.DisablePagination {
		query += " LIMIT ? OFFSET ?"
		pageArgs = append(append([]any{}, args...), params.Limit, (params.Page-1)*params.Limit)
	}

	ids, err := b.queryIDs(ctx, query, pageArgs...)
	if err != nil {
		return cms.Result{}, fmt.Errorf("listing %s: %w", coll.table, err)
	}

	docs := make([]cms.Document, 0, len(ids))
	for _, id := range ids {
		doc, err := b.load(ctx, params.Collection, id, params.Depth)
		if err != nil {
			return cms.Result{}, err
		}
		docs = append(docs, doc)
	}

	res := cms.Result{Docs: docs, TotalDocs: total, Page: params.Page}
	if params.DisablePagination {
		res.Page = 1
		return res, nil
	}
	if params.Page*params.Limit < total {
		res.HasNextPage = true
		res.NextPage = params.Page + 1
	}
	return res, nil
}

// Create implements cms.Backend. Only users can be created; the "password"
// member is hashed and never stored in clear.
func (b *Backend) Create(ctx context.Context, collection cms.Collection, data cms.Document) (cms.Document, error) {
	if collection != cms.CollectionUsers {
		return nil, fmt.Errorf("%w: create is not supported on %q", cms.ErrInvalidQuery, collection)
	}

	email := strings.TrimSpace(stringField(data, "email"))
	username := stringField(data, "username")
	password := stringField(data, "password")
	if email == "" || username == "" || password == "" {
		return nil, fmt.Errorf("%w: email, username and password are required", cms.ErrInvalidQuery)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	now := formatTime(b.now())
	res, err := b.db.ExecContext(ctx,
		`INSERT INTO users (email, username, password_hash, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		email, username, hash, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, cms.ErrConflict
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading user id: %w", err)
	}
	return b.loadUser(ctx, id)
}

// Login implements cms.Backend.
func (b *Backend) Login(ctx context.Context, collection cms.Collection, creds cms.Credentials) (cms.LoginResult, error) {
	if collection != cms.CollectionUsers {
		return cms.LoginResult{}, fmt.Errorf("%w: login is not supported on %q", cms.ErrInvalidQuery, collection)
	}

	var (
		id   int64
		hash string
	)
	err := b.db.QueryRowContext(ctx,
		`SELECT id, password_hash FROM users WHERE email = ?`, strings.TrimSpace(creds.Email)).Scan(&id, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return cms.LoginResult{}, cms.ErrUnauthorized
	}
	if err != nil {
		return cms.LoginResult{}, fmt.Errorf("looking up user: %w", err)
	}

	ok, err := auth.CheckPassword(creds.Password, hash)
	if err != nil {
		return cms.LoginResult{}, fmt.Errorf("checking password: %w", err)
	}
	if !ok {
		return cms.LoginResult{}, cms.ErrUnauthorized
	}

	if auth.NeedsRehash(hash) {
		b.rehash(ctx, id, creds.Password)
	}

	doc, err := b.loadUser(ctx, id)
	if err != nil {
		return cms.LoginResult{}, err
	}
	user, err := cms.DecodeUser(doc)
	if err != nil {
		return cms.LoginResult{}, err
	}

	token, exp, err := b.issuer.Issue(user.ID, user.Email)
	if err != nil {
		return cms.LoginResult{}, fmt.Errorf("issuing token: %w", err)
	}
	return cms.LoginResult{Token: token, Exp: exp, User: user}, nil
}

// rehash upgrades a stored hash to the current parameters. Failures are
// ignored: the old hash stays valid.
func (b *Backend) rehash(ctx context.Context, id int64, password string) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return
	}
	_, _ = b.db.ExecContext(ctx, `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		hash, formatTime(b.now()), id)
}

// Auth implements cms.Backend. Missing, invalid and expired tokens resolve to
// an anonymous result, not an error.
func (b *Backend) Auth(ctx context.Context, headers http.Header) (cms.AuthResult, error) {
	token := cms.TokenFromHeaders(headers, b.Config().CookieName())
	if token == "" {
		return cms.AuthResult{}, nil
	}
	claims, err := b.issuer.Verify(token)
	if err != nil {
		return cms.AuthResult{}, nil
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return cms.AuthResult{}, nil
	}

	doc, err := b.loadUser(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return cms.AuthResult{}, nil
	}
	if err != nil {
		return cms.AuthResult{}, err
	}
	user, err := cms.DecodeUser(doc)
	if err != nil {
		return cms.AuthResult{}, err
	}
	return cms.AuthResult{User: user}, nil
}

func (b *Backend) queryIDs(ctx context.Context, query string, args ...any) ([]int64, error) {
	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func stringField(doc cms.Document, key string) string {
	s, _ := doc[key].(string)
	return s
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

var _ cms.Backend = (*Backend)(nil)
