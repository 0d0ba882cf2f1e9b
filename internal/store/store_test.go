// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/ocms-storefront/internal/auth"
	"github.com/olegiv/ocms-storefront/internal/cms"
)

// testDB creates a migrated in-memory database.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	// One connection keeps every query on the same in-memory database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return db
}

func testBackend(t *testing.T) *Backend {
	t.Helper()

	db := testDB(t)
	if err := Seed(context.Background(), db); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	issuer, err := auth.NewTokenIssuer(strings.Repeat("k", 32), time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	return NewBackend(db, issuer, "")
}

func TestSeedIsIdempotent(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	require.NoError(t, Seed(ctx, db))
	require.NoError(t, Seed(ctx, db))

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM products`).Scan(&n))
	assert.Equal(t, len(demoProducts), n)
}

func TestFindTopLevelCategories(t *testing.T) {
	b := testBackend(t)

	res, err := b.Find(context.Background(), cms.FindParams{
		Collection:        cms.CollectionCategories,
		Where:             cms.Where{"parent": {Exists: cms.Exists(false)}},
		Sort:              "name",
		Depth:             1,
		DisablePagination: true,
	})
	require.NoError(t, err)
	assert.Equal(t, len(demoCategories), res.TotalDocs)
	assert.False(t, res.HasNextPage)

	categories, err := cms.DecodeCategories(res.Docs)
	require.NoError(t, err)
	require.Len(t, categories, len(demoCategories))
	assert.Equal(t, "business-money", categories[0].Slug)

	var software []string
	for _, c := range categories {
		assert.Nil(t, c.Parent, "top-level category %q has a parent", c.Slug)
		if c.Slug == "software-development" {
			for _, sub := range c.Subcategories {
				software = append(software, sub.Slug)
			}
		}
	}
	assert.Equal(t, []string{"game-development", "mobile-development", "web-development"}, software)
}

func TestFindProducts(t *testing.T) {
	b := testBackend(t)
	ctx := context.Background()
	software := []any{"software-development", "web-development", "mobile-development", "game-development"}

	tests := []struct {
		name  string
		where cms.Where
		want  []string
	}{
		{
			name:  "category and subcategories",
			where: cms.Where{"category.slug": {In: software}},
			want:  []string{"2D Game Patterns", "Shipping Mobile Apps", "Landing Page Kit", "Go Web Services"},
		},
		{
			name: "price range",
			where: cms.Where{
				"category.slug": {In: software},
				"price":         {GreaterThanEqual: 10.0, LessThanEqual: 40.0},
			},
			want: []string{"Shipping Mobile Apps", "Landing Page Kit"},
		},
		{
			name:  "any of the tags",
			where: cms.Where{"tags.name": {In: []any{"video", "template"}}},
			want:  []string{"Mixing Masterclass", "Icon Pack", "Landing Page Kit", "Go Web Services", "Startup Playbook"},
		},
		{
			name:  "name contains, case insensitive",
			where: cms.Where{"name": {Like: "KIT"}},
			want:  []string{"Landing Page Kit"},
		},
		{
			name:  "like wildcards are literal",
			where: cms.Where{"name": {Like: "%"}},
			want:  nil,
		},
		{
			name:  "empty in matches nothing",
			where: cms.Where{"tags.name": {In: []any{}}},
			want:  nil,
		},
		{
			name:  "free products",
			where: cms.Where{"price": {Equals: 0}},
			want:  []string{"Newsletter Growth"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := b.Find(ctx, cms.FindParams{
				Collection: cms.CollectionProducts,
				Where:      tt.where,
				Sort:       "-createdAt",
				Depth:      1,
				Limit:      100,
			})
			require.NoError(t, err)

			products, err := cms.DecodeProducts(res.Docs)
			require.NoError(t, err)
			var names []string
			for _, p := range products {
				names = append(names, p.Name)
			}
			assert.Equal(t, tt.want, names)
			assert.Equal(t, len(tt.want), res.TotalDocs)
		})
	}
}

func TestFindProductsPopulatesRelations(t *testing.T) {
	b := testBackend(t)

	res, err := b.Find(context.Background(), cms.FindParams{
		Collection: cms.CollectionProducts,
		Where:      cms.Where{"name": {Equals: "Mixing Masterclass"}},
		Depth:      1,
	})
	require.NoError(t, err)

	products, err := cms.DecodeProducts(res.Docs)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "production", products[0].CategorySlug)
	assert.Equal(t, []string{"advanced", "bestseller", "course", "video"}, products[0].Tags)
	assert.InDelta(t, 89.0, products[0].Price, 0.001)
	assert.False(t, products[0].CreatedAt.IsZero())
}

func TestFindPagination(t *testing.T) {
	b := testBackend(t)
	ctx := context.Background()
	params := cms.FindParams{Collection: cms.CollectionProducts, Sort: "-createdAt", Limit: 5}

	var seen []any
	for page := 1; ; page++ {
		params.Page = page
		res, err := b.Find(ctx, params)
		require.NoError(t, err)
		assert.Equal(t, len(demoProducts), res.TotalDocs)
		for _, doc := range res.Docs {
			seen = append(seen, doc["id"])
		}
		if !res.HasNextPage {
			assert.Zero(t, res.NextPage)
			break
		}
		assert.Equal(t, page+1, res.NextPage)
	}
	assert.Len(t, seen, len(demoProducts))

	params.Page = 99
	res, err := b.Find(ctx, params)
	require.NoError(t, err)
	assert.Empty(t, res.Docs)
	assert.NotNil(t, res.Docs)
}

func TestFindTagsSortedByName(t *testing.T) {
	b := testBackend(t)

	res, err := b.Find(context.Background(), cms.FindParams{
		Collection: cms.CollectionTags,
		Sort:       "name",
		Limit:      3,
	})
	require.NoError(t, err)

	tags, err := cms.DecodeTags(res.Docs)
	require.NoError(t, err)
	require.Len(t, tags, 3)
	assert.Equal(t, "advanced", tags[0].Name)
	assert.Equal(t, "audio", tags[1].Name)
	assert.Equal(t, "beginner", tags[2].Name)
	assert.True(t, res.HasNextPage)
}

func TestFindRejectsUnknownFields(t *testing.T) {
	b := testBackend(t)
	ctx := context.Background()

	_, err := b.Find(ctx, cms.FindParams{
		Collection: cms.CollectionProducts,
		Where:      cms.Where{"password_hash": {Exists: cms.Exists(true)}},
	})
	assert.ErrorIs(t, err, cms.ErrInvalidQuery)

	_, err = b.Find(ctx, cms.FindParams{Collection: cms.CollectionProducts, Sort: "tags.name"})
	assert.ErrorIs(t, err, cms.ErrInvalidQuery)

	_, err = b.Find(ctx, cms.FindParams{Collection: "orders"})
	assert.ErrorIs(t, err, cms.ErrInvalidQuery)
}

func TestCreateUser(t *testing.T) {
	b := testBackend(t)
	ctx := context.Background()

	doc, err := b.Create(ctx, cms.CollectionUsers, cms.Document{
		"email":    "ada@example.com",
		"username": "ada",
		"password": "correct horse",
	})
	require.NoError(t, err)
	assert.Equal(t, "ada", doc["username"])
	assert.NotContains(t, doc, "password")
	assert.NotContains(t, doc, "password_hash")

	var hash string
	require.NoError(t, b.db.QueryRow(`SELECT password_hash FROM users WHERE username = 'ada'`).Scan(&hash))
	assert.NotContains(t, hash, "correct horse")

	_, err = b.Create(ctx, cms.CollectionUsers, cms.Document{
		"email": "ADA@example.com", "username": "ada2", "password": "x",
	})
	assert.ErrorIs(t, err, cms.ErrConflict, "emails are unique regardless of case")

	_, err = b.Create(ctx, cms.CollectionUsers, cms.Document{
		"email": "other@example.com", "username": "ada", "password": "x",
	})
	assert.ErrorIs(t, err, cms.ErrConflict)

	_, err = b.Create(ctx, cms.CollectionProducts, cms.Document{"name": "x"})
	assert.ErrorIs(t, err, cms.ErrInvalidQuery)
}

func TestLoginAndAuth(t *testing.T) {
	b := testBackend(t)
	ctx := context.Background()

	_, err := b.Create(ctx, cms.CollectionUsers, cms.Document{
		"email": "grace@example.com", "username": "grace", "password": "hunter22",
	})
	require.NoError(t, err)

	_, err = b.Login(ctx, cms.CollectionUsers, cms.Credentials{Email: "grace@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, cms.ErrUnauthorized)

	_, err = b.Login(ctx, cms.CollectionUsers, cms.Credentials{Email: "nobody@example.com", Password: "hunter22"})
	assert.ErrorIs(t, err, cms.ErrUnauthorized)

	res, err := b.Login(ctx, cms.CollectionUsers, cms.Credentials{Email: "grace@example.com", Password: "hunter22"})
	require.NoError(t, err)
	require.NotEmpty(t, res.Token)
	require.NotNil(t, res.User)
	assert.Equal(t, "grace", res.User.Username)
	assert.True(t, res.Exp.After(time.Now()))

	cookie := &http.Cookie{Name: b.Config().CookieName(), Value: res.Token}
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)

	authRes, err := b.Auth(ctx, req.Header)
	require.NoError(t, err)
	require.NotNil(t, authRes.User)
	assert.Equal(t, res.User.ID, authRes.User.ID)

	bearer := http.Header{"Authorization": {"Bearer " + res.Token}}
	authRes, err = b.Auth(ctx, bearer)
	require.NoError(t, err)
	require.NotNil(t, authRes.User)

	for name, headers := range map[string]http.Header{
		"no token":      {},
		"garbage token": {"Authorization": {"JWT not-a-token"}},
	} {
		authRes, err := b.Auth(ctx, headers)
		require.NoError(t, err, name)
		assert.Nil(t, authRes.User, name)
	}
}

func TestAuthUnknownUser(t *testing.T) {
	b := testBackend(t)

	token, _, err := b.issuer.Issue("999", "ghost@example.com")
	require.NoError(t, err)

	res, err := b.Auth(context.Background(), http.Header{"Authorization": {"JWT " + token}})
	require.NoError(t, err)
	assert.Nil(t, res.User)
}

func TestCookiePrefix(t *testing.T) {
	assert.Equal(t, "payload-token", NewBackend(nil, nil, "").Config().CookieName())
	assert.Equal(t, "shop-token", NewBackend(nil, nil, "shop").Config().CookieName())
}

func TestUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(errors.New("UNIQUE constraint failed: users.email")))
	assert.False(t, isUniqueViolation(errors.New("database is locked")))
}
