// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package rpc

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/ocms-storefront/internal/cms"
	"github.com/olegiv/ocms-storefront/internal/cms/cmstest"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// seedCatalog fills b with two top-level categories, one subcategory,
// three tags and four products.
func seedCatalog(b *cmstest.Backend) {
	phones := cms.Document{"id": "c3", "name": "Phones", "slug": "phones", "color": "#FFE066", "parent": cms.Document{"id": "c1", "slug": "electronics"}}
	electronics := cms.Document{"id": "c1", "name": "Electronics", "slug": "electronics", "color": "#7EC8E3",
		"subcategories": cms.Document{"docs": []cms.Document{phones}}}
	books := cms.Document{"id": "c2", "name": "Books", "slug": "books", "color": "#B5B9FF",
		"subcategories": cms.Document{"docs": []cms.Document{}}}
	b.Seed(cms.CollectionCategories, electronics, books, phones)

	eco := cms.Document{"id": "t1", "name": "eco"}
	sale := cms.Document{"id": "t2", "name": "sale"}
	used := cms.Document{"id": "t3", "name": "used"}
	b.Seed(cms.CollectionTags, used, eco, sale)

	b.Seed(cms.CollectionProducts,
		cms.Document{"id": "p1", "name": "Laptop", "price": 999.0, "category": electronics, "tags": []cms.Document{sale}, "createdAt": "2026-01-01T00:00:00Z"},
		cms.Document{"id": "p2", "name": "Smartphone", "price": 499.0, "category": phones, "tags": []cms.Document{eco, sale}, "createdAt": "2026-01-02T00:00:00Z"},
		cms.Document{"id": "p3", "name": "Novel", "price": 12.5, "category": books, "tags": []cms.Document{used}, "createdAt": "2026-01-03T00:00:00Z"},
		cms.Document{"id": "p4", "name": "Phone case", "price": 15.0, "category": phones, "tags": []cms.Document{}, "createdAt": "2026-01-04T00:00:00Z"},
	)
}

func newTestRouter(t *testing.T) (*Router, *cmstest.Backend) {
	t.Helper()
	b := cmstest.New()
	seedCatalog(b)
	return New(b, Options{DefaultLimit: 2, Logger: testLogger()}), b
}

func TestKindStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindValidation, http.StatusUnprocessableEntity},
		{KindConflict, http.StatusConflict},
		{KindUnauthenticated, http.StatusUnauthorized},
		{KindTransient, http.StatusServiceUnavailable},
		{KindNotFound, http.StatusNotFound},
		{KindInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := tt.kind.Status(); got != tt.want {
			t.Errorf("%s.Status() = %d, want %d", tt.kind, got, tt.want)
		}
	}
	assert.True(t, KindTransient.Retryable())
	assert.False(t, KindValidation.Retryable())
}

func TestBackendErrorClassification(t *testing.T) {
	assert.Equal(t, KindConflict, KindOf(backendError("x", cms.ErrConflict)))
	assert.Equal(t, KindUnauthenticated, KindOf(backendError("x", cms.ErrUnauthorized)))
	assert.Equal(t, KindValidation, KindOf(backendError("x", cms.ErrInvalidQuery)))
	assert.Equal(t, KindTransient, KindOf(backendError("x", context.DeadlineExceeded)))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))

	err := backendError("x", cms.ErrConflict)
	assert.ErrorIs(t, err, cms.ErrConflict)
}

func TestCursor(t *testing.T) {
	for _, page := range []int{1, 2, 10, 12345} {
		got, err := decodeCursor(encodeCursor(page))
		require.NoError(t, err)
		assert.Equal(t, page, got)
	}

	page, err := decodeCursor("")
	require.NoError(t, err)
	assert.Equal(t, 1, page)
	assert.Empty(t, encodeCursor(0))

	for _, bad := range []string{"!!!", encodeCursor(0) + "MA", "LTE", "YWJj"} {
		_, err := decodeCursor(bad)
		assert.True(t, IsKind(err, KindValidation), "cursor %q: %v", bad, err)
	}
}

func TestMetaWithoutResponse(t *testing.T) {
	var m *Meta
	m.SetCookie(&http.Cookie{Name: "x"})
	assert.NotNil(t, m.header())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	NewMeta(rec, req).SetCookie(&http.Cookie{Name: "x", Value: "1"})
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "x=1")
}
