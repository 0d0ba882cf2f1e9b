// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package rpc

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/ocms-storefront/internal/catalog"
	"github.com/olegiv/ocms-storefront/internal/cms"
	"github.com/olegiv/ocms-storefront/internal/model"
)

func str(v string) *string { return &v }

func productNames(p model.Page[model.Product]) []string {
	out := make([]string, len(p.Docs))
	for i, d := range p.Docs {
		out[i] = d.Name
	}
	return out
}

func TestCategories(t *testing.T) {
	r, b := newTestRouter(t)

	cats, err := r.Categories(context.Background(), nil, struct{}{})
	require.NoError(t, err)
	require.Len(t, cats, 2, "subcategories are not top-level")
	assert.Equal(t, "Books", cats[0].Name, "sorted by name")
	assert.Equal(t, "Electronics", cats[1].Name)
	require.Len(t, cats[1].Subcategories, 1)
	assert.Equal(t, "phones", cats[1].Subcategories[0].Slug)
	assert.Empty(t, cats[1].Subcategories[0].Subcategories)
	assert.Equal(t, 1, b.CallCount("find:categories"))
}

func TestProducts(t *testing.T) {
	r, _ := newTestRouter(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   ProductsInput
		want []string
	}{
		{"all, newest first", ProductsInput{Limit: 10}, []string{"Phone case", "Novel", "Smartphone", "Laptop"}},
		{"parent includes subcategories", ProductsInput{Category: "electronics", Limit: 10}, []string{"Phone case", "Smartphone", "Laptop"}},
		{"subcategory only", ProductsInput{Category: "phones", Limit: 10}, []string{"Phone case", "Smartphone"}},
		{"min price", ProductsInput{MinPrice: str("100"), Limit: 10}, []string{"Smartphone", "Laptop"}},
		{"max price", ProductsInput{MaxPrice: str("15"), Limit: 10}, []string{"Phone case", "Novel"}},
		{"price range", ProductsInput{MinPrice: str("13"), MaxPrice: str("500"), Limit: 10}, []string{"Phone case", "Smartphone"}},
		{"tags match any", ProductsInput{Tags: []string{"eco", "used"}, Limit: 10}, []string{"Novel", "Smartphone"}},
		{"search", ProductsInput{Search: "PHONE", Limit: 10}, []string{"Phone case", "Smartphone"}},
		{"combined", ProductsInput{Category: "electronics", Tags: []string{"sale"}, MaxPrice: str("600"), Limit: 10}, []string{"Smartphone"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := r.Products(ctx, nil, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, productNames(page))
		})
	}
}

func TestProductsDecodesRelations(t *testing.T) {
	r, _ := newTestRouter(t)

	page, err := r.Products(context.Background(), nil, ProductsInput{Category: "phones", Search: "smart"})
	require.NoError(t, err)
	require.Len(t, page.Docs, 1)
	assert.Equal(t, "phones", page.Docs[0].CategorySlug)
	assert.Equal(t, []string{"eco", "sale"}, page.Docs[0].Tags)
	assert.Equal(t, 499.0, page.Docs[0].Price)
}

func TestProductsPagination(t *testing.T) {
	r, _ := newTestRouter(t)
	ctx := context.Background()

	first, err := r.Products(ctx, nil, ProductsInput{})
	require.NoError(t, err)
	assert.Len(t, first.Docs, 2, "default limit")
	assert.Equal(t, 4, first.TotalDocs)
	require.True(t, first.HasNextPage)
	require.NotEmpty(t, first.NextCursor)

	second, err := r.Products(ctx, nil, ProductsInput{Cursor: first.NextCursor})
	require.NoError(t, err)
	assert.Equal(t, []string{"Smartphone", "Laptop"}, productNames(second))
	assert.False(t, second.HasNextPage)
	assert.Empty(t, second.NextCursor)
}

func TestProductsErrors(t *testing.T) {
	r, b := newTestRouter(t)
	ctx := context.Background()

	_, err := r.Products(ctx, nil, ProductsInput{Category: "garden"})
	assert.True(t, IsKind(err, KindNotFound), "unknown category: %v", err)

	calls := len(b.Calls)
	for _, in := range []ProductsInput{
		{MinPrice: str("abc")},
		{MaxPrice: str("1.234")},
		{MinPrice: str("-5")},
		{Limit: 1000},
		{Cursor: "%%%"},
	} {
		_, err := r.Products(ctx, nil, in)
		assert.True(t, IsKind(err, KindValidation), "input %+v: %v", in, err)
	}
	assert.Len(t, b.Calls, calls, "invalid input must not reach the backend")

	b.SetFindErr(cms.CollectionProducts, errors.New("connection reset"))
	_, err = r.Products(ctx, nil, ProductsInput{})
	assert.True(t, IsKind(err, KindTransient), "backend failure: %v", err)
}

func TestTags(t *testing.T) {
	r, _ := newTestRouter(t)
	ctx := context.Background()

	page, err := r.ListTags(ctx, "", 2)
	require.NoError(t, err)
	require.Len(t, page.Docs, 2)
	assert.Equal(t, "eco", page.Docs[0].Name, "sorted by name")
	assert.Equal(t, "sale", page.Docs[1].Name)
	require.True(t, page.HasNextPage)

	next, err := r.ListTags(ctx, page.NextCursor, 2)
	require.NoError(t, err)
	require.Len(t, next.Docs, 1)
	assert.Equal(t, "used", next.Docs[0].Name)
	assert.False(t, next.HasNextPage)
}

func TestFetcherAdapter(t *testing.T) {
	r, _ := newTestRouter(t)
	var f catalog.Fetcher = r

	page, err := f.GetProducts(context.Background(), catalog.ProductQuery{Category: "books"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Novel"}, productNames(page))

	cats, err := f.GetCategories(context.Background())
	require.NoError(t, err)
	assert.Len(t, cats, 2)
}
