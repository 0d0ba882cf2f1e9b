// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/ocms-storefront/internal/cache"
	"github.com/olegiv/ocms-storefront/internal/filter"
	"github.com/olegiv/ocms-storefront/internal/model"
)

func str(v string) *string { return &v }

type fakeFetcher struct {
	products   atomic.Int32
	categories atomic.Int32
	err        error
	release    chan struct{}
}

func (f *fakeFetcher) GetProducts(_ context.Context, q ProductQuery) (model.Page[model.Product], error) {
	f.products.Add(1)
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return model.Page[model.Product]{}, f.err
	}
	return model.Page[model.Product]{
		Docs:      []model.Product{{ID: "1", Name: "Lamp", Price: 19.5, CategorySlug: q.Category}},
		TotalDocs: 1,
	}, nil
}

func (f *fakeFetcher) GetCategories(context.Context) ([]model.Category, error) {
	f.categories.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return []model.Category{{ID: "1", Name: "Home", Slug: "home"}}, nil
}

func newAssembler(f Fetcher) *Assembler {
	return NewAssembler(f, cache.NewMemoryCache(cache.MemoryCacheOptions{DefaultTTL: time.Minute}), time.Minute)
}

func TestAssemble(t *testing.T) {
	state := filter.State{MinPrice: str("5"), MaxPrice: str("50"), Tags: []string{"eco"}, Search: "desk"}

	q := Assemble(Route{Category: "home"}, state)
	assert.Equal(t, "home", q.Category)
	assert.Equal(t, str("5"), q.MinPrice)
	assert.Equal(t, str("50"), q.MaxPrice)
	assert.Equal(t, []string{"eco"}, q.Tags)
	assert.Equal(t, "desk", q.Search)

	q = Assemble(Route{Category: "home", Subcategory: "lighting"}, state)
	assert.Equal(t, "lighting", q.Category, "subcategory replaces category")

	q = Assemble(Route{}, filter.State{Category: str("books")})
	assert.Equal(t, "books", q.Category)
	assert.Nil(t, q.Tags)
	assert.Nil(t, q.MinPrice)
}

func TestKey(t *testing.T) {
	a := ProductQuery{Category: "home", MinPrice: str("5"), Tags: []string{"a", "b"}}
	b := ProductQuery{Category: "home", MinPrice: str("5"), Tags: []string{"a", "b"}}
	assert.Equal(t, Key(a), Key(b), "identical queries share a key")

	reordered := ProductQuery{Category: "home", MinPrice: str("5"), Tags: []string{"b", "a"}}
	assert.Equal(t, Key(a), Key(reordered))

	assert.Equal(t, Key(ProductQuery{}), Key(ProductQuery{Tags: []string{}}))

	distinct := []ProductQuery{
		{},
		{Category: "home"},
		{MinPrice: str("5")},
		{MaxPrice: str("5")},
		{MinPrice: str("")},
		{Tags: []string{"a"}},
		{Search: "a"},
		{Cursor: "Mg"},
		{Limit: 8},
	}
	seen := map[string]int{}
	for i, q := range distinct {
		k := Key(q)
		assert.True(t, len(k) > len(KeyProducts) && k[:len(KeyProducts)] == KeyProducts)
		if j, dup := seen[k]; dup {
			t.Errorf("queries %d and %d share key %s", j, i, k)
		}
		seen[k] = i
	}
}

func TestPrefetchFetchesOncePerKey(t *testing.T) {
	f := &fakeFetcher{}
	a := newAssembler(f)
	ctx := context.Background()
	q := Assemble(Route{Category: "home"}, filter.State{Tags: []string{"eco"}})

	// Two renders of the same view.
	for range 2 {
		client := NewQueryClient()
		key, err := a.Prefetch(ctx, client, q)
		require.NoError(t, err)
		_, err = a.Prefetch(ctx, client, q)
		require.NoError(t, err)

		page, ok := Lookup[model.Page[model.Product]](client, key)
		require.True(t, ok, "first read after prefetch is a hit")
		assert.Equal(t, "Lamp", page.Docs[0].Name)
	}
	assert.Equal(t, int32(1), f.products.Load())
}

func TestConcurrentPrefetchSharesFetch(t *testing.T) {
	f := &fakeFetcher{release: make(chan struct{})}
	a := newAssembler(f)
	q := ProductQuery{Category: "home"}

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := a.Prefetch(context.Background(), NewQueryClient(), q)
			assert.NoError(t, err)
		}()
	}

	// Let the goroutines pile up on the in-flight fetch.
	require.Eventually(t, func() bool { return f.products.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	close(f.release)
	wg.Wait()

	assert.Equal(t, int32(1), f.products.Load())
}

func TestPrefetchErrorIsNotCached(t *testing.T) {
	f := &fakeFetcher{err: errors.New("backend down")}
	a := newAssembler(f)
	ctx := context.Background()
	client := NewQueryClient()
	q := ProductQuery{Category: "home"}

	_, err := a.Prefetch(ctx, client, q)
	require.Error(t, err)
	assert.False(t, client.Has(Key(q)))

	f.err = nil
	_, err = a.Prefetch(ctx, client, q)
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.products.Load())
}

func TestPrefetchCancelled(t *testing.T) {
	f := &fakeFetcher{release: make(chan struct{})}
	defer close(f.release)
	a := newAssembler(f)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	client := NewQueryClient()
	_, err := a.Prefetch(ctx, client, ProductQuery{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, client.Has(Key(ProductQuery{})))
}

func TestCategoriesWarm(t *testing.T) {
	f := &fakeFetcher{}
	a := newAssembler(f)
	ctx := context.Background()

	require.NoError(t, a.WarmCategories(ctx))
	client := NewQueryClient()
	require.NoError(t, a.PrefetchCategories(ctx, client))
	assert.Equal(t, int32(1), f.categories.Load(), "warmed entry is reused")

	cats, ok := Lookup[[]model.Category](client, KeyCategories)
	require.True(t, ok)
	assert.Equal(t, "home", cats[0].Slug)
}

func TestInvalidateProducts(t *testing.T) {
	f := &fakeFetcher{}
	a := newAssembler(f)
	ctx := context.Background()

	_, err := a.Products(ctx, ProductQuery{})
	require.NoError(t, err)
	require.NoError(t, a.WarmCategories(ctx))
	require.NoError(t, a.InvalidateProducts(ctx))

	_, err = a.Products(ctx, ProductQuery{})
	require.NoError(t, err)
	_, err = a.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.products.Load())
	assert.Equal(t, int32(1), f.categories.Load())
}

func TestDehydrate(t *testing.T) {
	client := NewQueryClient()
	client.Set("b", 1)
	client.Set("a", []string{"x"})
	client.Set("b", 2)

	data, err := client.Dehydrate()
	require.NoError(t, err)

	var state struct {
		Queries []struct {
			Key  string          `json:"queryKey"`
			Data json.RawMessage `json:"data"`
		} `json:"queries"`
	}
	require.NoError(t, json.Unmarshal(data, &state))
	require.Len(t, state.Queries, 2)
	assert.Equal(t, "b", state.Queries[0].Key)
	assert.JSONEq(t, "2", string(state.Queries[0].Data))
	assert.Equal(t, "a", state.Queries[1].Key)
}
