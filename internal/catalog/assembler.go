// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package catalog

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/olegiv/ocms-storefront/internal/cache"
	"github.com/olegiv/ocms-storefront/internal/model"
)

// Fetcher runs the listing procedures.
type Fetcher interface {
	GetProducts(ctx context.Context, q ProductQuery) (model.Page[model.Product], error)
	GetCategories(ctx context.Context) ([]model.Category, error)
}

// Assembler prefetches listings into per-render QueryClients. Results are
// kept in a shared cache so repeated navigations reuse them, and concurrent
// requests for the same key share one fetch.
type Assembler struct {
	fetcher    Fetcher
	cache      cache.Cacher
	products   *cache.TypedCache[model.Page[model.Product]]
	categories *cache.TypedCache[[]model.Category]
	group      singleflight.Group
}

// NewAssembler creates an Assembler storing results in c for ttl.
func NewAssembler(fetcher Fetcher, c cache.Cacher, ttl time.Duration) *Assembler {
	return &Assembler{
		fetcher:    fetcher,
		cache:      c,
		products:   cache.NewTypedCache[model.Page[model.Product]](c, ttl),
		categories: cache.NewTypedCache[[]model.Category](c, ttl),
	}
}

// Products returns the listing for q from the shared cache or the fetcher.
func (a *Assembler) Products(ctx context.Context, q ProductQuery) (model.Page[model.Product], error) {
	return load(ctx, &a.group, a.products, Key(q), func(ctx context.Context) (model.Page[model.Product], error) {
		return a.fetcher.GetProducts(ctx, q)
	})
}

// Categories returns the category tree from the shared cache or the fetcher.
func (a *Assembler) Categories(ctx context.Context) ([]model.Category, error) {
	return load(ctx, &a.group, a.categories, KeyCategories, a.fetcher.GetCategories)
}

// Prefetch seeds client with the listing for q and returns its key. A key
// already present in client is not fetched again.
func (a *Assembler) Prefetch(ctx context.Context, client *QueryClient, q ProductQuery) (string, error) {
	key := Key(q)
	if client.Has(key) {
		return key, nil
	}
	page, err := a.Products(ctx, q)
	if err != nil {
		return key, err
	}
	client.Set(key, page)
	return key, nil
}

// PrefetchCategories seeds client with the category tree.
func (a *Assembler) PrefetchCategories(ctx context.Context, client *QueryClient) error {
	if client.Has(KeyCategories) {
		return nil
	}
	categories, err := a.Categories(ctx)
	if err != nil {
		return err
	}
	client.Set(KeyCategories, categories)
	return nil
}

// WarmCategories refetches the category tree and replaces the cached copy.
func (a *Assembler) WarmCategories(ctx context.Context) error {
	categories, err := a.fetcher.GetCategories(ctx)
	if err != nil {
		return fmt.Errorf("warming categories: %w", err)
	}
	return a.categories.Set(ctx, KeyCategories, categories)
}

// InvalidateProducts drops every cached product listing.
func (a *Assembler) InvalidateProducts(ctx context.Context) error {
	return a.cache.DeleteByPrefix(ctx, KeyProducts)
}

// load serves key from c, collapsing concurrent misses into one fetch. The
// shared fetch is detached from any single caller's cancellation; a caller
// whose context ends stops waiting and gets ctx.Err().
func load[T any](ctx context.Context, group *singleflight.Group, c *cache.TypedCache[T], key string, fetch func(context.Context) (T, error)) (T, error) {
	if v, ok := c.Get(ctx, key); ok {
		return v, nil
	}

	ch := group.DoChan(key, func() (any, error) {
		return c.GetOrSet(context.WithoutCancel(ctx), key, fetch)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			var zero T
			return zero, res.Err
		}
		return res.Val.(T), nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
