// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package rpc

import (
	"context"
	"slices"
	"strconv"

	"github.com/olegiv/ocms-storefront/internal/catalog"
	"github.com/olegiv/ocms-storefront/internal/cms"
	"github.com/olegiv/ocms-storefront/internal/model"
)

// MaxSearchLength is the longest search term products.getMany accepts, in runes.
const MaxSearchLength = 100

// ProductsInput is the input of products.getMany.
type ProductsInput struct {
	Category string   `json:"category,omitempty"`
	MinPrice *string  `json:"minPrice,omitempty" validate:"omitempty,price"`
	MaxPrice *string  `json:"maxPrice,omitempty" validate:"omitempty,price"`
	Tags     []string `json:"tags,omitempty" validate:"omitempty,dive,required,max=64"`
	Search   string   `json:"search,omitempty" validate:"max=100"`
	Cursor   string   `json:"cursor,omitempty"`
	Limit    int      `json:"limit,omitempty" validate:"gte=0,lte=100"`
}

// TagsInput is the input of tags.getMany.
type TagsInput struct {
	Cursor string `json:"cursor,omitempty"`
	Limit  int    `json:"limit,omitempty" validate:"gte=0,lte=100"`
}

// Categories returns the top-level categories sorted by name, each with its
// direct subcategories.
func (r *Router) Categories(ctx context.Context, _ *Meta, _ struct{}) ([]model.Category, error) {
	res, err := r.backend.Find(ctx, cms.FindParams{
		Collection:        cms.CollectionCategories,
		Where:             cms.Where{"parent": {Exists: cms.Exists(false)}},
		Sort:              "name",
		Depth:             1,
		DisablePagination: true,
	})
	if err != nil {
		return nil, backendError("Failed to load categories", err)
	}

	categories, err := cms.DecodeCategories(res.Docs)
	if err != nil {
		return nil, newError(KindInternal, "Failed to decode categories", err)
	}
	return categories, nil
}

// Products returns one page of products matching the filters. A parent
// category matches its own products and those of its subcategories.
func (r *Router) Products(ctx context.Context, _ *Meta, in ProductsInput) (model.Page[model.Product], error) {
	if err := validateInput(in); err != nil {
		return model.Page[model.Product]{}, err
	}
	page, err := decodeCursor(in.Cursor)
	if err != nil {
		return model.Page[model.Product]{}, err
	}

	where := cms.Where{}

	if in.Category != "" {
		slugs, err := r.categorySlugs(ctx, in.Category)
		if err != nil {
			return model.Page[model.Product]{}, err
		}
		where["category.slug"] = cms.Condition{In: slugs}
	}

	var price cms.Condition
	if in.MinPrice != nil && *in.MinPrice != "" {
		price.GreaterThanEqual = parsePrice(*in.MinPrice)
	}
	if in.MaxPrice != nil && *in.MaxPrice != "" {
		price.LessThanEqual = parsePrice(*in.MaxPrice)
	}
	if price.GreaterThanEqual != nil || price.LessThanEqual != nil {
		where["price"] = price
	}

	if len(in.Tags) > 0 {
		tags := make([]any, len(in.Tags))
		for i, t := range in.Tags {
			tags[i] = t
		}
		where["tags.name"] = cms.Condition{In: tags}
	}

	if in.Search != "" {
		where["name"] = cms.Condition{Like: in.Search}
	}

	res, err := r.backend.Find(ctx, cms.FindParams{
		Collection: cms.CollectionProducts,
		Where:      where,
		Sort:       "-createdAt",
		Limit:      r.limit(in.Limit),
		Page:       page,
		Depth:      1,
	})
	if err != nil {
		return model.Page[model.Product]{}, backendError("Failed to load products", err)
	}

	products, err := cms.DecodeProducts(res.Docs)
	if err != nil {
		return model.Page[model.Product]{}, newError(KindInternal, "Failed to decode products", err)
	}
	return pageOf(products, res), nil
}

// categorySlugs returns slug plus, for a parent category, its subcategory
// slugs. An unknown slug fails with KindNotFound.
func (r *Router) categorySlugs(ctx context.Context, slug string) ([]any, error) {
	res, err := r.backend.Find(ctx, cms.FindParams{
		Collection:        cms.CollectionCategories,
		Where:             cms.Where{"slug": {Equals: slug}},
		Limit:             1,
		Depth:             1,
		DisablePagination: true,
	})
	if err != nil {
		return nil, backendError("Failed to load category", err)
	}

	categories, err := cms.DecodeCategories(res.Docs)
	if err != nil {
		return nil, newError(KindInternal, "Failed to decode category", err)
	}
	if len(categories) == 0 {
		return nil, newError(KindNotFound, "Category not found", nil)
	}

	slugs := []any{categories[0].Slug}
	for _, sub := range categories[0].Subcategories {
		slugs = append(slugs, sub.Slug)
	}
	return slugs, nil
}

// Tags returns one page of tags sorted by name.
func (r *Router) Tags(ctx context.Context, _ *Meta, in TagsInput) (model.Page[model.Tag], error) {
	if err := validateInput(in); err != nil {
		return model.Page[model.Tag]{}, err
	}
	page, err := decodeCursor(in.Cursor)
	if err != nil {
		return model.Page[model.Tag]{}, err
	}

	res, err := r.backend.Find(ctx, cms.FindParams{
		Collection: cms.CollectionTags,
		Sort:       "name",
		Limit:      r.limit(in.Limit),
		Page:       page,
	})
	if err != nil {
		return model.Page[model.Tag]{}, backendError("Failed to load tags", err)
	}

	tags, err := cms.DecodeTags(res.Docs)
	if err != nil {
		return model.Page[model.Tag]{}, newError(KindInternal, "Failed to decode tags", err)
	}
	return pageOf(tags, res), nil
}

func (r *Router) limit(n int) int {
	if n <= 0 {
		return r.opts.DefaultLimit
	}
	return min(n, MaxLimit)
}

func pageOf[T any](docs []T, res cms.Result) model.Page[T] {
	if docs == nil {
		docs = []T{}
	}
	p := model.Page[T]{
		Docs:        docs,
		TotalDocs:   res.TotalDocs,
		HasNextPage: res.HasNextPage,
	}
	if res.HasNextPage {
		p.NextCursor = encodeCursor(res.NextPage)
	}
	return p
}

// parsePrice converts a validated price string to a number.
func parsePrice(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

// GetProducts implements catalog.Fetcher.
func (r *Router) GetProducts(ctx context.Context, q catalog.ProductQuery) (model.Page[model.Product], error) {
	return r.Products(ctx, nil, ProductsInput{
		Category: q.Category,
		MinPrice: q.MinPrice,
		MaxPrice: q.MaxPrice,
		Tags:     slices.Clone(q.Tags),
		Search:   q.Search,
		Cursor:   q.Cursor,
		Limit:    q.Limit,
	})
}

// GetCategories implements catalog.Fetcher.
func (r *Router) GetCategories(ctx context.Context) ([]model.Category, error) {
	return r.Categories(ctx, nil, struct{}{})
}

// ListTags implements tagselect.Lister.
func (r *Router) ListTags(ctx context.Context, cursor string, limit int) (model.Page[model.Tag], error) {
	return r.Tags(ctx, nil, TagsInput{Cursor: cursor, Limit: limit})
}

var _ catalog.Fetcher = (*Router)(nil)
