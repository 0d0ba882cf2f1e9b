// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package catalog turns a page route and filter state into a product listing
// query and prefetches it before the page renders.
package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"slices"

	"github.com/olegiv/ocms-storefront/internal/filter"
)

// Query keys. Products keys are KeyProducts followed by a hash of the query.
const (
	KeyProducts   = "products.getMany:"
	KeyCategories = "categories.getMany"
)

// Route holds the category path segments of a listing page.
type Route struct {
	Category    string
	Subcategory string
}

// ProductQuery is the input of a product listing.
type ProductQuery struct {
	Category string   `json:"category,omitempty"`
	MinPrice *string  `json:"minPrice,omitempty"`
	MaxPrice *string  `json:"maxPrice,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Search   string   `json:"search,omitempty"`
	Cursor   string   `json:"cursor,omitempty"`
	Limit    int      `json:"limit,omitempty"`
}

// Assemble builds the listing query for a route and filter state. The
// subcategory segment, when present, replaces the category; without a route
// category the state's category is used.
func Assemble(route Route, s filter.State) ProductQuery {
	q := ProductQuery{
		Category: route.Category,
		MinPrice: s.MinPrice,
		MaxPrice: s.MaxPrice,
		Search:   s.Search,
	}
	if route.Subcategory != "" {
		q.Category = route.Subcategory
	}
	if q.Category == "" && s.Category != nil {
		q.Category = *s.Category
	}
	if len(s.Tags) > 0 {
		q.Tags = slices.Clone(s.Tags)
	}
	return q
}

// keyFields fixes the field order of the hashed representation.
type keyFields struct {
	Category string   `json:"category"`
	MinPrice *string  `json:"minPrice"`
	MaxPrice *string  `json:"maxPrice"`
	Tags     []string `json:"tags"`
	Search   string   `json:"search"`
	Cursor   string   `json:"cursor"`
	Limit    int      `json:"limit"`
}

// Key returns the cache key of q. Queries that select the same products get
// the same key: tag order does not matter and an empty tag list equals none.
func Key(q ProductQuery) string {
	tags := slices.Clone(q.Tags)
	slices.Sort(tags)
	if tags == nil {
		tags = []string{}
	}

	// Marshalling a struct of strings, ints and string slices cannot fail.
	data, _ := json.Marshal(keyFields{
		Category: q.Category,
		MinPrice: q.MinPrice,
		MaxPrice: q.MaxPrice,
		Tags:     tags,
		Search:   q.Search,
		Cursor:   q.Cursor,
		Limit:    q.Limit,
	})
	sum := sha256.Sum256(data)
	return KeyProducts + hex.EncodeToString(sum[:])
}
