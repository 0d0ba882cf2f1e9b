// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// Product is a listed item in the storefront catalog.
type Product struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Price        float64   `json:"price"`
	CategorySlug string    `json:"categorySlug"`
	Tags         []string  `json:"tags"`
	ImageURL     string    `json:"imageUrl,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Tag labels products and drives the tag filter.
type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Page is one page of a paginated listing. NextCursor is an opaque token
// that must be passed back unchanged to fetch the following page.
type Page[T any] struct {
	Docs        []T    `json:"docs"`
	TotalDocs   int    `json:"totalDocs"`
	HasNextPage bool   `json:"hasNextPage"`
	NextCursor  string `json:"nextCursor,omitempty"`
}
