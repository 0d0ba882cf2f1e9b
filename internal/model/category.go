// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

// DefaultCategoryColor is used for flyout menus when a category has no color.
const DefaultCategoryColor = "#F5F5F5"

// Category is a product category. Top-level categories carry one level of
// subcategories; a subcategory never carries populated subcategories itself.
type Category struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Slug          string     `json:"slug"`
	Color         string     `json:"color,omitempty"`
	Parent        *Category  `json:"parent,omitempty"`
	Subcategories []Category `json:"subcategories"`
}

// HasSubcategories reports whether the category has a flyout to show.
func (c Category) HasSubcategories() bool {
	return len(c.Subcategories) > 0
}

// Background returns the category color or the default flyout color.
func (c Category) Background() string {
	if c.Color == "" {
		return DefaultCategoryColor
	}
	return c.Color
}

// Subcategory returns the subcategory with the given slug.
func (c Category) Subcategory(slug string) (Category, bool) {
	for _, sub := range c.Subcategories {
		if sub.Slug == slug {
			return sub, true
		}
	}
	return Category{}, false
}

// FindCategory looks up a top-level category by slug.
func FindCategory(categories []Category, slug string) (Category, bool) {
	for _, c := range categories {
		if c.Slug == slug {
			return c, true
		}
	}
	return Category{}, false
}
