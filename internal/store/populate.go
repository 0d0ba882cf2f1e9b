// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/olegiv/ocms-storefront/internal/cms"
)

// load reads one document. At depth >= 1 relationships are replaced by the
// related documents, themselves loaded at depth 0.
func (b *Backend) load(ctx context.Context, collection cms.Collection, id int64, depth int) (cms.Document, error) {
	switch collection {
	case cms.CollectionUsers:
		return b.loadUser(ctx, id)
	case cms.CollectionTags:
		return b.loadTag(ctx, id)
	case cms.CollectionCategories:
		return b.loadCategory(ctx, id, depth)
	case cms.CollectionProducts:
		return b.loadProduct(ctx, id, depth)
	}
	return nil, fmt.Errorf("%w: unknown collection %q", cms.ErrInvalidQuery, collection)
}

func (b *Backend) loadUser(ctx context.Context, id int64) (cms.Document, error) {
	var email, username, createdAt, updatedAt string
	err := b.db.QueryRowContext(ctx,
		`SELECT email, username, created_at, updated_at FROM users WHERE id = ?`, id).
		Scan(&email, &username, &createdAt, &updatedAt)
	if err != nil {
		return nil, wrapLoad("user", id, err)
	}
	return cms.Document{
		"id":        id,
		"email":     email,
		"username":  username,
		"createdAt": parseTime(createdAt),
		"updatedAt": parseTime(updatedAt),
	}, nil
}

func (b *Backend) loadTag(ctx context.Context, id int64) (cms.Document, error) {
	var name, createdAt string
	err := b.db.QueryRowContext(ctx, `SELECT name, created_at FROM tags WHERE id = ?`, id).
		Scan(&name, &createdAt)
	if err != nil {
		return nil, wrapLoad("tag", id, err)
	}
	return cms.Document{"id": id, "name": name, "createdAt": parseTime(createdAt)}, nil
}

func (b *Backend) loadCategory(ctx context.Context, id int64, depth int) (cms.Document, error) {
	var (
		name, slug, color, createdAt string
		parentID                     sql.NullInt64
	)
	err := b.db.QueryRowContext(ctx,
		`SELECT name, slug, color, parent_id, created_at FROM categories WHERE id = ?`, id).
		Scan(&name, &slug, &color, &parentID, &createdAt)
	if err != nil {
		return nil, wrapLoad("category", id, err)
	}

	doc := cms.Document{
		"id":        id,
		"name":      name,
		"slug":      slug,
		"color":     color,
		"parent":    nil,
		"createdAt": parseTime(createdAt),
	}

	if parentID.Valid {
		doc["parent"] = parentID.Int64
		if depth > 0 {
			parent, err := b.loadCategory(ctx, parentID.Int64, 0)
			if err != nil {
				return nil, err
			}
			doc["parent"] = parent
		}
	}

	if depth > 0 {
		childIDs, err := b.queryIDs(ctx, `SELECT id FROM categories WHERE parent_id = ? ORDER BY name, id`, id)
		if err != nil {
			return nil, fmt.Errorf("listing subcategories of %d: %w", id, err)
		}
		children := make([]cms.Document, 0, len(childIDs))
		for _, childID := range childIDs {
			child, err := b.loadCategory(ctx, childID, 0)
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		doc["subcategories"] = map[string]any{"docs": children}
	}
	return doc, nil
}

func (b *Backend) loadProduct(ctx context.Context, id int64, depth int) (cms.Document, error) {
	var (
		name, description, imageURL, createdAt string
		price                                  float64
		categoryID                             sql.NullInt64
	)
	err := b.db.QueryRowContext(ctx,
		`SELECT name, description, price, category_id, image_url, created_at FROM products WHERE id = ?`, id).
		Scan(&name, &description, &price, &categoryID, &imageURL, &createdAt)
	if err != nil {
		return nil, wrapLoad("product", id, err)
	}

	doc := cms.Document{
		"id":          id,
		"name":        name,
		"description": description,
		"price":       price,
		"category":    nil,
		"imageUrl":    imageURL,
		"createdAt":   parseTime(createdAt),
	}

	if categoryID.Valid {
		doc["category"] = categoryID.Int64
		if depth > 0 {
			category, err := b.loadCategory(ctx, categoryID.Int64, 0)
			if err != nil {
				return nil, err
			}
			doc["category"] = category
		}
	}

	tagIDs, err := b.queryIDs(ctx,
		`SELECT pt.tag_id FROM product_tags pt JOIN tags g ON g.id = pt.tag_id WHERE pt.product_id = ? ORDER BY g.name`, id)
	if err != nil {
		return nil, fmt.Errorf("listing tags of product %d: %w", id, err)
	}
	tags := make([]any, 0, len(tagIDs))
	for _, tagID := range tagIDs {
		if depth == 0 {
			tags = append(tags, tagID)
			continue
		}
		tag, err := b.loadTag(ctx, tagID)
		if err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	doc["tags"] = tags
	return doc, nil
}

func wrapLoad(kind string, id int64, err error) error {
	return fmt.Errorf("loading %s %d: %w", kind, id, err)
}
