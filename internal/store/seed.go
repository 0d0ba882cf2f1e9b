// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/olegiv/ocms-storefront/internal/util"
)

type seedCategory struct {
	name          string
	color         string
	subcategories []string
}

type seedProduct struct {
	name        string
	description string
	price       float64
	category    string
	tags        []string
}

var demoCategories = []seedCategory{
	{name: "Business & Money", color: "#FFB347", subcategories: []string{"Accounting", "Entrepreneurship", "Investing"}},
	{name: "Software Development", color: "#7EC8E3", subcategories: []string{"Web Development", "Mobile Development", "Game Development"}},
	{name: "Writing & Publishing", color: "#D8B5FF", subcategories: []string{"Fiction", "Non-Fiction", "Blogging"}},
	{name: "Design", color: "#FFD700", subcategories: []string{"UI/UX", "Graphic Design", "Typography"}},
	{name: "Music", color: "#FF6B6B", subcategories: []string{"Songwriting", "Production"}},
	{name: "Education", color: "#FFE066"},
}

var demoTags = []string{
	"beginner", "advanced", "bestseller", "bundle", "course", "ebook",
	"template", "new", "sale", "video", "audio", "workbook",
}

var demoProducts = []seedProduct{
	{name: "Bookkeeping Basics", description: "A **practical** introduction to double-entry bookkeeping.", price: 19, category: "accounting", tags: []string{"beginner", "ebook"}},
	{name: "Startup Playbook", description: "From idea to first customers.", price: 49.5, category: "entrepreneurship", tags: []string{"bestseller", "course", "video"}},
	{name: "Index Fund Investing", description: "Long-term investing without the noise.", price: 24.99, category: "investing", tags: []string{"beginner", "ebook", "sale"}},
	{name: "Go Web Services", description: "Build production HTTP services in Go.", price: 59, category: "web-development", tags: []string{"advanced", "course", "video"}},
	{name: "Landing Page Kit", description: "Responsive landing page templates.", price: 15, category: "web-development", tags: []string{"template", "bundle"}},
	{name: "Shipping Mobile Apps", description: "Release checklists for iOS and Android.", price: 35, category: "mobile-development", tags: []string{"workbook", "new"}},
	{name: "2D Game Patterns", description: "Entity systems, tile maps and collision.", price: 42, category: "game-development", tags: []string{"advanced", "ebook"}},
	{name: "Plotting Your Novel", description: "Outline a novel in thirty days.", price: 12.99, category: "fiction", tags: []string{"workbook", "beginner"}},
	{name: "Memoir Workshop", description: "Turn life stories into chapters.", price: 29, category: "non-fiction", tags: []string{"course", "audio"}},
	{name: "Newsletter Growth", description: "Grow a newsletter to ten thousand readers.", price: 0, category: "blogging", tags: []string{"new", "sale"}},
	{name: "Design Systems Handbook", description: "Tokens, components and documentation.", price: 39, category: "uiux", tags: []string{"bestseller", "ebook"}},
	{name: "Icon Pack", description: "400 hand-drawn icons.", price: 9.99, category: "graphic-design", tags: []string{"template", "bundle", "sale"}},
	{name: "Type Pairing Guide", description: "Font combinations that work.", price: 7.5, category: "typography", tags: []string{"ebook"}},
	{name: "Chord Progressions", description: "Songwriting with common progressions.", price: 14, category: "songwriting", tags: []string{"beginner", "audio"}},
	{name: "Mixing Masterclass", description: "Mix and master in any DAW.", price: 89, category: "production", tags: []string{"advanced", "course", "video", "bestseller"}},
	{name: "Teaching Online", description: "Plan and run online classes.", price: 1299.99, category: "education", tags: []string{"course", "bundle"}},
}

// Seed inserts the demo catalog. It does nothing when categories already exist.
func Seed(ctx context.Context, db *sql.DB) error {
	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories`).Scan(&count); err != nil {
		return fmt.Errorf("checking for categories: %w", err)
	}
	if count > 0 {
		slog.Info("catalog already seeded, skipping")
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning seed transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now()
	categoryIDs := make(map[string]int64)
	for _, c := range demoCategories {
		id, err := insertCategory(ctx, tx, c.name, c.color, sql.NullInt64{}, now)
		if err != nil {
			return err
		}
		categoryIDs[util.Slugify(c.name)] = id
		for _, sub := range c.subcategories {
			subID, err := insertCategory(ctx, tx, sub, "", sql.NullInt64{Int64: id, Valid: true}, now)
			if err != nil {
				return err
			}
			categoryIDs[util.Slugify(sub)] = subID
		}
	}

	tagIDs := make(map[string]int64)
	for _, name := range demoTags {
		res, err := tx.ExecContext(ctx, `INSERT INTO tags (name, created_at) VALUES (?, ?)`, name, formatTime(now))
		if err != nil {
			return fmt.Errorf("inserting tag %q: %w", name, err)
		}
		if tagIDs[name], err = res.LastInsertId(); err != nil {
			return fmt.Errorf("reading tag id: %w", err)
		}
	}

	for i, p := range demoProducts {
		categoryID, ok := categoryIDs[p.category]
		if !ok {
			return fmt.Errorf("product %q: unknown category %q", p.name, p.category)
		}
		// Staggered creation times give a stable newest-first order.
		createdAt := now.Add(-time.Duration(len(demoProducts)-i) * time.Minute)
		res, err := tx.ExecContext(ctx,
			`INSERT INTO products (name, description, price, category_id, created_at) VALUES (?, ?, ?, ?, ?)`,
			p.name, p.description, p.price, categoryID, formatTime(createdAt))
		if err != nil {
			return fmt.Errorf("inserting product %q: %w", p.name, err)
		}
		productID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading product id: %w", err)
		}
		for _, tag := range p.tags {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO product_tags (product_id, tag_id) VALUES (?, ?)`, productID, tagIDs[tag]); err != nil {
				return fmt.Errorf("tagging product %q: %w", p.name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing seed: %w", err)
	}

	slog.Info("seeded demo catalog",
		"categories", len(categoryIDs),
		"tags", len(tagIDs),
		"products", len(demoProducts),
	)
	return nil
}

func insertCategory(ctx context.Context, tx *sql.Tx, name, color string, parent sql.NullInt64, now time.Time) (int64, error) {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO categories (name, slug, color, parent_id, created_at) VALUES (?, ?, ?, ?, ?)`,
		name, util.Slugify(name), color, parent, formatTime(now))
	if err != nil {
		return 0, fmt.Errorf("inserting category %q: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading category id: %w", err)
	}
	return id, nil
}
