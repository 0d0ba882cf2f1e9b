// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"fmt"
	"sort"
	"strings"

	"github.com/olegiv/ocms-storefront/internal/cms"
)

// field maps a queryable document path to SQL. Scalar fields use expr over
// the collection table aliased "t". To-many fields use exists, a subquery
// template with one %s for the predicate on inner.
type field struct {
	expr     string
	exists   string
	inner    string
	sortable bool
}

type collection struct {
	table  string
	fields map[string]field
}

var collections = map[cms.Collection]collection{
	cms.CollectionUsers: {
		table: "users",
		fields: map[string]field{
			"id":        {expr: "t.id", sortable: true},
			"email":     {expr: "t.email", sortable: true},
			"username":  {expr: "t.username", sortable: true},
			"createdAt": {expr: "t.created_at", sortable: true},
		},
	},
	cms.CollectionCategories: {
		table: "categories",
		fields: map[string]field{
			"id":          {expr: "t.id", sortable: true},
			"name":        {expr: "t.name", sortable: true},
			"slug":        {expr: "t.slug", sortable: true},
			"parent":      {expr: "t.parent_id"},
			"parent.slug": {expr: "(SELECT p.slug FROM categories p WHERE p.id = t.parent_id)"},
			"createdAt":   {expr: "t.created_at", sortable: true},
		},
	},
	cms.CollectionTags: {
		table: "tags",
		fields: map[string]field{
			"id":        {expr: "t.id", sortable: true},
			"name":      {expr: "t.name", sortable: true},
			"createdAt": {expr: "t.created_at", sortable: true},
		},
	},
	cms.CollectionProducts: {
		table: "products",
		fields: map[string]field{
			"id":            {expr: "t.id", sortable: true},
			"name":          {expr: "t.name", sortable: true},
			"price":         {expr: "t.price", sortable: true},
			"createdAt":     {expr: "t.created_at", sortable: true},
			"category":      {expr: "t.category_id"},
			"category.slug": {expr: "(SELECT c.slug FROM categories c WHERE c.id = t.category_id)"},
			"tags": {
				exists: "EXISTS (SELECT 1 FROM product_tags pt WHERE pt.product_id = t.id%s)",
				inner:  "pt.tag_id",
			},
			"tags.name": {
				exists: "EXISTS (SELECT 1 FROM product_tags pt JOIN tags g ON g.id = pt.tag_id WHERE pt.product_id = t.id%s)",
				inner:  "g.name",
			},
		},
	},
}

// buildWhere compiles where into a SQL predicate and its arguments. Fields
// are visited in sorted order so the generated SQL is stable.
func (c collection) buildWhere(where cms.Where) (string, []any, error) {
	names := make([]string, 0, len(where))
	for name := range where {
		names = append(names, name)
	}
	sort.Strings(names)

	var (
		clauses []string
		args    []any
	)
	for _, name := range names {
		f, ok := c.fields[name]
		if !ok {
			return "", nil, fmt.Errorf("%w: unknown field %q on %s", cms.ErrInvalidQuery, name, c.table)
		}
		cond := where[name]

		if f.exists != "" {
			clause, clauseArgs := manyPredicate(f, cond)
			clauses = append(clauses, clause...)
			args = append(args, clauseArgs...)
			continue
		}

		preds, predArgs := predicates(f.expr, cond)
		if cond.Exists != nil {
			if *cond.Exists {
				preds = append(preds, f.expr+" IS NOT NULL")
			} else {
				preds = append(preds, f.expr+" IS NULL")
			}
		}
		clauses = append(clauses, preds...)
		args = append(args, predArgs...)
	}

	if len(clauses) == 0 {
		return "1 = 1", nil, nil
	}
	return strings.Join(clauses, " AND "), args, nil
}

// manyPredicate puts every operator of cond into one EXISTS subquery, so a
// single related row must satisfy all of them.
func manyPredicate(f field, cond cms.Condition) ([]string, []any) {
	preds, args := predicates(f.inner, cond)

	var clauses []string
	if len(preds) > 0 {
		clauses = append(clauses, fmt.Sprintf(f.exists, " AND "+strings.Join(preds, " AND ")))
	}
	if cond.Exists != nil {
		sub := fmt.Sprintf(f.exists, "")
		if !*cond.Exists {
			sub = "NOT " + sub
		}
		clauses = append(clauses, sub)
	}
	return clauses, args
}

// predicates returns the comparison predicates of cond on expr.
func predicates(expr string, cond cms.Condition) ([]string, []any) {
	var (
		preds []string
		args  []any
	)
	if cond.Equals != nil {
		preds = append(preds, expr+" = ?")
		args = append(args, cond.Equals)
	}
	if cond.In != nil {
		if len(cond.In) == 0 {
			preds = append(preds, "0 = 1")
		} else {
			preds = append(preds, expr+" IN ("+strings.TrimSuffix(strings.Repeat("?, ", len(cond.In)), ", ")+")")
			args = append(args, cond.In...)
		}
	}
	if cond.GreaterThanEqual != nil {
		preds = append(preds, expr+" >= ?")
		args = append(args, cond.GreaterThanEqual)
	}
	if cond.LessThanEqual != nil {
		preds = append(preds, expr+" <= ?")
		args = append(args, cond.LessThanEqual)
	}
	if cond.Like != "" {
		preds = append(preds, expr+` LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(cond.Like)+"%")
	}
	return preds, args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// orderBy compiles a sort key ("name", "-createdAt") into ORDER BY terms,
// with the id as tie-breaker.
func (c collection) orderBy(sortKey string) (string, error) {
	if sortKey == "" {
		return "t.id ASC", nil
	}
	name, desc := strings.CutPrefix(sortKey, "-")
	f, ok := c.fields[name]
	if !ok || !f.sortable {
		return "", fmt.Errorf("%w: cannot sort %s by %q", cms.ErrInvalidQuery, c.table, name)
	}
	dir := "ASC"
	if desc {
		dir = "DESC"
	}
	if f.expr == "t.id" {
		return "t.id " + dir, nil
	}
	return f.expr + " " + dir + ", t.id " + dir, nil
}
