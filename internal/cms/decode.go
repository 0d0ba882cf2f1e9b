// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cms

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/olegiv/ocms-storefront/internal/model"
)

// docID accepts both string and numeric document IDs.
type docID string

func (id *docID) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case nil:
		*id = ""
	case float64:
		*id = docID(strconv.FormatFloat(t, 'f', -1, 64))
	default:
		*id = docID(fmt.Sprint(t))
	}
	return nil
}

func (id docID) String() string {
	return string(id)
}

// relation decodes a relationship field that is either an ID (depth 0) or a
// populated document (depth >= 1).
type relation struct {
	ID   string
	Doc  map[string]json.RawMessage
	Null bool
}

func (r *relation) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		r.Null = true
		return nil
	}
	if len(data) > 0 && data[0] == '{' {
		return json.Unmarshal(data, &r.Doc)
	}
	var id docID
	if err := json.Unmarshal(data, &id); err != nil {
		return err
	}
	r.ID = id.String()
	return nil
}

func (r relation) field(name string) string {
	raw, ok := r.Doc[name]
	if !ok {
		return ""
	}
	var v docID
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	return v.String()
}

type categoryDoc struct {
	ID            docID     `json:"id"`
	Name          string    `json:"name"`
	Slug          string    `json:"slug"`
	Color         string    `json:"color"`
	Parent        *relation `json:"parent"`
	Subcategories *struct {
		Docs []categoryDoc `json:"docs"`
	} `json:"subcategories"`
}

func (d categoryDoc) toModel() model.Category {
	c := model.Category{
		ID:            d.ID.String(),
		Name:          d.Name,
		Slug:          d.Slug,
		Color:         d.Color,
		Subcategories: []model.Category{},
	}
	if d.Parent != nil && !d.Parent.Null {
		parent := &model.Category{ID: d.Parent.ID}
		if d.Parent.Doc != nil {
			parent.ID = d.Parent.field("id")
			parent.Name = d.Parent.field("name")
			parent.Slug = d.Parent.field("slug")
			parent.Color = d.Parent.field("color")
		}
		c.Parent = parent
	}
	if d.Subcategories != nil {
		for _, sub := range d.Subcategories.Docs {
			// One level only: nested joins are never carried further.
			subModel := sub.toModel()
			subModel.Subcategories = []model.Category{}
			c.Subcategories = append(c.Subcategories, subModel)
		}
	}
	return c
}

type productDoc struct {
	ID          docID      `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Price       float64    `json:"price"`
	Category    *relation  `json:"category"`
	Tags        []relation `json:"tags"`
	ImageURL    string     `json:"imageUrl"`
	CreatedAt   time.Time  `json:"createdAt"`
}

type tagDoc struct {
	ID   docID  `json:"id"`
	Name string `json:"name"`
}

type userDoc struct {
	ID        docID     `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// decodeDocs converts raw documents into T through their JSON form.
func decodeDocs[T any](docs []Document) ([]T, error) {
	out := make([]T, 0, len(docs))
	for i, doc := range docs {
		data, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("encoding document %d: %w", i, err)
		}
		var v T
		if err := json.NewDecoder(bytes.NewReader(data)).Decode(&v); err != nil {
			return nil, fmt.Errorf("decoding document %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// DecodeCategories converts category documents. Populated subcategories are
// flattened from the {docs: [...]} join shape into a plain slice.
func DecodeCategories(docs []Document) ([]model.Category, error) {
	raw, err := decodeDocs[categoryDoc](docs)
	if err != nil {
		return nil, err
	}
	out := make([]model.Category, 0, len(raw))
	for _, d := range raw {
		out = append(out, d.toModel())
	}
	return out, nil
}

// DecodeProducts converts product documents populated at depth >= 1 or 0.
func DecodeProducts(docs []Document) ([]model.Product, error) {
	raw, err := decodeDocs[productDoc](docs)
	if err != nil {
		return nil, err
	}
	out := make([]model.Product, 0, len(raw))
	for _, d := range raw {
		p := model.Product{
			ID:          d.ID.String(),
			Name:        d.Name,
			Description: d.Description,
			Price:       d.Price,
			ImageURL:    d.ImageURL,
			CreatedAt:   d.CreatedAt,
			Tags:        make([]string, 0, len(d.Tags)),
		}
		if d.Category != nil && !d.Category.Null {
			p.CategorySlug = d.Category.field("slug")
		}
		for _, t := range d.Tags {
			if t.Doc != nil {
				p.Tags = append(p.Tags, t.field("name"))
			} else {
				p.Tags = append(p.Tags, t.ID)
			}
		}
		out = append(out, p)
	}
	return out, nil
}

// DecodeTags converts tag documents.
func DecodeTags(docs []Document) ([]model.Tag, error) {
	raw, err := decodeDocs[tagDoc](docs)
	if err != nil {
		return nil, err
	}
	out := make([]model.Tag, 0, len(raw))
	for _, d := range raw {
		out = append(out, model.Tag{ID: d.ID.String(), Name: d.Name})
	}
	return out, nil
}

// DecodeUser converts a single user document.
func DecodeUser(doc Document) (*model.User, error) {
	raw, err := decodeDocs[userDoc]([]Document{doc})
	if err != nil {
		return nil, err
	}
	d := raw[0]
	return &model.User{
		ID:        d.ID.String(),
		Email:     d.Email,
		Username:  d.Username,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}, nil
}
