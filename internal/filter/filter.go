// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package filter converts the product filter state to and from the URL query
// string. The query string is the only place the state lives: it is decoded on
// every request and encoded again whenever a control changes it.
package filter

import (
	"net/url"
	"slices"
	"strings"
)

// Query string keys.
const (
	KeyCategory = "category"
	KeyMinPrice = "minPrice"
	KeyMaxPrice = "maxPrice"
	KeyTags     = "tags"
	KeySearch   = "search"
)

// State is the user-controlled narrowing criteria of a product listing.
// A nil price means the bound is not set.
type State struct {
	Category *string
	MinPrice *string
	MaxPrice *string
	Tags     []string
	Search   string
}

// Decode builds a State from query values. Unknown keys are ignored and no
// validation is applied beyond splitting and de-duplicating tags.
func Decode(values url.Values) State {
	var s State
	s.Category = optional(values, KeyCategory)
	s.MinPrice = optional(values, KeyMinPrice)
	s.MaxPrice = optional(values, KeyMaxPrice)
	s.Search = strings.TrimSpace(values.Get(KeySearch))

	for _, raw := range values[KeyTags] {
		for _, name := range strings.Split(raw, ",") {
			name = strings.TrimSpace(name)
			if name == "" || slices.Contains(s.Tags, name) {
				continue
			}
			s.Tags = append(s.Tags, name)
		}
	}
	return s
}

// optional returns a pointer to the first value of key, or nil when absent or empty.
func optional(values url.Values, key string) *string {
	v := values.Get(key)
	if v == "" {
		return nil
	}
	return &v
}

// Encode returns the query values for s, omitting unset keys. Tags are
// emitted as repeated keys in order.
func Encode(s State) url.Values {
	values := url.Values{}
	if s.Category != nil && *s.Category != "" {
		values.Set(KeyCategory, *s.Category)
	}
	if s.MinPrice != nil && *s.MinPrice != "" {
		values.Set(KeyMinPrice, *s.MinPrice)
	}
	if s.MaxPrice != nil && *s.MaxPrice != "" {
		values.Set(KeyMaxPrice, *s.MaxPrice)
	}
	for _, tag := range s.Tags {
		values.Add(KeyTags, tag)
	}
	if s.Search != "" {
		values.Set(KeySearch, s.Search)
	}
	return values
}

// QueryString returns the encoded state with a leading "?", or "" when the
// state is empty.
func (s State) QueryString() string {
	q := Encode(s).Encode()
	if q == "" {
		return ""
	}
	return "?" + q
}

// IsEmpty reports whether no filter is set.
func (s State) IsEmpty() bool {
	return len(Encode(s)) == 0
}

// With returns a copy of s with one key replaced. An empty value clears the
// key. For KeyTags the value is a comma-separated list.
func (s State) With(key, value string) State {
	out := s.clone()
	switch key {
	case KeyCategory:
		out.Category = ptr(value)
	case KeyMinPrice:
		out.MinPrice = ptr(value)
	case KeyMaxPrice:
		out.MaxPrice = ptr(value)
	case KeySearch:
		out.Search = strings.TrimSpace(value)
	case KeyTags:
		out.Tags = Decode(url.Values{KeyTags: {value}}).Tags
	}
	return out
}

// WithTags returns a copy of s with the tag list replaced.
func (s State) WithTags(tags []string) State {
	out := s.clone()
	out.Tags = slices.Clone(tags)
	return out
}

// Clear resets the price and tag filters. Category and search are kept
// because they come from the route and the search box.
func (s State) Clear() State {
	return State{Category: s.Category, Search: s.Search}
}

func (s State) clone() State {
	out := s
	out.Tags = slices.Clone(s.Tags)
	return out
}

func ptr(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
