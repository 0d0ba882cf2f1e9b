// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package cmstest provides an in-memory cms.Backend for tests.
package cmstest

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/olegiv/ocms-storefront/internal/cms"
)

// Backend is an in-memory cms.Backend. Documents are stored fully populated;
// Find evaluates Where conditions against dotted field paths, descending into
// nested documents and arrays.
type Backend struct {
	mu     sync.Mutex
	docs   map[cms.Collection][]cms.Document
	tokens map[string]string // token -> user id
	nextID int
	prefix string

	// Calls records every operation as "<op>:<collection>".
	Calls []string

	// FindErr, when set, is returned by Find for the matching collection.
	FindErr map[cms.Collection]error

	// LoginErr, when set, is returned by Login.
	LoginErr error

	// NoToken makes Login succeed without issuing a token.
	NoToken bool
}

// New creates an empty backend with the "payload" cookie prefix.
func New() *Backend {
	return &Backend{
		docs:    make(map[cms.Collection][]cms.Document),
		tokens:  make(map[string]string),
		prefix:  "payload",
		FindErr: make(map[cms.Collection]error),
	}
}

// Seed appends documents to a collection, assigning IDs where missing.
func (b *Backend) Seed(collection cms.Collection, docs ...cms.Document) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, doc := range docs {
		if _, ok := doc["id"]; !ok {
			b.nextID++
			doc["id"] = strconv.Itoa(b.nextID)
		}
		b.docs[collection] = append(b.docs[collection], doc)
	}
}

// SetFindErr makes Find fail for a collection until cleared with nil.
func (b *Backend) SetFindErr(collection cms.Collection, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		delete(b.FindErr, collection)
		return
	}
	b.FindErr[collection] = err
}

// CallCount returns how many recorded calls match "<op>:<collection>".
func (b *Backend) CallCount(call string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.Calls {
		if c == call {
			n++
		}
	}
	return n
}

func (b *Backend) record(op string, collection cms.Collection) {
	b.Calls = append(b.Calls, op+":"+string(collection))
}

// Config implements cms.Backend.
func (b *Backend) Config() cms.Config {
	return cms.Config{CookiePrefix: b.prefix}
}

// Find implements cms.Backend.
func (b *Backend) Find(_ context.Context, params cms.FindParams) (cms.Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("find", params.Collection)

	if err := b.FindErr[params.Collection]; err != nil {
		return cms.Result{}, err
	}

	params.Normalize()

	var matched []cms.Document
	for _, doc := range b.docs[params.Collection] {
		if matches(doc, params.Where) {
			matched = append(matched, public(doc))
		}
	}

	if params.Sort != "" {
		field, desc := strings.TrimPrefix(params.Sort, "-"), strings.HasPrefix(params.Sort, "-")
		sort.SliceStable(matched, func(i, j int) bool {
			c := compare(first(lookup(matched[i], field)), first(lookup(matched[j], field)))
			if desc {
				return c > 0
			}
			return c < 0
		})
	}

	total := len(matched)
	if params.DisablePagination {
		return cms.Result{Docs: nonNil(matched), TotalDocs: total, Page: 1}, nil
	}

	start := (params.Page - 1) * params.Limit
	if start > total {
		start = total
	}
	end := min(start+params.Limit, total)

	res := cms.Result{
		Docs:        nonNil(matched[start:end]),
		TotalDocs:   total,
		Page:        params.Page,
		HasNextPage: end < total,
	}
	if res.HasNextPage {
		res.NextPage = params.Page + 1
	}
	return res, nil
}

// Create implements cms.Backend. Users must have unique usernames and emails.
func (b *Backend) Create(_ context.Context, collection cms.Collection, data cms.Document) (cms.Document, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("create", collection)

	if collection == cms.CollectionUsers {
		for _, existing := range b.docs[collection] {
			if existing["username"] == data["username"] || existing["email"] == data["email"] {
				return nil, cms.ErrConflict
			}
		}
	}

	doc := make(cms.Document, len(data)+2)
	for k, v := range data {
		doc[k] = v
	}
	b.nextID++
	doc["id"] = strconv.Itoa(b.nextID)
	doc["createdAt"] = time.Now().UTC()
	b.docs[collection] = append(b.docs[collection], doc)
	return public(doc), nil
}

// Login implements cms.Backend. Tokens are "token-<user id>".
func (b *Backend) Login(_ context.Context, collection cms.Collection, creds cms.Credentials) (cms.LoginResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("login", collection)

	if b.LoginErr != nil {
		return cms.LoginResult{}, b.LoginErr
	}

	for _, doc := range b.docs[collection] {
		if doc["email"] != creds.Email || doc["password"] != creds.Password {
			continue
		}
		if b.NoToken {
			return cms.LoginResult{}, nil
		}
		user, err := cms.DecodeUser(public(doc))
		if err != nil {
			return cms.LoginResult{}, err
		}
		token := "token-" + user.ID
		b.tokens[token] = user.ID
		return cms.LoginResult{Token: token, Exp: time.Now().Add(time.Hour), User: user}, nil
	}
	return cms.LoginResult{}, cms.ErrUnauthorized
}

// Auth implements cms.Backend.
func (b *Backend) Auth(_ context.Context, headers http.Header) (cms.AuthResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("auth", cms.CollectionUsers)

	token := cms.TokenFromHeaders(headers, b.Config().CookieName())
	userID, ok := b.tokens[token]
	if !ok {
		return cms.AuthResult{}, nil
	}
	for _, doc := range b.docs[cms.CollectionUsers] {
		if fmt.Sprint(doc["id"]) == userID {
			user, err := cms.DecodeUser(public(doc))
			if err != nil {
				return cms.AuthResult{}, err
			}
			return cms.AuthResult{User: user}, nil
		}
	}
	return cms.AuthResult{}, nil
}

// public returns a copy of doc without hidden fields.
func public(doc cms.Document) cms.Document {
	out := make(cms.Document, len(doc))
	for k, v := range doc {
		if k == "password" {
			continue
		}
		out[k] = v
	}
	return out
}

func nonNil(docs []cms.Document) []cms.Document {
	if docs == nil {
		return []cms.Document{}
	}
	return docs
}

func matches(doc cms.Document, where cms.Where) bool {
	for field, cond := range where {
		if !matchCondition(lookup(doc, field), cond) {
			return false
		}
	}
	return true
}

func matchCondition(values []any, cond cms.Condition) bool {
	if cond.Exists != nil && (len(values) > 0) != *cond.Exists {
		return false
	}
	if cond.Equals != nil && !anyMatch(values, func(v any) bool { return compare(v, cond.Equals) == 0 }) {
		return false
	}
	if cond.In != nil && !anyMatch(values, func(v any) bool {
		for _, want := range cond.In {
			if compare(v, want) == 0 {
				return true
			}
		}
		return false
	}) {
		return false
	}
	if cond.GreaterThanEqual != nil && !anyMatch(values, func(v any) bool { return compare(v, cond.GreaterThanEqual) >= 0 }) {
		return false
	}
	if cond.LessThanEqual != nil && !anyMatch(values, func(v any) bool { return compare(v, cond.LessThanEqual) <= 0 }) {
		return false
	}
	if cond.Like != "" && !anyMatch(values, func(v any) bool {
		return strings.Contains(strings.ToLower(fmt.Sprint(v)), strings.ToLower(cond.Like))
	}) {
		return false
	}
	return true
}

func anyMatch(values []any, fn func(any) bool) bool {
	for _, v := range values {
		if fn(v) {
			return true
		}
	}
	return false
}

// lookup resolves a dotted path, flattening arrays. Nil values are dropped.
func lookup(v any, path string) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		var out []any
		for _, item := range t {
			out = append(out, lookup(item, path)...)
		}
		return out
	case []cms.Document:
		var out []any
		for _, item := range t {
			out = append(out, lookup(item, path)...)
		}
		return out
	case []string:
		if path != "" {
			return nil
		}
		out := make([]any, 0, len(t))
		for _, item := range t {
			out = append(out, item)
		}
		return out
	}

	if path == "" {
		return []any{v}
	}
	head, rest, _ := strings.Cut(path, ".")
	switch t := v.(type) {
	case cms.Document:
		return lookup(t[head], rest)
	case map[string]any:
		return lookup(t[head], rest)
	}
	return nil
}

func first(values []any) any {
	if len(values) == 0 {
		return nil
	}
	return values[0]
}

// compare orders numbers numerically and everything else as strings.
func compare(a, b any) int {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	}
	return 0, false
}

var _ cms.Backend = (*Backend)(nil)
