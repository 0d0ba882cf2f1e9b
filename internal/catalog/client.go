// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package catalog

import (
	"encoding/json"
	"sync"
)

// QueryClient holds the query results of a single page render. Prefetching
// seeds it, templates read from it, and Dehydrate serializes it into the page
// so client-side scripts start from the same data.
type QueryClient struct {
	mu      sync.Mutex
	entries map[string]any
	order   []string
}

// NewQueryClient returns an empty client.
func NewQueryClient() *QueryClient {
	return &QueryClient{entries: make(map[string]any)}
}

// Set stores data for key.
func (c *QueryClient) Set(key string, data any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok {
		c.order = append(c.order, key)
	}
	c.entries[key] = data
}

// Has reports whether key has been prefetched.
func (c *QueryClient) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

// Get returns the data stored for key.
func (c *QueryClient) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

// Lookup returns the data stored for key as T.
func Lookup[T any](c *QueryClient, key string) (T, bool) {
	v, ok := c.Get(key)
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

type dehydratedQuery struct {
	Key  string `json:"queryKey"`
	Data any    `json:"data"`
}

// Dehydrate returns the JSON state in prefetch order.
func (c *QueryClient) Dehydrate() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	queries := make([]dehydratedQuery, 0, len(c.order))
	for _, key := range c.order {
		queries = append(queries, dehydratedQuery{Key: key, Data: c.entries[key]})
	}
	return json.Marshal(struct {
		Queries []dehydratedQuery `json:"queries"`
	}{queries})
}
