// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"encoding/json"
	"time"
)

// TypedCache stores values of type T as JSON in a Cacher.
type TypedCache[T any] struct {
	cache      Cacher
	defaultTTL time.Duration
}

// NewTypedCache wraps c. Callers sharing one Cacher between several value
// types must keep their key spaces apart.
func NewTypedCache[T any](c Cacher, defaultTTL time.Duration) *TypedCache[T] {
	return &TypedCache[T]{cache: c, defaultTTL: defaultTTL}
}

// Get returns the cached value. A value that fails to decode is reported as a
// miss.
func (c *TypedCache[T]) Get(ctx context.Context, key string) (T, bool) {
	var value T
	data, err := c.cache.Get(ctx, key)
	if err != nil {
		return value, false
	}
	if err := json.Unmarshal(data, &value); err != nil {
		return value, false
	}
	return value, true
}

// Set stores value with the default TTL.
func (c *TypedCache[T]) Set(ctx context.Context, key string, value T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.cache.Set(ctx, key, data, c.defaultTTL)
}

// Delete removes key.
func (c *TypedCache[T]) Delete(ctx context.Context, key string) error {
	return c.cache.Delete(ctx, key)
}

// GetOrSet returns the cached value or computes and stores it. A failed
// store does not fail the call.
func (c *TypedCache[T]) GetOrSet(ctx context.Context, key string, fn func(context.Context) (T, error)) (T, error) {
	if value, ok := c.Get(ctx, key); ok {
		return value, nil
	}

	value, err := fn(ctx)
	if err != nil {
		return value, err
	}
	_ = c.Set(ctx, key, value)
	return value, nil
}
