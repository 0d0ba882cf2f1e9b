// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// MemoryCache is a process-local Cacher with per-entry expiry. When MaxSize is
// reached, expired entries are dropped first and then the entry closest to
// expiry is evicted.
type MemoryCache struct {
	mu         sync.RWMutex
	entries    map[string]memoryEntry
	defaultTTL time.Duration
	maxSize    int
	stopCh     chan struct{}
	closed     atomic.Bool
	now        func() time.Time

	hits   atomic.Int64
	misses atomic.Int64
	sets   atomic.Int64
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCacheOptions configures a MemoryCache.
type MemoryCacheOptions struct {
	DefaultTTL      time.Duration
	MaxSize         int           // 0 = unlimited
	CleanupInterval time.Duration // 0 = no background cleanup
}

// NewMemoryCache creates a MemoryCache and starts its cleanup loop when
// CleanupInterval is set.
func NewMemoryCache(opts MemoryCacheOptions) *MemoryCache {
	c := &MemoryCache{
		entries:    make(map[string]memoryEntry),
		defaultTTL: opts.DefaultTTL,
		maxSize:    opts.MaxSize,
		stopCh:     make(chan struct{}),
		now:        time.Now,
	}
	if opts.CleanupInterval > 0 {
		go c.cleanupLoop(opts.CleanupInterval)
	}
	return c
}

// Get implements Cacher. The returned slice is a copy.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	if c.closed.Load() {
		return nil, ErrCacheClosed
	}

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || !c.now().Before(entry.expiresAt) {
		c.misses.Add(1)
		return nil, ErrCacheMiss
	}

	c.hits.Add(1)
	return append([]byte(nil), entry.value...), nil
}

// Set implements Cacher.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && c.maxSize > 0 && len(c.entries) >= c.maxSize {
		c.removeExpiredLocked()
		if len(c.entries) >= c.maxSize {
			c.evictLocked()
		}
	}

	c.entries[key] = memoryEntry{
		value:     append([]byte(nil), value...),
		expiresAt: c.now().Add(ttl),
	}
	c.sets.Add(1)
	return nil
}

// Delete implements Cacher.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

// DeleteByPrefix implements Cacher.
func (c *MemoryCache) DeleteByPrefix(_ context.Context, prefix string) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	return nil
}

// Has implements Cacher.
func (c *MemoryCache) Has(_ context.Context, key string) (bool, error) {
	if c.closed.Load() {
		return false, ErrCacheClosed
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	return ok && c.now().Before(entry.expiresAt), nil
}

// Clear implements Cacher.
func (c *MemoryCache) Clear(_ context.Context) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}
	c.mu.Lock()
	c.entries = make(map[string]memoryEntry)
	c.mu.Unlock()
	return nil
}

// Close stops the cleanup loop. Further calls return ErrCacheClosed.
func (c *MemoryCache) Close() error {
	if c.closed.CompareAndSwap(false, true) {
		close(c.stopCh)
	}
	return nil
}

// Len returns the number of stored entries, including expired ones not yet
// cleaned up.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats implements StatsProvider.
func (c *MemoryCache) Stats() Stats {
	hits, misses := c.hits.Load(), c.misses.Load()
	return Stats{
		Hits:    hits,
		Misses:  misses,
		Sets:    c.sets.Load(),
		Items:   c.Len(),
		HitRate: hitRate(hits, misses),
	}
}

// ResetStats implements StatsProvider.
func (c *MemoryCache) ResetStats() {
	c.hits.Store(0)
	c.misses.Store(0)
	c.sets.Store(0)
}

func (c *MemoryCache) removeExpiredLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

// evictLocked drops the entry that would expire first.
func (c *MemoryCache) evictLocked() {
	var (
		victim string
		oldest time.Time
		found  bool
	)
	for key, entry := range c.entries {
		if !found || entry.expiresAt.Before(oldest) {
			victim, oldest, found = key, entry.expiresAt, true
		}
	}
	if found {
		delete(c.entries, victim)
	}
}

func (c *MemoryCache) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			c.removeExpiredLocked()
			c.mu.Unlock()
		case <-c.stopCh:
			return
		}
	}
}

var (
	_ Cacher        = (*MemoryCache)(nil)
	_ StatsProvider = (*MemoryCache)(nil)
)
