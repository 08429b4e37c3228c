// SPDX-FileCopyrightText: 2025 Mads R. Havmand <mads@v42.dk>
//
// SPDX-License-Identifier: AGPL-3.0-only

package cache

import (
	"sync"
	"time"
)

// Entry represents a cached entry with expiration
type Entry[T any] struct {
	Value     T
	ExpiresAt time.Time
}

// IsExpired checks if the cache entry has expired
func (e *Entry[T]) IsExpired() bool {
	return time.Now().After(e.ExpiresAt)
}

// Cache is a generic in-memory cache with per-entry TTL. Expired entries are
// treated as absent and evicted lazily on lookup; a background sweep removes
// the rest.
type Cache[K comparable, V any] struct {
	mu         sync.Mutex
	entries    map[K]*Entry[V]
	defaultTTL time.Duration
	stopChan   chan struct{}
	once       sync.Once
}

// New creates a new cache with the specified default TTL
func New[K comparable, V any](defaultTTL time.Duration) *Cache[K, V] {
	c := &Cache[K, V]{
		entries:    make(map[K]*Entry[V]),
		defaultTTL: defaultTTL,
		stopChan:   make(chan struct{}),
	}

	// Start cleanup goroutine
	go c.sweepLoop()

	return c
}

// Lookup retrieves a value from the cache. An entry past its expiry is
// removed as a side effect and reported as absent; stale data is never
// returned.
func (c *Cache[K, V]) Lookup(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		var zero V
		return zero, false
	}
	if entry.IsExpired() {
		delete(c.entries, key)
		var zero V
		return zero, false
	}

	return entry.Value, true
}

// Store stores a value in the cache, unconditionally overwriting any existing
// entry for the key. A non-positive ttl falls back to the default TTL.
func (c *Cache[K, V]) Store(key K, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &Entry[V]{
		Value:     value,
		ExpiresAt: time.Now().Add(ttl),
	}
}

// Delete removes a value from the cache
func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
}

// Len returns the number of entries in the cache, expired ones included
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// SweepExpired removes all expired entries and returns how many were evicted
func (c *Cache[K, V]) SweepExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	count := 0
	for key, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			delete(c.entries, key)
			count++
		}
	}
	return count
}

// Close stops the sweep goroutine
func (c *Cache[K, V]) Close() {
	c.once.Do(func() {
		close(c.stopChan)
	})
}

// sweepLoop periodically removes expired entries
func (c *Cache[K, V]) sweepLoop() {
	ticker := time.NewTicker(c.defaultTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.SweepExpired()
		case <-c.stopChan:
			return
		}
	}
}
