package riskmap

import (
	"sync"
	"time"
)

type cacheEntry[T any] struct {
	value      T
	insertedAt time.Time
}

// Cache is a key/value store with a fixed time-to-live. Expiration is
// lazy, evaluated at read time only; there is no background sweep.
// Reads never extend an entry's lifetime. The cache is constructed once
// at startup and lives for the process lifetime; the only ways entries
// leave it are Set overwrites and Clear.
type Cache[T any] struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry[T]
	now     func() time.Time
}

func NewCache[T any](ttl time.Duration) *Cache[T] {
	return &Cache[T]{
		ttl:     ttl,
		entries: make(map[string]cacheEntry[T]),
		now:     time.Now,
	}
}

// Get returns the value for key if it was inserted less than ttl ago.
// The stored value may itself be a zero value (a cached negative); the
// second return distinguishes presence from expiry.
func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok {
		var zero T
		return zero, false
	}
	if c.now().Sub(entry.insertedAt) >= c.ttl {
		var zero T
		return zero, false
	}
	return entry.value, true
}

// Set stores value under key with a fresh insertion timestamp,
// overwriting any previous entry.
func (c *Cache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry[T]{value: value, insertedAt: c.now()}
}

// Clear drops every entry unconditionally.
func (c *Cache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry[T])
}

// Len counts stored entries, including ones that have expired but not
// yet been overwritten.
func (c *Cache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
