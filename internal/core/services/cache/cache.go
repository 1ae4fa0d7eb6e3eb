// Package cache provides the time-bounded result store shared by the engine components.
package cache

import (
	"sync"
	"time"

	"github.com/lcalzada-xor/threatcorr/internal/core/ports"
)

type entry[V any] struct {
	value      V
	insertedAt time.Time
}

// Cache is a key/value store whose entries expire after a fixed TTL.
// Expired entries are only discarded when looked up; there is no background sweep.
type Cache[V any] struct {
	mu      sync.Mutex
	entries map[string]entry[V]
	ttl     time.Duration
	enabled bool
	clock   ports.Clock
	observe func(hit bool)
}

// New creates an empty cache. A nil clock falls back to the system clock.
func New[V any](enabled bool, ttl time.Duration, clock ports.Clock) *Cache[V] {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &Cache[V]{
		entries: make(map[string]entry[V]),
		ttl:     ttl,
		enabled: enabled,
		clock:   clock,
	}
}

// Enabled reports whether the cache stores anything at all.
func (c *Cache[V]) Enabled() bool {
	return c.enabled
}

// Observe registers fn to be called after every lookup on an enabled cache.
func (c *Cache[V]) Observe(fn func(hit bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observe = fn
}

// Get returns the value stored under key if it has not expired.
// An expired entry is evicted as a side effect.
func (c *Cache[V]) Get(key string) (V, bool) {
	if !c.enabled {
		var zero V
		return zero, false
	}

	c.mu.Lock()
	value, ok := c.lookup(key)
	observe := c.observe
	c.mu.Unlock()

	if observe != nil {
		observe(ok)
	}
	return value, ok
}

// lookup must be called with mu held.
func (c *Cache[V]) lookup(key string) (V, bool) {
	var zero V
	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if c.clock.Now().Sub(e.insertedAt) > c.ttl {
		delete(c.entries, key)
		return zero, false
	}
	return e.value, true
}

// Set stores value under key, replacing any previous entry.
func (c *Cache[V]) Set(key string, value V) {
	if !c.enabled {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{value: value, insertedAt: c.clock.Now()}
}

// Clear drops every entry.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry[V])
}

// Len returns the number of stored entries, including expired ones not yet looked up.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
