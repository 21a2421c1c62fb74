package memory

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache is a string-keyed cache with a per-entry TTL. Expired entries are
// removed lazily on read. It has no capacity bound and does not coordinate
// concurrent misses: two callers missing the same key may both run the
// GetOrSet factory, and the last write wins.
type TTLCache[V any] struct {
	mu    sync.Mutex
	items map[string]entry[V]
	now   func() time.Time
}

func NewTTLCache[V any]() *TTLCache[V] {
	return &TTLCache[V]{items: make(map[string]entry[V]), now: time.Now}
}

// WithClock replaces the time source. Intended for tests.
func (c *TTLCache[V]) WithClock(now func() time.Time) *TTLCache[V] {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
	return c
}

func (c *TTLCache[V]) Get(key string) (V, bool) {
	var zero V
	if c == nil {
		return zero, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	ent, ok := c.items[key]
	if !ok {
		return zero, false
	}
	if c.now().After(ent.expiresAt) {
		delete(c.items, key)
		return zero, false
	}
	return ent.value, true
}

// Set stores value for ttl, overwriting any previous entry.
func (c *TTLCache[V]) Set(key string, value V, ttl time.Duration) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = entry[V]{value: value, expiresAt: c.now().Add(ttl)}
}

func (c *TTLCache[V]) Delete(key string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// GetOrSet returns the cached value for key, or runs factory and stores its
// result for ttl. Factory errors are returned and nothing is stored.
func (c *TTLCache[V]) GetOrSet(key string, factory func() (V, error), ttl time.Duration) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := factory()
	if err != nil {
		var zero V
		return zero, err
	}
	c.Set(key, v, ttl)
	return v, nil
}

// Len counts stored entries, including expired ones not yet read.
func (c *TTLCache[V]) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *TTLCache[V]) Clear() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]entry[V])
}
