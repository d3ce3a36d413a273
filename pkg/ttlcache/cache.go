// Package ttlcache provides a small bounded in-memory cache with per-entry
// expiry and FIFO eviction.
package ttlcache

import (
	"sync"
	"time"
)

const (
	defaultMaxEntries = 100
	defaultTTL        = 30 * time.Minute
)

// Options configures a Cache.
type Options struct {
	MaxEntries int
	TTL        time.Duration
	Now        func() time.Time
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache is safe for concurrent use. When full, the oldest inserted key is
// evicted regardless of how recently it was read.
type Cache[K comparable, V any] struct {
	mu         sync.Mutex
	entries    map[K]entry[V]
	order      []K
	maxEntries int
	ttl        time.Duration
	now        func() time.Time
}

// New constructs a cache, applying defaults for unset options.
func New[K comparable, V any](opts Options) *Cache[K, V] {
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = defaultMaxEntries
	}
	if opts.TTL <= 0 {
		opts.TTL = defaultTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Cache[K, V]{
		entries:    make(map[K]entry[V], opts.MaxEntries),
		order:      make([]K, 0, opts.MaxEntries),
		maxEntries: opts.MaxEntries,
		ttl:        opts.TTL,
		now:        opts.Now,
	}
}

// Get returns the cached value. Expired entries are removed and reported as a miss.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	item, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if !c.now().Before(item.expiresAt) {
		c.removeLocked(key)
		return zero, false
	}
	return item.value, true
}

// Set stores value under key. Overwriting keeps the original insertion slot.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(c.ttl)
	if _, exists := c.entries[key]; exists {
		c.entries[key] = entry[V]{value: value, expiresAt: expiresAt}
		return
	}
	for len(c.order) >= c.maxEntries {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	c.entries[key] = entry[V]{value: value, expiresAt: expiresAt}
	c.order = append(c.order, key)
}

// Evict removes key if present.
func (c *Cache[K, V]) Evict(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(key)
}

// Len reports the number of stored entries, expired ones included until touched.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache[K, V]) removeLocked(key K) {
	if _, ok := c.entries[key]; !ok {
		return
	}
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}
