package sheet

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Cache is a read-through cache keyed by file path. Entries are populated
// lazily and never invalidated. Concurrent loads of the same key share one
// call; failed loads are not stored. Cached values must not be mutated.
type Cache[V any] struct {
	mu      sync.RWMutex
	entries map[string]V
	group   singleflight.Group

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewCache returns an empty cache.
func NewCache[V any]() *Cache[V] {
	return &Cache[V]{entries: make(map[string]V)}
}

// Load returns the cached value for path, calling load to populate it on a
// miss.
func (c *Cache[V]) Load(path string, load func(path string) (V, error)) (V, error) {
	c.mu.RLock()
	v, ok := c.entries[path]
	c.mu.RUnlock()
	if ok {
		c.hits.Add(1)
		return v, nil
	}

	res, err, _ := c.group.Do(path, func() (any, error) {
		c.mu.RLock()
		v, ok := c.entries[path]
		c.mu.RUnlock()
		if ok {
			return v, nil
		}
		c.misses.Add(1)
		v, err := load(path)
		if err != nil {
			return v, err
		}
		c.mu.Lock()
		c.entries[path] = v
		c.mu.Unlock()
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}

// Len returns the number of cached entries.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Hits returns how many Load calls were served from the cache.
func (c *Cache[V]) Hits() uint64 { return c.hits.Load() }

// Misses returns how many Load calls invoked the loader.
func (c *Cache[V]) Misses() uint64 { return c.misses.Load() }
