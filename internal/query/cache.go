package query

import (
	"strings"
	"sync"
	"time"
)

// Cache is a time-bounded store of query results keyed by canonical params
// key. Entries are replaced wholesale, never mutated in place. Expired
// entries read as absent and are evicted lazily on the next Set or
// InvalidatePrefix touching them.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
	now     func() time.Time
}

type cacheEntry struct {
	value    any
	storedAt time.Time
}

func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.storedAt) >= c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return entry.value, true
}

func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{value: value, storedAt: c.now()}
}

func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
}

// InvalidatePrefix drops every entry whose key starts with prefix. Mutation
// operations call this with the entity's key prefix so no stale page of
// that entity survives a write.
func (c *Cache) InvalidatePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
}

// CacheGet is a typed read helper; a hit with a value of another type reads
// as a miss.
func CacheGet[T any](c *Cache, key string) (Page[T], bool) {
	v, ok := c.Get(key)
	if !ok {
		return Page[T]{}, false
	}
	page, ok := v.(Page[T])
	return page, ok
}
