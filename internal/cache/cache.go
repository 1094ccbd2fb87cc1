// Package cache deduplicates concurrent identical provider fetches and
// caches short-TTL results.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Fetcher produces the value for a cache key.
type Fetcher func(ctx context.Context) (interface{}, error)

type entry struct {
	value     interface{}
	expiresAt time.Time
}

// RequestCache guarantees at most one concurrent fetch per key and serves
// fresh results from memory within their TTL window. Errors are never
// cached. Lifecycle is process-wide; Reset is called on logout.
type RequestCache struct {
	mu      sync.Mutex
	entries map[string]entry
	group   singleflight.Group
	now     func() time.Time
}

// New creates an empty request cache.
func New() *RequestCache {
	return &RequestCache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Do returns the cached value for key if still fresh, joins an in-flight
// fetch for the same key if one exists, or invokes fetch and caches the
// result for ttl. Response-like values are cloned so callers cannot
// mutate the cached copy.
func (c *RequestCache) Do(ctx context.Context, key string, ttl time.Duration, fetch Fetcher) (interface{}, error) {
	if v, ok := c.lookup(key); ok {
		return cloneValue(v), nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		// Re-check under the flight: another caller may have populated
		// the entry between our lookup and acquiring the flight.
		if v, ok := c.lookup(key); ok {
			return v, nil
		}

		v, err := fetch(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.entries[key] = entry{value: v, expiresAt: c.now().Add(ttl)}
		c.mu.Unlock()
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneValue(v), nil
}

func (c *RequestCache) lookup(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().After(e.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

// Forget drops the cached entry for a key.
func (c *RequestCache) Forget(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	c.group.Forget(key)
}

// Reset clears all cached entries.
func (c *RequestCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

// Len returns the number of live cache entries.
func (c *RequestCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// cloneValue copies mutable response shapes. Scalars pass through.
func cloneValue(v interface{}) interface{} {
	switch val := v.(type) {
	case []byte:
		out := make([]byte, len(val))
		copy(out, val)
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = cloneValue(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
