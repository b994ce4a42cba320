package cache

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// TTLCache memoizes fetched values for a fixed time. Entries are only ever
// written through GetOrRefresh and dropped through Invalidate.
type TTLCache[V any] struct {
	store *gocache.Cache
	// serializes refreshes so concurrent misses on one key fetch once
	mu sync.Mutex
	// genMu guards gen; Invalidate must not wait on an in-flight fetch
	genMu sync.Mutex
	gen   uint64
}

func NewTTLCache[V any](ttl, cleanupInterval time.Duration) *TTLCache[V] {
	return &TTLCache[V]{
		store: gocache.New(ttl, cleanupInterval),
	}
}

// GetOrRefresh returns the cached value for key, or calls fetch and caches
// its result. Fetch errors are returned and nothing is cached.
func (c *TTLCache[V]) GetOrRefresh(ctx context.Context, key string, fetch func(ctx context.Context) (V, error)) (V, error) {
	if v, ok := c.lookup(key); ok {
		return v, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if v, ok := c.lookup(key); ok {
		return v, nil
	}

	gen := c.generation()
	v, err := fetch(ctx)
	if err != nil {
		var zero V
		return zero, err
	}

	// An Invalidate during the fetch means v may predate the write that
	// caused it. Return it to this caller but leave the key empty.
	c.genMu.Lock()
	if c.gen == gen {
		c.store.Set(key, v, gocache.DefaultExpiration)
	}
	c.genMu.Unlock()
	return v, nil
}

func (c *TTLCache[V]) generation() uint64 {
	c.genMu.Lock()
	defer c.genMu.Unlock()
	return c.gen
}

func (c *TTLCache[V]) lookup(key string) (V, bool) {
	raw, found := c.store.Get(key)
	if !found {
		var zero V
		return zero, false
	}
	v, ok := raw.(V)
	return v, ok
}

// Invalidate drops the given keys, or every key when none are given.
func (c *TTLCache[V]) Invalidate(keys ...string) {
	c.genMu.Lock()
	defer c.genMu.Unlock()
	c.gen++

	if len(keys) == 0 {
		c.store.Flush()
		return
	}
	for _, k := range keys {
		c.store.Delete(k)
	}
}

func (c *TTLCache[V]) Len() int {
	return c.store.ItemCount()
}
