// Package cache memoizes expensive computations keyed by an opaque composite
// key. Entries are retained until InvalidateAll; there is no eviction.
package cache

import (
	"context"
	"strconv"
	"sync"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// Key identifies a cached computation. Equal keys must have equal CacheKey
// strings.
type Key interface {
	comparable
	CacheKey() string
}

// Cache maps keys to computed values. Concurrent GetOrCompute calls for the
// same key share one computation.
type Cache[K Key, V any] struct {
	mu    sync.Mutex // orders stores against InvalidateAll
	gen   uint64     // bumped by InvalidateAll
	store *gocache.Cache
	group singleflight.Group
}

type flight[V any] struct {
	val V
	hit bool
}

// New creates an empty cache.
func New[K Key, V any]() *Cache[K, V] {
	return &Cache[K, V]{
		// No expiration and no janitor goroutine: entries live until flushed.
		store: gocache.New(gocache.NoExpiration, 0),
	}
}

// Get returns the value stored under key, if any.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	v, ok := c.store.Get(key.CacheKey())
	if !ok {
		var zero V
		return zero, false
	}
	return v.(V), true
}

// Put stores val under key, replacing any previous value.
func (c *Cache[K, V]) Put(key K, val V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.Set(key.CacheKey(), val, gocache.NoExpiration)
}

// InvalidateAll removes every entry. A computation already in flight still
// returns its value to its callers but does not store it.
func (c *Cache[K, V]) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.store.Flush()
}

// Len returns the number of stored entries.
func (c *Cache[K, V]) Len() int {
	return c.store.ItemCount()
}

// GetOrCompute returns the value for key, running compute on a miss and
// storing its result. hit reports whether the value came from the cache.
// Errors are returned to every waiting caller and are not cached.
//
// compute runs detached from ctx cancellation so that one caller giving up
// does not fail the others; a caller whose ctx ends stops waiting and gets
// ctx.Err().
func (c *Cache[K, V]) GetOrCompute(ctx context.Context, key K, compute func(context.Context) (V, error)) (val V, hit bool, err error) {
	if v, ok := c.Get(key); ok {
		return v, true, nil
	}

	sk := key.CacheKey()

	// Flights are per generation: a caller arriving after InvalidateAll must
	// not join a computation that started before it.
	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()
	flightKey := sk + "#" + strconv.FormatUint(gen, 10)

	ch := c.group.DoChan(flightKey, func() (any, error) {
		if v, ok := c.Get(key); ok {
			return flight[V]{val: v, hit: true}, nil
		}

		v, err := compute(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		if c.gen == gen {
			c.store.Set(sk, v, gocache.NoExpiration)
		}
		c.mu.Unlock()
		return flight[V]{val: v}, nil
	})

	select {
	case <-ctx.Done():
		var zero V
		return zero, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			var zero V
			return zero, false, res.Err
		}
		f := res.Val.(flight[V])
		return f.val, f.hit, nil
	}
}
