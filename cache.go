package blockview

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// flightCache memoizes successful loads by key and lets concurrent callers
// of an uncached key share one in-flight load. Failed loads are not stored.
type flightCache[V any] struct {
	mu    sync.RWMutex
	gen   uint64
	group *singleflight.Group
	items map[string]V
}

func newFlightCache[V any]() *flightCache[V] {
	return &flightCache[V]{group: &singleflight.Group{}, items: make(map[string]V)}
}

func (c *flightCache[V]) get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.items[key]
	return v, ok
}

// do returns the cached value for key, or runs load once for all concurrent
// callers. shared reports whether the value came from the cache or another
// caller's load.
//
// load runs without ctx's cancellation so one caller giving up cannot fail
// the others waiting on the same key; ctx only bounds how long this caller
// waits.
func (c *flightCache[V]) do(ctx context.Context, key string, load func(context.Context) (V, error)) (v V, shared bool, err error) {
	c.mu.RLock()
	if v, ok := c.items[key]; ok {
		c.mu.RUnlock()
		return v, true, nil
	}
	gen, group := c.gen, c.group
	c.mu.RUnlock()

	var zero V
	if err := ctx.Err(); err != nil {
		return zero, false, err
	}
	loadCtx := context.WithoutCancel(ctx)
	ch := group.DoChan(key, func() (any, error) {
		if v, ok := c.get(key); ok {
			return v, nil
		}
		v, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		// A reset during the load makes this result stale for the new generation.
		if c.gen == gen {
			c.items[key] = v
		}
		c.mu.Unlock()
		return v, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Shared, res.Err
		}
		return res.Val.(V), res.Shared, nil
	case <-ctx.Done():
		return zero, false, ctx.Err()
	}
}

func (c *flightCache[V]) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *flightCache[V]) values() []V {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]V, 0, len(c.items))
	for _, v := range c.items {
		out = append(out, v)
	}
	return out
}

// reset drops every entry and detaches in-flight loads, returning the
// dropped values so their resources can be released.
func (c *flightCache[V]) reset() []V {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]V, 0, len(c.items))
	for _, v := range c.items {
		out = append(out, v)
	}
	c.items = make(map[string]V)
	c.group = &singleflight.Group{}
	c.gen++
	return out
}
