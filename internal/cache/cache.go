package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	val V
	exp time.Time
}

// Cache is a small TTL map. Expired entries are dropped lazily on lookup and
// in bulk once the map grows past sweepAt.
type Cache[K comparable, V any] struct {
	mu      sync.Mutex
	data    map[K]entry[V]
	ttl     time.Duration
	sweepAt int
	now     func() time.Time
}

func New[K comparable, V any](ttl time.Duration) *Cache[K, V] {
	return &Cache[K, V]{data: make(map[K]entry[V]), ttl: ttl, sweepAt: 1024, now: time.Now}
}

func (c *Cache[K, V]) Get(k K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.data[k]
	if !ok {
		var zero V
		return zero, false
	}
	if !c.now().Before(e.exp) {
		delete(c.data, k)
		var zero V
		return zero, false
	}
	return e.val, true
}

// Put stores v for the cache's default TTL.
func (c *Cache[K, V]) Put(k K, v V) {
	c.Set(k, v, c.now().Add(c.ttl))
}

// Set stores v until exp.
func (c *Cache[K, V]) Set(k K, v V, exp time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.data) >= c.sweepAt {
		c.sweepLocked()
	}
	c.data[k] = entry[V]{val: v, exp: exp}
}

func (c *Cache[K, V]) sweepLocked() {
	now := c.now()
	for k, e := range c.data {
		if !now.Before(e.exp) {
			delete(c.data, k)
		}
	}
}
