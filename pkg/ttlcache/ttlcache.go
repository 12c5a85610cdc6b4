package ttlcache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	val V
	exp time.Time
}

// Cache is a size-capped map whose entries expire after a fixed TTL.
type Cache[V any] struct {
	mu   sync.Mutex
	ttl  time.Duration
	max  int
	now  func() time.Time
	data map[string]entry[V]
}

func New[V any](ttl time.Duration, max int) *Cache[V] {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if max <= 0 {
		max = 10000
	}
	return &Cache[V]{ttl: ttl, max: max, now: time.Now, data: make(map[string]entry[V])}
}

// WithClock replaces the time source (tests).
func (c *Cache[V]) WithClock(now func() time.Time) *Cache[V] {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
	return c
}

func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.data[key]
	if !ok || !c.now().Before(e.exp) {
		if ok {
			delete(c.data, key)
		}
		var zero V
		return zero, false
	}
	return e.val, true
}

func (c *Cache[V]) Set(key string, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	c.data[key] = entry[V]{val: v, exp: now.Add(c.ttl)}
	if len(c.data) <= c.max {
		return
	}
	// prima gli scaduti, poi quelli più vicini alla scadenza
	for k, e := range c.data {
		if !now.Before(e.exp) {
			delete(c.data, k)
		}
	}
	for len(c.data) > c.max {
		var oldest string
		var oldestExp time.Time
		for k, e := range c.data {
			if oldest == "" || e.exp.Before(oldestExp) {
				oldest, oldestExp = k, e.exp
			}
		}
		delete(c.data, oldest)
	}
}

func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}
