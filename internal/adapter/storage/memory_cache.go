package storage

import (
	"context"
	"sync"
	"time"
)

// MemoryCache is the in-process idempotency store used when Redis is not
// configured. Expired keys are swept on insert, at most once per TTL.
type MemoryCache struct {
	mu        sync.Mutex
	ttl       time.Duration
	keys      map[string]time.Time
	nextSweep time.Time
	now       func() time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return &MemoryCache{ttl: ttl, keys: make(map[string]time.Time), now: time.Now}
}

func (c *MemoryCache) SetIdempotency(ctx context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if exp, ok := c.keys[key]; ok && now.Before(exp) {
		return false, nil
	}
	if !now.Before(c.nextSweep) {
		for k, exp := range c.keys {
			if !now.Before(exp) {
				delete(c.keys, k)
			}
		}
		c.nextSweep = now.Add(c.ttl)
	}
	c.keys[key] = now.Add(c.ttl)
	return true, nil
}

func (c *MemoryCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.keys)
}
