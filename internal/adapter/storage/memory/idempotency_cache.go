package memory

import (
	"sync"
	"time"

	"payrelay/internal/core/domain"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Defaults for the orchestrator's idempotency cache.
const (
	DefaultIdempotencyCapacity = 500
	DefaultIdempotencyTTL      = 15 * time.Minute
)

// IdempotencyCache implements ports.IdempotencyCache as a bounded LRU whose
// entries also expire after a fixed TTL.
type IdempotencyCache struct {
	mu  sync.Mutex
	lru *expirable.LRU[string, domain.CanonicalResult]
}

// NewIdempotencyCache creates a cache holding at most capacity entries for ttl each.
// Non-positive arguments fall back to the defaults.
func NewIdempotencyCache(capacity int, ttl time.Duration) *IdempotencyCache {
	if capacity <= 0 {
		capacity = DefaultIdempotencyCapacity
	}
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return &IdempotencyCache{
		lru: expirable.NewLRU[string, domain.CanonicalResult](capacity, nil, ttl),
	}
}

// Get returns the result stored for key, if it is still live.
func (c *IdempotencyCache) Get(key string) (domain.CanonicalResult, bool) {
	res, ok := c.lru.Get(key)
	if !ok {
		return domain.CanonicalResult{}, false
	}
	return res.Clone(), true
}

// Set stores result under key. A live entry is never replaced.
func (c *IdempotencyCache) Set(key string, result domain.CanonicalResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.lru.Get(key); ok {
		return
	}
	c.lru.Add(key, result.Clone())
}

// Len returns the number of live entries.
func (c *IdempotencyCache) Len() int {
	return c.lru.Len()
}
