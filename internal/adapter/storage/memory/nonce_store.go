package memory

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// NonceStore implements ports.NonceStore in process memory, for deployments
// without Redis. Entries are kept for at most maxTTL.
type NonceStore struct {
	mu  sync.Mutex
	lru *expirable.LRU[string, time.Time]
}

// NewNonceStore creates a nonce store remembering up to capacity nonces.
func NewNonceStore(capacity int, maxTTL time.Duration) *NonceStore {
	return &NonceStore{
		lru: expirable.NewLRU[string, time.Time](capacity, nil, maxTTL),
	}
}

// CheckAndSet returns true if nonce has not been seen for scope within ttl.
func (s *NonceStore) CheckAndSet(_ context.Context, scope string, nonce string, ttl time.Duration) (bool, error) {
	key := scope + ":" + nonce
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	if deadline, ok := s.lru.Get(key); ok && now.Before(deadline) {
		return false, nil
	}
	s.lru.Add(key, now.Add(ttl))
	return true, nil
}
