package memory

import (
	"time"

	"payrelay/internal/core/domain"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// StatusStore implements ports.StatusStore. A capacity or ttl of 0 leaves
// that bound off.
type StatusStore struct {
	lru *expirable.LRU[string, domain.StatusRecord]
	now func() time.Time
}

// NewStatusStore creates a status store.
func NewStatusStore(capacity int, ttl time.Duration) *StatusStore {
	if capacity < 0 {
		capacity = 0
	}
	if ttl < 0 {
		ttl = 0
	}
	return &StatusStore{
		lru: expirable.NewLRU[string, domain.StatusRecord](capacity, nil, ttl),
		now: time.Now,
	}
}

// Save overwrites the record for merchantReference with payload and stamps
// it with the save time.
func (s *StatusStore) Save(merchantReference string, payload domain.CallbackPayload) domain.StatusRecord {
	rec := domain.StatusRecord{
		Payload: payload.Clone(),
		SavedAt: s.now().UTC(),
	}
	s.lru.Add(merchantReference, rec)
	return domain.StatusRecord{Payload: rec.Payload.Clone(), SavedAt: rec.SavedAt}
}

// Get returns the latest record for merchantReference.
func (s *StatusStore) Get(merchantReference string) (domain.StatusRecord, bool) {
	rec, ok := s.lru.Get(merchantReference)
	if !ok {
		return domain.StatusRecord{}, false
	}
	rec.Payload = rec.Payload.Clone()
	return rec, true
}
