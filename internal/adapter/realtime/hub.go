// Package realtime fans status events out to connected subscribers.
package realtime

import (
	"encoding/json"
	"sync"

	"payrelay/internal/core/domain"

	"github.com/rs/zerolog"
)

// Subscriber is one connected push channel.
type Subscriber interface {
	ID() string
	Send(msg []byte) error
}

// Hub implements ports.Broadcaster.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]Subscriber
	log         zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		subscribers: make(map[string]Subscriber),
		log:         log,
	}
}

func (h *Hub) Register(s Subscriber) {
	h.mu.Lock()
	h.subscribers[s.ID()] = s
	n := len(h.subscribers)
	h.mu.Unlock()

	h.log.Info().Str("subscriber", s.ID()).Int("subscribers", n).Msg("realtime subscriber connected")
}

func (h *Hub) Unregister(s Subscriber) {
	h.mu.Lock()
	_, ok := h.subscribers[s.ID()]
	delete(h.subscribers, s.ID())
	h.mu.Unlock()

	if ok {
		h.log.Info().Str("subscriber", s.ID()).Msg("realtime subscriber disconnected")
	}
}

// Len returns the number of connected subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Broadcast sends event to every subscriber and returns how many received it.
// A failed send is logged and does not stop delivery to the others.
func (h *Hub) Broadcast(event domain.StatusEvent) int {
	msg, err := json.Marshal(event)
	if err != nil {
		h.log.Error().Err(err).Msg("marshal status event")
		return 0
	}

	h.mu.RLock()
	targets := make([]Subscriber, 0, len(h.subscribers))
	for _, s := range h.subscribers {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, s := range targets {
		if err := s.Send(msg); err != nil {
			h.log.Error().Err(err).Str("subscriber", s.ID()).Msg("realtime send failed")
			continue
		}
		delivered++
	}
	return delivered
}
