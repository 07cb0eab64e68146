// Package events fans out console state changes to observers such as the
// websocket stream.
package events

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event describes one observable change
type Event struct {
	ID     string    `json:"id"`
	Entity string    `json:"entity"`
	Op     string    `json:"op"`
	Status string    `json:"status"`
	Error  string    `json:"error,omitempty"`
	Target string    `json:"target,omitempty"`
	At     time.Time `json:"at"`
}

// Hub delivers published events to every subscriber. Slow subscribers lose
// events rather than block publishers.
type Hub struct {
	mu   sync.RWMutex
	subs map[uint64]chan Event
	next uint64
}

// NewHub creates a hub without subscribers
func NewHub() *Hub {
	return &Hub{subs: make(map[uint64]chan Event)}
}

// Subscribe registers a subscriber. The returned func unsubscribes and closes
// the channel.
func (h *Hub) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}

	h.mu.Lock()
	h.next++
	id := h.next
	ch := make(chan Event, buffer)
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Publish stamps e and delivers it to all current subscribers
func (h *Hub) Publish(e Event) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, ch := range h.subs {
		select {
		case ch <- e:
		default:
			slog.Debug("dropping event for slow subscriber", "subscriber", id, "entity", e.Entity, "op", e.Op)
		}
	}
}

// Subscribers returns the number of active subscribers
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
