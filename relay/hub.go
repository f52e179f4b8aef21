/*
Package relay fans store events out to in-process subscribers and bridges
edits made by other processes sharing the cache.

CHANNELS:
  Hub      - same-process fan-out: the store publishes request-created and
             status-updated events; any number of views subscribe.
  Watcher  - cross-process: polls the cache revision counter and emits a
             refresh event when another process wrote the collection.

DELIVERY:
  Fire-and-forget, at most once per event per subscriber. Sends never block:
  a subscriber that falls behind loses events rather than stalling the
  publisher, so listeners must be idempotent and able to resync via a load.
*/
package relay

import (
	"sync"

	"github.com/staffhive/leave-engine/leave"
)

// =============================================================================
// EVENTS
// =============================================================================

type EventType string

const (
	EventRequestCreated EventType = "request_created"
	EventStatusUpdated  EventType = "status_updated"
	EventCacheRefresh   EventType = "cache_refresh"
)

// Event is what subscribers receive. Request is zero-valued for cache
// refreshes; IsNew distinguishes creation from updates.
type Event struct {
	Type    EventType
	Request leave.Request
	IsNew   bool
}

// =============================================================================
// HUB - Same-process fan-out
// =============================================================================

// Hub broadcasts events to all subscribers. Implements leave.Notifier.
type Hub struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a subscriber and returns its channel plus a cleanup
// function. The channel is buffered; slow consumers drop events.
func (h *Hub) Subscribe() (chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, 16)
	h.subs[ch] = struct{}{}

	cleanup := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
	}
	return ch, cleanup
}

// Publish delivers an event to every subscriber without blocking.
func (h *Hub) Publish(e Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- e:
		default:
			// Subscriber is full; it resyncs on its next load.
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// RequestCreated implements leave.Notifier.
func (h *Hub) RequestCreated(req leave.Request) {
	h.Publish(Event{Type: EventRequestCreated, Request: req, IsNew: true})
}

// StatusUpdated implements leave.Notifier.
func (h *Hub) StatusUpdated(req leave.Request) {
	h.Publish(Event{Type: EventStatusUpdated, Request: req})
}

var _ leave.Notifier = (*Hub)(nil)
