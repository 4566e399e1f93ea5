// Package stream pushes player events to connected WebSocket clients.
package stream

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/Gyeri/warphunt/internal/game"
)

// DefaultBuffer is the number of events queued per subscriber before drops.
const DefaultBuffer = 64

// Subscription is one connected client's event queue.
type Subscription struct {
	userID    string
	sessionID string
	events    chan game.Event
	dropped   atomic.Uint64
}

// Events returns the queue. It is closed when the subscription ends.
func (s *Subscription) Events() <-chan game.Event { return s.events }

// Dropped returns how many events were discarded because the queue was full.
func (s *Subscription) Dropped() uint64 { return s.dropped.Load() }

// Hub fans player events out to subscriptions, one per user and session.
// It implements game.Publisher.
type Hub struct {
	buffer int

	mu     sync.RWMutex
	active map[string]map[string]*Subscription
}

var _ game.Publisher = (*Hub)(nil)

// NewHub creates a hub.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		buffer: buffer,
		active: make(map[string]map[string]*Subscription),
	}
}

// Subscribe registers a queue for userID and sessionID, ending any existing
// subscription for the same pair.
func (h *Hub) Subscribe(userID, sessionID string) *Subscription {
	sub := &Subscription{
		userID:    userID,
		sessionID: sessionID,
		events:    make(chan game.Event, h.buffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.active[userID]; !exists {
		h.active[userID] = make(map[string]*Subscription)
	}
	if existing, exists := h.active[userID][sessionID]; exists {
		close(existing.events)
		slog.Info("Event subscription replaced", "user_id", userID, "session_id", sessionID)
	}
	h.active[userID][sessionID] = sub
	slog.Info("Event subscription registered", "user_id", userID, "session_id", sessionID)
	return sub
}

// Unsubscribe ends sub if it is still the current subscription for its session.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sessions, ok := h.active[sub.userID]
	if !ok {
		return
	}
	if current, exists := sessions[sub.sessionID]; exists && current == sub {
		close(sub.events)
		delete(sessions, sub.sessionID)
		if len(sessions) == 0 {
			delete(h.active, sub.userID)
		}
		slog.Info("Event subscription unregistered", "user_id", sub.userID, "session_id", sub.sessionID, "dropped", sub.Dropped())
	}
}

// Publish queues ev for every subscription of userID. A full queue drops the
// event rather than blocking the player.
func (h *Hub) Publish(userID string, ev game.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sid, sub := range h.active[userID] {
		select {
		case sub.events <- ev:
		default:
			sub.dropped.Add(1)
			slog.Debug("Event dropped", "user_id", userID, "session_id", sid, "type", ev.Type)
		}
	}
}

// CloseUser ends every subscription for userID.
func (h *Hub) CloseUser(userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sessions, ok := h.active[userID]
	if !ok {
		return
	}
	for sid, sub := range sessions {
		close(sub.events)
		slog.Info("Event subscription closed", "user_id", userID, "session_id", sid)
	}
	delete(h.active, userID)
}

// Count returns the number of subscriptions for userID.
func (h *Hub) Count(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.active[userID])
}
