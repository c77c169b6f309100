package sse

import (
	"sync"

	"github.com/cmlabs-hris/hris-timepay-go/internal/pkg/metrics"
)

const subscriberBuffer = 10

// Event represents an SSE event to be sent to subscribers
type Event struct {
	UserID string
	Event  string
	Data   interface{}
}

// Hub fans events out to the open streams of each user.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Event]struct{}
	closed      bool
}

// NewHub creates a new SSE Hub instance
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[chan Event]struct{}),
	}
}

// Subscribe registers a stream for userID. The cleanup function is idempotent.
// After Close the returned channel is already closed.
func (h *Hub) Subscribe(userID string) (chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}

	if h.subscribers[userID] == nil {
		h.subscribers[userID] = make(map[chan Event]struct{})
	}
	h.subscribers[userID][ch] = struct{}{}
	metrics.StreamSubscribers.Inc()

	cleanup := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.remove(userID, ch)
	}

	return ch, cleanup
}

// remove closes ch if it is still registered. Caller holds h.mu.
func (h *Hub) remove(userID string, ch chan Event) {
	subs, ok := h.subscribers[userID]
	if !ok {
		return
	}
	if _, ok := subs[ch]; !ok {
		return
	}
	delete(subs, ch)
	close(ch)
	metrics.StreamSubscribers.Dec()
	if len(subs) == 0 {
		delete(h.subscribers, userID)
	}
}

// Publish sends an event to every stream of userID. Full buffers drop the event.
func (h *Hub) Publish(userID string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subscribers[userID] {
		select {
		case ch <- event:
		default:
		}
	}
}

// SubscriberCount returns the number of active subscribers for a user
func (h *Hub) SubscriberCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.subscribers[userID])
}

// Close ends every open stream and rejects new subscriptions.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for userID, subs := range h.subscribers {
		for ch := range subs {
			h.remove(userID, ch)
		}
	}
}
