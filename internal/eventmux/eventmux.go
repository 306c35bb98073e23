// Package eventmux fans accepted events out to subscribers. Each event is
// serialised once and offered to every registered subscriber channel; a
// subscriber that cannot keep up is skipped for that event so a slow reader
// never blocks the ingestion path or its peers.
package eventmux

import (
	crand "crypto/rand"
	"encoding/hex"
	"encoding/json"
	"sync"

	"github.com/skywatch-data/skywatch/internal/event"
	"github.com/skywatch-data/skywatch/internal/monitoring"
)

// subscriberBuffer is the per-subscriber channel depth. A burst larger than
// this drops frames for that subscriber only.
const subscriberBuffer = 16

// Hub is the broadcast fan-out point between the ingestion path and any
// number of push subscribers.
type Hub struct {
	mu          sync.Mutex
	subscribers map[string]chan []byte
	closed      bool
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]chan []byte),
	}
}

// randomID generates a random subscription ID (8 byte random hex encoded value).
func randomID() string {
	b := make([]byte, 8)
	crand.Read(b)
	return hex.EncodeToString(b)
}

// Subscribe registers a new subscriber and returns its ID and the channel
// live event frames are delivered on. The channel is closed by Unsubscribe
// or Close.
func (h *Hub) Subscribe() (string, chan []byte) {
	id := randomID()
	ch := make(chan []byte, subscriberBuffer)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return id, ch
	}
	h.subscribers[id] = ch
	monitoring.Subscribers.Set(float64(len(h.subscribers)))
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel. Unknown IDs are
// ignored.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subscribers[id]; ok {
		close(ch)
		delete(h.subscribers, id)
		monitoring.Subscribers.Set(float64(len(h.subscribers)))
	}
}

// Count returns the number of registered subscribers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// Broadcast serialises the event once and offers it to every subscriber.
// Delivery is best-effort at-most-once: a subscriber whose channel is full
// is skipped, and a subscriber that disconnects before the broadcast never
// sees the event.
func (h *Hub) Broadcast(ev *event.Event) {
	if ev == nil {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		monitoring.Logf("eventmux: failed to marshal event %s: %v", ev.ID, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for _, ch := range h.subscribers {
		select {
		case ch <- payload:
			monitoring.BroadcastsDelivered.Inc()
		default:
			// Subscriber not ready; skip so the loop never blocks.
			monitoring.BroadcastsDropped.Inc()
		}
	}
}

// Close closes all subscriber channels and rejects future broadcasts.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, ch := range h.subscribers {
		close(ch)
		delete(h.subscribers, id)
	}
	monitoring.Subscribers.Set(0)
}
