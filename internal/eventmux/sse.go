package eventmux

import (
	"encoding/json"
	"net/http"

	"github.com/skywatch-data/skywatch/internal/event"
	"github.com/skywatch-data/skywatch/internal/monitoring"
)

// SnapshotSource supplies the catch-up window sent to a newly connected
// subscriber. The Store implements it.
type SnapshotSource interface {
	Events(limit int, since int64) []*event.Event
}

// ServeSSE streams events to one subscriber over Server-Sent Events. On
// connect the client receives a greeting comment, then — when the aggregate
// collection is non-empty — a catch-up snapshot of the most recent events,
// then live frames until it disconnects. There is no per-subscriber replay
// beyond the connect-time snapshot.
func (h *Hub) ServeSSE(w http.ResponseWriter, r *http.Request, src SnapshotSource, snapshotLimit int) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable buffering for nginx

	id, ch := h.Subscribe()
	defer h.Unsubscribe(id)

	// Greeting so the client knows the stream is established.
	w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	if src != nil {
		if catchup := src.Events(snapshotLimit, 0); len(catchup) > 0 {
			payload, err := json.Marshal(catchup)
			if err != nil {
				monitoring.Logf("eventmux: failed to marshal catch-up snapshot: %v", err)
			} else {
				w.Write([]byte("event: snapshot\ndata: "))
				w.Write(payload)
				w.Write([]byte("\n\n"))
				flusher.Flush()
			}
		}
	}

	for {
		select {
		case payload, ok := <-ch:
			if !ok {
				// Hub closed, exit gracefully.
				return
			}
			if _, err := w.Write([]byte("data: ")); err != nil {
				return
			}
			if _, err := w.Write(payload); err != nil {
				return
			}
			if _, err := w.Write([]byte("\n\n")); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
