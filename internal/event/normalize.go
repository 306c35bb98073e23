package event

import (
	crand "crypto/rand"
	"encoding/hex"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/skywatch-data/skywatch/internal/timeutil"
)

// timestampLayouts are tried in order when coercing a string timestamp.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// NewID returns a fresh event identifier: a random UUID, falling back to a
// crypto/rand hex token if UUID generation fails.
func NewID() string {
	if id, err := uuid.NewRandom(); err == nil {
		return id.String()
	}
	b := make([]byte, 16)
	crand.Read(b)
	return hex.EncodeToString(b)
}

// Normalizer validates and canonicalises raw inbound records into Events.
// The clock and id source are injectable so tests can pin them; zero values
// fall back to the real clock and NewID.
type Normalizer struct {
	Clock timeutil.Clock
	NewID func() string
}

// NewNormalizer returns a Normalizer backed by the given clock.
func NewNormalizer(clock timeutil.Clock) *Normalizer {
	return &Normalizer{Clock: clock, NewID: NewID}
}

func (n *Normalizer) now() int64 {
	clock := n.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return clock.Now().UnixMilli()
}

func (n *Normalizer) newID() string {
	if n.NewID != nil {
		return n.NewID()
	}
	return NewID()
}

// Normalize converts a raw record into a well-formed Event. It returns nil
// when the record is not an object or no type can be resolved from the
// record or the fallback. It has no side effects beyond reading the injected
// clock and id source.
func (n *Normalizer) Normalize(raw any, fallbackType string) *Event {
	obj, ok := raw.(map[string]any)
	if !ok || obj == nil {
		return nil
	}

	typ := strings.TrimSpace(fallbackType)
	if s, ok := obj["type"].(string); ok && strings.TrimSpace(s) != "" {
		typ = strings.TrimSpace(s)
	}
	if typ == "" {
		return nil
	}

	ev := &Event{
		Type:      typ,
		Timestamp: n.coerceTimestamp(timestampField(obj)),
	}

	ev.ID = rawID(obj["id"])
	if ev.ID == "" {
		ev.ID = n.newID()
	}

	if payload, ok := obj["payload"].(map[string]any); ok {
		ev.Payload = payload
	} else {
		ev.Payload = map[string]any{}
	}

	// Meta is passed through only when object-typed; otherwise it stays
	// unset rather than becoming an empty object.
	if meta, ok := obj["meta"].(map[string]any); ok {
		ev.Meta = meta
	}

	return ev
}

// NormalizeMany normalises a batch. A single non-array input is treated as a
// one-element batch. Records that fail normalisation are dropped; the rest
// are returned, so a batch may be partially accepted.
func (n *Normalizer) NormalizeMany(raw any, fallbackType string) []*Event {
	var items []any
	if arr, ok := raw.([]any); ok {
		items = arr
	} else {
		items = []any{raw}
	}

	events := make([]*Event, 0, len(items))
	for _, item := range items {
		if ev := n.Normalize(item, fallbackType); ev != nil {
			events = append(events, ev)
		}
	}
	return events
}

// timestampField picks the raw timestamp value, accepting either the wire
// name "ts" or the long form "timestamp".
func timestampField(obj map[string]any) any {
	if v, ok := obj["ts"]; ok {
		return v
	}
	return obj["timestamp"]
}

// coerceTimestamp applies the timestamp coercion rule: numbers pass through
// as epoch milliseconds, parseable date strings convert, anything else falls
// back to the current time.
func (n *Normalizer) coerceTimestamp(v any) int64 {
	switch ts := v.(type) {
	case float64:
		if !math.IsNaN(ts) && !math.IsInf(ts, 0) {
			return int64(ts)
		}
	case int:
		return int64(ts)
	case int64:
		return ts
	case string:
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, ts); err == nil {
				return t.UnixMilli()
			}
		}
	}
	return n.now()
}

// rawID resolves a sender-assigned id: a non-empty string, or a non-zero
// number rendered in decimal. Anything else yields no id.
func rawID(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		if id != 0 && !math.IsNaN(id) && !math.IsInf(id, 0) {
			return strconv.FormatFloat(id, 'f', -1, 64)
		}
	case int:
		if id != 0 {
			return strconv.Itoa(id)
		}
	}
	return ""
}
