// Package event defines the canonical event model flowing through skywatch
// and the derivation of logical identity keys used for deduplication.
package event

import (
	"fmt"
	"math"
	"strings"
)

// Type prefixes route events into the kind-specific collections.
const (
	TelemetryPrefix = "telemetry"
	DetectionPrefix = "detection"
)

// Canonical event types used by the HTTP ingest surface.
const (
	TypeTelemetryUpdate = "telemetry:update"
	TypeDetectionNew    = "detection:new"
)

// DefaultBucketMillis is the width of the coarse time window used when
// deriving telemetry identity keys. Near-simultaneous updates from the same
// drone collapse into one logical slot; a new slot opens once the window
// rolls over.
const DefaultBucketMillis = 250

// Event is the canonical unit flowing through the system. An Event is
// immutable once normalised: a newer reading of the same logical entity
// arrives as a fresh Event sharing the same identity key, never as an
// in-place update.
type Event struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Timestamp int64          `json:"ts"` // epoch milliseconds
	Payload   map[string]any `json:"payload"`
	Meta      map[string]any `json:"meta,omitempty"`
}

// IsTelemetry reports whether the event belongs to the telemetry stream.
func (e *Event) IsTelemetry() bool {
	return strings.HasPrefix(e.Type, TelemetryPrefix)
}

// IsDetection reports whether the event belongs to the detection stream.
func (e *Event) IsDetection() bool {
	return strings.HasPrefix(e.Type, DetectionPrefix)
}

// PayloadString returns the named payload field when it is a non-empty string.
func (e *Event) PayloadString(name string) (string, bool) {
	v, ok := e.Payload[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// PayloadFloat returns the named payload field coerced to float64. JSON
// decoding yields float64 for all numbers; int variants are accepted for
// events constructed in code.
func (e *Event) PayloadFloat(name string) (float64, bool) {
	switch v := e.Payload[name].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// Coordinates returns the event's lat/lon payload fields. ok is false when
// either coordinate is absent or non-finite, marking the event unlocatable.
func (e *Event) Coordinates() (lat, lon float64, ok bool) {
	lat, latOK := e.PayloadFloat("lat")
	lon, lonOK := e.PayloadFloat("lon")
	if !latOK || !lonOK {
		return 0, 0, false
	}
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lon) || math.IsInf(lon, 0) {
		return 0, 0, false
	}
	return lat, lon, true
}

// Key derives the logical identity key used for deduplication. Detections
// key on detection_id; telemetry keys on drone_id plus a coarse time bucket
// of bucketMillis width; anything else falls back to the event id, or to
// type plus timestamp when no id was assigned.
func (e *Event) Key(bucketMillis int64) string {
	if bucketMillis <= 0 {
		bucketMillis = DefaultBucketMillis
	}
	if e.IsDetection() {
		if id, ok := e.PayloadString("detection_id"); ok {
			return "det:" + id
		}
	}
	if e.IsTelemetry() {
		if id, ok := e.PayloadString("drone_id"); ok {
			return fmt.Sprintf("tel:%s:%d", id, e.Timestamp/bucketMillis)
		}
	}
	if e.ID != "" {
		return e.ID
	}
	return fmt.Sprintf("%s:%d", e.Type, e.Timestamp)
}
