package store

import (
	"sync"

	"github.com/skywatch-data/skywatch/internal/event"
	"github.com/skywatch-data/skywatch/internal/monitoring"
)

// Broadcaster delivers an accepted event to all current subscribers. The
// eventmux hub implements it; tests substitute a recorder.
type Broadcaster interface {
	Broadcast(ev *event.Event)
}

// Options sizes the Store's collections and query windows.
type Options struct {
	MaxEvents     int
	MaxTelemetry  int
	MaxDetections int
	DefaultLimit  int
}

// Store is the server-side authority over the live event window. It keeps
// three independently capped collections: every accepted event lands in the
// aggregate collection, and telemetry/detection events additionally land in
// their kind-specific collection. One mutex guards all three so an
// append-and-evict is a single atomic step relative to readers.
type Store struct {
	mu         sync.Mutex
	events     *bounded
	telemetry  *bounded
	detections *bounded

	normalizer   *event.Normalizer
	broadcaster  Broadcaster
	defaultLimit int
}

// Totals reports the lengths of the three collections.
type Totals struct {
	Events     int `json:"events"`
	Telemetry  int `json:"telemetry"`
	Detections int `json:"detections"`
}

// Summary aggregates collection counts with the most recent entry of each
// kind-specific stream.
type Summary struct {
	Totals          Totals       `json:"totals"`
	LatestTelemetry *event.Event `json:"latest_telemetry"`
	LatestDetection *event.Event `json:"latest_detection"`
}

// New constructs a Store. The normalizer is used by IngestMany; the
// broadcaster may be nil (no fan-out).
func New(opts Options, normalizer *event.Normalizer, broadcaster Broadcaster) *Store {
	defaultLimit := opts.DefaultLimit
	if defaultLimit < 1 {
		defaultLimit = 200
	}
	return &Store{
		events:       newBounded(opts.MaxEvents),
		telemetry:    newBounded(opts.MaxTelemetry),
		detections:   newBounded(opts.MaxDetections),
		normalizer:   normalizer,
		broadcaster:  broadcaster,
		defaultLimit: defaultLimit,
	}
}

// Ingest appends a normalized event to the collections it belongs to and
// fans it out to subscribers. A nil event is rejected; a well-formed event
// has no rejection path, capacity pressure only evicts the oldest entries.
func (s *Store) Ingest(ev *event.Event) bool {
	if ev == nil {
		return false
	}

	kind := "other"
	s.mu.Lock()
	s.events.append(ev)
	switch {
	case ev.IsTelemetry():
		s.telemetry.append(ev)
		kind = "telemetry"
	case ev.IsDetection():
		s.detections.append(ev)
		kind = "detection"
	}
	s.mu.Unlock()

	monitoring.EventsIngested.WithLabelValues(kind).Inc()

	if s.broadcaster != nil {
		s.broadcaster.Broadcast(ev)
	}
	return true
}

// IngestMany normalizes a raw batch (a single object counts as a one-element
// batch) and ingests every record that survives normalization. It returns
// the accepted count; rejected siblings never abort the rest of the batch.
func (s *Store) IngestMany(raw any, fallbackType string) int {
	events := s.normalizer.NormalizeMany(raw, fallbackType)

	if rejected := batchSize(raw) - len(events); rejected > 0 {
		monitoring.RecordsRejected.Add(float64(rejected))
	}

	accepted := 0
	for _, ev := range events {
		if s.Ingest(ev) {
			accepted++
		}
	}
	return accepted
}

func batchSize(raw any) int {
	if arr, ok := raw.([]any); ok {
		return len(arr)
	}
	return 1
}

// Events returns the most recent limit events from the aggregate collection,
// oldest of the window first. limit <= 0 uses the default window; limits are
// clamped to the collection capacity. since > 0 keeps only events strictly
// newer than that timestamp.
func (s *Store) Events(limit int, since int64) []*event.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events.window(s.clamp(limit, s.events.capacity), since)
}

// Telemetry returns the most recent limit telemetry events, oldest first.
func (s *Store) Telemetry(limit int) []*event.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.telemetry.window(s.clamp(limit, s.telemetry.capacity), 0)
}

// Detections returns the most recent limit detection events, oldest first.
func (s *Store) Detections(limit int) []*event.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detections.window(s.clamp(limit, s.detections.capacity), 0)
}

// Summarize reports collection totals and the latest entry of each
// kind-specific stream (nil when the stream is empty).
func (s *Store) Summarize() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Summary{
		Totals: Totals{
			Events:     s.events.len(),
			Telemetry:  s.telemetry.len(),
			Detections: s.detections.len(),
		},
		LatestTelemetry: s.telemetry.latest(),
		LatestDetection: s.detections.latest(),
	}
}

// clamp resolves a caller-supplied limit against the default window and the
// owning collection's capacity, so a query can never exceed what the
// collection could hold.
func (s *Store) clamp(limit, capacity int) int {
	if limit <= 0 {
		limit = s.defaultLimit
	}
	if limit > capacity {
		limit = capacity
	}
	return limit
}
