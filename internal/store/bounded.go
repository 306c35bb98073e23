// Package store holds the bounded in-memory event collections: the
// server-side Store that the ingestion path writes into, and the
// consumer-side DedupBuffer that coalesces a pushed stream for rendering.
package store

import (
	"github.com/skywatch-data/skywatch/internal/event"
)

// bounded is an ordered event sequence with a fixed maximum size. Appends go
// to the tail; when the capacity is exceeded the oldest entries are dropped
// from the front. Eviction never reorders the survivors.
type bounded struct {
	capacity int
	items    []*event.Event
}

func newBounded(capacity int) *bounded {
	if capacity < 1 {
		capacity = 1
	}
	return &bounded{capacity: capacity}
}

func (b *bounded) append(ev *event.Event) {
	b.items = append(b.items, ev)
	if overflow := len(b.items) - b.capacity; overflow > 0 {
		b.items = b.items[overflow:]
	}
}

func (b *bounded) len() int {
	return len(b.items)
}

// latest returns the most recently appended entry, or nil when empty.
func (b *bounded) latest() *event.Event {
	if len(b.items) == 0 {
		return nil
	}
	return b.items[len(b.items)-1]
}

// window returns up to limit of the most recently appended entries, oldest
// first, keeping only entries with a timestamp strictly newer than since
// when since > 0. The result is a fresh slice; callers may hold it across
// later mutations.
func (b *bounded) window(limit int, since int64) []*event.Event {
	filtered := b.items
	if since > 0 {
		filtered = make([]*event.Event, 0, len(b.items))
		for _, ev := range b.items {
			if ev.Timestamp > since {
				filtered = append(filtered, ev)
			}
		}
	}

	if limit > 0 && len(filtered) > limit {
		filtered = filtered[len(filtered)-limit:]
	}

	out := make([]*event.Event, len(filtered))
	copy(out, filtered)
	return out
}
