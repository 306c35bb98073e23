package store

import (
	"sync"

	"github.com/skywatch-data/skywatch/internal/event"
)

// DedupBuffer is the consumer-side analogue of the Store: it pairs a
// capacity-bounded identity index (logical key → most recent event) with a
// bounded feed list. A push whose key is already indexed only refreshes the
// index entry — the feed does not grow — so bursts of updates for one entity
// occupy a single slot.
//
// Pushes arrive at network cadence while Snapshot is taken on a fixed flush
// tick, so the feed may transiently hold stale shadow entries for keys the
// index has already evicted; Snapshot recomputes the seen-key set and drops
// them.
type DedupBuffer struct {
	mu           sync.Mutex
	bucketMillis int64
	indexCap     int
	feedCap      int

	index map[string]*event.Event
	order []string // index keys, oldest first, for eviction
	feed  []*event.Event
}

// NewDedupBuffer constructs a DedupBuffer. bucketMillis sets the telemetry
// identity bucket width; zero uses the package default.
func NewDedupBuffer(indexCap, feedCap int, bucketMillis int64) *DedupBuffer {
	if indexCap < 1 {
		indexCap = 1
	}
	if feedCap < 1 {
		feedCap = 1
	}
	return &DedupBuffer{
		bucketMillis: bucketMillis,
		indexCap:     indexCap,
		feedCap:      feedCap,
		index:        make(map[string]*event.Event),
	}
}

// Push records a normalized event. A repeat of an indexed key overwrites the
// index value only; a new key enters both the index (evicting the oldest key
// when over capacity) and the feed (evicting the oldest slot when over
// capacity). Nil events are ignored.
func (b *DedupBuffer) Push(ev *event.Event) {
	if ev == nil {
		return
	}
	key := ev.Key(b.bucketMillis)

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.index[key]; ok {
		b.index[key] = ev
		return
	}

	b.index[key] = ev
	b.order = append(b.order, key)
	if len(b.order) > b.indexCap {
		oldest := b.order[0]
		b.order = b.order[1:]
		delete(b.index, oldest)
	}

	b.feed = append(b.feed, ev)
	if overflow := len(b.feed) - b.feedCap; overflow > 0 {
		b.feed = b.feed[overflow:]
	}
}

// Len returns the current feed length.
func (b *DedupBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.feed)
}

// Snapshot returns the externally visible sequence: the feed with at most
// one entry per logical key, in chronological order. The newest occurrence
// of each key wins; older shadow duplicates left behind by index eviction
// are discarded.
func (b *DedupBuffer) Snapshot() []*event.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	seen := make(map[string]bool, len(b.feed))
	kept := make([]*event.Event, 0, len(b.feed))

	for i := len(b.feed) - 1; i >= 0; i-- {
		ev := b.feed[i]
		key := ev.Key(b.bucketMillis)
		if seen[key] {
			continue
		}
		seen[key] = true
		// Prefer the index entry: it carries the latest update for the
		// key even when the feed slot holds an older event.
		if latest, ok := b.index[key]; ok {
			ev = latest
		}
		kept = append(kept, ev)
	}

	// Reverse back to chronological order.
	for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
		kept[i], kept[j] = kept[j], kept[i]
	}
	return kept
}
