// Package poller implements the consumer side of the pipeline: a cancellable
// periodic task that pulls recent events from a skywatch events endpoint,
// deduplicates them through a DedupBuffer, and flushes coalesced snapshots to
// a registered consumer on an independent cadence.
package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/skywatch-data/skywatch/internal/event"
	"github.com/skywatch-data/skywatch/internal/httputil"
	"github.com/skywatch-data/skywatch/internal/monitoring"
	"github.com/skywatch-data/skywatch/internal/store"
	"github.com/skywatch-data/skywatch/internal/timeutil"
)

const maxResponseBytes = 8 * 1024 * 1024

// SnapshotFunc receives the deduplicated snapshot on each flush tick.
type SnapshotFunc func(events []*event.Event)

// Options configures a Poller.
type Options struct {
	// BaseURL is the events endpoint, e.g. "http://host:8080/api/events".
	BaseURL string
	// PollInterval is the fetch cadence.
	PollInterval time.Duration
	// FlushInterval is the snapshot emission cadence, decoupled from the
	// fetch cadence.
	FlushInterval time.Duration
	// Client performs the HTTP fetches; nil uses a standard client.
	Client httputil.HTTPClient
	// Clock drives the tickers; nil uses the real clock.
	Clock timeutil.Clock
}

// Poller periodically fetches events newer than the last seen timestamp and
// pushes them through a deduplicating buffer. A failed or malformed fetch
// logs and skips the cycle; the loop itself only stops on context
// cancellation.
type Poller struct {
	baseURL       string
	pollInterval  time.Duration
	flushInterval time.Duration
	client        httputil.HTTPClient
	clock         timeutil.Clock

	buffer   *store.DedupBuffer
	onFlush  SnapshotFunc
	lastSeen int64
}

// New constructs a Poller feeding the given buffer. onFlush may be nil, in
// which case flush ticks are no-ops.
func New(opts Options, buffer *store.DedupBuffer, onFlush SnapshotFunc) *Poller {
	client := opts.Client
	if client == nil {
		client = httputil.NewStandardClient(nil)
	}
	clock := opts.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	flushInterval := opts.FlushInterval
	if flushInterval <= 0 {
		flushInterval = 120 * time.Millisecond
	}
	return &Poller{
		baseURL:       opts.BaseURL,
		pollInterval:  pollInterval,
		flushInterval: flushInterval,
		client:        client,
		clock:         clock,
		buffer:        buffer,
		onFlush:       onFlush,
	}
}

// Run polls until ctx is cancelled. Each poll tick fetches and buffers; each
// flush tick emits a snapshot. Run never returns an error: failures inside a
// cycle are logged and the next tick retries.
func (p *Poller) Run(ctx context.Context) {
	pollTicker := p.clock.NewTicker(p.pollInterval)
	defer pollTicker.Stop()
	flushTicker := p.clock.NewTicker(p.flushInterval)
	defer flushTicker.Stop()

	monitoring.Logf("poller: starting against %s (poll %v, flush %v)",
		p.baseURL, p.pollInterval, p.flushInterval)

	for {
		select {
		case <-ctx.Done():
			monitoring.Logf("poller: stopping: %v", ctx.Err())
			return
		case <-pollTicker.C():
			p.pollOnce()
		case <-flushTicker.C():
			p.flush()
		}
	}
}

// PollOnce runs a single fetch cycle outside the ticker loop. Tests and
// one-shot callers use it directly.
func (p *Poller) PollOnce() {
	p.pollOnce()
}

func (p *Poller) pollOnce() {
	events, err := p.fetch()
	if err != nil {
		monitoring.Logf("poller: fetch failed, skipping cycle: %v", err)
		return
	}

	for _, ev := range events {
		if ev == nil {
			continue
		}
		p.buffer.Push(ev)
		if ev.Timestamp > p.lastSeen {
			p.lastSeen = ev.Timestamp
		}
	}
}

func (p *Poller) fetch() ([]*event.Event, error) {
	url := p.baseURL
	if p.lastSeen > 0 {
		url = fmt.Sprintf("%s?since=%d", p.baseURL, p.lastSeen)
	}

	resp, err := p.client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("get %s: unexpected status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var events []*event.Event
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return events, nil
}

// flush emits the buffer's current snapshot to the consumer callback.
func (p *Poller) flush() {
	if p.onFlush == nil {
		return
	}
	p.onFlush(p.buffer.Snapshot())
}

// Flush runs a single flush outside the ticker loop.
func (p *Poller) Flush() {
	p.flush()
}

// LastSeen returns the highest event timestamp observed so far.
func (p *Poller) LastSeen() int64 {
	return p.lastSeen
}
