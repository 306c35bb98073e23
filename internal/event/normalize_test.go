package event

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skywatch-data/skywatch/internal/timeutil"
)

func testNormalizer(now time.Time) *Normalizer {
	n := NewNormalizer(timeutil.NewMockClock(now))
	seq := 0
	n.NewID = func() string {
		seq++
		return fmt.Sprintf("gen-%d", seq)
	}
	return n
}

func TestNormalizeRejectsNonObject(t *testing.T) {
	n := testNormalizer(time.Unix(0, 0))

	assert.Nil(t, n.Normalize(nil, "telemetry:update"))
	assert.Nil(t, n.Normalize("a string", "telemetry:update"))
	assert.Nil(t, n.Normalize(42.0, "telemetry:update"))
	assert.Nil(t, n.Normalize([]any{map[string]any{}}, "telemetry:update"))
}

func TestNormalizeRejectsWithoutType(t *testing.T) {
	n := testNormalizer(time.Unix(0, 0))

	assert.Nil(t, n.Normalize(map[string]any{}, ""))
	assert.Nil(t, n.Normalize(map[string]any{"type": "   "}, ""))
	assert.Nil(t, n.Normalize(map[string]any{"type": 7.0}, ""))
}

func TestNormalizeTypeResolution(t *testing.T) {
	n := testNormalizer(time.Unix(0, 0))

	ev := n.Normalize(map[string]any{"type": "  detection:new  "}, "telemetry:update")
	require.NotNil(t, ev)
	assert.Equal(t, "detection:new", ev.Type)

	ev = n.Normalize(map[string]any{}, "telemetry:update")
	require.NotNil(t, ev)
	assert.Equal(t, "telemetry:update", ev.Type)
}

func TestNormalizeTimestampNumberPassThrough(t *testing.T) {
	n := testNormalizer(time.Unix(0, 0))

	ev := n.Normalize(map[string]any{"ts": 1700000000000.0}, "telemetry:update")
	require.NotNil(t, ev)
	assert.Equal(t, int64(1700000000000), ev.Timestamp)
}

func TestNormalizeTimestampStringParse(t *testing.T) {
	n := testNormalizer(time.Unix(0, 0))

	ev := n.Normalize(map[string]any{"ts": "2023-11-14T22:13:20.000Z"}, "telemetry:update")
	require.NotNil(t, ev)
	assert.Equal(t, int64(1700000000000), ev.Timestamp)
}

func TestNormalizeTimestampFallsBackToNow(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC)
	n := testNormalizer(now)

	for _, raw := range []map[string]any{
		{},
		{"ts": "not a date"},
		{"ts": true},
	} {
		ev := n.Normalize(raw, "telemetry:update")
		require.NotNil(t, ev)
		assert.Equal(t, now.UnixMilli(), ev.Timestamp)
	}
}

func TestNormalizeTimestampLongFieldName(t *testing.T) {
	n := testNormalizer(time.Unix(0, 0))

	ev := n.Normalize(map[string]any{"timestamp": 1700000000000.0}, "telemetry:update")
	require.NotNil(t, ev)
	assert.Equal(t, int64(1700000000000), ev.Timestamp)
}

func TestNormalizeIDResolution(t *testing.T) {
	n := testNormalizer(time.Unix(0, 0))

	ev := n.Normalize(map[string]any{"id": "sender-7"}, "telemetry:update")
	require.NotNil(t, ev)
	assert.Equal(t, "sender-7", ev.ID)

	ev = n.Normalize(map[string]any{"id": 1234.0}, "telemetry:update")
	require.NotNil(t, ev)
	assert.Equal(t, "1234", ev.ID)

	// Absent or empty ids are replaced with generated ones.
	ev = n.Normalize(map[string]any{"id": ""}, "telemetry:update")
	require.NotNil(t, ev)
	assert.NotEmpty(t, ev.ID)
	assert.Contains(t, ev.ID, "gen-")
}

func TestNormalizePayloadDefaulting(t *testing.T) {
	n := testNormalizer(time.Unix(0, 0))

	payload := map[string]any{"drone_id": "BLUE-1"}
	ev := n.Normalize(map[string]any{"payload": payload}, "telemetry:update")
	require.NotNil(t, ev)
	assert.Equal(t, payload, ev.Payload)

	for _, raw := range []map[string]any{
		{},
		{"payload": "nope"},
		{"payload": []any{1.0}},
	} {
		ev := n.Normalize(raw, "telemetry:update")
		require.NotNil(t, ev)
		assert.NotNil(t, ev.Payload)
		assert.Empty(t, ev.Payload)
	}
}

func TestNormalizeMetaOmittedUnlessObject(t *testing.T) {
	n := testNormalizer(time.Unix(0, 0))

	ev := n.Normalize(map[string]any{"meta": map[string]any{"source": "sim"}}, "telemetry:update")
	require.NotNil(t, ev)
	assert.Equal(t, "sim", ev.Meta["source"])

	ev = n.Normalize(map[string]any{"meta": "not an object"}, "telemetry:update")
	require.NotNil(t, ev)
	assert.Nil(t, ev.Meta)
}

func TestNormalizeManySingleObject(t *testing.T) {
	n := testNormalizer(time.Unix(0, 0))

	events := n.NormalizeMany(map[string]any{"payload": map[string]any{"drone_id": "BLUE-1"}}, "telemetry:update")
	require.Len(t, events, 1)
	assert.Equal(t, "telemetry:update", events[0].Type)
}

func TestNormalizeManyPartialAcceptance(t *testing.T) {
	n := testNormalizer(time.Unix(0, 0))

	batch := []any{
		map[string]any{"payload": map[string]any{"drone_id": "A"}},
		"garbage",
		nil,
		map[string]any{"payload": map[string]any{"drone_id": "B"}},
	}
	events := n.NormalizeMany(batch, "telemetry:update")
	require.Len(t, events, 2)
	a, _ := events[0].PayloadString("drone_id")
	b, _ := events[1].PayloadString("drone_id")
	assert.Equal(t, "A", a)
	assert.Equal(t, "B", b)
}

func TestNormalizeManyNilBatch(t *testing.T) {
	n := testNormalizer(time.Unix(0, 0))
	assert.Empty(t, n.NormalizeMany(nil, "telemetry:update"))
}

func TestNewIDIsUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NewID()
		require.NotEmpty(t, id)
		assert.False(t, seen[id], "duplicate id %q", id)
		seen[id] = true
	}
}
