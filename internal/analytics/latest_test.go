package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skywatch-data/skywatch/internal/event"
)

func tel(id, droneID string, ts int64, battery float64) *event.Event {
	return &event.Event{
		ID:        id,
		Type:      event.TypeTelemetryUpdate,
		Timestamp: ts,
		Payload:   map[string]any{"drone_id": droneID, "battery": battery},
	}
}

func TestLatestByDroneKeepsGreatestTimestamp(t *testing.T) {
	snapshot := []*event.Event{
		tel("a", "BLUE-1", 100, 90),
		tel("b", "BLUE-1", 300, 80),
		tel("c", "BLUE-1", 200, 85),
		tel("d", "RED-2", 150, 95),
	}

	latest := LatestByDrone(snapshot)
	require.Len(t, latest, 2)
	assert.Equal(t, "b", latest["BLUE-1"].ID)
	assert.Equal(t, "d", latest["RED-2"].ID)
}

func TestLatestByDroneTieKeepsLaterScanned(t *testing.T) {
	snapshot := []*event.Event{
		tel("first", "BLUE-1", 100, 90),
		tel("second", "BLUE-1", 100, 80),
	}

	latest := LatestByDrone(snapshot)
	require.Len(t, latest, 1)
	assert.Equal(t, "second", latest["BLUE-1"].ID)
}

func TestLatestByDroneSkipsUnidentified(t *testing.T) {
	snapshot := []*event.Event{
		{ID: "x", Type: event.TypeTelemetryUpdate, Timestamp: 100, Payload: map[string]any{"lat": 1.0}},
		nil,
		tel("a", "BLUE-1", 100, 90),
	}

	latest := LatestByDrone(snapshot)
	require.Len(t, latest, 1)
	assert.Contains(t, latest, "BLUE-1")
}

func TestLatestByDroneEmpty(t *testing.T) {
	assert.Empty(t, LatestByDrone(nil))
}
