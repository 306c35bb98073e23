package analytics

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skywatch-data/skywatch/internal/event"
)

func det(id string, ts int64, lat, lon float64, category string) *event.Event {
	payload := map[string]any{"detection_id": id, "lat": lat, "lon": lon}
	if category != "" {
		payload["category"] = category
	}
	return &event.Event{ID: id, Type: event.TypeDetectionNew, Timestamp: ts, Payload: payload}
}

func TestHaversineKnownDistance(t *testing.T) {
	// Bangkok to Chiang Mai is roughly 580-600km.
	d := Haversine(13.7563, 100.5018, 18.7883, 98.9853)
	assert.InDelta(t, 587000, d, 10000)
}

func TestHaversineZeroDistance(t *testing.T) {
	assert.Equal(t, 0.0, Haversine(10, 20, 10, 20))
}

func TestClusterConcreteScenario(t *testing.T) {
	// The first two points are ~65m apart; the third is over 100km away.
	dets := []*event.Event{
		det("a", 1, 10, 20, "PERSON"),
		det("b", 2, 10.0005, 20.0004, "PERSON"),
		det("c", 3, 11, 21, "VEHICLE"),
	}

	clusters := ClusterDetections(dets, 200)
	require.Len(t, clusters, 1)
	assert.Equal(t, 2, clusters[0].Count)
	assert.Len(t, clusters[0].Members, 2)
}

func TestClusterChaining(t *testing.T) {
	// One degree of longitude at the equator is ~111km; 0.001 deg is ~111m.
	// A-B and B-C are ~111m apart, A-C is ~222m: all three must chain into
	// one cluster with a 150m threshold.
	a := det("a", 1, 0, 0, "")
	b := det("b", 2, 0, 0.001, "")
	c := det("c", 3, 0, 0.002, "")

	require.LessOrEqual(t, Haversine(0, 0, 0, 0.001), 150.0)
	require.Greater(t, Haversine(0, 0, 0, 0.002), 150.0)

	clusters := ClusterDetections([]*event.Event{a, b, c}, 150)
	require.Len(t, clusters, 1)
	assert.Equal(t, 3, clusters[0].Count)
}

func TestClusterExcludesUnlocatable(t *testing.T) {
	dets := []*event.Event{
		det("a", 1, 10, 20, ""),
		det("b", 2, 10.0001, 20.0001, ""),
		{ID: "nan", Type: event.TypeDetectionNew, Timestamp: 3, Payload: map[string]any{
			"detection_id": "nan", "lat": math.NaN(), "lon": 20.0,
		}},
		{ID: "missing", Type: event.TypeDetectionNew, Timestamp: 4, Payload: map[string]any{
			"detection_id": "missing",
		}},
	}

	clusters := ClusterDetections(dets, 200)
	require.Len(t, clusters, 1)
	assert.Equal(t, 2, clusters[0].Count)
	for _, c := range clusters {
		for _, m := range c.Members {
			assert.NotContains(t, []string{"nan", "missing"}, m.ID)
		}
	}
}

func TestClusterDropsSingletons(t *testing.T) {
	dets := []*event.Event{
		det("lone", 1, 10, 20, ""),
		det("far", 2, 50, 50, ""),
	}
	assert.Empty(t, ClusterDetections(dets, 150))
}

func TestClusterSortedByDescendingCount(t *testing.T) {
	// A pair near the origin and a triple near (40, 40).
	dets := []*event.Event{
		det("p1", 1, 0, 0, ""),
		det("p2", 2, 0, 0.0005, ""),
		det("t1", 3, 40, 40, ""),
		det("t2", 4, 40, 40.0005, ""),
		det("t3", 5, 40.0004, 40, ""),
	}

	clusters := ClusterDetections(dets, 150)
	require.Len(t, clusters, 2)
	assert.Equal(t, 3, clusters[0].Count)
	assert.Equal(t, 2, clusters[1].Count)
}

func TestClusterCentroidAndHistogram(t *testing.T) {
	dets := []*event.Event{
		det("a", 1, 10, 20, "PERSON"),
		det("b", 2, 10.0006, 20.0004, "PERSON"),
		det("c", 3, 10.0003, 20.0002, ""),
	}

	clusters := ClusterDetections(dets, 200)
	require.Len(t, clusters, 1)
	c := clusters[0]

	assert.InDelta(t, 10.0003, c.Lat, 1e-9)
	assert.InDelta(t, 20.0002, c.Lon, 1e-9)
	assert.Equal(t, map[string]int{"PERSON": 2, UnknownCategory: 1}, c.Categories)
}

func TestClusterPrimaryIsLatestMember(t *testing.T) {
	dets := []*event.Event{
		det("old", 100, 10, 20, ""),
		det("new", 300, 10.0001, 20.0001, ""),
		det("mid", 200, 10.0002, 20.0002, ""),
	}

	clusters := ClusterDetections(dets, 200)
	require.Len(t, clusters, 1)
	assert.Equal(t, "new", clusters[0].Primary.ID)
	assert.Equal(t, int64(300), clusters[0].LatestTs)
}

func TestClusterPrimaryTieKeepsFirstSeen(t *testing.T) {
	dets := []*event.Event{
		det("first", 100, 10, 20, ""),
		det("second", 100, 10.0001, 20.0001, ""),
	}

	clusters := ClusterDetections(dets, 200)
	require.Len(t, clusters, 1)
	assert.Equal(t, "first", clusters[0].Primary.ID)
}

func TestClusterZeroThresholdUsesDefault(t *testing.T) {
	// ~65m apart: inside the 150m default.
	dets := []*event.Event{
		det("a", 1, 10, 20, ""),
		det("b", 2, 10.0005, 20.0004, ""),
	}
	clusters := ClusterDetections(dets, 0)
	require.Len(t, clusters, 1)
}

func TestClusterEmptyInput(t *testing.T) {
	assert.Empty(t, ClusterDetections(nil, 150))
}

func TestClusterManyPoints(t *testing.T) {
	// A dense line of points 50m apart chains into a single cluster.
	dets := make([]*event.Event, 0, 20)
	for i := 0; i < 20; i++ {
		dets = append(dets, det(fmt.Sprintf("p%d", i), int64(i), 0, float64(i)*0.00045, ""))
	}
	clusters := ClusterDetections(dets, 150)
	require.Len(t, clusters, 1)
	assert.Equal(t, 20, clusters[0].Count)
}
