// Package analytics derives summary views from event snapshots: spatial
// clusters of co-located detections and the latest known state per drone.
// Both are recomputed in full from a snapshot on each pass; nothing here is
// incrementally maintained or persisted.
package analytics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/skywatch-data/skywatch/internal/event"
)

// EarthRadiusMeters is the mean spherical-Earth radius used by Haversine.
const EarthRadiusMeters = 6371000

// DefaultClusterThresholdMeters is the default neighbourhood radius for
// detection clustering.
const DefaultClusterThresholdMeters = 150

// UnknownCategory labels detections without a category in cluster histograms.
const UnknownCategory = "UNKNOWN"

// Haversine returns the great-circle distance in meters between two
// lat/lon points on a spherical Earth.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	const degToRad = math.Pi / 180

	dLat := (lat2 - lat1) * degToRad
	dLon := (lon2 - lon1) * degToRad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*degToRad)*math.Cos(lat2*degToRad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * c
}

// Cluster summarises a connected group of co-located detections.
type Cluster struct {
	Count      int            `json:"count"`
	Lat        float64        `json:"lat"`
	Lon        float64        `json:"lon"`
	Categories map[string]int `json:"categories"`
	LatestTs   int64          `json:"latest_ts"`
	Primary    *event.Event   `json:"primary"`
	Members    []*event.Event `json:"members"`
}

type node struct {
	ev       *event.Event
	lat, lon float64
}

// ClusterDetections groups detections whose positions chain together within
// thresholdMeters: nodes are locatable detections, an edge joins two nodes
// within the threshold, and each connected component of two or more members
// becomes a Cluster. Transitive chaining is deliberate — A joins C through B
// even when A and C are farther apart than the threshold. Detections without
// finite coordinates are excluded entirely rather than reported as
// singletons.
//
// Clusters are ordered by descending member count; ties keep encounter order.
func ClusterDetections(detections []*event.Event, thresholdMeters float64) []Cluster {
	if thresholdMeters <= 0 {
		thresholdMeters = DefaultClusterThresholdMeters
	}

	nodes := make([]node, 0, len(detections))
	for _, ev := range detections {
		if ev == nil {
			continue
		}
		lat, lon, ok := ev.Coordinates()
		if !ok {
			continue
		}
		nodes = append(nodes, node{ev: ev, lat: lat, lon: lon})
	}

	visited := make([]bool, len(nodes))
	var clusters []Cluster

	for i := range nodes {
		if visited[i] {
			continue
		}
		visited[i] = true

		// Queue-based component expansion: members doubles as the BFS
		// frontier. Traversal order is not significant, only reachability.
		members := []int{i}
		for qi := 0; qi < len(members); qi++ {
			cur := members[qi]
			for j := range nodes {
				if visited[j] {
					continue
				}
				if Haversine(nodes[cur].lat, nodes[cur].lon, nodes[j].lat, nodes[j].lon) <= thresholdMeters {
					visited[j] = true
					members = append(members, j)
				}
			}
		}

		// Singleton components are dropped.
		if len(members) < 2 {
			continue
		}
		clusters = append(clusters, summarize(nodes, members))
	}

	sort.SliceStable(clusters, func(a, b int) bool {
		return clusters[a].Count > clusters[b].Count
	})
	return clusters
}

// summarize computes the reported fields for one component.
func summarize(nodes []node, members []int) Cluster {
	lats := make([]float64, len(members))
	lons := make([]float64, len(members))
	events := make([]*event.Event, len(members))
	categories := make(map[string]int, 4)

	var primary *event.Event
	for i, idx := range members {
		n := nodes[idx]
		lats[i] = n.lat
		lons[i] = n.lon
		events[i] = n.ev

		category := UnknownCategory
		if c, ok := n.ev.PayloadString("category"); ok {
			category = c
		}
		categories[category]++

		// Strictly-greater comparison keeps the first-seen member on
		// timestamp ties.
		if primary == nil || n.ev.Timestamp > primary.Timestamp {
			primary = n.ev
		}
	}

	return Cluster{
		Count: len(members),
		// Arithmetic mean of coordinates: acceptable at cluster scale,
		// not a true spherical centroid.
		Lat:        stat.Mean(lats, nil),
		Lon:        stat.Mean(lons, nil),
		Categories: categories,
		LatestTs:   primary.Timestamp,
		Primary:    primary,
		Members:    events,
	}
}
