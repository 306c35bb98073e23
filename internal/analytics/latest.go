package analytics

import (
	"github.com/skywatch-data/skywatch/internal/event"
)

// LatestByDrone folds a telemetry snapshot into the latest known state per
// drone id. Events without a resolvable drone_id are skipped. On exact
// timestamp ties the later-scanned event wins, so a single winner is always
// kept.
func LatestByDrone(telemetry []*event.Event) map[string]*event.Event {
	latest := make(map[string]*event.Event)
	for _, ev := range telemetry {
		if ev == nil {
			continue
		}
		id, ok := ev.PayloadString("drone_id")
		if !ok {
			continue
		}
		if cur, ok := latest[id]; !ok || ev.Timestamp >= cur.Timestamp {
			latest[id] = ev
		}
	}
	return latest
}
