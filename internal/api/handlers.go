package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/skywatch-data/skywatch/internal/analytics"
	"github.com/skywatch-data/skywatch/internal/event"
	"github.com/skywatch-data/skywatch/internal/httputil"
	"github.com/skywatch-data/skywatch/internal/units"
)

// ingestResponse reports how many records of a batch survived normalization.
type ingestResponse struct {
	Accepted int `json:"accepted"`
}

// handleEvents serves the aggregate collection: POST ingests a single object
// or an array, GET returns the recent window.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.ingest(w, r, "")
	case http.MethodGet:
		limit, since, ok := parseWindow(w, r)
		if !ok {
			return
		}
		writeEvents(w, s.store.Events(limit, since))
	default:
		httputil.MethodNotAllowed(w)
	}
}

func (s *Server) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.ingest(w, r, event.TypeTelemetryUpdate)
	case http.MethodGet:
		limit, _, ok := parseWindow(w, r)
		if !ok {
			return
		}
		writeEvents(w, s.store.Telemetry(limit))
	default:
		httputil.MethodNotAllowed(w)
	}
}

func (s *Server) handleDetections(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.ingest(w, r, event.TypeDetectionNew)
	case http.MethodGet:
		limit, _, ok := parseWindow(w, r)
		if !ok {
			return
		}
		writeEvents(w, s.store.Detections(limit))
	default:
		httputil.MethodNotAllowed(w)
	}
}

// ingest decodes the request body and hands it to the store. A `type` query
// parameter overrides the route's fallback type. Rejected records inside a
// batch are dropped silently; only a batch with zero accepted records is an
// error to the caller.
func (s *Server) ingest(w http.ResponseWriter, r *http.Request, fallbackType string) {
	if t := r.URL.Query().Get("type"); t != "" {
		fallbackType = t
	}

	var raw any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid JSON body: %v", err))
		return
	}

	accepted := s.store.IngestMany(raw, fallbackType)
	if accepted == 0 {
		httputil.BadRequest(w, "no records accepted")
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, ingestResponse{Accepted: accepted})
}

func (s *Server) showSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, s.store.Summarize())
}

func (s *Server) showClusters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	threshold := s.cfg.GetClusterThresholdMeters()
	if t := r.URL.Query().Get("threshold"); t != "" {
		parsed, err := strconv.ParseFloat(t, 64)
		if err != nil || parsed <= 0 {
			httputil.BadRequest(w, "invalid 'threshold' parameter")
			return
		}
		threshold = parsed
	}

	detections := s.store.Detections(s.cfg.GetMaxDetections())
	clusters := analytics.ClusterDetections(detections, threshold)
	if clusters == nil {
		clusters = []analytics.Cluster{}
	}

	httputil.WriteJSONOK(w, map[string]any{
		"threshold_meters": threshold,
		"count":            len(clusters),
		"clusters":         clusters,
	})
}

func (s *Server) showFleet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	targetUnits := units.MPS
	if u := r.URL.Query().Get("units"); u != "" {
		if !units.IsValid(u) {
			httputil.BadRequest(w, fmt.Sprintf("invalid units %q, expected one of: %s", u, units.GetValidUnitsString()))
			return
		}
		targetUnits = u
	}

	telemetry := s.store.Telemetry(s.cfg.GetMaxTelemetry())
	fleet := analytics.LatestByDrone(telemetry)

	drones := make(map[string]*event.Event, len(fleet))
	for id, ev := range fleet {
		drones[id] = convertEventSpeed(ev, targetUnits)
	}

	httputil.WriteJSONOK(w, map[string]any{
		"units":  targetUnits,
		"count":  len(drones),
		"drones": drones,
	})
}

// convertEventSpeed returns the event with its speed field converted to the
// target units. Events are immutable, so conversion clones the payload.
func convertEventSpeed(ev *event.Event, targetUnits string) *event.Event {
	speed, ok := ev.PayloadFloat("speed")
	if !ok || targetUnits == units.MPS {
		return ev
	}

	payload := make(map[string]any, len(ev.Payload))
	for k, v := range ev.Payload {
		payload[k] = v
	}
	payload["speed"] = units.ConvertSpeed(speed, targetUnits)

	clone := *ev
	clone.Payload = payload
	return &clone
}

func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	s.hub.ServeSSE(w, r, s.store, s.cfg.GetSnapshotLimit())
}

// parseWindow extracts the optional limit and since query parameters. It
// writes a 400 response and returns ok=false on a malformed value.
func parseWindow(w http.ResponseWriter, r *http.Request) (limit int, since int64, ok bool) {
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			httputil.BadRequest(w, "invalid 'limit' parameter")
			return 0, 0, false
		}
		limit = parsed
	}
	if sv := r.URL.Query().Get("since"); sv != "" {
		parsed, err := strconv.ParseInt(sv, 10, 64)
		if err != nil || parsed < 0 {
			httputil.BadRequest(w, "invalid 'since' parameter")
			return 0, 0, false
		}
		since = parsed
	}
	return limit, since, true
}

func writeEvents(w http.ResponseWriter, events []*event.Event) {
	if events == nil {
		events = []*event.Event{}
	}
	httputil.WriteJSONOK(w, events)
}
