package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus collectors for the ingestion and fan-out paths. Registered on
// the default registry and served by the /metrics endpoint.
var (
	EventsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skywatch_events_ingested_total",
		Help: "Events accepted into the store, by kind",
	}, []string{"kind"})

	RecordsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "skywatch_records_rejected_total",
		Help: "Raw records dropped by the normalizer",
	})

	BroadcastsDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "skywatch_broadcasts_delivered_total",
		Help: "Per-subscriber event deliveries",
	})

	BroadcastsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "skywatch_broadcasts_dropped_total",
		Help: "Per-subscriber deliveries skipped because the subscriber was not ready",
	})

	Subscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "skywatch_subscribers",
		Help: "Currently registered broadcast subscribers",
	})
)
