// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Transitions counts committed status changes per entity and target status.
	Transitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "internhub",
			Name:      "status_transitions_total",
			Help:      "Status transitions recorded, by owner type and target status.",
		},
		[]string{"owner", "status"},
	)

	// SweepItems counts records handled by the maintenance sweep.
	SweepItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "internhub",
			Name:      "sweep_items_total",
			Help:      "Records processed by the maintenance sweep, by task and outcome.",
		},
		[]string{"task", "outcome"},
	)

	// SweepDuration observes how long one sweep pass takes.
	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "internhub",
			Name:      "sweep_duration_seconds",
			Help:      "Duration of maintenance sweep passes.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// EventsPublished counts workflow events handed to the broker.
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "internhub",
			Name:      "events_published_total",
			Help:      "Workflow events published, by routing key and result.",
		},
		[]string{"routing_key", "result"},
	)

	// Uploads counts stored files by storage backend.
	Uploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "internhub",
			Name:      "uploads_total",
			Help:      "Files stored, by backend.",
		},
		[]string{"backend"},
	)
)
