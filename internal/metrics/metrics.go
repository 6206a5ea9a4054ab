// Parallel - Photo Library Enrichment and Realtime Notifications
// Copyright 2026 Parallel App
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parallel-app/parallel

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Queue metrics
	QueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "queue_depth",
			Help: "Current number of pending jobs per queue",
		},
		[]string{"queue"},
	)

	QueueBatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_batches_total",
			Help: "Total number of processed batches per queue and outcome",
		},
		[]string{"queue", "result"}, // result: "ok", "requeued"
	)

	QueueBatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "queue_batch_duration_seconds",
			Help:    "Batch processing duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"queue"},
	)

	QueueRejectedJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_rejected_jobs_total",
			Help: "Jobs rejected at enqueue time per queue and reason",
		},
		[]string{"queue", "reason"}, // reason: "invalid", "duplicate"
	)

	// Geocode provider metrics
	GeocodeLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geocode_lookups_total",
			Help: "Total reverse-geocode lookups per outcome",
		},
		[]string{"result"}, // result: "ok", "error", "empty"
	)

	GeocodeLookupDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "geocode_lookup_duration_seconds",
			Help:    "Reverse-geocode lookup duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	// Circuit breaker metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Requests through the circuit breaker per outcome",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Connection registry metrics
	WSConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ws_connections",
			Help: "Currently registered websocket connections per channel kind",
		},
		[]string{"kind"},
	)

	WSMessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ws_messages_sent_total",
			Help: "Messages pushed to websocket clients per channel kind",
		},
		[]string{"kind"},
	)

	WSBroadcasts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ws_broadcasts_total",
			Help: "Broadcast fan-outs to all registered connections",
		},
	)

	// Presence metrics
	PresenceUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "presence_users",
			Help: "Users currently tracked in the nearby presence set",
		},
	)

	// Ingest metrics
	IngestedResources = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingested_resources_total",
			Help: "Resources accepted by the ingest endpoint",
		},
	)
)
