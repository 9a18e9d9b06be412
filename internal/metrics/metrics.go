// Merlion - Singapore Live Data Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/merlion

// Package metrics holds the Prometheus collectors for the acquisition layer.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Upstream Metrics
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "merlion_upstream_requests_total",
			Help: "Total upstream HTTP requests by provider and outcome",
		},
		[]string{"provider", "outcome"}, // outcome: "ok" or an error kind
	)

	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "merlion_upstream_request_duration_seconds",
			Help:    "Latency of upstream HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	UpstreamReauth = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "merlion_upstream_reauth_total",
			Help: "Session token re-authentications triggered by a 401",
		},
		[]string{"provider"},
	)

	// Source Cache Metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "merlion_cache_hits_total",
			Help: "Fresh cache hits per source",
		},
		[]string{"source"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "merlion_cache_misses_total",
			Help: "Cache misses (absent or expired) per source",
		},
		[]string{"source"},
	)

	CacheStaleServed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "merlion_cache_stale_served_total",
			Help: "Stale values served after a failed refresh",
		},
		[]string{"source"},
	)

	CacheCollapsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "merlion_cache_collapsed_fetches_total",
			Help: "Callers that shared another caller's in-flight fetch",
		},
		[]string{"source"},
	)

	// Scheduler Metrics
	SchedulerActiveWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "merlion_scheduler_active_workers",
			Help: "Fetch tasks currently holding a pool slot",
		},
	)

	SchedulerFetchAllDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "merlion_scheduler_fetch_all_duration_seconds",
			Help:    "Wall-clock time of FetchAll calls",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	SchedulerResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "merlion_scheduler_results_total",
			Help: "FetchAll per-source results by status",
		},
		[]string{"status"}, // "fresh", "cached", "stale", "error"
	)

	SchedulerTimeouts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "merlion_scheduler_timeouts_total",
			Help: "Sources abandoned by FetchAll because the call timeout elapsed",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "merlion_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "merlion_circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Bootstrap Metrics
	BootstrapDownloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "merlion_bootstrap_downloads_total",
			Help: "Dataset bootstrap outcomes",
		},
		[]string{"dataset", "outcome"}, // "present", "downloaded", "failed"
	)

	BootstrapBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "merlion_bootstrap_bytes_total",
			Help: "Bytes written by dataset downloads",
		},
	)

	// Cluster Parser Metrics
	ClusterFeaturesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "merlion_cluster_features_skipped_total",
			Help: "Malformed GeoJSON features skipped during parsing",
		},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "merlion_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "merlion_api_request_duration_seconds",
			Help:    "API request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// RecordUpstreamRequest records one upstream round trip.
func RecordUpstreamRequest(provider, outcome string, duration time.Duration) {
	UpstreamRequests.WithLabelValues(provider, outcome).Inc()
	UpstreamDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordSchedulerResult counts one settled FetchAll slot.
func RecordSchedulerResult(status string) {
	SchedulerResults.WithLabelValues(status).Inc()
}

// TrackWorker moves the active worker gauge.
func TrackWorker(inc bool) {
	if inc {
		SchedulerActiveWorkers.Inc()
	} else {
		SchedulerActiveWorkers.Dec()
	}
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, route, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
