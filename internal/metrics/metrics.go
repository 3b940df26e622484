// Trackwatch - Fleet Track Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackwatch

// Package metrics provides Prometheus instrumentation for the track
// analysis pipeline: scan throughput, anomaly counts by type, upstream
// fetches, cache efficiency and API latency.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Engine metrics
	PointsNormalized = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "track_points_normalized_total",
			Help: "Total raw records normalized into track points",
		},
	)

	PointsExcluded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "track_points_excluded_total",
			Help: "Raw records excluded during normalization",
		},
		[]string{"reason"}, // missing_coordinates, unparseable_timestamp
	)

	AnomaliesDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "track_anomalies_detected_total",
			Help: "Anomalies detected by the pairwise scan",
		},
		[]string{"type", "profile"},
	)

	ScanDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "track_scan_duration_seconds",
			Help:    "Duration of anomaly scans in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"profile"},
	)

	SegmentsBuilt = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "track_segments_built_total",
			Help: "Quality segments produced by analysis passes",
		},
	)

	// Upstream source metrics
	SourceFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_fetches_total",
			Help: "Upstream track batch fetches by outcome",
		},
		[]string{"outcome"}, // ok, error, breaker_open
	)

	SourceFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "source_fetch_duration_seconds",
			Help:    "Duration of upstream fetches in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Report cache metrics
	ReportCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "report_cache_hits_total",
			Help: "Analysis report cache hits",
		},
	)

	ReportCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "report_cache_misses_total",
			Help: "Analysis report cache misses",
		},
	)

	// API metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	// WebSocket metrics
	WebSocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_clients",
			Help: "Currently connected websocket clients",
		},
	)

	WebSocketBroadcasts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_broadcasts_total",
			Help: "Messages broadcast to websocket clients",
		},
		[]string{"message_type"},
	)
)

// RecordAPIRequest records one completed API request.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordScan records one completed anomaly scan.
func RecordScan(profile string, duration time.Duration, byType map[string]int) {
	ScanDuration.WithLabelValues(profile).Observe(duration.Seconds())
	for typ, n := range byType {
		AnomaliesDetected.WithLabelValues(typ, profile).Add(float64(n))
	}
}
