// CineMate - Movie Recommendation Serving and Retraining
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinemate

// Package metrics provides Prometheus instrumentation for CineMate:
// API endpoint latency and throughput, snapshot lifecycle, and retrain
// pipeline outcomes. Exposed via the /metrics endpoint.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API endpoint metrics
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
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "endpoint"},
	)

	// Snapshot lifecycle metrics
	SnapshotVersion = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "snapshot_version",
			Help: "Version of the currently served model snapshot",
		},
	)

	SnapshotReloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapshot_reloads_total",
			Help: "Total number of snapshot reload attempts",
		},
		[]string{"result"}, // "success", "failure", "unchanged"
	)

	SnapshotMovies = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "snapshot_movies",
			Help: "Number of movies in the current similarity index",
		},
	)

	// Retrain pipeline metrics
	RetrainRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retrain_runs_total",
			Help: "Total number of retrain pipeline runs by outcome",
		},
		[]string{"outcome"}, // "published", "skipped", "failed"
	)

	RetrainDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "retrain_duration_seconds",
			Help:    "Duration of complete retrain runs in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		},
	)

	// Data extraction metrics
	DBExtractDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_extract_duration_seconds",
			Help:    "Duration of training data extraction queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"table"},
	)
)

// RecordAPIRequest records one completed API request.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordExtract records the duration of one extraction query.
func RecordExtract(table string, duration time.Duration) {
	DBExtractDuration.WithLabelValues(table).Observe(duration.Seconds())
}
