// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics defines Prometheus collectors for each pipeline stage.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "market_research"

var (
	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Search provider calls by provider and status",
		},
		[]string{"provider", "status"},
	)

	FetchAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_attempts_total",
			Help:      "Page fetch attempts by status",
		},
		[]string{"status"}, // success, retryable, fatal, cache_hit
	)

	DocumentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_total",
			Help:      "Fetched pages by cleaning outcome",
		},
		[]string{"result"}, // accepted, too_short, duplicate, failed
	)

	GenerationCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_calls_total",
			Help:      "Text generation calls by prompt category and status",
		},
		[]string{"category", "status"},
	)

	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed pipeline runs by outcome",
		},
		[]string{"outcome"},
	)

	RunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "End-to-end pipeline run duration in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)
)

var registerOnce sync.Once

// Register registers all collectors with the default registry. Must be called
// once from main; later calls are no-ops.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			QueriesTotal,
			FetchAttemptsTotal,
			DocumentsTotal,
			GenerationCallsTotal,
			RunsTotal,
			RunDuration,
			HTTPRequestsTotal,
			HTTPRequestDuration,
		)
	})
}
