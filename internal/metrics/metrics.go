// EWM Stats - Event Similarity and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ewm-stats

// Package metrics registers the Prometheus collectors for the ingestion
// pipelines, the similarity engine, the stores and the query surfaces.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Stream metrics, labelled by consumer (aggregator, analyzer-actions, ...)
	// or by subject for publishes.
	RecordsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ewm_stream_records_published_total",
			Help: "Records published to the stream, by subject",
		},
		[]string{"subject"},
	)

	RecordsPublishFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ewm_stream_records_publish_failed_total",
			Help: "Records that could not be published, by subject",
		},
		[]string{"subject"},
	)

	RecordsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ewm_stream_records_consumed_total",
			Help: "Records fetched from the stream",
		},
		[]string{"consumer"},
	)

	RecordsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ewm_stream_records_processed_total",
			Help: "Records handled successfully",
		},
		[]string{"consumer"},
	)

	RecordsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ewm_stream_records_skipped_total",
			Help: "Records skipped because they could not be decoded",
		},
		[]string{"consumer"},
	)

	RecordsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ewm_stream_records_failed_total",
			Help: "Records whose handler failed and were left unacknowledged",
		},
		[]string{"consumer"},
	)

	ProcessingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ewm_stream_processing_duration_seconds",
			Help:    "Time spent handling one record",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"consumer"},
	)

	Commits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ewm_stream_commits_total",
			Help: "Acknowledgement flushes by mode (async, sync) and result",
		},
		[]string{"consumer", "mode", "result"},
	)

	// Similarity engine
	SimilarityEvents = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ewm_similarity_events",
		Help: "Events with at least one interaction in the in-memory model",
	})

	SimilarityPairs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ewm_similarity_pairs",
		Help: "Event pairs with a co-weight accumulator",
	})

	SimilarityEdgesEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ewm_similarity_edges_emitted_total",
		Help: "Similarity edge updates produced by the engine",
	})

	WeightUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ewm_weight_updates_total",
			Help: "Offered weight updates by store and outcome (raised, ignored)",
		},
		[]string{"store", "outcome"},
	)

	// Stores
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ewm_db_query_duration_seconds",
			Help:    "Duration of store queries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ewm_db_query_errors_total",
			Help: "Store query errors",
		},
		[]string{"operation", "table", "error_type"},
	)

	// Query surfaces
	QueryRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ewm_query_requests_total",
			Help: "Requests served by transport, method and status",
		},
		[]string{"transport", "method", "status"},
	)

	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ewm_query_duration_seconds",
			Help:    "Request latency by transport and method",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"transport", "method"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ewm_circuit_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
		[]string{"name"},
	)
)

// RecordDBQuery observes a store query and counts failures, keeping the
// error label short.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		errorType := err.Error()
		if len(errorType) > 50 {
			errorType = errorType[:50]
		}
		DBQueryErrors.WithLabelValues(operation, table, errorType).Inc()
	}
}

// RecordQuery counts and times one RPC or HTTP request.
func RecordQuery(transport, method, status string, duration time.Duration) {
	QueryRequests.WithLabelValues(transport, method, status).Inc()
	QueryDuration.WithLabelValues(transport, method).Observe(duration.Seconds())
}

func RecordPublish(subject string, err error) {
	if err != nil {
		RecordsPublishFailed.WithLabelValues(subject).Inc()
		return
	}
	RecordsPublished.WithLabelValues(subject).Inc()
}

func RecordCommit(consumer, mode string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	Commits.WithLabelValues(consumer, mode, result).Inc()
}

// RecordWeightUpdate counts one offered weight by whether it raised the stored value.
func RecordWeightUpdate(store string, changed bool) {
	outcome := "ignored"
	if changed {
		outcome = "raised"
	}
	WeightUpdates.WithLabelValues(store, outcome).Inc()
}
