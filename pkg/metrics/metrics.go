// Package metrics provides performance tracking for wpbridge using
// Prometheus metrics. Collectors cover paginated retrieval, record
// normalization and the asset download pipeline.
//
// Example usage:
//
//	metrics.PagesFetched.WithLabelValues("posts", "success").Inc()
//	metrics.AssetDownloads.WithLabelValues("completed").Inc()
//
//	timer := prometheus.NewTimer(metrics.FetchLatency.WithLabelValues("posts"))
//	defer timer.ObserveDuration()
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PagesFetched tracks collection page fetches.
	// Labels: path (collection path), status (success/failure/empty)
	PagesFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wpbridge_pages_fetched_total",
			Help: "Total number of collection pages fetched",
		},
		[]string{"path", "status"},
	)

	// RecordsFetched tracks raw records returned by the API per collection path.
	RecordsFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wpbridge_records_fetched_total",
			Help: "Total number of raw records returned by the API",
		},
		[]string{"path"},
	)

	// RecordsNormalized tracks records turned into canonical nodes.
	// Labels: entity_type (canonical entity type name)
	RecordsNormalized = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wpbridge_records_normalized_total",
			Help: "Total number of records normalized into nodes",
		},
		[]string{"entity_type"},
	)

	// ReferencesCreated tracks typed references produced by normalization.
	// Labels: target_type (canonical entity type name of the target)
	ReferencesCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wpbridge_references_created_total",
			Help: "Total number of typed references created",
		},
		[]string{"target_type"},
	)

	// AssetDownloads tracks asset download outcomes.
	// Labels: status (started/completed/failed/cached/deduped)
	AssetDownloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wpbridge_asset_downloads_total",
			Help: "Total number of asset download requests by outcome",
		},
		[]string{"status"},
	)

	// AssetBytes tracks bytes written into the download directory.
	AssetBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wpbridge_asset_bytes_total",
			Help: "Total bytes of asset data written locally",
		},
	)

	// FetchLatency tracks the distribution of page fetch latencies in seconds.
	// Labels: path (collection path)
	FetchLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wpbridge_fetch_latency_seconds",
			Help:    "Latency distribution of collection page fetches",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)
)
