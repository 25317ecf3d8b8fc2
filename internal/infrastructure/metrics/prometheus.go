// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every tubefeed metric.
const Namespace = "tubefeed"

var (
	// CacheOperationsTotal tracks handle directory operations (get, set).
	// Labels:
	//   - operation: get, set
	//   - status: hit, miss, success, error
	//   - cache_type: redis, memory
	CacheOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "cache_operations_total",
			Help:      "Total number of cache operations",
		},
		[]string{"operation", "status", "cache_type"},
	)

	// FeedCacheRequestsTotal tracks how feed cache lookups were satisfied.
	// Labels:
	//   - result: hit (fresh value), initiated (new pipeline run), shared (joined a run)
	FeedCacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "feed_cache_requests_total",
			Help:      "Total number of feed cache lookups by outcome",
		},
		[]string{"result"},
	)

	// FeedCacheEntries is the number of keys tracked by the feed cache after the last sweep.
	FeedCacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "feed_cache_entries",
			Help:      "Number of channel keys held by the feed cache",
		},
	)

	// UpstreamRequestsTotal tracks calls to upstream collaborators.
	// Labels:
	//   - source: extraction, feed, dearrow
	//   - result: success, not_found, network_error, parse_error
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "upstream_requests_total",
			Help:      "Total number of upstream requests",
		},
		[]string{"source", "result"},
	)

	// PipelineDuration observes full fetch+reconcile pipeline runs.
	// Labels:
	//   - mode: sequential (handle), concurrent (stable id)
	PipelineDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "Duration of channel fetch and reconcile pipeline runs",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	// RenderTasksTotal tracks worker render task outcomes.
	// Labels:
	//   - result: ready, retry, failed
	RenderTasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "render_tasks_total",
			Help:      "Total number of processed render tasks",
		},
		[]string{"result"},
	)
)

// Cache operation status constants.
const (
	CacheStatusHit     = "hit"
	CacheStatusMiss    = "miss"
	CacheStatusSuccess = "success"
	CacheStatusError   = "error"
)

// Cache operation type constants.
const (
	CacheOpGet = "get"
	CacheOpSet = "set"
)

// Cache type constants.
const (
	CacheTypeRedis  = "redis"
	CacheTypeMemory = "memory"
)

// Upstream source constants.
const (
	SourceExtraction = "extraction"
	SourceFeed       = "feed"
	SourceDeArrow    = "dearrow"
)

// Upstream result constants.
const (
	UpstreamSuccess      = "success"
	UpstreamNotFound     = "not_found"
	UpstreamNetworkError = "network_error"
	UpstreamParseError   = "parse_error"
)

// Pipeline mode constants.
const (
	PipelineSequential = "sequential"
	PipelineConcurrent = "concurrent"
)

// Render task result constants.
const (
	RenderReady  = "ready"
	RenderRetry  = "retry"
	RenderFailed = "failed"
)
