package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UpstreamCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homedash_upstream_calls_total",
			Help: "Total upstream API calls by source and outcome",
		},
		[]string{"source", "status"},
	)

	UpstreamLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "homedash_upstream_latency_seconds",
			Help:    "Upstream API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homedash_cache_lookups_total",
			Help: "View model cache lookups by result",
		},
		[]string{"result"},
	)

	FetchCycles = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "homedash_fetch_cycles_total",
			Help: "Total fetch cycles run against upstream sources",
		},
	)

	FetchCycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "homedash_fetch_cycle_duration_seconds",
			Help:    "Wall time of a complete fetch cycle in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	SourceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homedash_source_failures_total",
			Help: "Sources recorded as unavailable in a built view model",
		},
		[]string{"source"},
	)
)
