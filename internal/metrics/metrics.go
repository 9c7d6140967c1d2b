package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "surfsup_http_requests_total",
			Help: "Total HTTP requests served",
		},
		[]string{"route", "status"},
	)

	HTTPRequestLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "surfsup_http_request_latency_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	StoreQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "surfsup_store_queries_total",
			Help: "Total data source queries",
		},
		[]string{"query", "status"},
	)

	StoreQueryLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "surfsup_store_query_latency_seconds",
			Help:    "Data source query latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query"},
	)

	StoreRowsReturned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "surfsup_store_rows_returned_total",
			Help: "Total measurement rows read from the data source",
		},
		[]string{"query"},
	)

	// BreakerState is 0 closed, 1 half-open, 2 open.
	BreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "surfsup_store_breaker_state",
			Help: "Data source circuit breaker state",
		},
	)

	DatasetRowsLoaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "surfsup_dataset_rows_loaded_total",
			Help: "Total rows written by the dataset loader",
		},
		[]string{"table"},
	)
)
