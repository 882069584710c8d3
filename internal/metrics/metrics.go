// Package metrics defines Prometheus metrics for cbdbnet.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cbdbnet_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cbdbnet_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cbdbnet_errors_total",
			Help: "Total errors by type",
		},
		[]string{"type"},
	)

	WSConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cbdbnet_websocket_connections",
			Help: "Active WebSocket connections",
		},
	)

	DBQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cbdbnet_db_query_duration_seconds",
			Help:    "Relation store query duration in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"query"},
	)

	NetworkExploreDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cbdbnet_network_explore_duration_seconds",
			Help:    "Network exploration duration in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"kind"},
	)

	NetworkNodes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cbdbnet_network_nodes",
			Help:    "Persons per explored network",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	CacheRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cbdbnet_cache_requests_total",
			Help: "Network result cache lookups by result",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestDuration, RequestsTotal, ErrorsTotal,
		WSConnections, DBQueryDuration,
		NetworkExploreDuration, NetworkNodes, CacheRequestsTotal,
	)
}
