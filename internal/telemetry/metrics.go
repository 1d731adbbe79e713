// Package telemetry provides observability primitives for papertrail.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus collectors for papertrail.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	ActiveRequests   prometheus.Gauge
	UpstreamDuration *prometheus.HistogramVec
	UpstreamErrors   *prometheus.CounterVec
	CacheHits        *prometheus.CounterVec
	CacheMisses      *prometheus.CounterVec
	CacheEvictions   prometheus.Counter
	CacheEntries     prometheus.Gauge
	ProducerErrors   *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "papertrail",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:                       "papertrail",
			Name:                            "request_duration_seconds",
			Help:                            "HTTP request duration in seconds.",
			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  100,
			NativeHistogramMinResetDuration: 0,
		}, []string{"method", "path"}),

		ActiveRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "papertrail",
			Name:      "active_requests",
			Help:      "Number of currently active requests.",
		}),

		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:                       "papertrail",
			Name:                            "upstream_duration_seconds",
			Help:                            "Upstream API call duration in seconds.",
			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  100,
			NativeHistogramMinResetDuration: 0,
		}, []string{"service", "operation"}),

		UpstreamErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "papertrail",
			Name:      "upstream_errors_total",
			Help:      "Total upstream API errors.",
		}, []string{"service", "status"}),

		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "papertrail",
			Name:      "cache_hits_total",
			Help:      "Total response cache hits by key prefix.",
		}, []string{"prefix"}),

		CacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "papertrail",
			Name:      "cache_misses_total",
			Help:      "Total response cache misses by key prefix.",
		}, []string{"prefix"}),

		CacheEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "papertrail",
			Name:      "cache_evictions_total",
			Help:      "Total least-recently-used evictions.",
		}),

		CacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "papertrail",
			Name:      "cache_entries",
			Help:      "Current number of cache entries.",
		}),

		ProducerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "papertrail",
			Name:      "cache_producer_errors_total",
			Help:      "Total failed producer calls by key prefix.",
		}, []string{"prefix"}),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.ActiveRequests,
		m.UpstreamDuration,
		m.UpstreamErrors,
		m.CacheHits,
		m.CacheMisses,
		m.CacheEvictions,
		m.CacheEntries,
		m.ProducerErrors,
	)

	return m
}
