// Package observability holds the process-wide Prometheus collectors of the API.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	recordPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "intensity",
		Subsystem: "persistence",
		Name:      "last_record_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent record write committed to Postgres.",
	})
	statisticsDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "intensity",
		Subsystem: "statistics",
		Name:      "compute_duration_seconds",
		Help:      "Time spent aggregating records into a period report.",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
	}, []string{"period"})
	cacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "intensity",
		Subsystem: "statistics",
		Name:      "cache_lookups_total",
		Help:      "Summary cache lookups labeled by result (hit or miss).",
	}, []string{"result"})
	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "intensity",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests served, labeled by method and status code.",
	}, []string{"method", "code"})
	httpPanics = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "intensity",
		Subsystem: "http",
		Name:      "panics_total",
		Help:      "Handler panics recovered by the HTTP server.",
	})
)

func init() {
	prometheus.MustRegister(recordPersistGauge, statisticsDuration, cacheLookups, httpRequests, httpPanics)
}

// RecordPersisted updates the persistence watermark gauge.
func RecordPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	recordPersistGauge.Set(float64(ts.Unix()))
}

// ObserveStatisticsComputed records the duration of one report computation.
func ObserveStatisticsComputed(period string, elapsed time.Duration) {
	statisticsDuration.WithLabelValues(period).Observe(elapsed.Seconds())
}

// RecordCacheLookup counts a summary cache hit or miss.
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookups.WithLabelValues(result).Inc()
}

// CacheLookups exposes the lookup counter for assertions.
func CacheLookups(result string) prometheus.Counter {
	return cacheLookups.WithLabelValues(result)
}

// RecordRequest counts a served HTTP request.
func RecordRequest(method string, status int) {
	httpRequests.WithLabelValues(method, statusText(status)).Inc()
}

// RequestCount exposes the request counter for assertions.
func RequestCount(method string, status int) prometheus.Counter {
	return httpRequests.WithLabelValues(method, statusText(status))
}

// RecordPanic counts a recovered handler panic.
func RecordPanic() {
	httpPanics.Inc()
}

// Panics exposes the panic counter for assertions.
func Panics() prometheus.Counter {
	return httpPanics
}

func statusText(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
