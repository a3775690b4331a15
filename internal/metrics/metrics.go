// Package metrics exposes the Prometheus counters archivecore's serve
// command reports on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the counters and histograms for one archivecore process.
// A single Metrics is built at startup and shared by every request.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RewriteErrors    *prometheus.CounterVec
	BytesIn          prometheus.Counter
	BytesOut         prometheus.Counter
	RateLimitDropped prometheus.Counter
}

// New registers and returns the archivecore metric set under namespace.
func New(namespace string) *Metrics {
	return &Metrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total rewrite requests handled, by content class and outcome.",
			},
			[]string{"class", "outcome"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Time to rewrite one response body.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"class"},
		),
		RewriteErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rewrite_errors_total",
				Help:      "Rewrite failures, by content class.",
			},
			[]string{"class"},
		),
		BytesIn: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_in_total",
			Help:      "Bytes of response body read for rewriting.",
		}),
		BytesOut: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_out_total",
			Help:      "Bytes of rewritten response body written.",
		}),
		RateLimitDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_dropped_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
	}
}

// Observe records one completed rewrite.
func (m *Metrics) Observe(class, outcome string, d time.Duration, in, out int) {
	m.RequestsTotal.WithLabelValues(class, outcome).Inc()
	m.RequestDuration.WithLabelValues(class).Observe(d.Seconds())
	if outcome != "ok" {
		m.RewriteErrors.WithLabelValues(class).Inc()
	}
	m.BytesIn.Add(float64(in))
	m.BytesOut.Add(float64(out))
}
