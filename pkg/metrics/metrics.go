package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "learnlink", Name: "http_requests_total", Help: "HTTP requests by method, route and status."},
		[]string{"method", "route", "status"},
	)
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: "learnlink", Name: "http_request_duration_seconds", Help: "HTTP request latency by route.", Buckets: prometheus.DefBuckets},
		[]string{"route"},
	)
	Generations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "learnlink", Name: "generation_total", Help: "Content generations by variant and outcome."},
		[]string{"variant", "outcome"},
	)
	ExtractionFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "learnlink", Name: "extraction_failures_total", Help: "Text extraction failures by file format."},
		[]string{"format"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "learnlink", Name: "rate_limit_rejected_total", Help: "Requests rejected by the rate limiter."},
		[]string{"route"},
	)
)

var registerOnce sync.Once

// RegisterCollectors registers all collectors with reg. Later calls are no-ops.
func RegisterCollectors(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		reg.MustRegister(HTTPRequests, HTTPDuration, Generations, ExtractionFailures, RateLimitRejected)
	})
}
