package github

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// upstreamReqs counts GitHub calls by operation and outcome
	// (ok, not_found, unavailable, error).
	upstreamReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gist_upstream_requests_total",
			Help: "Total number of GitHub API requests by operation and outcome.",
		},
		[]string{"op", "outcome"},
	)

	// upstreamLat records GitHub call duration in seconds by operation.
	upstreamLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gist_upstream_request_duration_seconds",
			Help:    "Duration of GitHub API requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
)

func init() {
	prometheus.MustRegister(upstreamReqs, upstreamLat)
}

func observe(op string, start time.Time, err error) {
	upstreamReqs.WithLabelValues(op, outcome(err)).Inc()
	upstreamLat.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
