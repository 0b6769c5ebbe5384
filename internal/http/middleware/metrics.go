package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// unmatchedRoute labels requests that matched no route, so scanners probing
// random URLs cannot grow the series count.
const unmatchedRoute = "unmatched"

// httpMetrics holds the HTTP collectors. Labels use the route pattern
// (/gists/:id), never the raw URL, so gist ids and usernames stay out of
// the series set.
type httpMetrics struct {
	requests *prometheus.CounterVec   // method, route, status
	duration *prometheus.HistogramVec // method, route
	size     *prometheus.HistogramVec // method, route
	inflight prometheus.Gauge
}

func newHTTPMetrics(reg prometheus.Registerer) *httpMetrics {
	f := promauto.With(reg)
	return &httpMetrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		// Favorites listings wait on GitHub fan-out, hence the long tail.
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 20},
		}, []string{"method", "route"}),
		// A single gist is ~1KiB of metadata; a full favorites page can reach MiBs.
		size: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "Size of HTTP responses in bytes.",
			Buckets: prometheus.ExponentialBuckets(256, 4, 8),
		}, []string{"method", "route"}),
		inflight: f.NewGauge(prometheus.GaugeOpts{
			Name: "http_requests_inflight",
			Help: "Current number of in-flight HTTP requests.",
		}),
	}
}

var defaultHTTPMetrics = newHTTPMetrics(prometheus.DefaultRegisterer)

// Metrics instruments requests into the default Prometheus registry, which
// the router serves at /metrics.
func Metrics() gin.HandlerFunc { return defaultHTTPMetrics.handler() }

func (m *httpMetrics) handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		m.inflight.Inc()
		defer m.inflight.Dec()
		start := time.Now()

		c.Next()

		route := routeLabel(c)
		method := c.Request.Method
		m.requests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		// -1 means no body was written.
		if n := c.Writer.Size(); n >= 0 {
			m.size.WithLabelValues(method, route).Observe(float64(n))
		}
	}
}

func routeLabel(c *gin.Context) string {
	if r := c.FullPath(); r != "" {
		return r
	}
	return unmatchedRoute
}
