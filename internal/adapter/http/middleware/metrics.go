package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels group responses the way the storefront cares about them.
const (
	OutcomeOK        = "ok"
	OutcomeRejected  = "rejected"  // 4xx other than throttling
	OutcomeThrottled = "throttled" // 429 from the purchase limiter
	OutcomeFailed    = "failed"    // 5xx
)

const unmatchedRoute = "unmatched"

var (
	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route template, status and outcome",
		},
		[]string{"method", "route", "status", "outcome"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_ms",
			Help:    "Duration of HTTP requests in ms",
			Buckets: []float64{5, 10, 25, 50, 100, 200, 400, 800, 1600, 5000, 15000},
		},
		[]string{"method", "route", "outcome"},
	)

	httpInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Requests currently being served, by route template",
		},
		[]string{"route"},
	)
)

// Outcome classifies a response status.
func Outcome(status int) string {
	switch {
	case status == http.StatusTooManyRequests:
		return OutcomeThrottled
	case status >= 500:
		return OutcomeFailed
	case status >= 400:
		return OutcomeRejected
	default:
		return OutcomeOK
	}
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// raw paths carry ids; keep the label set bounded
		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		inFlight := httpInFlight.WithLabelValues(route)
		inFlight.Inc()
		defer inFlight.Dec()

		start := time.Now()
		c.Next()
		duration := float64(time.Since(start).Milliseconds())

		status := c.Writer.Status()
		outcome := Outcome(status)
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(status), outcome).Inc()
		httpDuration.WithLabelValues(c.Request.Method, route, outcome).Observe(duration)
	}
}
