package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests by method, route and status.",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	generationStartedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "generation_started_total",
		Help: "Total AI generations started by kind.",
	}, []string{"kind"})

	generationCompletedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "generation_completed_total",
		Help: "Total AI generations completed by kind.",
	}, []string{"kind"})

	generationFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "generation_failed_total",
		Help: "Total AI generations failed by kind and error code.",
	}, []string{"kind", "code"})

	generationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "generation_duration_seconds",
		Help:    "End-to-end AI generation duration by kind.",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	}, []string{"kind"})

	aiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ai_requests_total",
		Help: "Total upstream model API calls by outcome.",
	}, []string{"outcome"})

	aiThrottleWaits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ai_throttle_waits_total",
		Help: "Times an upstream call waited on the request-rate window.",
	})

	extractionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "document_extractions_total",
		Help: "Total document text extractions by kind and outcome.",
	}, []string{"kind", "outcome"})
)

// IncGenerationStarted increments the started counter for a generation kind.
func IncGenerationStarted(kind string) {
	generationStartedTotal.WithLabelValues(kind).Inc()
}

// IncGenerationCompleted increments the completed counter for a generation kind.
func IncGenerationCompleted(kind string) {
	generationCompletedTotal.WithLabelValues(kind).Inc()
}

// IncGenerationFailed increments the failed counter for a kind and error code.
func IncGenerationFailed(kind, code string) {
	generationFailedTotal.WithLabelValues(kind, code).Inc()
}

// ObserveGenerationDuration records an end-to-end generation duration.
func ObserveGenerationDuration(kind string, d time.Duration) {
	if d < 0 {
		d = 0
	}
	generationDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// IncAIRequest counts one upstream model call. Outcome is ok, rate_limited,
// timeout or error.
func IncAIRequest(outcome string) {
	aiRequestsTotal.WithLabelValues(outcome).Inc()
}

// IncAIThrottleWait counts one wait imposed by the request-rate window.
func IncAIThrottleWait() {
	aiThrottleWaits.Inc()
}

// IncExtraction counts one extraction attempt for a document kind.
func IncExtraction(kind, outcome string) {
	extractionTotal.WithLabelValues(kind, outcome).Inc()
}

// Middleware records request counts and latency per route. Uses the route
// template, not the raw path, to keep label cardinality bounded.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
