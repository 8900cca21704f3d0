package cryptogauge

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	gaugeFetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cryptogauge",
		Subsystem: "upstream",
		Name:      "fetch_total",
		Help:      "Total number of gauge data fetches by outcome.",
	}, []string{"status"})

	gaugeFetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "cryptogauge",
		Subsystem: "upstream",
		Name:      "fetch_duration_seconds",
		Help:      "Duration of gauge data fetches in seconds.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	})

	gaugeRendersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cryptogauge",
		Subsystem: "widget",
		Name:      "renders_total",
		Help:      "Total number of charts mounted by variant.",
	}, []string{"variant"})

	gaugeStaleResultsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cryptogauge",
		Subsystem: "widget",
		Name:      "stale_results_total",
		Help:      "Fetch results discarded because a newer update was issued.",
	})
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cryptogauge",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"method", "path", "status_code"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "cryptogauge",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})
)

func withRequestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		// The mux fills in the matched pattern, which keeps the label cardinality low
		pattern := r.Pattern
		if pattern == "" {
			pattern = "unknown"
		}

		httpRequestsTotal.WithLabelValues(r.Method, pattern, strconv.Itoa(recorder.status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, pattern).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}
