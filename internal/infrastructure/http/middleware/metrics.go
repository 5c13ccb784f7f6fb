package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lifemanager_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	timersSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lifemanager_timers_submitted_total",
			Help: "Total timers finalized into work-time entries",
		},
	)
	recurringInstancesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lifemanager_recurring_instances_created_total",
			Help: "Total cashflow instances materialized by the expander",
		},
	)
)

// PrometheusMiddleware records request duration.
func PrometheusMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		duration := time.Since(start).Seconds()
		status := strconv.Itoa(ww.Status())
		path := r.URL.Path
		if path == "" {
			path = "/"
		}
		httpRequestDuration.WithLabelValues(r.Method, path, status).Observe(duration)
	})
}

// RegisterRunningTimersGauge exposes the live timer count. The callback reads
// the registry under its own lock, so registration must happen after the
// manager exists.
func RegisterRunningTimersGauge(count func() int) {
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "lifemanager_running_timers",
		Help: "Timers currently in the running state",
	}, func() float64 { return float64(count()) })
}

// RecordTimerSubmitted increments the submitted-timer counter.
func RecordTimerSubmitted() { timersSubmitted.Inc() }

// RecordRecurringInstances adds to the materialized-instance counter.
func RecordRecurringInstances(n int) {
	if n > 0 {
		recurringInstancesCreated.Add(float64(n))
	}
}
