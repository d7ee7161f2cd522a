package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "charityfund",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "charityfund",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	sweeps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "charityfund",
			Subsystem: "allocation",
			Name:      "sweeps_total",
			Help:      "Total number of allocation sweeps by outcome.",
		},
		[]string{"status"},
	)

	transfers = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "charityfund",
			Subsystem: "allocation",
			Name:      "transfers_total",
			Help:      "Total number of donation to project transfers committed.",
		},
	)

	allocatedAmount = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "charityfund",
			Subsystem: "allocation",
			Name:      "allocated_amount_total",
			Help:      "Total amount moved from donations into projects.",
		},
	)

	sweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "charityfund",
			Subsystem: "allocation",
			Name:      "sweep_duration_seconds",
			Help:      "Duration of allocation sweeps including the commit.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
	)
)

// Sweep outcome labels.
const (
	SweepCommitted = "committed"
	SweepNoop      = "noop"
	SweepConflict  = "conflict"
	SweepFailed    = "failed"
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		sweeps,
		transfers,
		allocatedAmount,
		sweepDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordSweep records the outcome of one allocation sweep.
func RecordSweep(status string, transferCount int, amount int64, duration time.Duration) {
	sweeps.WithLabelValues(status).Inc()
	sweepDuration.Observe(duration.Seconds())
	if status == SweepCommitted {
		transfers.Add(float64(transferCount))
		allocatedAmount.Add(float64(amount))
	}
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
// Paths are labelled with the chi route pattern to keep cardinality bounded.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r)

		path := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
