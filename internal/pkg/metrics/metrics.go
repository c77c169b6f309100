package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timepay_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "timepay_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// AttendanceTransitions counts lifecycle actions by name (clock_in, clock_out, adjust, approve, revoke).
	AttendanceTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timepay_attendance_transitions_total",
			Help: "Attendance lifecycle transitions.",
		},
		[]string{"action"},
	)

	// ReconcileRecords counts records touched by the overtime reconciliation job by outcome.
	ReconcileRecords = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timepay_overtime_reconcile_records_total",
			Help: "Attendance records processed by overtime reconciliation.",
		},
		[]string{"outcome"},
	)

	// JobDuration tracks batch job latency by job name.
	JobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "timepay_job_duration_seconds",
			Help:    "Batch job duration in seconds.",
			Buckets: []float64{.05, .1, .5, 1, 5, 15, 60, 300},
		},
		[]string{"job"},
	)

	// PayrollRecords counts payroll records touched by runs, by outcome (created, updated, removed, failed).
	PayrollRecords = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timepay_payroll_records_total",
			Help: "Payroll records written by payroll runs.",
		},
		[]string{"outcome"},
	)

	// ScheduledRuns counts scheduler ticks by job and outcome (ok, error, panic).
	ScheduledRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timepay_scheduled_job_runs_total",
			Help: "Scheduled job executions.",
		},
		[]string{"job", "outcome"},
	)

	// StreamSubscribers is the number of open notification streams.
	StreamSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "timepay_notification_stream_subscribers",
			Help: "Open Server-Sent Events notification streams.",
		},
	)
)

// Init registers the collectors in the default registry. Call once from main.
func Init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		AttendanceTransitions,
		ReconcileRecords,
		JobDuration,
		PayrollRecords,
		ScheduledRuns,
		StreamSubscribers,
	)
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveJob records the duration since start for job.
func ObserveJob(job string, start time.Time) {
	JobDuration.WithLabelValues(job).Observe(time.Since(start).Seconds())
}

// Instrument records request count and latency labelled by the chi route pattern.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(sw.code)).Inc()
	})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush keeps SSE streaming working through the wrapper.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
