package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Processing metrics
	FilesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleet_files_processed_total",
			Help: "Total number of telemetry exports processed",
		},
		[]string{"equipment", "status"},
	)

	RowsRead = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleet_rows_read_total",
			Help: "Total number of data rows read from exports",
		},
		[]string{"equipment"},
	)

	RowsExcluded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleet_rows_excluded_total",
			Help: "Total number of rows dropped by the operation exclusions",
		},
		[]string{"equipment"},
	)

	RowsSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleet_rows_skipped_total",
			Help: "Total number of unparseable or invalid rows",
		},
		[]string{"equipment"},
	)

	ProcessingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fleet_processing_duration_seconds",
			Help:    "Duration of file processing in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"equipment"},
	)

	// Store metrics
	StoreUpserts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleet_store_upserts_total",
			Help: "Total number of daily records upserted",
		},
		[]string{"status"},
	)

	// HTTP metrics
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleet_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fleet_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

var registerOnce sync.Once

// Register registers all metrics with Prometheus. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			FilesProcessed,
			RowsRead,
			RowsExcluded,
			RowsSkipped,
			ProcessingDuration,
			StoreUpserts,
			HTTPRequestsTotal,
			HTTPRequestDuration,
		)
	})
}

// Handler returns the Prometheus metrics handler
func Handler() http.Handler {
	Register()
	return promhttp.Handler()
}

// RecordFile records the outcome of one processed file
func RecordFile(equipment, status string, duration time.Duration) {
	FilesProcessed.WithLabelValues(equipment, status).Inc()
	ProcessingDuration.WithLabelValues(equipment).Observe(duration.Seconds())
}

// RecordRows records the row counters of one parsed file
func RecordRows(equipment string, read, excluded, skipped int) {
	RowsRead.WithLabelValues(equipment).Add(float64(read))
	RowsExcluded.WithLabelValues(equipment).Add(float64(excluded))
	RowsSkipped.WithLabelValues(equipment).Add(float64(skipped))
}

// RecordUpserts records store upserts
func RecordUpserts(status string, n int) {
	StoreUpserts.WithLabelValues(status).Add(float64(n))
}

// Middleware collects HTTP metrics labelled by route template
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a wrapper to capture status code
		wrapper := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}

		HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(wrapper.statusCode)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
