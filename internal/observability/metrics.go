package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics mengumpulkan metrik Prometheus untuk HTTP dan hasil analisis invoice.
type Metrics struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	verdictsTotal    *prometheus.CounterVec
	duplicatesTotal  prometheus.Counter
	analysisDuration prometheus.Histogram
}

// NewMetrics menginisialisasi registry dan metrik dasar.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "invoiceguard_http_requests_total",
		Help: "Jumlah permintaan HTTP berdasarkan route dan status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "invoiceguard_http_request_duration_seconds",
		Help:    "Durasi permintaan HTTP per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	verdicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "invoiceguard_verdicts_total",
		Help: "Jumlah invoice yang dianalisis berdasarkan tier risiko dan tindakan.",
	}, []string{"tier", "action"})
	duplicates := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "invoiceguard_duplicates_total",
		Help: "Jumlah invoice yang terkonfirmasi duplikat.",
	})
	analysis := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "invoiceguard_analysis_duration_seconds",
		Help:    "Durasi analisis satu invoice.",
		Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
	})
	registry.MustRegister(requests, duration, verdicts, duplicates, analysis)
	return &Metrics{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:    requests,
		requestDuration:  duration,
		verdictsTotal:    verdicts,
		duplicatesTotal:  duplicates,
		analysisDuration: analysis,
	}
}

// Handler mengembalikan http.Handler untuk endpoint /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware mencatat metrik untuk setiap permintaan HTTP.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveAnalysis mencatat verdict satu invoice. Durasi nol tidak diobservasi
// (dipakai oleh batch yang mengukur durasi secara agregat).
func (m *Metrics) ObserveAnalysis(tier, action string, duplicate bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.verdictsTotal.WithLabelValues(tier, action).Inc()
	if duplicate {
		m.duplicatesTotal.Inc()
	}
	if elapsed > 0 {
		m.analysisDuration.Observe(elapsed.Seconds())
	}
}

// Registerer mengekspos registry untuk pendaftaran metrik khusus.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
