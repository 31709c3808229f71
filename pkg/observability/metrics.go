package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics of the authentication hook.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Login pipeline metrics
	LoginsTotal              *prometheus.CounterVec // outcome: ok, ambiguity, denied, error
	AccountsProvisioned      *prometheus.CounterVec // action: create, update
	CourseAssignmentsTotal   *prometheus.CounterVec // role: student, evaluation, appr
	PendingSelectionsTotal   prometheus.Counter
	WaitingListRequestsTotal prometheus.Counter
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	m := &Metrics{
		registry: registry,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vhbshib_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vhbshib_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		LoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vhbshib_logins_total",
				Help: "Total number of processed federated logins",
			},
			[]string{"outcome"},
		),
		AccountsProvisioned: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vhbshib_accounts_provisioned_total",
				Help: "Total number of created or updated accounts",
			},
			[]string{"action"},
		),
		CourseAssignmentsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vhbshib_course_assignments_total",
				Help: "Total number of course memberships and role assignments",
			},
			[]string{"role"},
		),
		PendingSelectionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "vhbshib_pending_selections_total",
				Help: "Total number of deferred course selections",
			},
		),
		WaitingListRequestsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "vhbshib_waiting_list_requests_total",
				Help: "Total number of filed waiting list requests",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.LoginsTotal,
		m.AccountsProvisioned,
		m.CourseAssignmentsTotal,
		m.PendingSelectionsTotal,
		m.WaitingListRequestsTotal,
	)
	return m
}

// Handler returns the /metrics endpoint handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware instruments an HTTP handler.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		m.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(rec.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
