package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"tasklist/app/middleware"
	"tasklist/app/models"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Operation results.
const (
	ResultApplied  = "applied"
	ResultNoop     = "noop"
	ResultRejected = "rejected"
)

// Metrics holds the service collectors.
type Metrics struct {
	gatherer prometheus.Gatherer

	mu      sync.Mutex
	progSeq uint64

	tasks      *prometheus.GaugeVec
	progress   prometheus.Gauge
	operations *prometheus.CounterVec

	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	inFlightRequests prometheus.Gauge
}

// New registers all collectors on reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		gatherer: reg,
		tasks: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tasklist_tasks",
				Help: "Number of tasks in the store by state",
			},
			[]string{"state"},
		),
		progress: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "tasklist_progress_percent",
				Help: "Share of completed tasks, 0-100",
			},
		),
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tasklist_operations_total",
				Help: "Store operations by kind and result",
			},
			[]string{"op", "result"},
		),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"method", "route"},
		),
		inFlightRequests: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_in_flight_requests",
				Help: "Current number of in-flight HTTP requests",
			},
		),
	}
	reg.MustRegister(
		m.tasks,
		m.progress,
		m.operations,
		m.requestsTotal,
		m.requestDuration,
		m.inFlightRequests,
	)
	return m
}

// ObserveProgress updates the task gauges with the progress recorded at store
// change seq. Observations older than the last one applied are dropped, so
// gauges cannot regress when concurrent callers report out of order.
func (m *Metrics) ObserveProgress(seq uint64, p models.Progress) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if seq < m.progSeq {
		return
	}
	m.progSeq = seq
	m.tasks.WithLabelValues("open").Set(float64(p.Remaining()))
	m.tasks.WithLabelValues("completed").Set(float64(p.CompletedCount))
	m.progress.Set(p.Percentage)
}

// CountOperation records the outcome of a store operation.
func (m *Metrics) CountOperation(op, result string) {
	m.operations.WithLabelValues(op, result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Middleware collects request metrics. It must run inside the router so the
// matched route template is available as the route label.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.inFlightRequests.Inc()
		defer m.inFlightRequests.Dec()

		route := routeTemplate(r)
		start := time.Now()
		wrapped := middleware.NewStatusWriter(w)

		next.ServeHTTP(wrapped, r)

		m.requestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.StatusCode)).Inc()
		m.requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}
