// internal/app/system/metrics/metrics.go
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "maratech"

// Metrics holds the service's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	reg *prometheus.Registry

	Logins        *prometheus.CounterVec
	EventJoins    *prometheus.CounterVec
	PushMessages  *prometheus.CounterVec
	LiveStreams   *prometheus.GaugeVec
	HTTPRequests  *prometheus.CounterVec
	HTTPDurations *prometheus.HistogramVec
}

// New builds a registry with the service collectors plus the Go runtime
// and process collectors.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		Logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "logins_total",
			Help: "Sign-in attempts by method and result.",
		}, []string{"method", "result"}),
		EventJoins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "event_joins_total",
			Help: "Event join requests by outcome.",
		}, []string{"status"}),
		PushMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "push_messages_total",
			Help: "Push notifications published by kind and result.",
		}, []string{"kind", "result"}),
		LiveStreams: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "live_streams",
			Help: "Open websocket streams by stream name.",
		}, []string{"stream"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "http_requests_total",
			Help: "HTTP requests by route pattern, method and status.",
		}, []string{"route", "method", "status"}),
		HTTPDurations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Logins, m.EventJoins, m.PushMessages, m.LiveStreams,
		m.HTTPRequests, m.HTTPDurations,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Login counts a sign-in attempt.
func (m *Metrics) Login(method string, err error) {
	if m == nil {
		return
	}
	m.Logins.WithLabelValues(method, result(err)).Inc()
}

// Join counts an event join outcome.
func (m *Metrics) Join(status string) {
	if m == nil {
		return
	}
	m.EventJoins.WithLabelValues(status).Inc()
}

// Push counts a published push message.
func (m *Metrics) Push(kind string, err error) {
	if m == nil {
		return
	}
	m.PushMessages.WithLabelValues(kind, result(err)).Inc()
}

// StreamOpened increments the open stream gauge and returns the matching
// decrement.
func (m *Metrics) StreamOpened(stream string) func() {
	if m == nil {
		return func() {}
	}
	g := m.LiveStreams.WithLabelValues(stream)
	g.Inc()
	return g.Dec
}

// Middleware records request counts and latency by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.HTTPDurations.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
