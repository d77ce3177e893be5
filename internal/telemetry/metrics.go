// Package telemetry exposes Prometheus metrics for the HTTP server and the
// authentication flow.
package telemetry

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

// Login outcomes recorded by RecordLogin.
const (
	LoginSucceeded = "success"
	LoginRejected  = "rejected"
	LoginErrored   = "error"
)

// Metrics holds the collectors for one server instance. Each instance owns
// its registry so tests can build several without collisions.
type Metrics struct {
	registry *prometheus.Registry

	requestCounter  *prometheus.CounterVec   // Total HTTP requests
	requestDuration *prometheus.HistogramVec // HTTP request latency
	inFlight        prometheus.Gauge         // Requests being served
	loginAttempts   *prometheus.CounterVec   // Login attempts by outcome
}

// NewMetrics creates and registers every collector, plus Go runtime and
// process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"method", "route"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests being served",
		}),
		loginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_login_attempts_total",
			Help: "Total number of login attempts by outcome",
		}, []string{"outcome"}),
	}

	m.registry.MustRegister(
		m.requestCounter,
		m.requestDuration,
		m.inFlight,
		m.loginAttempts,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry backing these metrics.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordRequest records an HTTP request with method, route, status and duration.
func (m *Metrics) RecordRequest(method, route string, status int, d time.Duration) {
	m.requestCounter.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordLogin counts one login attempt.
func (m *Metrics) RecordLogin(outcome string) {
	m.loginAttempts.WithLabelValues(outcome).Inc()
}

// Middleware records every request. The route label is the chi route
// pattern, so path parameters do not explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.inFlight.Inc()
		defer m.inFlight.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.RecordRequest(r.Method, route, status, time.Since(start))
	})
}
