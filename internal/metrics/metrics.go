// Package metrics provides Prometheus instrumentation for the gatez
// server.
//
// All metrics live in a custom [prometheus.Registry] (not the global
// default) so that only gatez metrics appear on the /metrics endpoint.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors used by the gatez server.
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	EvaluationsTotal    *prometheus.CounterVec
	ReloadsTotal        *prometheus.CounterVec
	ConfigFeatures      prometheus.Gauge
	ConfigRules         prometheus.Gauge
}

// New creates and registers all gatez metrics in a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gatez_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gatez_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),

		EvaluationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gatez_evaluations_total",
			Help: "Total number of rule evaluations by outcome.",
		}, []string{"outcome"}),

		ReloadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gatez_config_reloads_total",
			Help: "Total number of configuration load attempts by result.",
		}, []string{"result"}),

		ConfigFeatures: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gatez_config_features",
			Help: "Number of features in the active configuration.",
		}),

		ConfigRules: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gatez_config_rules",
			Help: "Number of rules in the active configuration.",
		}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.EvaluationsTotal,
		m.ReloadsTotal,
		m.ConfigFeatures,
		m.ConfigRules,
	)

	return m
}

// Handler returns an [http.Handler] that serves Prometheus metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps next, recording request count and latency per
// method, route pattern, and status code.
func (m *Metrics) InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(recorder, r)

		// ServeMux patterns carry the method prefix ("POST /v1/evaluate");
		// the method is already its own label.
		route := r.Pattern
		if _, path, ok := strings.Cut(route, " "); ok {
			route = path
		}
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(recorder.status)
		m.HTTPRequestsTotal.WithLabelValues(r.Method, route, status).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
	})
}

// RecordEvaluation increments the evaluation counter for an outcome.
func (m *Metrics) RecordEvaluation(outcome string) {
	m.EvaluationsTotal.WithLabelValues(outcome).Inc()
}

// RecordReload increments the reload counter with "success" or "failure".
func (m *Metrics) RecordReload(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	m.ReloadsTotal.WithLabelValues(result).Inc()
}

// SetConfigSize updates the configuration size gauges.
func (m *Metrics) SetConfigSize(features, rules float64) {
	m.ConfigFeatures.Set(features)
	m.ConfigRules.Set(rules)
}

type statusRecorder struct {
	http.ResponseWriter
	status  int
	written bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.written {
		r.status = code
		r.written = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if !r.written {
		r.status = http.StatusOK
		r.written = true
	}
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
