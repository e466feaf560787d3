// Package metrics provides Prometheus metrics for the agent
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors recorded by the chat pipeline and HTTP layer
type Metrics struct {
	registry *prometheus.Registry

	TurnsTotal           *prometheus.CounterVec
	TurnDuration         *prometheus.HistogramVec
	ExternalCallDuration *prometheus.HistogramVec
	PolicyRejections     prometheus.Counter
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
}

// New creates the collectors on a dedicated registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		TurnsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "invest_agent_turns_total",
				Help: "Total number of chat turns by action and outcome",
			},
			[]string{"action", "outcome"},
		),
		TurnDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "invest_agent_turn_duration_seconds",
				Help:    "Duration of composing one assistant reply",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"action"},
		),
		ExternalCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "invest_agent_external_call_duration_seconds",
				Help:    "Duration of calls to the completion, search and dataset collaborators",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"collaborator", "status"},
		),
		PolicyRejections: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "invest_agent_policy_rejections_total",
				Help: "Messages rejected by the responsible AI filter",
			},
		),
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "invest_agent_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "invest_agent_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveTurn records a composed turn
func (m *Metrics) ObserveTurn(action string, failed bool, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if failed {
		outcome = "error"
	}
	m.TurnsTotal.WithLabelValues(action, outcome).Inc()
	m.TurnDuration.WithLabelValues(action).Observe(d.Seconds())
}

// ObserveCall records one call to an external collaborator
func (m *Metrics) ObserveCall(collaborator string, err error, d time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.ExternalCallDuration.WithLabelValues(collaborator, status).Observe(d.Seconds())
}

// ObserveRejection counts a responsible-AI rejection
func (m *Metrics) ObserveRejection() {
	if m == nil {
		return
	}
	m.PolicyRejections.Inc()
}

// ObserveHTTP records one served request
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
