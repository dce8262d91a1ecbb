// Package metrics provides Prometheus metrics for upstream traffic and the HTTP surface.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Upstream outcomes.
const (
	OutcomeOK          = "ok"
	OutcomeRateLimited = "rate_limited"
	OutcomeHTTPError   = "http_error"
	OutcomeTransport   = "transport_error"
	OutcomeInvalidJSON = "invalid_json"
)

// Metrics holds all Prometheus metrics for the explorer.
type Metrics struct {
	registry *prometheus.Registry

	// Upstream metrics
	UpstreamRequests *prometheus.CounterVec
	UpstreamLatency  *prometheus.HistogramVec

	// Mirror metrics
	MirrorFallbacks *prometheus.CounterVec
	MirrorExhausted *prometheus.CounterVec

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	LiveClients  prometheus.Gauge
}

// New creates a Metrics instance registered on its own registry.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "cnt_explorer"
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		UpstreamRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "requests_total",
			Help:      "Total upstream HTTP attempts by source and outcome",
		}, []string{"source", "outcome"}),
		UpstreamLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "request_duration_seconds",
			Help:      "Upstream HTTP attempt latency",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 12},
		}, []string{"source"}),
		MirrorFallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mirror",
			Name:      "fallbacks_total",
			Help:      "Times a mirror failed or was rejected and the next one was tried",
		}, []string{"source"}),
		MirrorExhausted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mirror",
			Name:      "exhausted_total",
			Help:      "Times every mirror failed validation and the unconditional attempt ran",
		}, []string{"source"}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total API requests by route and status code",
		}, []string{"route", "code"}),
		LiveClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "live",
			Name:      "clients",
			Help:      "Connected live feed clients",
		}),
	}
}

// ObserveUpstream records one upstream attempt. Safe on a nil receiver.
func (m *Metrics) ObserveUpstream(source, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.UpstreamRequests.WithLabelValues(source, outcome).Inc()
	m.UpstreamLatency.WithLabelValues(source).Observe(d.Seconds())
}

// Fallback records a move to the next mirror. Safe on a nil receiver.
func (m *Metrics) Fallback(source string) {
	if m == nil {
		return
	}
	m.MirrorFallbacks.WithLabelValues(source).Inc()
}

// Exhausted records a run of the unconditional attempt. Safe on a nil receiver.
func (m *Metrics) Exhausted(source string) {
	if m == nil {
		return
	}
	m.MirrorExhausted.WithLabelValues(source).Inc()
}

// ObserveHTTP records one served API request. Safe on a nil receiver.
func (m *Metrics) ObserveHTTP(route string, code int) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// LiveConnected adjusts the live client gauge by delta. Safe on a nil receiver.
func (m *Metrics) LiveConnected(delta float64) {
	if m == nil {
		return
	}
	m.LiveClients.Add(delta)
}

// Handler returns the scrape handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
