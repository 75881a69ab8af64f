// Package metrics exposes Prometheus collectors for relay exchanges and upstream calls.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "voicerelay"

// Surface labels.
const (
	SurfaceHTTP    = "http"
	SurfaceSession = "session"
)

// Outcome labels.
const (
	OutcomeOK              = "ok"
	OutcomeUpstreamFailure = "upstream_error"
	OutcomeInternalFailure = "internal_error"
)

// Upstream labels.
const (
	UpstreamCompletion = "completion"
	UpstreamSynthesis  = "synthesis"
)

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	exchanges          *prometheus.CounterVec
	synthesisFallbacks prometheus.Counter
	upstreamDuration   *prometheus.HistogramVec
	activeSessions     prometheus.Gauge
}

// New registers the relay collectors plus Go runtime collectors on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return NewWithRegistry(reg)
}

// NewWithRegistry registers only the relay collectors on reg.
func NewWithRegistry(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: reg,
		exchanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exchanges_total",
			Help:      "Completed exchanges by transport surface and outcome.",
		}, []string{"surface", "outcome"}),
		synthesisFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "synthesis_fallbacks_total",
			Help:      "Synthesis calls that failed and fell back to a zero audio length.",
		}),
		upstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_duration_seconds",
			Help:      "Latency of outbound completion and synthesis calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"upstream"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Open WebSocket sessions.",
		}),
	}

	reg.MustRegister(m.exchanges, m.synthesisFallbacks, m.upstreamDuration, m.activeSessions)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// ObserveExchange counts one finished exchange.
func (m *Metrics) ObserveExchange(surface, outcome string) {
	if m == nil {
		return
	}
	m.exchanges.WithLabelValues(surface, outcome).Inc()
}

// ObserveUpstream records the latency of one outbound call started at start.
func (m *Metrics) ObserveUpstream(upstream string, start time.Time) {
	if m == nil {
		return
	}
	m.upstreamDuration.WithLabelValues(upstream).Observe(time.Since(start).Seconds())
}

// SynthesisFallback counts a synthesis failure absorbed as zero duration.
func (m *Metrics) SynthesisFallback() {
	if m == nil {
		return
	}
	m.synthesisFallbacks.Inc()
}

// SessionOpened increments the open-session gauge.
func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.activeSessions.Inc()
}

// SessionClosed decrements the open-session gauge.
func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
}
