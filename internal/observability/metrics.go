package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ent0n29/amora/internal/generation"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	GenerationAttempts *prometheus.CounterVec
	GenerationBackoff  *prometheus.HistogramVec
	Fallbacks          *prometheus.CounterVec
	FlowLatency        *prometheus.HistogramVec
	ActiveSessions     prometheus.Gauge
	SessionEvents      *prometheus.CounterVec
	GestureFrames      *prometheus.CounterVec
	WSMessages         *prometheus.CounterVec

	window *latencyWindow
}

// NewMetrics registers the instruments on the default registry.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWith(namespace, prometheus.DefaultRegisterer)
}

// NewMetricsWith registers the instruments on reg.
func NewMetricsWith(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		GenerationAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_attempts_total",
			Help:      "Provider attempts by provider and outcome.",
		}, []string{"provider", "outcome"}),
		GenerationBackoff: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_backoff_seconds",
			Help:      "Waits scheduled between provider attempts.",
			Buckets:   []float64{1, 5, 10, 20, 30, 45, 60, 90},
		}, []string{"provider"}),
		Fallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallbacks_total",
			Help:      "Deterministic fallbacks served by flow.",
		}, []string{"flow"}),
		FlowLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "flow_latency_ms",
			Help:      "End to end latency of generation flows in milliseconds.",
			Buckets:   []float64{250, 500, 1000, 2500, 5000, 10000, 30000, 60000, 120000},
		}, []string{"flow"}),
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_gesture_sessions",
			Help:      "Number of active gesture sessions.",
		}),
		SessionEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Gesture session events by type.",
		}, []string{"event"}),
		GestureFrames: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gesture_frames_total",
			Help:      "Processed hand frames by overlay state.",
		}, []string{"state"}),
		WSMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "WebSocket messages by direction and type.",
		}, []string{"direction", "type"}),
		window: newLatencyWindow(256),
	}
}

// ObserveAttempt implements generation.Observer.
func (m *Metrics) ObserveAttempt(a generation.Attempt) {
	m.GenerationAttempts.WithLabelValues(a.Provider, a.Outcome).Inc()
	m.window.Observe("attempt_"+a.Provider, float64(a.Duration.Milliseconds()))
	if a.Outcome != "success" {
		m.window.ObserveIndicator(a.Provider + "_" + a.Outcome)
	}
}

// ObserveBackoff implements generation.Observer.
func (m *Metrics) ObserveBackoff(provider string, wait time.Duration) {
	m.GenerationBackoff.WithLabelValues(provider).Observe(wait.Seconds())
}

// ObserveFallback counts a flow that served deterministic content.
func (m *Metrics) ObserveFallback(flow string) {
	m.Fallbacks.WithLabelValues(flow).Inc()
	m.window.ObserveIndicator("fallback_" + flow)
}

func (m *Metrics) ObserveFlow(flow string, d time.Duration) {
	ms := float64(d.Milliseconds())
	m.FlowLatency.WithLabelValues(flow).Observe(ms)
	m.window.Observe(flow, ms)
}

func (m *Metrics) SnapshotLatency() LatencySnapshot {
	return m.window.Snapshot()
}

func (m *Metrics) ResetLatency() {
	m.window.Reset()
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
