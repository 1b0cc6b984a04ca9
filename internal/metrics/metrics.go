// Package metrics exposes prometheus counters for trigger outcomes and
// gauges for listener availability.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oshokin/camera-funnel/internal/domain/trigger"
)

const namespace = "camera_funnel"

// Metrics owns a private registry so tests and multiple instances never collide.
type Metrics struct {
	registry   *prometheus.Registry
	triggers   *prometheus.CounterVec
	listenerUp *prometheus.GaugeVec
}

// New creates the metric set with Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		triggers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "triggers_total",
			Help:      "Resolved triggers by ingress channel and outcome.",
		}, []string{"channel", "outcome"}),
		listenerUp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "listener_up",
			Help:      "Whether an ingress listener is running (1) or stopped (0).",
		}, []string{"listener"}),
	}

	m.registry.MustRegister(
		m.triggers,
		m.listenerUp,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Observe counts one resolved trigger.
func (m *Metrics) Observe(channel trigger.Channel, outcome trigger.Outcome) {
	m.triggers.WithLabelValues(string(channel), outcome.String()).Inc()
}

// SetListenerUp records whether the named listener is running.
func (m *Metrics) SetListenerUp(listener string, up bool) {
	value := 0.0
	if up {
		value = 1
	}

	m.listenerUp.WithLabelValues(listener).Set(value)
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
