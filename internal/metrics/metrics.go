// Package metrics exposes Prometheus metrics for the provider host.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the host's collectors.
//
// Metrics:
//   - scchost_commands_total{command,outcome} - dispatched commands
//   - scchost_command_duration_seconds{command} - time spent per command
//   - scchost_provider_loads_total{result} - provider load attempts
//   - scchost_provider_loaded - 1 while a provider is loaded
//   - scchost_bindings_total{result} - project binding attempts by outcome
type Metrics struct {
	CommandsTotal   *prometheus.CounterVec
	CommandDuration *prometheus.HistogramVec
	LoadsTotal      *prometheus.CounterVec
	Loaded          prometheus.Gauge
	BindingsTotal   *prometheus.CounterVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CommandsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scchost_commands_total",
				Help: "Total number of dispatched commands",
			},
			[]string{"command", "outcome"}, // "success", "informational", "error", "declined"
		),
		CommandDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scchost_command_duration_seconds",
				Help:    "Duration of command dispatch in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 9), // 1ms to ~65s, provider UIs block
			},
			[]string{"command"},
		),
		LoadsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scchost_provider_loads_total",
				Help: "Total number of provider load attempts",
			},
			[]string{"result"},
		),
		Loaded: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "scchost_provider_loaded",
				Help: "Whether a provider library is currently loaded",
			},
		),
		BindingsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scchost_bindings_total",
				Help: "Total number of project binding attempts by result",
			},
			[]string{"result"},
		),
	}
}

// ObserveCommand records one dispatched command.
func (m *Metrics) ObserveCommand(command, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.CommandsTotal.WithLabelValues(command, outcome).Inc()
	m.CommandDuration.WithLabelValues(command).Observe(d.Seconds())
}

// ObserveLoad records a provider load attempt.
func (m *Metrics) ObserveLoad(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.LoadsTotal.WithLabelValues("error").Inc()
		return
	}
	m.LoadsTotal.WithLabelValues("ok").Inc()
	m.Loaded.Set(1)
}

// ObserveUnload records the provider being released.
func (m *Metrics) ObserveUnload() {
	if m == nil {
		return
	}
	m.Loaded.Set(0)
}

// ObserveBinding records a project binding attempt.
func (m *Metrics) ObserveBinding(result string) {
	if m == nil {
		return
	}
	m.BindingsTotal.WithLabelValues(result).Inc()
}
