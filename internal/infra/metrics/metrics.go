// Package metrics exports orchestrator events as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/runoshun/crew-board/internal/dispatch"
	"github.com/runoshun/crew-board/internal/domain"
)

// Metrics holds all Prometheus metrics for crew-board.
type Metrics struct {
	Dispatches     *prometheus.CounterVec
	ActiveSessions prometheus.Gauge
	Merges         *prometheus.CounterVec
	Cleanups       *prometheus.CounterVec
	Transitions    *prometheus.CounterVec
}

// Ensure Metrics implements dispatch.Observer.
var _ dispatch.Observer = (*Metrics)(nil)

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		Dispatches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crew_board_dispatch_total",
				Help: "Total number of dispatch attempts by result",
			},
			[]string{"result"},
		),
		ActiveSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "crew_board_active_sessions",
				Help: "Number of live sessions in the active-dispatch registry",
			},
		),
		Merges: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crew_board_merge_total",
				Help: "Total number of task branch merges by result",
			},
			[]string{"result"},
		),
		Cleanups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crew_board_cleanup_total",
				Help: "Total number of deferred worktree cleanups by result",
			},
			[]string{"result"},
		),
		Transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crew_board_transitions_total",
				Help: "Total number of task status transitions",
			},
			[]string{"from", "to"},
		),
	}
}

// NewRegistry creates a new Prometheus registry with metrics.
func NewRegistry() (*prometheus.Registry, *Metrics) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	return reg, m
}

// HandlerFor returns an HTTP handler for a specific registry.
func HandlerFor(reg prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// DispatchFinished counts a dispatch attempt.
func (m *Metrics) DispatchFinished(result string) {
	m.Dispatches.WithLabelValues(result).Inc()
}

// SessionsActive records the registry size.
func (m *Metrics) SessionsActive(n int) {
	m.ActiveSessions.Set(float64(n))
}

// MergeFinished counts a merge.
func (m *Metrics) MergeFinished(result string) {
	m.Merges.WithLabelValues(result).Inc()
}

// CleanupFinished counts a cleanup.
func (m *Metrics) CleanupFinished(result string) {
	m.Cleanups.WithLabelValues(result).Inc()
}

// TransitionObserved counts a status change.
func (m *Metrics) TransitionObserved(from, to domain.Status) {
	m.Transitions.WithLabelValues(string(from), string(to)).Inc()
}
