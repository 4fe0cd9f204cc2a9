// Package metrics exposes Prometheus metrics for the arena service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "arena"

// Metrics bundles every collector the services report into.
type Metrics struct {
	registry *prometheus.Registry

	RunsCommitted       *prometheus.CounterVec
	RunsCompleted       *prometheus.CounterVec
	RunsRecovered       *prometheus.CounterVec
	StandInReplacements prometheus.Counter
	RewardsRolled       *prometheus.CounterVec
	QueueSize           prometheus.Gauge
	DuelsResolved       prometheus.Counter
	DuelsRecovered      prometheus.Counter
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		RunsCommitted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_committed_total",
			Help:      "Pending runs committed, by kind.",
		}, []string{"kind"}),
		RunsCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_completed_total",
			Help:      "Runs executed to completion, by kind.",
		}, []string{"kind"}),
		RunsRecovered: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_recovered_total",
			Help:      "Pending runs discarded or restored by timeout recovery, by phase.",
		}, []string{"phase"}),
		StandInReplacements: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stand_in_replacements_total",
			Help:      "Seats handed to synthetic stand-ins at execution time.",
		}),
		RewardsRolled: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rewards_rolled_total",
			Help:      "Reward categories rolled for top placements.",
		}, []string{"category"}),
		QueueSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_size",
			Help:      "Competitors currently waiting in the queue.",
		}),
		DuelsResolved: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duels_resolved_total",
			Help:      "Duels resolved with a result.",
		}),
		DuelsRecovered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duels_recovered_total",
			Help:      "Duels canceled by timeout recovery.",
		}),
	}
}

// Handler serves the registry for the /metrics route.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
