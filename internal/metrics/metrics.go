// Package metrics exposes application-specific Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific collectors.
	Registry = prometheus.NewRegistry()

	OrdersCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "rasaeats",
			Subsystem: "orders",
			Name:      "created_total",
			Help:      "Total number of order lines persisted at checkout.",
		},
	)

	Settlements = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rasaeats",
			Subsystem: "payments",
			Name:      "settlements_total",
			Help:      "Total number of settlement attempts.",
		},
		[]string{"status"},
	)

	SettlementRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "rasaeats",
			Subsystem: "payments",
			Name:      "settlement_retries_total",
			Help:      "Post-payment bookkeeping retries picked up by the sweeper.",
		},
	)

	SequencerConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "rasaeats",
			Subsystem: "sequence",
			Name:      "conflicts_total",
			Help:      "Counter transaction conflicts that triggered a retry.",
		},
	)
)

func init() {
	Registry.MustRegister(
		OrdersCreated,
		Settlements,
		SettlementRetries,
		SequencerConflicts,
	)
}

// Handler serves the registry, for mounting at /metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
