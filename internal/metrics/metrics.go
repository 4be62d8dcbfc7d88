// Package metrics exposes Prometheus counters for the front-of-house flows.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tableside"

var (
	// OrdersCreated counts placed orders by order type.
	OrdersCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_created_total",
		Help:      "Orders placed, by order type.",
	}, []string{"order_type"})

	// Conflicts counts conditional writes that lost a race, by operation.
	Conflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "conflicts_total",
		Help:      "Conditional updates rejected because the record changed underneath.",
	}, []string{"operation"})

	// BillsCreated counts created bills.
	BillsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bills_created_total",
		Help:      "Bills created.",
	})

	// Settlements counts paid bills by payment method.
	Settlements = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "settlements_total",
		Help:      "Bills settled, by payment method.",
	}, []string{"method"})

	// ViewRefreshes counts full re-derivations of live views.
	ViewRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "view_refreshes_total",
		Help:      "Live view re-derivations, by view and outcome.",
	}, []string{"view", "outcome"})

	// RPCDuration observes handler latency by procedure and code.
	RPCDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "rpc_duration_seconds",
		Help:      "RPC handler latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"procedure", "code"})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
