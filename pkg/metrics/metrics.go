// Package metrics exposes the node's Prometheus instrumentation on the
// configured MetricsAddr: committed height, staged transaction count,
// reward totals and rejected-transaction counts by reason.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the node's registered collectors. One instance per
// process; pkg/abci.Application calls into it from deliverTx and Commit.
type Metrics struct {
	CommittedHeight prometheus.Gauge
	StagedTxTotal   prometheus.Counter
	RewardTotal     prometheus.Counter
	TxRejectedTotal *prometheus.CounterVec
}

// New registers every collector against the default registry.
func New() *Metrics {
	return &Metrics{
		CommittedHeight: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "privacy_ledger",
			Name:      "committed_height",
			Help:      "Last height successfully committed by this node.",
		}),
		StagedTxTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "privacy_ledger",
			Name:      "staged_tx_total",
			Help:      "Total transactions successfully applied across all blocks.",
		}),
		RewardTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "privacy_ledger",
			Name:      "reward_total",
			Help:      "Total reward amount minted across all commits.",
		}),
		TxRejectedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "privacy_ledger",
			Name:      "tx_rejected_total",
			Help:      "Transactions rejected by deliver_tx, labeled by reason.",
		}, []string{"reason"}),
	}
}

// Handler returns the /metrics HTTP handler to mount on the metrics
// listener.
func Handler() http.Handler {
	return promhttp.Handler()
}
