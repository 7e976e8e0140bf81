package serial

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.ezyvote.org/ezyvote"
)

var (
	promAccepted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ezyvote_ordering_tx_accepted_total",
		Help: "total number of committed transactions",
	})

	promRejected = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ezyvote_ordering_tx_rejected_total",
		Help: "total number of rejected transactions",
	})

	promHeight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ezyvote_ordering_height",
		Help: "number of committed transactions in the ledger",
	})

	promDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ezyvote_ordering_dropped_events_total",
		Help: "total number of events dropped because a watcher was full",
	})

	promWatchers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ezyvote_ordering_watchers",
		Help: "number of active watchers",
	})
)

func init() {
	ezyvote.PromCollectors = append(ezyvote.PromCollectors, promAccepted,
		promRejected, promHeight, promDropped, promWatchers)
}
