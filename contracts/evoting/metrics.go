package evoting

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.ezyvote.org/ezyvote"
)

var (
	promVotes = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ezyvote_evoting_votes_total",
		Help: "total number of accepted votes",
	})

	promEvents = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ezyvote_evoting_events_total",
		Help: "total number of created events",
	})

	promRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ezyvote_evoting_rejections_total",
		Help: "total number of rejected commands per error kind",
	}, []string{"kind"})
)

func init() {
	ezyvote.PromCollectors = append(ezyvote.PromCollectors, promVotes,
		promEvents, promRejections)
}
