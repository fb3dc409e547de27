package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	broadcastsStarted  *prometheus.CounterVec
	broadcastsFailed   prometheus.Counter
	helpersNotified    prometheus.Histogram
	acceptWins         prometheus.Counter
	acceptConflicts    prometheus.Counter
	fallbackBroadcasts prometheus.Counter
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, prometheus.Counter, prometheus.Histogram, prometheus.Counter, prometheus.Counter, prometheus.Counter) {
	started := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broadcasts_started_total",
			Help: "Number of broadcast rounds started",
		},
		[]string{"urgency"},
	)
	failed := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "broadcasts_failed_total",
			Help: "Number of broadcast rounds that failed before fan-out",
		},
	)
	notified := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "broadcast_helpers_notified",
			Help:    "Helpers notified per broadcast round",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
		},
	)
	wins := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "accepts_won_total",
			Help: "Number of accept attempts that won the assignment",
		},
	)
	conflicts := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "accepts_conflict_total",
			Help: "Number of accept attempts that lost the assignment race",
		},
	)
	fallback := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "broadcast_fallback_total",
			Help: "Number of rounds that fell back to the whole helper snapshot",
		},
	)
	return started, failed, notified, wins, conflicts, fallback
}

func init() {
	broadcastsStarted, broadcastsFailed, helpersNotified, acceptWins, acceptConflicts, fallbackBroadcasts = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers dispatch metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(broadcastsStarted, broadcastsFailed, helpersNotified, acceptWins, acceptConflicts, fallbackBroadcasts)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	broadcastsStarted, broadcastsFailed, helpersNotified, acceptWins, acceptConflicts, fallbackBroadcasts = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
