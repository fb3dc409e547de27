package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/helperlink/dispatch/core/metrics"
)

// PromSink records broadcast rounds in Prometheus metrics.
type PromSink struct {
	rounds   *prometheus.CounterVec
	notified *prometheus.HistogramVec
	score    *prometheus.GaugeVec
}

// NewPromSink registers broadcast metrics on the provided Prometheus
// registerer. If reg is nil, the default registerer is used. Already
// registered collectors are reused.
func NewPromSink(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	rounds := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "broadcast_rounds_total",
		Help: "Total number of broadcast rounds recorded",
	}, []string{"urgency", "fallback"})
	notified := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "broadcast_round_notified",
		Help:    "Helpers notified per recorded broadcast round",
		Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
	}, []string{"urgency"})
	score := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "broadcast_round_score_mean",
		Help: "Mean candidate score of the last recorded round",
	}, []string{"urgency"})

	if err := reg.Register(rounds); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			rounds = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(notified); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			notified = are.ExistingCollector.(*prometheus.HistogramVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(score); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			score = are.ExistingCollector.(*prometheus.GaugeVec)
		} else {
			return nil, err
		}
	}
	return &PromSink{rounds: rounds, notified: notified, score: score}, nil
}

// RecordBroadcast updates the collectors for one round.
func (s *PromSink) RecordBroadcast(rec coremetrics.BroadcastRecord) error {
	s.rounds.WithLabelValues(rec.Urgency, strconv.FormatBool(rec.Fallback)).Inc()
	s.notified.WithLabelValues(rec.Urgency).Observe(float64(rec.Notified))
	s.score.WithLabelValues(rec.Urgency).Set(rec.Scores.Mean)
	return nil
}
