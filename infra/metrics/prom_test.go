package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helperlink/dispatch/core/match"
	coremetrics "github.com/helperlink/dispatch/core/metrics"
)

func TestPromSinkRecordBroadcast(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSink(reg)
	require.NoError(t, err)

	rec := coremetrics.BroadcastRecord{
		RequestID: "req-1",
		RoundID:   "r1",
		Urgency:   "immediate",
		Notified:  3,
		Scores:    match.ScoreSummary{Mean: 72.5},
	}
	require.NoError(t, sink.RecordBroadcast(rec))
	require.NoError(t, sink.RecordBroadcast(rec))

	assert.Equal(t, 2.0, testutil.ToFloat64(sink.rounds.WithLabelValues("immediate", "false")))
	assert.Equal(t, 72.5, testutil.ToFloat64(sink.score.WithLabelValues("immediate")))
}

func TestPromSinkReregister(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPromSink(reg)
	require.NoError(t, err)
	second, err := NewPromSink(reg)
	require.NoError(t, err)

	// Both sinks share the same underlying collectors.
	require.NoError(t, first.RecordBroadcast(coremetrics.BroadcastRecord{Urgency: "flexible"}))
	require.NoError(t, second.RecordBroadcast(coremetrics.BroadcastRecord{Urgency: "flexible"}))
	assert.Equal(t, 2.0, testutil.ToFloat64(first.rounds.WithLabelValues("flexible", "false")))
}

func TestMultiSinkFansOut(t *testing.T) {
	reg := prometheus.NewRegistry()
	prom, err := NewPromSink(reg)
	require.NoError(t, err)
	multi := NewMultiSink(prom, coremetrics.NopSink{})

	require.NoError(t, multi.RecordBroadcast(coremetrics.BroadcastRecord{Urgency: "same_day"}))
	assert.Equal(t, 1.0, testutil.ToFloat64(prom.rounds.WithLabelValues("same_day", "false")))
}
