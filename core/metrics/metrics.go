package metrics

import (
	"time"

	"github.com/helperlink/dispatch/core/match"
)

// BroadcastRecord represents one broadcast round to be recorded.
type BroadcastRecord struct {
	RequestID  string
	RoundID    string
	CategoryID string
	Urgency    string
	Candidates int
	Notified   int
	Fallback   bool
	Scores     match.ScoreSummary
	Time       time.Time
}

// BroadcastSink records broadcast rounds for observability purposes.
type BroadcastSink interface {
	RecordBroadcast(rec BroadcastRecord) error
}

// DeliveryRecord captures one per-helper push delivery attempt.
type DeliveryRecord struct {
	RequestID string
	HelperID  string
	Delivered bool
	Latency   time.Duration
}

// DeliveryRecorder is optionally implemented by sinks that track individual
// delivery latencies.
type DeliveryRecorder interface {
	RecordDeliveries(recs []DeliveryRecord) error
}

// NopSink discards all records.
type NopSink struct{}

func (NopSink) RecordBroadcast(BroadcastRecord) error { return nil }
