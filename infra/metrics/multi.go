package metrics

import (
	"errors"

	coremetrics "github.com/helperlink/dispatch/core/metrics"
)

// MultiSink fans records out to several sinks, collecting all errors.
type MultiSink struct {
	sinks []coremetrics.BroadcastSink
}

// NewMultiSink creates a MultiSink over the given sinks.
func NewMultiSink(sinks ...coremetrics.BroadcastSink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) RecordBroadcast(rec coremetrics.BroadcastRecord) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.RecordBroadcast(rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
