// Package events defines the dispatch related events emitted on the event bus.
//
// Available event types:
//   - BroadcastEvent: a broadcast round was fanned out
//   - AcceptEvent: outcome of a helper accept attempt
//   - AssignmentReleasedEvent: an assigned helper cancelled before work start
package events

import "time"

// BroadcastEvent is published after a broadcast round has been fanned out.
type BroadcastEvent struct {
	RequestID       string
	RoundID         string
	Candidates      int
	HelpersNotified int
	Fallback        bool
	Time            time.Time
}

// AcceptEvent is published for every accept attempt on a request.
type AcceptEvent struct {
	RequestID string
	HelperID  string
	Won       bool
	Err       error
	Time      time.Time
}

// AssignmentReleasedEvent is published when a helper cancels an assignment
// before work start, triggering a re-broadcast.
type AssignmentReleasedEvent struct {
	RequestID string
	HelperID  string
	Time      time.Time
}
