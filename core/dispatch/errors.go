package dispatch

import "fmt"

// NotFoundError reports a missing request or helper record. Surfaced to the
// caller, never retried.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// TerminalStateError reports a broadcast attempt on a request whose broadcast
// lifecycle already completed.
type TerminalStateError struct {
	RequestID string
}

func (e *TerminalStateError) Error() string {
	return fmt.Sprintf("request %s broadcast already completed", e.RequestID)
}

// AlreadyAssignedError reports a lost accept race: another helper holds the
// assignment. Surfaced so the losing caller can show "job taken" feedback.
type AlreadyAssignedError struct {
	RequestID string
	HelperID  string
}

func (e *AlreadyAssignedError) Error() string {
	return fmt.Sprintf("request %s already assigned to %s", e.RequestID, e.HelperID)
}

// WorkStartedError reports a cancel attempt after the helper started working.
// That path belongs to the dispute flow, not to re-broadcasting.
type WorkStartedError struct {
	RequestID string
}

func (e *WorkStartedError) Error() string {
	return fmt.Sprintf("request %s: work already started", e.RequestID)
}

// PartialDeliveryError reports that some push deliveries failed. Non-fatal:
// the broadcast as a whole still succeeds with a lower notified count.
type PartialDeliveryError struct {
	RequestID string
	Failed    int
	Total     int
}

func (e *PartialDeliveryError) Error() string {
	return fmt.Sprintf("request %s: %d of %d deliveries failed", e.RequestID, e.Failed, e.Total)
}
