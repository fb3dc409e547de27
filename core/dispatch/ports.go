package dispatch

import (
	"context"
	"time"

	"github.com/helperlink/dispatch/core/model"
)

// Store is the persistence port consumed by the orchestrator. Every single
// row operation is atomic: it either fully applies or not at all.
//
// AssignHelper is the one correctness-critical call: implementations must use
// an atomic conditional update (compare-and-swap on status and
// assigned_helper_id), never a read-then-write sequence, because concurrent
// accept attempts race on the same row.
type Store interface {
	GetRequest(ctx context.Context, id string) (model.ServiceRequest, error)
	GetRequester(ctx context.Context, userID string) (model.Requester, error)
	GetCategory(ctx context.Context, id string) (model.Category, error)

	// ListEligibleHelpers returns the snapshot of approved, not-on-job
	// helpers flagged online or available now.
	ListEligibleHelpers(ctx context.Context) ([]model.HelperProfile, error)

	// MarkBroadcasting flips the request into the broadcasting state:
	// status=open, broadcast_status=broadcasting, assignment fields cleared,
	// broadcast_expires_at set.
	MarkBroadcasting(ctx context.Context, requestID string, expiresAt time.Time) error

	// DeleteBroadcasts removes all broadcast rows of the request. Idempotent.
	DeleteBroadcasts(ctx context.Context, requestID string) error
	InsertBroadcasts(ctx context.Context, rows []model.BroadcastNotification) error
	// MarkBroadcastResponse records a helper's accept/decline on their row.
	MarkBroadcastResponse(ctx context.Context, requestID, helperID string, status model.BroadcastState) error

	InsertNotification(ctx context.Context, n model.Notification) error

	// AssignHelper atomically assigns the helper if and only if the request
	// is still open and unassigned. Losing racers get AlreadyAssignedError.
	AssignHelper(ctx context.Context, requestID, helperID string, at time.Time) error
	// ReleaseAssignment clears the assignment held by helperID, provided work
	// has not started.
	ReleaseAssignment(ctx context.Context, requestID, helperID string) error
	// CompleteRequest marks the request completed and its broadcast lifecycle
	// terminal.
	CompleteRequest(ctx context.Context, requestID string) error
}
