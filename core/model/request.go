package model

import "time"

// Coordinate is a WGS84 point.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Urgency is the requester-declared timing need for a service request.
type Urgency string

const (
	UrgencyImmediate Urgency = "immediate"
	UrgencySameDay   Urgency = "same_day"
	UrgencyScheduled Urgency = "scheduled"
	UrgencyFlexible  Urgency = "flexible"
)

// RequestStatus is the lifecycle status of a service request.
type RequestStatus string

const (
	StatusDraft      RequestStatus = "draft"
	StatusOpen       RequestStatus = "open"
	StatusAssigned   RequestStatus = "assigned"
	StatusInProgress RequestStatus = "in_progress"
	StatusCompleted  RequestStatus = "completed"
	StatusCancelled  RequestStatus = "cancelled"
)

// BroadcastStatus tracks the fan-out lifecycle of a request.
// BroadcastCompleted is terminal: no further broadcasting is permitted.
type BroadcastStatus string

const (
	BroadcastNone      BroadcastStatus = "none"
	BroadcastActive    BroadcastStatus = "broadcasting"
	BroadcastCompleted BroadcastStatus = "completed"
)

// Category identifies a service category. ParentID is empty for top-level
// categories.
type Category struct {
	ID       string `json:"id"`
	ParentID string `json:"parent_id,omitempty"`
	Slug     string `json:"slug"`
	Name     string `json:"name"`
}

// ServiceRequest is a unit of work posted by a requester. It is mutated only
// by the dispatch orchestrator once broadcasting starts.
type ServiceRequest struct {
	ID          string   `json:"id"`
	RequesterID string   `json:"requester_id"`
	Category    Category `json:"category"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`

	Location *Coordinate `json:"location,omitempty"`
	Address  string      `json:"address,omitempty"`

	EstimatedPrice float64 `json:"estimated_price"`
	BudgetMin      float64 `json:"budget_min,omitempty"`
	BudgetMax      float64 `json:"budget_max,omitempty"`
	Urgency        Urgency `json:"urgency"`

	Status          RequestStatus   `json:"status"`
	BroadcastStatus BroadcastStatus `json:"broadcast_status"`

	AssignedHelperID   string     `json:"assigned_helper_id,omitempty"`
	HelperAcceptedAt   *time.Time `json:"helper_accepted_at,omitempty"`
	WorkStartedAt      *time.Time `json:"work_started_at,omitempty"`
	BroadcastExpiresAt *time.Time `json:"broadcast_expires_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// HasBudget reports whether the requester stated a budget range.
func (r ServiceRequest) HasBudget() bool {
	return r.BudgetMax > 0 && r.BudgetMax >= r.BudgetMin
}

// Broadcastable reports whether the request may enter a broadcast round.
func (r ServiceRequest) Broadcastable() bool {
	return r.BroadcastStatus != BroadcastCompleted
}

// Assigned reports whether a helper currently holds the request.
func (r ServiceRequest) Assigned() bool {
	return r.AssignedHelperID != ""
}

// WorkStarted reports whether the assigned helper started working. Once work
// started, helper-initiated cancellation no longer re-enters broadcasting.
func (r ServiceRequest) WorkStarted() bool {
	return r.WorkStartedAt != nil && !r.WorkStartedAt.IsZero()
}

// Requester holds the requester fields needed for notification copy.
type Requester struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
