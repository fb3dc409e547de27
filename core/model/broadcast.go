package model

import "time"

// BroadcastState is the per-helper status of one broadcast entry.
type BroadcastState string

const (
	BroadcastSent     BroadcastState = "sent"
	BroadcastAccepted BroadcastState = "accepted"
	BroadcastDeclined BroadcastState = "declined"
	BroadcastExpired  BroadcastState = "expired"
)

// BroadcastNotification is the ephemeral join record between a request and a
// helper for one broadcast round. All rows for a request are wiped at the
// start of a re-broadcast so stale rounds cannot be acted upon.
type BroadcastNotification struct {
	RequestID  string         `json:"request_id"`
	HelperID   string         `json:"helper_id"`
	RoundID    string         `json:"round_id"`
	Status     BroadcastState `json:"status"`
	DistanceKm float64        `json:"distance_km"`
	SentAt     time.Time      `json:"sent_at"`
}

// Notification is a generic in-app notification row.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
