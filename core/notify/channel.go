package notify

import "context"

// Payload is the push-style notification body delivered to one recipient.
type Payload struct {
	RequestID    string  `json:"request_id"`
	Type         string  `json:"type"`
	Title        string  `json:"title"`
	Message      string  `json:"message"`
	CategoryName string  `json:"category_name,omitempty"`
	Price        float64 `json:"price,omitempty"`
	Urgency      string  `json:"urgency,omitempty"`
	Requester    string  `json:"requester,omitempty"`
	Address      string  `json:"address,omitempty"`
	DistanceKm   float64 `json:"distance_km,omitempty"`
}

// Channel delivers a payload to a single recipient. Delivery is at-most-once;
// the caller decides how to react to individual failures.
type Channel interface {
	PushToHelper(ctx context.Context, helperID string, p Payload) error
	PushToUser(ctx context.Context, userID string, p Payload) error
}
