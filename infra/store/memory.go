// Package store provides persistence adapters for the dispatch Store port.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/helperlink/dispatch/core/dispatch"
	"github.com/helperlink/dispatch/core/model"
)

// Memory is an in-memory Store used for development, the broadcast CLI and
// tests. The accept compare-and-swap runs under the store mutex so racing
// Accept calls observe the same guarantees as the SQL adapter.
type Memory struct {
	mu            sync.RWMutex
	requests      map[string]model.ServiceRequest
	requesters    map[string]model.Requester
	categories    map[string]model.Category
	helpers       map[string]model.HelperProfile
	broadcasts    map[string][]model.BroadcastNotification
	notifications []model.Notification
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		requests:   make(map[string]model.ServiceRequest),
		requesters: make(map[string]model.Requester),
		categories: make(map[string]model.Category),
		helpers:    make(map[string]model.HelperProfile),
		broadcasts: make(map[string][]model.BroadcastNotification),
	}
}

// Seed helpers ------------------------------------------------------------

func (m *Memory) PutRequest(r model.ServiceRequest) {
	m.mu.Lock()
	m.requests[r.ID] = r
	m.mu.Unlock()
}

func (m *Memory) PutRequester(u model.Requester) {
	m.mu.Lock()
	m.requesters[u.ID] = u
	m.mu.Unlock()
}

func (m *Memory) PutCategory(c model.Category) {
	m.mu.Lock()
	m.categories[c.ID] = c
	m.mu.Unlock()
}

func (m *Memory) PutHelper(h model.HelperProfile) {
	m.mu.Lock()
	m.helpers[h.ID] = h
	m.mu.Unlock()
}

// Broadcasts returns a copy of the broadcast rows for a request.
func (m *Memory) Broadcasts(requestID string) []model.BroadcastNotification {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]model.BroadcastNotification(nil), m.broadcasts[requestID]...)
}

// Notifications returns a copy of all generic notification rows.
func (m *Memory) Notifications() []model.Notification {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]model.Notification(nil), m.notifications...)
}

// Store port --------------------------------------------------------------

func (m *Memory) GetRequest(_ context.Context, id string) (model.ServiceRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.requests[id]
	if !ok {
		return model.ServiceRequest{}, &dispatch.NotFoundError{Kind: "request", ID: id}
	}
	return r, nil
}

func (m *Memory) GetRequester(_ context.Context, userID string) (model.Requester, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.requesters[userID]
	if !ok {
		return model.Requester{}, &dispatch.NotFoundError{Kind: "requester", ID: userID}
	}
	return u, nil
}

func (m *Memory) GetCategory(_ context.Context, id string) (model.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.categories[id]
	if !ok {
		return model.Category{}, &dispatch.NotFoundError{Kind: "category", ID: id}
	}
	return c, nil
}

func (m *Memory) ListEligibleHelpers(_ context.Context) ([]model.HelperProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.HelperProfile
	for _, h := range m.helpers {
		if h.Eligible() {
			out = append(out, h)
		}
	}
	return out, nil
}

func (m *Memory) MarkBroadcasting(_ context.Context, requestID string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[requestID]
	if !ok {
		return &dispatch.NotFoundError{Kind: "request", ID: requestID}
	}
	if r.BroadcastStatus == model.BroadcastCompleted {
		return &dispatch.TerminalStateError{RequestID: requestID}
	}
	r.Status = model.StatusOpen
	r.BroadcastStatus = model.BroadcastActive
	r.AssignedHelperID = ""
	r.HelperAcceptedAt = nil
	r.WorkStartedAt = nil
	r.BroadcastExpiresAt = &expiresAt
	m.requests[requestID] = r
	return nil
}

func (m *Memory) DeleteBroadcasts(_ context.Context, requestID string) error {
	m.mu.Lock()
	delete(m.broadcasts, requestID)
	m.mu.Unlock()
	return nil
}

func (m *Memory) InsertBroadcasts(_ context.Context, rows []model.BroadcastNotification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range rows {
		m.broadcasts[row.RequestID] = append(m.broadcasts[row.RequestID], row)
	}
	return nil
}

func (m *Memory) MarkBroadcastResponse(_ context.Context, requestID, helperID string, status model.BroadcastState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.broadcasts[requestID]
	for i := range rows {
		if rows[i].HelperID == helperID {
			rows[i].Status = status
			return nil
		}
	}
	return &dispatch.NotFoundError{Kind: "broadcast", ID: requestID + "/" + helperID}
}

func (m *Memory) InsertNotification(_ context.Context, n model.Notification) error {
	m.mu.Lock()
	m.notifications = append(m.notifications, n)
	m.mu.Unlock()
	return nil
}

// AssignHelper performs the accept compare-and-swap under the store mutex:
// the request must still be open and unassigned.
func (m *Memory) AssignHelper(_ context.Context, requestID, helperID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[requestID]
	if !ok {
		return &dispatch.NotFoundError{Kind: "request", ID: requestID}
	}
	if r.BroadcastStatus == model.BroadcastCompleted {
		return &dispatch.TerminalStateError{RequestID: requestID}
	}
	if r.Status != model.StatusOpen || r.AssignedHelperID != "" {
		return &dispatch.AlreadyAssignedError{RequestID: requestID, HelperID: r.AssignedHelperID}
	}
	r.Status = model.StatusAssigned
	r.AssignedHelperID = helperID
	r.HelperAcceptedAt = &at
	m.requests[requestID] = r
	return nil
}

func (m *Memory) ReleaseAssignment(_ context.Context, requestID, helperID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[requestID]
	if !ok {
		return &dispatch.NotFoundError{Kind: "request", ID: requestID}
	}
	if r.AssignedHelperID != helperID {
		return &dispatch.NotFoundError{Kind: "assignment", ID: requestID + "/" + helperID}
	}
	if r.WorkStarted() {
		return &dispatch.WorkStartedError{RequestID: requestID}
	}
	r.Status = model.StatusOpen
	r.AssignedHelperID = ""
	r.HelperAcceptedAt = nil
	m.requests[requestID] = r
	return nil
}

func (m *Memory) CompleteRequest(_ context.Context, requestID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[requestID]
	if !ok {
		return &dispatch.NotFoundError{Kind: "request", ID: requestID}
	}
	r.Status = model.StatusCompleted
	r.BroadcastStatus = model.BroadcastCompleted
	m.requests[requestID] = r
	return nil
}
