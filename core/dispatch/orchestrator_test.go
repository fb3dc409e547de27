package dispatch_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helperlink/dispatch/core/dispatch"
	"github.com/helperlink/dispatch/core/match"
	"github.com/helperlink/dispatch/core/model"
	"github.com/helperlink/dispatch/core/notify"
	"github.com/helperlink/dispatch/infra/logger"
	"github.com/helperlink/dispatch/infra/store"
	"github.com/helperlink/dispatch/internal/eventbus"
)

// recordingChannel captures every push for assertions.
type recordingChannel struct {
	mu         sync.Mutex
	helperIDs  []string
	userPushes []string
	failFor    map[string]bool
}

func (c *recordingChannel) PushToHelper(_ context.Context, helperID string, _ notify.Payload) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failFor[helperID] {
		return errors.New("push rejected")
	}
	c.helperIDs = append(c.helperIDs, helperID)
	return nil
}

func (c *recordingChannel) PushToUser(_ context.Context, userID string, _ notify.Payload) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userPushes = append(c.userPushes, userID)
	return nil
}

func (c *recordingChannel) helpers() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.helperIDs...)
}

var (
	center  = model.Coordinate{Lat: 17.3850, Lng: 78.4867}
	suburb  = model.Coordinate{Lat: 17.4399, Lng: 78.4983}
	fixedTS = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
)

func seedStore(t *testing.T) *store.Memory {
	t.Helper()
	mem := store.NewMemory()
	mem.PutCategory(model.Category{ID: "cat-1", Slug: "plumbing", Name: "Plumbing"})
	mem.PutRequester(model.Requester{ID: "user-1", Name: "Asha"})
	mem.PutRequest(model.ServiceRequest{
		ID:          "req-1",
		RequesterID: "user-1",
		Category:    model.Category{ID: "cat-1"},
		Title:       "Leaking tap",
		Location:    &center,
		Urgency:     model.UrgencyImmediate,
		Status:      model.StatusOpen,
	})
	mem.PutHelper(model.HelperProfile{
		ID: "h-match", Name: "Matcher", Approved: true, IsOnline: true,
		Location: &center, Categories: []string{"plumbing"}, Rating: 4.8,
		LastActiveAt: fixedTS,
	})
	mem.PutHelper(model.HelperProfile{
		ID: "h-other", Name: "Other", Approved: true, IsOnline: true,
		Location: &suburb, Categories: []string{"electrical"}, Rating: 4.2,
		LastActiveAt: fixedTS,
	})
	return mem
}

func newOrchestrator(t *testing.T, mem *store.Memory, ch notify.Channel) *dispatch.Orchestrator {
	t.Helper()
	fanout, err := notify.NewFanout(ch, logger.NopLogger{})
	require.NoError(t, err)
	orch, err := dispatch.NewOrchestrator(mem, fanout, eventbus.New(), nil, logger.NopLogger{}, dispatch.Config{})
	require.NoError(t, err)
	orch.SetClock(func() time.Time { return fixedTS })
	return orch
}

func TestBroadcastHappyPath(t *testing.T) {
	mem := seedStore(t)
	ch := &recordingChannel{}
	orch := newOrchestrator(t, mem, ch)

	out, err := orch.Broadcast(context.Background(), "req-1")
	require.NoError(t, err)
	assert.Equal(t, 2, out.Candidates)
	assert.Equal(t, 2, out.HelpersNotified)
	assert.False(t, out.Fallback)
	assert.NotEmpty(t, out.RoundID)

	req, err := mem.GetRequest(context.Background(), "req-1")
	require.NoError(t, err)
	assert.Equal(t, model.BroadcastActive, req.BroadcastStatus)
	require.NotNil(t, req.BroadcastExpiresAt)
	assert.Equal(t, fixedTS.Add(30*time.Minute), *req.BroadcastExpiresAt)

	rows := mem.Broadcasts("req-1")
	require.Len(t, rows, 2)
	// Category matches rank ahead of non-matches regardless of distance.
	assert.Equal(t, "h-match", rows[0].HelperID)
	assert.Equal(t, "h-other", rows[1].HelperID)
	for _, row := range rows {
		assert.Equal(t, out.RoundID, row.RoundID)
		assert.Equal(t, model.BroadcastSent, row.Status)
	}

	assert.ElementsMatch(t, []string{"h-match", "h-other"}, ch.helpers())
	assert.Equal(t, []string{"user-1"}, ch.userPushes)

	notes := mem.Notifications()
	require.Len(t, notes, 1)
	assert.Equal(t, "user-1", notes[0].UserID)
	assert.Equal(t, "broadcast_summary", notes[0].Type)
}

func TestBroadcastUnknownRequest(t *testing.T) {
	orch := newOrchestrator(t, seedStore(t), &recordingChannel{})
	_, err := orch.Broadcast(context.Background(), "missing")
	var notFound *dispatch.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestBroadcastTerminalState(t *testing.T) {
	mem := seedStore(t)
	orch := newOrchestrator(t, mem, &recordingChannel{})
	require.NoError(t, orch.Complete(context.Background(), "req-1"))

	_, err := orch.Broadcast(context.Background(), "req-1")
	var terminal *dispatch.TerminalStateError
	require.ErrorAs(t, err, &terminal)
}

func TestRebroadcastReplacesRows(t *testing.T) {
	mem := seedStore(t)
	orch := newOrchestrator(t, mem, &recordingChannel{})

	first, err := orch.Broadcast(context.Background(), "req-1")
	require.NoError(t, err)
	second, err := orch.Broadcast(context.Background(), "req-1")
	require.NoError(t, err)
	require.NotEqual(t, first.RoundID, second.RoundID)

	rows := mem.Broadcasts("req-1")
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, second.RoundID, row.RoundID)
	}
}

func TestBroadcastPartialDelivery(t *testing.T) {
	mem := seedStore(t)
	ch := &recordingChannel{failFor: map[string]bool{"h-other": true}}
	orch := newOrchestrator(t, mem, ch)

	out, err := orch.Broadcast(context.Background(), "req-1")
	require.NoError(t, err)
	assert.Equal(t, 2, out.Candidates)
	assert.Equal(t, 1, out.HelpersNotified)
	// The round still completes and every candidate keeps a broadcast row.
	assert.Len(t, mem.Broadcasts("req-1"), 2)
}

func TestAcceptFirstWinsSecondConflicts(t *testing.T) {
	mem := seedStore(t)
	orch := newOrchestrator(t, mem, &recordingChannel{})
	_, err := orch.Broadcast(context.Background(), "req-1")
	require.NoError(t, err)

	require.NoError(t, orch.Accept(context.Background(), "req-1", "h-match"))

	err = orch.Accept(context.Background(), "req-1", "h-other")
	var assigned *dispatch.AlreadyAssignedError
	require.ErrorAs(t, err, &assigned)
	assert.Equal(t, "h-match", assigned.HelperID)

	req, err := mem.GetRequest(context.Background(), "req-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusAssigned, req.Status)
	assert.Equal(t, "h-match", req.AssignedHelperID)
	require.NotNil(t, req.HelperAcceptedAt)

	for _, row := range mem.Broadcasts("req-1") {
		if row.HelperID == "h-match" {
			assert.Equal(t, model.BroadcastAccepted, row.Status)
		}
	}
}

func TestDeclineMarksRow(t *testing.T) {
	mem := seedStore(t)
	orch := newOrchestrator(t, mem, &recordingChannel{})
	_, err := orch.Broadcast(context.Background(), "req-1")
	require.NoError(t, err)

	require.NoError(t, orch.Decline(context.Background(), "req-1", "h-other"))
	for _, row := range mem.Broadcasts("req-1") {
		if row.HelperID == "h-other" {
			assert.Equal(t, model.BroadcastDeclined, row.Status)
		}
	}

	// Declines never transition the request lifecycle.
	req, err := mem.GetRequest(context.Background(), "req-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusOpen, req.Status)
}

func TestCancelAssignmentRebroadcasts(t *testing.T) {
	mem := seedStore(t)
	orch := newOrchestrator(t, mem, &recordingChannel{})
	first, err := orch.Broadcast(context.Background(), "req-1")
	require.NoError(t, err)
	require.NoError(t, orch.Accept(context.Background(), "req-1", "h-match"))

	out, err := orch.CancelAssignment(context.Background(), "req-1", "h-match")
	require.NoError(t, err)
	assert.NotEqual(t, first.RoundID, out.RoundID)

	req, err := mem.GetRequest(context.Background(), "req-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusOpen, req.Status)
	assert.Empty(t, req.AssignedHelperID)
	assert.Equal(t, model.BroadcastActive, req.BroadcastStatus)
}

func TestCancelAssignmentAfterWorkStarted(t *testing.T) {
	mem := seedStore(t)
	started := fixedTS.Add(-time.Hour)
	mem.PutRequest(model.ServiceRequest{
		ID:               "req-2",
		RequesterID:      "user-1",
		Category:         model.Category{ID: "cat-1"},
		Status:           model.StatusInProgress,
		AssignedHelperID: "h-match",
		WorkStartedAt:    &started,
	})
	orch := newOrchestrator(t, mem, &recordingChannel{})

	_, err := orch.CancelAssignment(context.Background(), "req-2", "h-match")
	var ws *dispatch.WorkStartedError
	require.ErrorAs(t, err, &ws)
}

func TestCancelAssignmentWrongHelper(t *testing.T) {
	mem := seedStore(t)
	orch := newOrchestrator(t, mem, &recordingChannel{})
	_, err := orch.Broadcast(context.Background(), "req-1")
	require.NoError(t, err)
	require.NoError(t, orch.Accept(context.Background(), "req-1", "h-match"))

	_, err = orch.CancelAssignment(context.Background(), "req-1", "h-other")
	var notFound *dispatch.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestCompleteMakesLifecycleTerminal(t *testing.T) {
	mem := seedStore(t)
	orch := newOrchestrator(t, mem, &recordingChannel{})
	_, err := orch.Broadcast(context.Background(), "req-1")
	require.NoError(t, err)
	require.NoError(t, orch.Accept(context.Background(), "req-1", "h-match"))
	require.NoError(t, orch.Complete(context.Background(), "req-1"))

	req, err := mem.GetRequest(context.Background(), "req-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, req.Status)
	assert.Equal(t, model.BroadcastCompleted, req.BroadcastStatus)

	_, err = orch.Broadcast(context.Background(), "req-1")
	var terminal *dispatch.TerminalStateError
	require.ErrorAs(t, err, &terminal)
}

func TestFindMatchingHelpers(t *testing.T) {
	mem := seedStore(t)
	orch := newOrchestrator(t, mem, &recordingChannel{})

	results, err := orch.FindMatchingHelpers(context.Background(), match.Criteria{
		Category: model.Category{ID: "cat-1"},
		Location: &center,
		Urgency:  model.UrgencyImmediate,
	})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "h-match", results[0].HelperID)
	assert.True(t, results[0].CategoryMatch)
	for i := 1; i < len(results); i++ {
		if results[i].CategoryMatch == results[0].CategoryMatch {
			assert.LessOrEqual(t, results[i].Score, results[i-1].Score)
		}
	}
}
