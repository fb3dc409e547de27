package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/helperlink/dispatch/core/events"
	"github.com/helperlink/dispatch/core/logger"
	"github.com/helperlink/dispatch/core/match"
	"github.com/helperlink/dispatch/core/metrics"
	"github.com/helperlink/dispatch/core/model"
	"github.com/helperlink/dispatch/core/notify"
	"github.com/helperlink/dispatch/internal/eventbus"
)

// Orchestrator drives the request dispatch lifecycle: broadcast, exclusive
// accept, cancel-and-rebroadcast and completion. All collaborators are
// injected; there is no ambient client or shared cache.
type Orchestrator struct {
	store   Store
	fanout  *notify.Fanout
	bus     eventbus.EventBus
	metrics metrics.BroadcastSink
	logger  logger.Logger
	cfg     Config
	now     func() time.Time
}

// BroadcastOutcome summarises one broadcast round for the caller.
type BroadcastOutcome struct {
	RequestID       string `json:"request_id"`
	RoundID         string `json:"round_id"`
	Candidates      int    `json:"candidates"`
	HelpersNotified int    `json:"helpers_notified"`
	Fallback        bool   `json:"fallback"`
	Message         string `json:"message"`
}

// NewOrchestrator creates a new orchestrator.
func NewOrchestrator(store Store, fanout *notify.Fanout, bus eventbus.EventBus, sink metrics.BroadcastSink, log logger.Logger, cfg Config) (*Orchestrator, error) {
	if store == nil || fanout == nil || log == nil {
		return nil, fmt.Errorf("dispatch: nil parameter provided to NewOrchestrator")
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	cfg.SetDefaults()
	return &Orchestrator{
		store:   store,
		fanout:  fanout,
		bus:     bus,
		metrics: sink,
		logger:  log,
		cfg:     cfg,
		now:     time.Now,
	}, nil
}

// SetClock overrides the time source, for tests.
func (o *Orchestrator) SetClock(now func() time.Time) {
	if now != nil {
		o.now = now
	}
}

// Broadcast runs one fan-out round for the request: it validates the
// lifecycle, flips the request into the broadcasting state, wipes stale
// broadcast rows, ranks candidates and notifies them. Steps after the state
// flip are individually recoverable by re-invoking Broadcast, because the row
// wipe makes the whole operation idempotent.
func (o *Orchestrator) Broadcast(ctx context.Context, requestID string) (BroadcastOutcome, error) {
	req, err := o.store.GetRequest(ctx, requestID)
	if err != nil {
		return BroadcastOutcome{}, err
	}
	if !req.Broadcastable() {
		return BroadcastOutcome{}, &TerminalStateError{RequestID: requestID}
	}

	requester, err := o.store.GetRequester(ctx, req.RequesterID)
	if err != nil {
		return BroadcastOutcome{}, err
	}
	if cat, err := o.store.GetCategory(ctx, req.Category.ID); err == nil {
		req.Category = cat
	}

	now := o.now()
	expires := now.Add(time.Duration(o.cfg.BroadcastTTLMinutes) * time.Minute)
	if err := o.store.MarkBroadcasting(ctx, requestID, expires); err != nil {
		broadcastsFailed.Inc()
		return BroadcastOutcome{}, fmt.Errorf("mark broadcasting: %w", err)
	}
	req.Status = model.StatusOpen
	req.BroadcastStatus = model.BroadcastActive
	req.AssignedHelperID = ""

	// Stale rows from a prior round must never be actionable.
	if err := o.store.DeleteBroadcasts(ctx, requestID); err != nil {
		broadcastsFailed.Inc()
		return BroadcastOutcome{}, fmt.Errorf("clear stale broadcasts: %w", err)
	}

	helpers, err := o.store.ListEligibleHelpers(ctx)
	if err != nil {
		broadcastsFailed.Inc()
		return BroadcastOutcome{}, fmt.Errorf("helper snapshot: %w", err)
	}
	candidates, fallback, err := match.FilterCandidates(req, helpers, o.cfg.Match)
	if err != nil {
		broadcastsFailed.Inc()
		return BroadcastOutcome{}, err
	}
	ranked := match.ScoreAll(candidates, match.CriteriaFromRequest(req, now))
	match.RankForDispatch(ranked)

	roundID := uuid.NewString()
	rows := make([]model.BroadcastNotification, 0, len(ranked))
	for _, r := range ranked {
		rows = append(rows, model.BroadcastNotification{
			RequestID:  requestID,
			HelperID:   r.HelperID,
			RoundID:    roundID,
			Status:     model.BroadcastSent,
			DistanceKm: r.DistanceKm,
			SentAt:     now,
		})
	}
	if err := o.store.InsertBroadcasts(ctx, rows); err != nil {
		broadcastsFailed.Inc()
		return BroadcastOutcome{}, fmt.Errorf("insert broadcasts: %w", err)
	}

	broadcastsStarted.WithLabelValues(string(req.Urgency)).Inc()
	delivered, _ := o.fanout.Notify(ctx, req, requester.Name, ranked)
	if delivered < len(ranked) {
		o.logger.Warnf("broadcast %s: %v", roundID, &PartialDeliveryError{
			RequestID: requestID, Failed: len(ranked) - delivered, Total: len(ranked),
		})
	}
	helpersNotified.Observe(float64(delivered))

	summary := model.Notification{
		ID:        uuid.NewString(),
		UserID:    req.RequesterID,
		Type:      "broadcast_summary",
		Title:     "Helpers notified",
		Message:   fmt.Sprintf("Sent to %d helpers", delivered),
		CreatedAt: now,
	}
	if err := o.store.InsertNotification(ctx, summary); err != nil {
		o.logger.Warnf("requester notification insert failed: %v", err)
	}
	if err := o.fanout.NotifyRequester(ctx, req, delivered); err != nil {
		o.logger.Warnf("requester push failed: %v", err)
	}

	if fallback {
		fallbackBroadcasts.Inc()
	}
	o.publish(events.BroadcastEvent{
		RequestID:       requestID,
		RoundID:         roundID,
		Candidates:      len(candidates),
		HelpersNotified: delivered,
		Fallback:        fallback,
		Time:            now,
	})
	if err := o.metrics.RecordBroadcast(metrics.BroadcastRecord{
		RequestID:  requestID,
		RoundID:    roundID,
		CategoryID: req.Category.ID,
		Urgency:    string(req.Urgency),
		Candidates: len(candidates),
		Notified:   delivered,
		Fallback:   fallback,
		Scores:     match.Summarize(ranked),
		Time:       now,
	}); err != nil {
		o.logger.Errorf("metrics error: %v", err)
	}

	o.logger.Infof("broadcast %s round %s: %d candidates, %d notified", requestID, roundID, len(candidates), delivered)
	return BroadcastOutcome{
		RequestID:       requestID,
		RoundID:         roundID,
		Candidates:      len(candidates),
		HelpersNotified: delivered,
		Fallback:        fallback,
		Message:         fmt.Sprintf("Request broadcast to %d helpers", delivered),
	}, nil
}

// Accept records a helper's accept attempt. The first accepting helper wins
// through a single atomic conditional update; every later attempt surfaces
// AlreadyAssignedError to its caller.
func (o *Orchestrator) Accept(ctx context.Context, requestID, helperID string) error {
	now := o.now()
	err := o.store.AssignHelper(ctx, requestID, helperID, now)
	o.publish(events.AcceptEvent{RequestID: requestID, HelperID: helperID, Won: err == nil, Err: err, Time: now})
	if err != nil {
		if _, ok := err.(*AlreadyAssignedError); ok {
			acceptConflicts.Inc()
		}
		return err
	}
	acceptWins.Inc()
	if err := o.store.MarkBroadcastResponse(ctx, requestID, helperID, model.BroadcastAccepted); err != nil {
		o.logger.Warnf("broadcast row accept mark failed: %v", err)
	}
	o.logger.Infof("request %s accepted by helper %s", requestID, helperID)
	return nil
}

// Decline records a helper's decline on their broadcast row. Declines drive
// no lifecycle transition; the round keeps running for the other candidates.
func (o *Orchestrator) Decline(ctx context.Context, requestID, helperID string) error {
	return o.store.MarkBroadcastResponse(ctx, requestID, helperID, model.BroadcastDeclined)
}

// CancelAssignment releases the assignment held by helperID (only before work
// start) and immediately re-broadcasts the request.
func (o *Orchestrator) CancelAssignment(ctx context.Context, requestID, helperID string) (BroadcastOutcome, error) {
	if err := o.store.ReleaseAssignment(ctx, requestID, helperID); err != nil {
		return BroadcastOutcome{}, err
	}
	o.publish(events.AssignmentReleasedEvent{RequestID: requestID, HelperID: helperID, Time: o.now()})
	o.logger.Infof("request %s released by helper %s, re-broadcasting", requestID, helperID)
	return o.Broadcast(ctx, requestID)
}

// Complete marks the request finished. Its broadcast lifecycle becomes
// terminal: any later Broadcast fails with TerminalStateError.
func (o *Orchestrator) Complete(ctx context.Context, requestID string) error {
	return o.store.CompleteRequest(ctx, requestID)
}

// FindMatchingHelpers runs the scorer outside the dispatch path, applying the
// configured minimum score and result cap.
func (o *Orchestrator) FindMatchingHelpers(ctx context.Context, crit match.Criteria) ([]model.MatchResult, error) {
	if crit.Category.ID != "" {
		if cat, err := o.store.GetCategory(ctx, crit.Category.ID); err == nil {
			crit.Category = cat
		}
	}
	helpers, err := o.store.ListEligibleHelpers(ctx)
	if err != nil {
		return nil, fmt.Errorf("helper snapshot: %w", err)
	}
	if crit.Now.IsZero() {
		crit.Now = o.now()
	}
	return match.Find(crit, helpers, o.cfg.Match)
}

func (o *Orchestrator) publish(e eventbus.Event) {
	if o.bus != nil {
		o.bus.Publish(e)
	}
}
