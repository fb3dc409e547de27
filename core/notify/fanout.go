package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/helperlink/dispatch/core/logger"
	"github.com/helperlink/dispatch/core/metrics"
	"github.com/helperlink/dispatch/core/model"
)

// Fanout delivers broadcast pushes to ranked candidates. Delivery is fire and
// forget per recipient: one failure never blocks or rolls back the others.
type Fanout struct {
	channel Channel
	log     logger.Logger
}

// NewFanout creates a Fanout over the given delivery channel.
func NewFanout(channel Channel, log logger.Logger) (*Fanout, error) {
	if channel == nil {
		return nil, fmt.Errorf("notify: nil channel provided to NewFanout")
	}
	return &Fanout{channel: channel, log: log}, nil
}

// Notify pushes the request to every ranked candidate concurrently and
// returns the number of helpers actually delivered to plus the per-recipient
// delivery records. Duplicate helper ids are pushed only once.
func (f *Fanout) Notify(ctx context.Context, req model.ServiceRequest, requester string, ranked []model.MatchResult) (int, []metrics.DeliveryRecord) {
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		delivered int
		recs      []metrics.DeliveryRecord
	)
	seen := make(map[string]bool, len(ranked))
	for _, r := range ranked {
		if seen[r.HelperID] {
			continue
		}
		seen[r.HelperID] = true
		wg.Add(1)
		go func(r model.MatchResult) {
			defer wg.Done()
			start := time.Now()
			err := f.channel.PushToHelper(ctx, r.HelperID, helperPayload(req, requester, r))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				f.log.Warnf("push to helper %s failed: %v", r.HelperID, err)
			} else {
				delivered++
			}
			recs = append(recs, metrics.DeliveryRecord{
				RequestID: req.ID,
				HelperID:  r.HelperID,
				Delivered: err == nil,
				Latency:   time.Since(start),
			})
		}(r)
	}
	wg.Wait()
	return delivered, recs
}

// NotifyRequester sends the post-broadcast summary push to the requester.
func (f *Fanout) NotifyRequester(ctx context.Context, req model.ServiceRequest, helpersNotified int) error {
	p := Payload{
		RequestID: req.ID,
		Type:      "broadcast_summary",
		Title:     "Looking for helpers",
		Message:   fmt.Sprintf("Your request %q was sent to %d helpers nearby", req.Title, helpersNotified),
	}
	return f.channel.PushToUser(ctx, req.RequesterID, p)
}

func helperPayload(req model.ServiceRequest, requester string, r model.MatchResult) Payload {
	return Payload{
		RequestID:    req.ID,
		Type:         "new_request",
		Title:        req.Title,
		Message:      fmt.Sprintf("New %s request near you", req.Category.Name),
		CategoryName: req.Category.Name,
		Price:        req.EstimatedPrice,
		Urgency:      string(req.Urgency),
		Requester:    requester,
		Address:      req.Address,
		DistanceKm:   r.DistanceKm,
	}
}
