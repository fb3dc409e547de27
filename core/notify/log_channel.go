package notify

import (
	"context"

	"github.com/helperlink/dispatch/core/logger"
)

// LogChannel is a Channel that only logs deliveries. Used when no broker is
// configured and in tests.
type LogChannel struct {
	Log logger.Logger
}

func (c LogChannel) PushToHelper(_ context.Context, helperID string, p Payload) error {
	c.Log.Debugw("push to helper", map[string]any{"helper_id": helperID, "request_id": p.RequestID, "type": p.Type})
	return nil
}

func (c LogChannel) PushToUser(_ context.Context, userID string, p Payload) error {
	c.Log.Debugw("push to user", map[string]any{"user_id": userID, "request_id": p.RequestID, "type": p.Type})
	return nil
}
