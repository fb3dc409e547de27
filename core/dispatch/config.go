package dispatch

import "github.com/helperlink/dispatch/core/match"

// Config holds the orchestrator parameters.
type Config struct {
	Match match.Config `json:"match"`
	// BroadcastTTLMinutes sets broadcast_expires_at relative to the round
	// start. The field is advisory metadata for external expiry sweeping.
	BroadcastTTLMinutes int `json:"broadcast_ttl_minutes"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	c.Match.SetDefaults()
	if c.BroadcastTTLMinutes <= 0 {
		c.BroadcastTTLMinutes = 30
	}
}
