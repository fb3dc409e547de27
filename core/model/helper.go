package model

import "time"

// HelperProfile represents a worker able to take service requests. The
// matching core treats helper records as a read-only snapshot; the helper's
// own status flow mutates them.
type HelperProfile struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	Name   string `json:"name"`

	Approved           bool `json:"approved"`
	IsOnline           bool `json:"is_online"`
	IsAvailableNow     bool `json:"is_available_now"`
	IsOnJob            bool `json:"is_on_job"`
	EmergencyAvailable bool `json:"emergency_available"`

	Location   *Coordinate `json:"location,omitempty"`
	Categories []string    `json:"categories"`

	HourlyRate         float64 `json:"hourly_rate"`
	Rating             float64 `json:"rating"` // 0-5 aggregate
	CompletedJobs      int     `json:"completed_jobs"`
	AvgResponseMinutes float64 `json:"avg_response_minutes"` // <=0 means no data
	Verifications      int     `json:"verifications"`
	BackgroundChecked  bool    `json:"background_checked"`

	LastActiveAt time.Time `json:"last_active_at"`
}

// Eligible reports whether the helper may receive broadcasts at all:
// approved, not on a job, and flagged online or available now.
func (h HelperProfile) Eligible() bool {
	return h.Approved && !h.IsOnJob && (h.IsOnline || h.IsAvailableNow)
}
