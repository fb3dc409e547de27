package model

// Candidate is a helper under consideration for a request, annotated with the
// distance at filter time and the category-match outcome.
type Candidate struct {
	Helper        HelperProfile
	DistanceKm    float64
	CategoryMatch bool
	// MatchRule names the first category rule that matched, empty when
	// CategoryMatch is false. The match itself is an OR over all rules.
	MatchRule string
}

// MatchResult is the ranked output of the scorer for one candidate. It is
// produced fresh on every dispatch invocation and never persisted.
type MatchResult struct {
	HelperID      string   `json:"helper_id"`
	HelperName    string   `json:"helper_name,omitempty"`
	Score         float64  `json:"score"`
	Reasons       []string `json:"reasons"`
	DistanceKm    float64  `json:"distance_km"`
	EstimatedMins int      `json:"estimated_arrival_mins"`
	ResponseTime  string   `json:"response_time"`
	Availability  string   `json:"availability"`
	Badges        []string `json:"badges"`
	CategoryMatch bool     `json:"category_match"`
}
