package match

// Config holds the tunable matching parameters.
type Config struct {
	// RadiusKm is the broadcast search radius.
	RadiusKm float64 `json:"radius_km"`
	// FallbackCap limits how many helpers the whole-snapshot fallback may
	// return. 0 means unlimited.
	FallbackCap int `json:"fallback_cap"`
	// MinScore is the score threshold applied by FindMatchingHelpers.
	MinScore float64 `json:"min_score"`
	// MaxResults caps FindMatchingHelpers output.
	MaxResults int `json:"max_results"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.RadiusKm <= 0 {
		c.RadiusKm = 25
	}
	if c.MinScore <= 0 {
		c.MinScore = 50
	}
	if c.MaxResults <= 0 {
		c.MaxResults = 10
	}
}
