package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helperlink/dispatch/core/model"
)

var (
	cityCenter = model.Coordinate{Lat: 17.3850, Lng: 78.4867}
	nearby     = model.Coordinate{Lat: 17.4399, Lng: 78.4983}
	farAway    = model.Coordinate{Lat: 28.6139, Lng: 77.2090}
)

func testRequest() model.ServiceRequest {
	return model.ServiceRequest{
		ID:       "req-1",
		Category: model.Category{ID: "cat-1", Slug: "plumbing", Name: "Plumbing"},
		Location: &cityCenter,
		Urgency:  model.UrgencyImmediate,
	}
}

func defaultConfig() Config {
	cfg := Config{}
	cfg.SetDefaults()
	return cfg
}

func eligibleHelper(id string, loc *model.Coordinate, cats ...string) model.HelperProfile {
	return model.HelperProfile{
		ID:         id,
		Name:       id,
		Approved:   true,
		IsOnline:   true,
		Location:   loc,
		Categories: cats,
	}
}

func TestFilterCandidatesNoLocation(t *testing.T) {
	req := testRequest()
	req.Location = nil
	_, _, err := FilterCandidates(req, []model.HelperProfile{eligibleHelper("h1", &nearby)}, defaultConfig())
	var invalid *InvalidRequestError
	require.ErrorAs(t, err, &invalid)
}

func TestFilterCandidatesNoCategory(t *testing.T) {
	req := testRequest()
	req.Category = model.Category{}
	_, _, err := FilterCandidates(req, []model.HelperProfile{eligibleHelper("h1", &nearby)}, defaultConfig())
	var invalid *InvalidRequestError
	require.ErrorAs(t, err, &invalid)
}

func TestFilterCandidatesRadius(t *testing.T) {
	helpers := []model.HelperProfile{
		eligibleHelper("near", &nearby, "plumbing"),
		eligibleHelper("far", &farAway, "plumbing"),
	}
	candidates, fallback, err := FilterCandidates(testRequest(), helpers, defaultConfig())
	require.NoError(t, err)
	assert.False(t, fallback)
	require.Len(t, candidates, 1)
	assert.Equal(t, "near", candidates[0].Helper.ID)
	assert.InDelta(t, 6.2, candidates[0].DistanceKm, 0.5)
	assert.True(t, candidates[0].CategoryMatch)
	assert.Equal(t, "slug", candidates[0].MatchRule)
}

func TestFilterCandidatesSkipsIneligible(t *testing.T) {
	offline := eligibleHelper("offline", &nearby, "plumbing")
	offline.IsOnline = false
	onJob := eligibleHelper("busy", &nearby, "plumbing")
	onJob.IsOnJob = true
	unapproved := eligibleHelper("pending", &nearby, "plumbing")
	unapproved.Approved = false

	helpers := []model.HelperProfile{offline, onJob, unapproved, eligibleHelper("ok", &nearby, "plumbing")}
	candidates, fallback, err := FilterCandidates(testRequest(), helpers, defaultConfig())
	require.NoError(t, err)
	assert.False(t, fallback)
	require.Len(t, candidates, 1)
	assert.Equal(t, "ok", candidates[0].Helper.ID)
}

func TestFilterCandidatesKeepsMissingCoordinates(t *testing.T) {
	helpers := []model.HelperProfile{
		eligibleHelper("located", &nearby, "plumbing"),
		eligibleHelper("unlocated", nil, "plumbing"),
	}
	candidates, fallback, err := FilterCandidates(testRequest(), helpers, defaultConfig())
	require.NoError(t, err)
	assert.False(t, fallback)
	require.Len(t, candidates, 2)
	var unlocated model.Candidate
	for _, c := range candidates {
		if c.Helper.ID == "unlocated" {
			unlocated = c
		}
	}
	assert.Equal(t, "unlocated", unlocated.Helper.ID)
	assert.Zero(t, unlocated.DistanceKm)
	assert.False(t, unlocated.CategoryMatch)
}

func TestFilterCandidatesFallback(t *testing.T) {
	helpers := []model.HelperProfile{
		eligibleHelper("far-1", &farAway, "plumbing"),
		eligibleHelper("far-2", &farAway, "electrical"),
	}
	candidates, fallback, err := FilterCandidates(testRequest(), helpers, defaultConfig())
	require.NoError(t, err)
	assert.True(t, fallback)
	assert.Len(t, candidates, 2)
}

func TestFilterCandidatesFallbackCap(t *testing.T) {
	cfg := defaultConfig()
	cfg.FallbackCap = 1
	helpers := []model.HelperProfile{
		eligibleHelper("far-1", &farAway, "plumbing"),
		eligibleHelper("far-2", &farAway, "plumbing"),
		eligibleHelper("far-3", &farAway, "plumbing"),
	}
	candidates, fallback, err := FilterCandidates(testRequest(), helpers, cfg)
	require.NoError(t, err)
	assert.True(t, fallback)
	assert.Len(t, candidates, 1)
}

func TestFilterCandidatesEmptySnapshot(t *testing.T) {
	candidates, fallback, err := FilterCandidates(testRequest(), nil, defaultConfig())
	require.NoError(t, err)
	assert.False(t, fallback)
	assert.Empty(t, candidates)
}
