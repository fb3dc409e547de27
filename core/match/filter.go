package match

import (
	"github.com/helperlink/dispatch/core/geo"
	"github.com/helperlink/dispatch/core/model"
)

// FilterCandidates builds the eligible candidate set for a request from a
// snapshot of approved, not-on-job helpers.
//
// Helpers without coordinates are kept with distance 0 and no category match:
// an unknown location never silently drops a helper. Helpers beyond the
// configured radius are discarded. If nothing survives but the snapshot was
// non-empty, the entire snapshot is returned as a fallback so the request is
// never stranded without notified helpers. The returned flag reports whether
// that fallback triggered.
func FilterCandidates(req model.ServiceRequest, helpers []model.HelperProfile, cfg Config) ([]model.Candidate, bool, error) {
	if req.Location == nil {
		return nil, false, &InvalidRequestError{Reason: "request has no coordinates"}
	}
	if req.Category.ID == "" {
		return nil, false, &InvalidRequestError{Reason: "request has no category"}
	}

	var candidates []model.Candidate
	for _, h := range helpers {
		if !h.Eligible() {
			continue
		}
		if h.Location == nil {
			candidates = append(candidates, model.Candidate{Helper: h})
			continue
		}
		dist := geo.DistanceKm(*req.Location, *h.Location)
		if dist > cfg.RadiusKm {
			continue
		}
		ok, rule := MatchCategory(req.Category, h.Categories)
		candidates = append(candidates, model.Candidate{
			Helper:        h,
			DistanceKm:    dist,
			CategoryMatch: ok,
			MatchRule:     rule,
		})
	}

	if len(candidates) == 0 && len(helpers) > 0 {
		return fallbackCandidates(helpers, cfg.FallbackCap), true, nil
	}
	return candidates, false, nil
}

// fallbackCandidates wraps the whole snapshot with distance 0 and no category
// match, optionally capped.
func fallbackCandidates(helpers []model.HelperProfile, cap int) []model.Candidate {
	out := make([]model.Candidate, 0, len(helpers))
	for _, h := range helpers {
		if cap > 0 && len(out) >= cap {
			break
		}
		out = append(out, model.Candidate{Helper: h})
	}
	return out
}
