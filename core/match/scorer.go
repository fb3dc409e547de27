package match

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/helperlink/dispatch/core/model"
)

// Criteria carries the request-side inputs the scorer needs.
type Criteria struct {
	Category  model.Category
	Location  *model.Coordinate
	Urgency   model.Urgency
	BudgetMin float64
	BudgetMax float64
	Now       time.Time
}

// CriteriaFromRequest derives scoring criteria from a service request.
func CriteriaFromRequest(req model.ServiceRequest, now time.Time) Criteria {
	return Criteria{
		Category:  req.Category,
		Location:  req.Location,
		Urgency:   req.Urgency,
		BudgetMin: req.BudgetMin,
		BudgetMax: req.BudgetMax,
		Now:       now,
	}
}

// Score computes the 0-100 composite match score for a candidate. The result
// is deterministic for identical inputs. Missing helper data degrades the
// affected factor to its minimum contribution instead of disqualifying the
// candidate.
func Score(c model.Candidate, crit Criteria) model.MatchResult {
	h := c.Helper
	now := crit.Now
	if now.IsZero() {
		now = time.Now()
	}

	var score float64
	var reasons []string

	// Distance dominates: this is an on-demand, travel-bound service.
	score += math.Max(0, 25-2*c.DistanceKm)
	if h.Location != nil {
		switch {
		case c.DistanceKm < 3:
			reasons = append(reasons, fmt.Sprintf("Very close (%.1fkm away)", c.DistanceKm))
		case c.DistanceKm < 10:
			reasons = append(reasons, fmt.Sprintf("Nearby (%.1fkm away)", c.DistanceKm))
		}
	}

	avail := availabilityPoints(h, crit.Urgency)
	score += avail
	if crit.Urgency == model.UrgencyImmediate && avail >= 20 {
		reasons = append(reasons, "Available right now")
	}

	if h.Rating > 0 {
		score += (h.Rating / 5) * 15
		switch {
		case h.Rating >= 4.7:
			reasons = append(reasons, fmt.Sprintf("Excellent rating (%.1f★)", h.Rating))
		case h.Rating >= 4.0:
			reasons = append(reasons, fmt.Sprintf("Highly rated (%.1f★)", h.Rating))
		}
	}

	score += math.Min(10, float64(h.CompletedJobs)/10)
	switch {
	case h.CompletedJobs >= 100:
		reasons = append(reasons, fmt.Sprintf("Seasoned pro (%d jobs completed)", h.CompletedJobs))
	case h.CompletedJobs >= 20:
		reasons = append(reasons, fmt.Sprintf("Experienced (%d jobs completed)", h.CompletedJobs))
	}

	score += responsePoints(h.AvgResponseMinutes)
	if h.AvgResponseMinutes > 0 && h.AvgResponseMinutes < 10 {
		reasons = append(reasons, fmt.Sprintf("Responds fast (%d min avg)", int(h.AvgResponseMinutes)))
	}

	if priceFits(h.HourlyRate, crit.BudgetMin, crit.BudgetMax) {
		score += 10
		reasons = append(reasons, "Within your budget")
	} else {
		score += 5
	}

	if h.Verifications >= 2 {
		score += 5
		reasons = append(reasons, "Identity verified")
	}

	score += recencyPoints(h.LastActiveAt, now)

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}

	return model.MatchResult{
		HelperID:      h.ID,
		HelperName:    h.Name,
		Score:         score,
		Reasons:       reasons,
		DistanceKm:    c.DistanceKm,
		EstimatedMins: estimateArrival(c.DistanceKm),
		ResponseTime:  responseBucket(h.AvgResponseMinutes),
		Availability:  availabilityClass(h),
		Badges:        badges(h),
		CategoryMatch: c.CategoryMatch,
	}
}

// ScoreAll scores every candidate without reordering.
func ScoreAll(candidates []model.Candidate, crit Criteria) []model.MatchResult {
	out := make([]model.MatchResult, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, Score(c, crit))
	}
	return out
}

// RankForDispatch orders results for broadcast fan-out: category-matched
// candidates always sort before non-matched ones, with plain distance
// ascending as the tie-break within each group.
func RankForDispatch(results []model.MatchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].CategoryMatch != results[j].CategoryMatch {
			return results[i].CategoryMatch
		}
		return results[i].DistanceKm < results[j].DistanceKm
	})
}

// RankByScore orders results by composite score, best first. Category matches
// still lead their group per the dispatch contract.
func RankByScore(results []model.MatchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].CategoryMatch != results[j].CategoryMatch {
			return results[i].CategoryMatch
		}
		return results[i].Score > results[j].Score
	})
}

// Find runs the filter and scorer outside the dispatch path, applying the
// configured minimum score and result cap. Used by recommendation callers.
func Find(crit Criteria, helpers []model.HelperProfile, cfg Config) ([]model.MatchResult, error) {
	req := model.ServiceRequest{
		Category:  crit.Category,
		Location:  crit.Location,
		Urgency:   crit.Urgency,
		BudgetMin: crit.BudgetMin,
		BudgetMax: crit.BudgetMax,
	}
	candidates, _, err := FilterCandidates(req, helpers, cfg)
	if err != nil {
		return nil, err
	}
	results := ScoreAll(candidates, crit)
	RankByScore(results)
	filtered := results[:0]
	for _, r := range results {
		if r.Score >= cfg.MinScore {
			filtered = append(filtered, r)
		}
	}
	if cfg.MaxResults > 0 && len(filtered) > cfg.MaxResults {
		filtered = filtered[:cfg.MaxResults]
	}
	return filtered, nil
}

func availabilityPoints(h model.HelperProfile, u model.Urgency) float64 {
	switch u {
	case model.UrgencyImmediate:
		if h.IsOnline && h.IsAvailableNow {
			return 20
		}
		if h.IsOnline {
			return 12
		}
		return 4
	case model.UrgencySameDay:
		if h.IsOnline || h.IsAvailableNow {
			return 14
		}
		return 6
	default:
		// Immediacy is irrelevant for scheduled and flexible work.
		return 8
	}
}

func responsePoints(mins float64) float64 {
	switch {
	case mins <= 0:
		return 2
	case mins < 5:
		return 10
	case mins < 15:
		return 8
	case mins < 30:
		return 5
	default:
		return 2
	}
}

func recencyPoints(lastActive, now time.Time) float64 {
	if lastActive.IsZero() {
		return 1
	}
	since := now.Sub(lastActive)
	switch {
	case since < time.Hour:
		return 5
	case since < 24*time.Hour:
		return 3
	default:
		return 1
	}
}

func priceFits(rate, budgetMin, budgetMax float64) bool {
	if budgetMax <= 0 {
		return false
	}
	return rate >= budgetMin && rate <= budgetMax
}

func responseBucket(mins float64) string {
	switch {
	case mins <= 0:
		return "unknown"
	case mins < 5:
		return "<5 min"
	case mins < 15:
		return "5-15 min"
	case mins < 30:
		return "15-30 min"
	default:
		return "30+ min"
	}
}

func availabilityClass(h model.HelperProfile) string {
	switch {
	case h.IsOnline && h.IsAvailableNow:
		return "online_now"
	case h.IsOnline || h.IsAvailableNow:
		return "available_today"
	default:
		return "offline"
	}
}

// estimateArrival converts distance into a rough travel estimate at urban
// speed (~30 km/h), floored at 5 minutes.
func estimateArrival(distKm float64) int {
	mins := int(math.Ceil(distKm * 2))
	if mins < 5 {
		mins = 5
	}
	return mins
}

func badges(h model.HelperProfile) []string {
	var b []string
	if h.Rating >= 4.7 && h.CompletedJobs >= 20 {
		b = append(b, "top_rated")
	}
	if h.AvgResponseMinutes > 0 && h.AvgResponseMinutes < 10 {
		b = append(b, "fast_responder")
	}
	if h.Verifications >= 2 {
		b = append(b, "verified")
	}
	if h.BackgroundChecked {
		b = append(b, "background_checked")
	}
	if h.CompletedJobs >= 100 {
		b = append(b, "pro")
	}
	if h.IsOnline {
		b = append(b, "online_now")
	}
	return b
}
