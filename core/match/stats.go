package match

import (
	"gonum.org/v1/gonum/stat"

	"github.com/helperlink/dispatch/core/model"
)

// ScoreSummary describes the score distribution of one broadcast round. It is
// attached to the broadcast metrics record so ranking drift is observable.
type ScoreSummary struct {
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
}

// Summarize computes the score distribution of the given results.
func Summarize(results []model.MatchResult) ScoreSummary {
	if len(results) == 0 {
		return ScoreSummary{}
	}
	scores := make([]float64, len(results))
	min, max := results[0].Score, results[0].Score
	for i, r := range results {
		scores[i] = r.Score
		if r.Score < min {
			min = r.Score
		}
		if r.Score > max {
			max = r.Score
		}
	}
	s := ScoreSummary{Mean: stat.Mean(scores, nil), Min: min, Max: max}
	if len(scores) > 1 {
		s.StdDev = stat.StdDev(scores, nil)
	}
	return s
}
