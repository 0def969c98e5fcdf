package grading

import (
	"github.com/gradecraft/backend/internal/llm"
	"github.com/gradecraft/backend/internal/models"
)

// Aggregated is the combined view of the included ensemble runs.
type Aggregated struct {
	Range          models.PercentageRange
	CategoryScores map[string]float64
	// Feedback is the lowest scorer's narrative, the conservative default
	// when synthesis is off or fails.
	Feedback    *models.Feedback
	TotalTokens int
}

// Aggregate folds the included results into the values persisted on the
// grade: score range over all included percentages, per-category mean over
// the results that scored each category, and the lowest scorer's feedback.
// Callers guarantee at least one included result.
func Aggregate(included []*llm.Result) Aggregated {
	agg := Aggregated{
		Range: models.PercentageRange{
			Lower: included[0].Percentage,
			Upper: included[0].Percentage,
		},
	}

	lowest := included[0]
	catSums := make(map[string]float64)
	catCounts := make(map[string]int)
	for _, res := range included {
		if res.Percentage < agg.Range.Lower {
			agg.Range.Lower = res.Percentage
		}
		if res.Percentage > agg.Range.Upper {
			agg.Range.Upper = res.Percentage
		}
		if res.Percentage < lowest.Percentage {
			lowest = res
		}
		for cat, score := range res.CategoryScores {
			catSums[cat] += score
			catCounts[cat]++
		}
		agg.TotalTokens += res.TokensUsed
	}

	agg.CategoryScores = make(map[string]float64, len(catSums))
	for cat, sum := range catSums {
		agg.CategoryScores[cat] = sum / float64(catCounts[cat])
	}
	agg.Feedback = lowest.Feedback()
	return agg
}
