package grading

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradecraft/backend/internal/llm"
)

func gradedResult(t *testing.T, pct float64, cats map[string]float64, strength string) *llm.Result {
	t.Helper()
	catJSON := "{"
	first := true
	for cat, score := range cats {
		if !first {
			catJSON += ","
		}
		catJSON += fmt.Sprintf("%q: %g", cat, score)
		first = false
	}
	catJSON += "}"
	raw := fmt.Sprintf(`{"percentage": %g, "category_scores": %s, "strengths": [%q], "improvements": ["i"], "language_tips": []}`,
		pct, catJSON, strength)
	res, err := llm.ParseResult([]byte(raw))
	require.NoError(t, err)
	return res
}

func TestAggregateRangeAndCategories(t *testing.T) {
	agg := Aggregate([]*llm.Result{
		gradedResult(t, 70, map[string]float64{"structure": 60, "argument": 80}, "a"),
		gradedResult(t, 74, map[string]float64{"structure": 70, "argument": 90}, "b"),
		gradedResult(t, 72, map[string]float64{"structure": 65}, "c"),
	})

	assert.Equal(t, 70.0, agg.Range.Lower)
	assert.Equal(t, 74.0, agg.Range.Upper)
	assert.InDelta(t, 65.0, agg.CategoryScores["structure"], 1e-9)
	// Categories are averaged over the results that scored them.
	assert.InDelta(t, 85.0, agg.CategoryScores["argument"], 1e-9)
}

func TestAggregateFeedbackFromLowestScorer(t *testing.T) {
	agg := Aggregate([]*llm.Result{
		gradedResult(t, 80, map[string]float64{"structure": 80}, "generous"),
		gradedResult(t, 61, map[string]float64{"structure": 61}, "strict"),
		gradedResult(t, 75, map[string]float64{"structure": 75}, "middle"),
	})

	require.NotNil(t, agg.Feedback)
	assert.Equal(t, []string{"strict"}, agg.Feedback.Strengths)
}

func TestAggregateSingleResult(t *testing.T) {
	agg := Aggregate([]*llm.Result{
		gradedResult(t, 55, map[string]float64{"structure": 55}, "only"),
	})

	assert.Equal(t, 55.0, agg.Range.Lower)
	assert.Equal(t, 55.0, agg.Range.Upper)
	assert.Equal(t, []string{"only"}, agg.Feedback.Strengths)
}

func TestAggregateSumsTokens(t *testing.T) {
	a := gradedResult(t, 70, map[string]float64{"s": 70}, "a")
	a.TokensUsed = 1200
	b := gradedResult(t, 71, map[string]float64{"s": 71}, "b")
	b.TokensUsed = 900

	agg := Aggregate([]*llm.Result{a, b})

	assert.Equal(t, 2100, agg.TotalTokens)
}
