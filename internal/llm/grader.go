package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gradecraft/backend/internal/models"
)

// RunParams configures one ensemble run.
type RunParams struct {
	Model           string
	Temperature     float32
	MaxOutputTokens int32
	// ReasoningEffort is "", "low", "medium" or "high"; "" disables model
	// reasoning for the run.
	ReasoningEffort string
}

// Result is one model's grading of an essay. Raw preserves the JSON the
// model produced for schema checks and audit logging.
type Result struct {
	Percentage     float64            `json:"percentage"`
	CategoryScores map[string]float64 `json:"category_scores"`
	Strengths      []string           `json:"strengths"`
	Improvements   []string           `json:"improvements"`
	LanguageTips   []string           `json:"language_tips"`

	TokensUsed int             `json:"-"`
	Recovered  bool            `json:"-"`
	Raw        json.RawMessage `json:"-"`
}

// Feedback converts the narrative parts of a result.
func (r *Result) Feedback() *models.Feedback {
	return &models.Feedback{
		Strengths:    r.Strengths,
		Improvements: r.Improvements,
		LanguageTips: r.LanguageTips,
	}
}

// Grader is one independent grading backend. Implementations classify every
// failure into a tagged *Error before returning it.
type Grader interface {
	Grade(ctx context.Context, prompt string, p RunParams) (*Result, error)
	// Synthesize merges narrative feedback from several runs into one
	// blended report.
	Synthesize(ctx context.Context, prompt string, p RunParams) (*models.Feedback, error)
}

// ParseResult decodes model output into a Result and checks that the
// required fields are present and correctly typed.
func ParseResult(raw []byte) (*Result, error) {
	var probe struct {
		Percentage     *float64           `json:"percentage"`
		CategoryScores map[string]float64 `json:"category_scores"`
		Strengths      []string           `json:"strengths"`
		Improvements   []string           `json:"improvements"`
		LanguageTips   []string           `json:"language_tips"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	if probe.Percentage == nil {
		return nil, fmt.Errorf("result missing percentage")
	}
	if *probe.Percentage < 0 || *probe.Percentage > 100 {
		return nil, fmt.Errorf("percentage %v out of range", *probe.Percentage)
	}
	if len(probe.CategoryScores) == 0 {
		return nil, fmt.Errorf("result missing category_scores")
	}
	if probe.Strengths == nil || probe.Improvements == nil {
		return nil, fmt.Errorf("result missing narrative feedback")
	}
	return &Result{
		Percentage:     *probe.Percentage,
		CategoryScores: probe.CategoryScores,
		Strengths:      probe.Strengths,
		Improvements:   probe.Improvements,
		LanguageTips:   probe.LanguageTips,
		Raw:            append(json.RawMessage(nil), raw...),
	}, nil
}
