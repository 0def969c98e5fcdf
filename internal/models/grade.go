package models

import (
	"time"

	"github.com/google/uuid"
)

// Grade status enums. A grade is claimed by the orchestrator via the
// queued→processing transition; complete and failed are terminal and
// immutable — a regrade is a new Grade row.
const (
	GradeStatusQueued     = "queued"
	GradeStatusProcessing = "processing"
	GradeStatusComplete   = "complete"
	GradeStatusFailed     = "failed"
)

// GenericFailureMessage is the only error text a caller ever sees on a
// failed grade. Internal detail goes to the logs.
const GenericFailureMessage = "Grading failed. You have not been charged for this essay."

type PercentageRange struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

type Feedback struct {
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
	LanguageTips []string `json:"language_tips"`
}

type Grade struct {
	ID        uuid.UUID `json:"id"`
	AccountID uuid.UUID `json:"account_id"`
	EssayID   uuid.UUID `json:"essay_id"`
	Status    string    `json:"status"`
	// Cost is the credit reserved for this grade, a two-decimal string.
	Cost        string     `json:"cost"`
	QueuedAt    time.Time  `json:"queued_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	PercentageRange     *PercentageRange   `json:"percentage_range,omitempty"`
	CategoryScores      map[string]float64 `json:"category_scores,omitempty"`
	Feedback            *Feedback          `json:"feedback,omitempty"`
	FeedbackSynthesized bool               `json:"feedback_synthesized,omitempty"`
	ModelResults        []ModelResult      `json:"model_results,omitempty"`
	TotalTokens         *int               `json:"total_tokens,omitempty"`
	PromptVersion       string             `json:"prompt_version,omitempty"`

	ErrorMessage string `json:"error_message,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
