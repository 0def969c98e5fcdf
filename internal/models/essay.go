package models

import (
	"time"

	"github.com/google/uuid"
)

// Academic level enums.
const (
	LevelMiddleSchool = "middle_school"
	LevelHighSchool   = "high_school"
	LevelUndergrad    = "undergraduate"
	LevelPostgrad     = "postgraduate"
)

// Essay is an already-validated submission: the upload/extraction pipeline
// lives outside this service, essays arrive as text.
type Essay struct {
	ID            uuid.UUID `json:"id"`
	AccountID     uuid.UUID `json:"account_id"`
	Title         string    `json:"title"`
	Instructions  string    `json:"instructions"`
	RubricText    string    `json:"rubric_text,omitempty"`
	FocusAreas    []string  `json:"focus_areas,omitempty"`
	AcademicLevel string    `json:"academic_level"`
	BodyText      string    `json:"body_text"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
