package models

import (
	"time"

	"github.com/google/uuid"
)

// ModelResult records one ensemble run. Created once at orchestration end,
// read-only afterward.
type ModelResult struct {
	ID         uuid.UUID `json:"id"`
	GradeID    uuid.UUID `json:"grade_id"`
	Model      string    `json:"model"`
	Percentage float64   `json:"percentage"`
	// Included is the outlier detector's decision; Reason says why not.
	Included   bool    `json:"included"`
	Reason     string  `json:"reason,omitempty"`
	DurationMs int64   `json:"duration_ms"`
	Cost       *string `json:"cost,omitempty"`
	// Recovered marks results salvaged from malformed model output.
	Recovered bool      `json:"recovered,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
