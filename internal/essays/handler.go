package essays

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/gradecraft/backend/internal/middleware"
	"github.com/gradecraft/backend/internal/models"
)

// Essay bodies beyond this are rejected up front rather than burned through
// the grading ensemble.
const maxBodyChars = 60000

var validLevels = map[string]bool{
	models.LevelMiddleSchool: true,
	models.LevelHighSchool:   true,
	models.LevelUndergrad:    true,
	models.LevelPostgrad:     true,
}

// Store is the essay persistence the handler needs.
type Store interface {
	Create(ctx context.Context, e *models.Essay) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Essay, error)
	ListByAccountID(ctx context.Context, accountID uuid.UUID) ([]*models.Essay, error)
}

type Handler struct {
	store Store
	log   *slog.Logger
}

func NewHandler(store Store, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{store: store, log: log}
}

type createEssayRequest struct {
	Title         string   `json:"title"`
	Instructions  string   `json:"instructions"`
	RubricText    string   `json:"rubric_text"`
	FocusAreas    []string `json:"focus_areas"`
	AcademicLevel string   `json:"academic_level"`
	BodyText      string   `json:"body_text"`
}

// CreateEssay handles POST /v1/essays.
func (h *Handler) CreateEssay(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var req createEssayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if req.Title == "" || req.Instructions == "" || req.BodyText == "" {
		http.Error(w, `{"error":"title, instructions and body_text are required"}`, http.StatusBadRequest)
		return
	}
	if !validLevels[req.AcademicLevel] {
		http.Error(w, `{"error":"invalid academic_level"}`, http.StatusBadRequest)
		return
	}
	if len(req.BodyText) > maxBodyChars {
		http.Error(w, `{"error":"essay body too long"}`, http.StatusRequestEntityTooLarge)
		return
	}

	essay := &models.Essay{
		ID:            uuid.New(),
		AccountID:     acc.ID,
		Title:         req.Title,
		Instructions:  req.Instructions,
		RubricText:    req.RubricText,
		FocusAreas:    req.FocusAreas,
		AcademicLevel: req.AcademicLevel,
		BodyText:      req.BodyText,
	}
	if err := h.store.Create(r.Context(), essay); err != nil {
		h.log.Error("create essay", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, essay)
}

// GetEssay handles GET /v1/essays/{id}.
func (h *Handler) GetEssay(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	essayID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid essay id"}`, http.StatusBadRequest)
		return
	}

	essay, err := h.store.GetByID(r.Context(), essayID)
	if err != nil || essay.AccountID != acc.ID {
		if err != nil && !errors.Is(err, ErrNotFound) {
			h.log.Error("get essay", "error", err)
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
			return
		}
		http.Error(w, `{"error":"essay not found"}`, http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, essay)
}

// ListEssays handles GET /v1/essays.
func (h *Handler) ListEssays(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	list, err := h.store.ListByAccountID(r.Context(), acc.ID)
	if err != nil {
		h.log.Error("list essays", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []*models.Essay{}
	}

	writeJSON(w, http.StatusOK, list)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
