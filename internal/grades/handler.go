package grades

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/gradecraft/backend/internal/essays"
	"github.com/gradecraft/backend/internal/ledger"
	"github.com/gradecraft/backend/internal/middleware"
	"github.com/gradecraft/backend/internal/models"
)

// Handler serves the grading endpoints.
type Handler struct {
	svc *Service
	log *slog.Logger
}

func NewHandler(svc *Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, log: log}
}

type submitGradeResponse struct {
	GradeID string `json:"grade_id"`
	Status  string `json:"status"`
	Cost    string `json:"cost"`
}

// SubmitGrade handles POST /v1/essays/{id}/grade.
// Auth -> CreditCheck (via middleware) -> Reserve + Queue -> 202.
func (h *Handler) SubmitGrade(w http.ResponseWriter, r *http.Request) {
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

	grade, err := h.svc.Submit(r.Context(), acc.ID, essayID)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrInsufficientCredit):
			http.Error(w, `{"error":"insufficient credit"}`, http.StatusPaymentRequired)
		case errors.Is(err, essays.ErrNotFound), errors.Is(err, ErrNotFound):
			http.Error(w, `{"error":"essay not found"}`, http.StatusNotFound)
		case errors.Is(err, ErrQueueNotReady):
			h.log.Error("submit grade", "error", err)
			http.Error(w, `{"error":"service unavailable"}`, http.StatusServiceUnavailable)
		default:
			h.log.Error("submit grade", "error", err)
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusAccepted, submitGradeResponse{
		GradeID: grade.ID.String(),
		Status:  grade.Status,
		Cost:    grade.Cost,
	})
}

// GetGrade handles GET /v1/grades/{id}.
func (h *Handler) GetGrade(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	gradeID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid grade id"}`, http.StatusBadRequest)
		return
	}

	grade, err := h.svc.Get(r.Context(), acc.ID, gradeID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, `{"error":"grade not found"}`, http.StatusNotFound)
			return
		}
		h.log.Error("get grade", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, grade)
}

// ListGrades handles GET /v1/essays/{id}/grades.
func (h *Handler) ListGrades(w http.ResponseWriter, r *http.Request) {
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

	grades, err := h.svc.ListByEssay(r.Context(), acc.ID, essayID)
	if err != nil {
		if errors.Is(err, essays.ErrNotFound) || errors.Is(err, ErrNotFound) {
			http.Error(w, `{"error":"essay not found"}`, http.StatusNotFound)
			return
		}
		h.log.Error("list grades", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if grades == nil {
		grades = []*models.Grade{}
	}

	writeJSON(w, http.StatusOK, grades)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
