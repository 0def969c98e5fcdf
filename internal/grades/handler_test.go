package grades

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradecraft/backend/internal/middleware"
	"github.com/gradecraft/backend/internal/models"
)

func submitRequest(f *fixture, essayID string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/v1/essays/"+essayID+"/grade", nil)
	r.SetPathValue("id", essayID)
	acc := &models.Account{ID: f.accountID, Balance: f.accounts.get(f.accountID).Balance}
	return r.WithContext(middleware.WithAccount(r.Context(), acc))
}

func TestSubmitGradeAccepted(t *testing.T) {
	f := newFixture(t, "3.00")
	h := NewHandler(f.svc, nil)

	w := httptest.NewRecorder()
	h.SubmitGrade(w, submitRequest(f, f.essayID.String()))

	require.Equal(t, http.StatusAccepted, w.Code)
	var resp submitGradeResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, models.GradeStatusQueued, resp.Status)
	assert.Equal(t, "1.00", resp.Cost)
	require.Len(t, f.enqueued, 1)
	assert.Equal(t, resp.GradeID, f.enqueued[0].GradeID.String())
}

func TestSubmitGradeInsufficientCredit(t *testing.T) {
	f := newFixture(t, "0.50")
	h := NewHandler(f.svc, nil)

	w := httptest.NewRecorder()
	h.SubmitGrade(w, submitRequest(f, f.essayID.String()))

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Contains(t, w.Body.String(), "insufficient credit")
}

func TestSubmitGradeUnknownEssay(t *testing.T) {
	f := newFixture(t, "3.00")
	h := NewHandler(f.svc, nil)

	w := httptest.NewRecorder()
	h.SubmitGrade(w, submitRequest(f, uuid.NewString()))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubmitGradeInvalidID(t *testing.T) {
	f := newFixture(t, "3.00")
	h := NewHandler(f.svc, nil)

	w := httptest.NewRecorder()
	h.SubmitGrade(w, submitRequest(f, "not-a-uuid"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitGradeUnauthorized(t *testing.T) {
	f := newFixture(t, "3.00")
	h := NewHandler(f.svc, nil)

	r := httptest.NewRequest(http.MethodPost, "/v1/essays/"+f.essayID.String()+"/grade", nil)
	r.SetPathValue("id", f.essayID.String())
	w := httptest.NewRecorder()
	h.SubmitGrade(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetGradeOwnershipEnforced(t *testing.T) {
	f := newFixture(t, "3.00")
	grade := f.submit(t)
	h := NewHandler(f.svc, nil)

	// Owner sees the grade.
	r := httptest.NewRequest(http.MethodGet, "/v1/grades/"+grade.ID.String(), nil)
	r.SetPathValue("id", grade.ID.String())
	r = r.WithContext(middleware.WithAccount(r.Context(), &models.Account{ID: f.accountID}))
	w := httptest.NewRecorder()
	h.GetGrade(w, r)
	assert.Equal(t, http.StatusOK, w.Code)

	// Someone else gets a 404, not a 403: grade ids are not probeable.
	r2 := httptest.NewRequest(http.MethodGet, "/v1/grades/"+grade.ID.String(), nil)
	r2.SetPathValue("id", grade.ID.String())
	r2 = r2.WithContext(middleware.WithAccount(r2.Context(), &models.Account{ID: uuid.New()}))
	w2 := httptest.NewRecorder()
	h.GetGrade(w2, r2)
	assert.Equal(t, http.StatusNotFound, w2.Code)
}
