package main

import (
	"net/http"

	"github.com/gradecraft/backend/internal/essays"
	"github.com/gradecraft/backend/internal/grades"
	"github.com/gradecraft/backend/internal/middleware"
)

// RegisterV1Routes adds the /v1/ essay and grading endpoints to the mux.
// Middleware chain: JWTAuth -> (CreditCheck on grade submission only) -> handler.
func RegisterV1Routes(
	mux *http.ServeMux,
	authn func(http.Handler) http.Handler,
	essayHandler *essays.Handler,
	gradeHandler *grades.Handler,
	gradingCost string,
) {
	creditCheck := middleware.CreditCheck(gradingCost)

	mux.Handle("POST /v1/essays", authn(http.HandlerFunc(essayHandler.CreateEssay)))
	mux.Handle("GET /v1/essays", authn(http.HandlerFunc(essayHandler.ListEssays)))
	mux.Handle("GET /v1/essays/{id}", authn(http.HandlerFunc(essayHandler.GetEssay)))

	// POST /v1/essays/{id}/grade — Auth -> CreditCheck -> SubmitGrade
	mux.Handle("POST /v1/essays/{id}/grade", authn(creditCheck(http.HandlerFunc(gradeHandler.SubmitGrade))))
	mux.Handle("GET /v1/essays/{id}/grades", authn(http.HandlerFunc(gradeHandler.ListGrades)))
	mux.Handle("GET /v1/grades/{id}", authn(http.HandlerFunc(gradeHandler.GetGrade)))
}
