package router

import (
	"net/http"

	"github.com/gradecraft/backend/internal/auth"
	"github.com/gradecraft/backend/internal/dashboard"
)

// New returns an http.Handler that serves the account API under /api/v1.
func New(authHandler *auth.Handler, dashHandler *dashboard.Handler) http.Handler {
	mux := http.NewServeMux()
	base := "/api/v1"
	mux.HandleFunc(base+"/auth/register", authHandler.Register)
	mux.HandleFunc(base+"/auth/login", authHandler.Login)

	mux.HandleFunc(base+"/account/me", methodGET(dashHandler.GetMe))
	mux.HandleFunc(base+"/credit-ledger", methodGET(dashHandler.ListCreditLedger))
	mux.HandleFunc(base+"/credits/purchase", methodPOST(dashHandler.PurchaseCredits))

	return mux
}

func methodGET(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}

func methodPOST(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}
