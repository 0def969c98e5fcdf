package middleware

import (
	"net/http"

	"github.com/gradecraft/backend/internal/money"
)

// CreditCheck rejects grading submissions whose account balance cannot cover
// the grading cost, before the handler opens a transaction. The ledger
// re-checks under a row lock; this is only the fast path for the common
// "out of credit" case.
func CreditCheck(cost string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			acc := AccountFromCtx(r.Context())
			if acc == nil {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			if money.Compare(acc.Balance, cost) < 0 {
				http.Error(w, `{"error":"insufficient credit"}`, http.StatusPaymentRequired)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
