package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gradecraft/backend/internal/auth"
	"github.com/gradecraft/backend/internal/models"
)

// Credit packs available for purchase. Payment capture lives outside this
// service; a purchase here credits the ledger directly.
var creditPacks = map[string]bool{
	"5.00":  true,
	"10.00": true,
	"20.00": true,
	"50.00": true,
}

// AccountReader loads account snapshots for the dashboard.
type AccountReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
}

// LedgerReader lists the account's credit transactions.
type LedgerReader interface {
	ListByAccountID(ctx context.Context, accountID uuid.UUID) ([]*models.CreditTransaction, error)
}

// TxBeginner abstracts transaction creation so tests don't need a pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Purchaser applies a credit purchase inside the given transaction.
type Purchaser interface {
	ApplyPurchase(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, amount, note string) error
}

type Handler struct {
	authSvc   auth.Service
	accounts  AccountReader
	entries   LedgerReader
	pool      TxBeginner
	purchaser Purchaser
	log       *slog.Logger
}

func NewHandler(authSvc auth.Service, accounts AccountReader, entries LedgerReader, pool TxBeginner, purchaser Purchaser, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		authSvc:   authSvc,
		accounts:  accounts,
		entries:   entries,
		pool:      pool,
		purchaser: purchaser,
		log:       log,
	}
}

func (h *Handler) accountIDFromRequest(r *http.Request) (uuid.UUID, error) {
	authz := r.Header.Get("Authorization")
	if authz == "" {
		return uuid.Nil, fmt.Errorf("missing authorization")
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(authz, prefix) {
		return uuid.Nil, fmt.Errorf("bad authorization format")
	}
	token := strings.TrimSpace(authz[len(prefix):])
	if token == "" {
		return uuid.Nil, fmt.Errorf("empty token")
	}
	return h.authSvc.ValidateToken(r.Context(), token)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// GET /api/v1/account/me
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	accountID, err := h.accountIDFromRequest(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	acc, err := h.accounts.GetByID(r.Context(), accountID)
	if err != nil {
		h.log.Error("get account failed", "error", err)
		http.Error(w, "account not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":         acc.ID,
		"email":      acc.Email,
		"name":       acc.Name,
		"balance":    acc.Balance,
		"reserved":   acc.Reserved,
		"created_at": acc.CreatedAt,
	})
}

// GET /api/v1/credit-ledger
func (h *Handler) ListCreditLedger(w http.ResponseWriter, r *http.Request) {
	accountID, err := h.accountIDFromRequest(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	entries, err := h.entries.ListByAccountID(r.Context(), accountID)
	if err != nil {
		h.log.Error("list credit ledger failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []*models.CreditTransaction{}
	}
	writeJSON(w, http.StatusOK, entries)
}

type purchaseRequest struct {
	Amount string `json:"amount"`
}

// POST /api/v1/credits/purchase
func (h *Handler) PurchaseCredits(w http.ResponseWriter, r *http.Request) {
	accountID, err := h.accountIDFromRequest(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if !creditPacks[req.Amount] {
		http.Error(w, "unknown credit pack", http.StatusBadRequest)
		return
	}

	tx, err := h.pool.Begin(r.Context())
	if err != nil {
		h.log.Error("begin purchase tx", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	defer tx.Rollback(r.Context())

	note := fmt.Sprintf("credit pack %s", req.Amount)
	if err := h.purchaser.ApplyPurchase(r.Context(), tx, accountID, req.Amount, note); err != nil {
		h.log.Error("apply purchase failed", "error", err)
		http.Error(w, "purchase failed", http.StatusInternalServerError)
		return
	}
	if err := tx.Commit(r.Context()); err != nil {
		h.log.Error("commit purchase tx", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	acc, err := h.accounts.GetByID(r.Context(), accountID)
	if err != nil {
		h.log.Error("reload account after purchase", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"balance":  acc.Balance,
		"reserved": acc.Reserved,
	})
}
