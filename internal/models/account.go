package models

import (
	"time"

	"github.com/google/uuid"
)

// SignupBonus is credited to every new account at registration.
const SignupBonus = "3.00"

type Account struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	// Balance is the spendable credit, a two-decimal string (e.g. "9.00").
	Balance string `json:"balance"`
	// Reserved is credit already deducted from Balance but still in flight
	// for pending grading jobs. Tracked for transparency only.
	Reserved  string    `json:"reserved"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreditAccount is the ledger's view of an account: the two fields the
// credit state machine transitions over.
type CreditAccount struct {
	Balance  string `json:"balance"`
	Reserved string `json:"reserved"`
}
