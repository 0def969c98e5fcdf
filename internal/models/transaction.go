package models

import (
	"time"

	"github.com/google/uuid"
)

// Credit transaction type enums. One immutable row per ledger transition
// with user-visible financial effect.
const (
	TxTypeSignupBonus     = "signup_bonus"
	TxTypePurchase        = "purchase"
	TxTypeGrading         = "grading"
	TxTypeRefund          = "refund"
	TxTypeAdminAdjustment = "admin_adjustment"
)

type CreditTransaction struct {
	ID        uuid.UUID  `json:"id"`
	AccountID uuid.UUID  `json:"account_id"`
	GradeID   *uuid.UUID `json:"grade_id,omitempty"`
	Type      string     `json:"type"`
	// Amount is signed, two-decimal string: negative for spend, positive for
	// bonus/purchase/refund.
	Amount    string    `json:"amount"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
