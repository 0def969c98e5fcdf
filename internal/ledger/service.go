package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gradecraft/backend/internal/models"
	"github.com/gradecraft/backend/internal/money"
)

// AccountStore is the minimal account storage interface for the ledger.
// GetForUpdate must row-lock the account so the read-transition-write below
// is a single atomic read-modify-write.
type AccountStore interface {
	GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (models.CreditAccount, error)
	SetBalances(ctx context.Context, tx pgx.Tx, id uuid.UUID, acct models.CreditAccount) error
}

// TransactionStore is the minimal audit-trail interface for the ledger.
type TransactionStore interface {
	Insert(ctx context.Context, tx pgx.Tx, t *models.CreditTransaction) error
	ExistsForGrade(ctx context.Context, tx pgx.Tx, gradeID uuid.UUID, txType string) (bool, error)
}

// Service applies the credit state machine to storage. Every method runs
// inside the caller's transaction so the account patch and its audit record
// commit together or not at all.
type Service struct {
	Accounts     AccountStore
	Transactions TransactionStore
}

func NewService(accounts AccountStore, transactions TransactionStore) *Service {
	return &Service{Accounts: accounts, Transactions: transactions}
}

// Reserve deducts cost for a grading job and records the grading
// transaction. Returns ErrInsufficientCredit without mutating anything when
// the balance is too low.
func (s *Service) Reserve(ctx context.Context, tx pgx.Tx, accountID, gradeID uuid.UUID, cost string) error {
	acct, err := s.Accounts.GetForUpdate(ctx, tx, accountID)
	if err != nil {
		return fmt.Errorf("lock account: %w", err)
	}
	next, err := Reserve(acct, cost)
	if err != nil {
		return err
	}
	if err := s.Accounts.SetBalances(ctx, tx, accountID, next); err != nil {
		return fmt.Errorf("apply reserve: %w", err)
	}
	return s.Transactions.Insert(ctx, tx, &models.CreditTransaction{
		ID:        uuid.New(),
		AccountID: accountID,
		GradeID:   &gradeID,
		Type:      models.TxTypeGrading,
		Amount:    money.Negate(cost),
	})
}

// Clear settles a successful grading. The grading transaction was written at
// reserve time; clearing has no balance effect so no new audit row is added.
func (s *Service) Clear(ctx context.Context, tx pgx.Tx, accountID, gradeID uuid.UUID, cost string) error {
	acct, err := s.Accounts.GetForUpdate(ctx, tx, accountID)
	if err != nil {
		return fmt.Errorf("lock account: %w", err)
	}
	if err := s.Accounts.SetBalances(ctx, tx, accountID, Clear(acct, cost)); err != nil {
		return fmt.Errorf("apply clear: %w", err)
	}
	return nil
}

// Refund restores the balance for a failed grading and records the refund
// transaction. Replay-safe: if a refund for this grade already exists the
// call is a no-op, so crash-recovery can retry settlement blindly.
func (s *Service) Refund(ctx context.Context, tx pgx.Tx, accountID, gradeID uuid.UUID, cost string) error {
	exists, err := s.Transactions.ExistsForGrade(ctx, tx, gradeID, models.TxTypeRefund)
	if err != nil {
		return fmt.Errorf("check refund: %w", err)
	}
	if exists {
		return nil
	}
	acct, err := s.Accounts.GetForUpdate(ctx, tx, accountID)
	if err != nil {
		return fmt.Errorf("lock account: %w", err)
	}
	if err := s.Accounts.SetBalances(ctx, tx, accountID, Refund(acct, cost)); err != nil {
		return fmt.Errorf("apply refund: %w", err)
	}
	return s.Transactions.Insert(ctx, tx, &models.CreditTransaction{
		ID:        uuid.New(),
		AccountID: accountID,
		GradeID:   &gradeID,
		Type:      models.TxTypeRefund,
		Amount:    cost,
	})
}

// ApplyPurchase credits a purchased pack.
func (s *Service) ApplyPurchase(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, amount, note string) error {
	return s.credit(ctx, tx, accountID, amount, models.TxTypePurchase, note)
}

// GrantSignupBonus credits the registration bonus.
func (s *Service) GrantSignupBonus(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) error {
	return s.credit(ctx, tx, accountID, models.SignupBonus, models.TxTypeSignupBonus, "welcome credit")
}

func (s *Service) credit(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, amount, txType, note string) error {
	acct, err := s.Accounts.GetForUpdate(ctx, tx, accountID)
	if err != nil {
		return fmt.Errorf("lock account: %w", err)
	}
	if err := s.Accounts.SetBalances(ctx, tx, accountID, ApplyPurchase(acct, amount)); err != nil {
		return fmt.Errorf("apply credit: %w", err)
	}
	return s.Transactions.Insert(ctx, tx, &models.CreditTransaction{
		ID:        uuid.New(),
		AccountID: accountID,
		Type:      txType,
		Amount:    amount,
		Note:      note,
	})
}
