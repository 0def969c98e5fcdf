package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gradecraft/backend/internal/models"
	"github.com/gradecraft/backend/internal/money"
)

// Repository implements AccountStore and TransactionStore over Postgres.
// Amounts are stored as BIGINT cents and converted to two-decimal strings at
// this boundary.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// GetForUpdate locks the account row for the duration of the transaction.
func (r *Repository) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (models.CreditAccount, error) {
	var balanceCents, reservedCents int64
	err := tx.QueryRow(ctx, `
		SELECT balance_cents, reserved_cents FROM accounts WHERE id = $1 FOR UPDATE
	`, id).Scan(&balanceCents, &reservedCents)
	if err != nil {
		return models.CreditAccount{}, err
	}
	return models.CreditAccount{
		Balance:  money.FromCents(balanceCents),
		Reserved: money.FromCents(reservedCents),
	}, nil
}

// SetBalances writes both balance fields. Call after GetForUpdate in the
// same transaction.
func (r *Repository) SetBalances(ctx context.Context, tx pgx.Tx, id uuid.UUID, acct models.CreditAccount) error {
	balanceCents, err := money.ToCents(acct.Balance)
	if err != nil {
		return err
	}
	reservedCents, err := money.ToCents(acct.Reserved)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		UPDATE accounts SET balance_cents = $2, reserved_cents = $3, updated_at = now() WHERE id = $1
	`, id, balanceCents, reservedCents)
	return err
}

func (r *Repository) Insert(ctx context.Context, tx pgx.Tx, t *models.CreditTransaction) error {
	amountCents, err := money.ToCents(t.Amount)
	if err != nil {
		return err
	}
	return tx.QueryRow(ctx, `
		INSERT INTO credit_transactions (id, account_id, grade_id, tx_type, amount_cents, note)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, t.ID, t.AccountID, t.GradeID, t.Type, amountCents, t.Note).Scan(&t.CreatedAt)
}

func (r *Repository) ExistsForGrade(ctx context.Context, tx pgx.Tx, gradeID uuid.UUID, txType string) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM credit_transactions WHERE grade_id = $1 AND tx_type = $2)
	`, gradeID, txType).Scan(&exists)
	return exists, err
}

func (r *Repository) ListByAccountID(ctx context.Context, accountID uuid.UUID) ([]*models.CreditTransaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, account_id, grade_id, tx_type, amount_cents, note, created_at
		FROM credit_transactions WHERE account_id = $1 ORDER BY created_at DESC
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.CreditTransaction
	for rows.Next() {
		var t models.CreditTransaction
		var amountCents int64
		if err := rows.Scan(&t.ID, &t.AccountID, &t.GradeID, &t.Type, &amountCents, &t.Note, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Amount = money.FromCents(amountCents)
		list = append(list, &t)
	}
	return list, rows.Err()
}
