package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gradecraft/backend/internal/models"
	"github.com/gradecraft/backend/internal/money"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InTx runs fn inside one transaction, committing on nil and rolling back on
// error.
func (r *Repository) InTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return pgx.BeginFunc(ctx, r.pool, fn)
}

// CreateTx inserts a new account with zero balance; the signup bonus is
// credited by the ledger in the same transaction.
func (r *Repository) CreateTx(ctx context.Context, tx pgx.Tx, acc *models.Account, passwordHash string) error {
	return tx.QueryRow(ctx, `
		INSERT INTO accounts (id, email, name, password_hash, balance_cents, reserved_cents)
		VALUES ($1, $2, $3, $4, 0, 0)
		RETURNING created_at, updated_at
	`, acc.ID, acc.Email, acc.Name, passwordHash).Scan(&acc.CreatedAt, &acc.UpdatedAt)
}

// GetByEmail returns the account and password hash for login. Returns nil if not found.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.Account, string, error) {
	var a models.Account
	var passwordHash string
	var balanceCents, reservedCents int64
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, name, password_hash, balance_cents, reserved_cents, is_admin, created_at, updated_at
		FROM accounts WHERE email = $1
	`, email).Scan(&a.ID, &a.Email, &a.Name, &passwordHash, &balanceCents, &reservedCents, &a.IsAdmin, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", err
	}
	a.Balance = money.FromCents(balanceCents)
	a.Reserved = money.FromCents(reservedCents)
	return &a, passwordHash, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var a models.Account
	var balanceCents, reservedCents int64
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, name, balance_cents, reserved_cents, is_admin, created_at, updated_at
		FROM accounts WHERE id = $1
	`, id).Scan(&a.ID, &a.Email, &a.Name, &balanceCents, &reservedCents, &a.IsAdmin, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.Balance = money.FromCents(balanceCents)
	a.Reserved = money.FromCents(reservedCents)
	return &a, nil
}
