package essays

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gradecraft/backend/internal/models"
)

var ErrNotFound = errors.New("essay not found")

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, e *models.Essay) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO essays (id, account_id, title, instructions, rubric_text, focus_areas, academic_level, body_text)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`, e.ID, e.AccountID, e.Title, e.Instructions, e.RubricText, e.FocusAreas, e.AcademicLevel, e.BodyText).
		Scan(&e.CreatedAt, &e.UpdatedAt)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Essay, error) {
	var e models.Essay
	var rubric *string
	err := r.pool.QueryRow(ctx, `
		SELECT id, account_id, title, instructions, rubric_text, focus_areas, academic_level, body_text, created_at, updated_at
		FROM essays WHERE id = $1
	`, id).Scan(&e.ID, &e.AccountID, &e.Title, &e.Instructions, &rubric, &e.FocusAreas, &e.AcademicLevel,
		&e.BodyText, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if rubric != nil {
		e.RubricText = *rubric
	}
	return &e, nil
}

// ListByAccountID returns the account's essays without body text, newest
// first. Bodies can be large; the list view doesn't need them.
func (r *Repository) ListByAccountID(ctx context.Context, accountID uuid.UUID) ([]*models.Essay, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, account_id, title, instructions, rubric_text, focus_areas, academic_level, created_at, updated_at
		FROM essays WHERE account_id = $1 ORDER BY created_at DESC
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Essay
	for rows.Next() {
		var e models.Essay
		var rubric *string
		if err := rows.Scan(&e.ID, &e.AccountID, &e.Title, &e.Instructions, &rubric, &e.FocusAreas,
			&e.AcademicLevel, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		if rubric != nil {
			e.RubricText = *rubric
		}
		list = append(list, &e)
	}
	return list, rows.Err()
}
