package grades

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gradecraft/backend/internal/grading"
	"github.com/gradecraft/backend/internal/models"
	"github.com/gradecraft/backend/internal/money"
)

var ErrNotFound = errors.New("grade not found")

// Repository persists grades and their per-run model results. Money columns
// are BIGINT cents; score breakdowns and feedback are JSONB.
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

func (r *Repository) CreateTx(ctx context.Context, tx pgx.Tx, g *models.Grade) error {
	costCents, err := money.ToCents(g.Cost)
	if err != nil {
		return fmt.Errorf("grade cost: %w", err)
	}
	return tx.QueryRow(ctx, `
		INSERT INTO grades (id, account_id, essay_id, status, cost_cents)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING queued_at, created_at, updated_at
	`, g.ID, g.AccountID, g.EssayID, g.Status, costCents).Scan(&g.QueuedAt, &g.CreatedAt, &g.UpdatedAt)
}

// Claim transitions queued→processing. A grade in any other state is not
// claimable and returns (nil, false, nil), making queue re-deliveries no-ops.
func (r *Repository) Claim(ctx context.Context, gradeID uuid.UUID) (*models.Grade, bool, error) {
	var g models.Grade
	var costCents int64
	err := r.pool.QueryRow(ctx, `
		UPDATE grades SET status = $2, started_at = now(), updated_at = now()
		WHERE id = $1 AND status = $3
		RETURNING id, account_id, essay_id, status, cost_cents, queued_at, started_at
	`, gradeID, models.GradeStatusProcessing, models.GradeStatusQueued).
		Scan(&g.ID, &g.AccountID, &g.EssayID, &g.Status, &costCents, &g.QueuedAt, &g.StartedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	g.Cost = money.FromCents(costCents)
	return &g, true, nil
}

// MarkCompleted finalizes a processing grade with the ensemble outcome.
// Returns false when the grade was not in processing state.
func (r *Repository) MarkCompleted(ctx context.Context, tx pgx.Tx, gradeID uuid.UUID, out *grading.Outcome) (bool, error) {
	catJSON, err := json.Marshal(out.CategoryScores)
	if err != nil {
		return false, fmt.Errorf("encode category scores: %w", err)
	}
	fbJSON, err := json.Marshal(out.Feedback)
	if err != nil {
		return false, fmt.Errorf("encode feedback: %w", err)
	}
	tag, err := tx.Exec(ctx, `
		UPDATE grades SET
			status = $2, completed_at = now(), updated_at = now(),
			range_lower = $3, range_upper = $4,
			category_scores = $5, feedback = $6, feedback_synthesized = $7,
			total_tokens = $8, prompt_version = $9
		WHERE id = $1 AND status = $10
	`, gradeID, models.GradeStatusComplete,
		out.Range.Lower, out.Range.Upper,
		catJSON, fbJSON, out.FeedbackSynthesized,
		out.TotalTokens, out.PromptVersion,
		models.GradeStatusProcessing)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// MarkFailed finalizes a processing grade with the caller-visible message.
// Returns false when the grade was not in processing state.
func (r *Repository) MarkFailed(ctx context.Context, tx pgx.Tx, gradeID uuid.UUID, message string) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE grades SET status = $2, error_message = $3, completed_at = now(), updated_at = now()
		WHERE id = $1 AND status = $4
	`, gradeID, models.GradeStatusFailed, message, models.GradeStatusProcessing)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *Repository) InsertModelResults(ctx context.Context, tx pgx.Tx, gradeID uuid.UUID, results []models.ModelResult) error {
	for i := range results {
		mr := &results[i]
		if mr.ID == uuid.Nil {
			mr.ID = uuid.New()
		}
		var costCents *int64
		if mr.Cost != nil {
			cents, err := money.ToCents(*mr.Cost)
			if err != nil {
				return fmt.Errorf("model result cost: %w", err)
			}
			costCents = &cents
		}
		err := tx.QueryRow(ctx, `
			INSERT INTO model_results (id, grade_id, model, percentage, included, reason, duration_ms, cost_cents, recovered)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING created_at
		`, mr.ID, gradeID, mr.Model, mr.Percentage, mr.Included, mr.Reason, mr.DurationMs, costCents, mr.Recovered).
			Scan(&mr.CreatedAt)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Grade, error) {
	g, err := r.scanGrade(r.pool.QueryRow(ctx, `
		SELECT `+gradeColumns+` FROM grades WHERE id = $1
	`, id))
	if err != nil {
		return nil, err
	}
	results, err := r.listModelResults(ctx, g.ID)
	if err != nil {
		return nil, err
	}
	g.ModelResults = results
	return g, nil
}

func (r *Repository) ListByEssayID(ctx context.Context, essayID uuid.UUID) ([]*models.Grade, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+gradeColumns+` FROM grades WHERE essay_id = $1 ORDER BY queued_at DESC
	`, essayID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Grade
	for rows.Next() {
		g, err := r.scanGrade(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, g)
	}
	return list, rows.Err()
}

const gradeColumns = `id, account_id, essay_id, status, cost_cents, queued_at, started_at, completed_at,
	range_lower, range_upper, category_scores, feedback, feedback_synthesized, total_tokens, prompt_version,
	error_message, created_at, updated_at`

func (r *Repository) scanGrade(row pgx.Row) (*models.Grade, error) {
	var g models.Grade
	var costCents int64
	var rangeLower, rangeUpper *float64
	var catJSON, fbJSON []byte
	var synthesized *bool
	var promptVersion, errorMessage *string
	err := row.Scan(
		&g.ID, &g.AccountID, &g.EssayID, &g.Status, &costCents, &g.QueuedAt, &g.StartedAt, &g.CompletedAt,
		&rangeLower, &rangeUpper, &catJSON, &fbJSON, &synthesized, &g.TotalTokens, &promptVersion,
		&errorMessage, &g.CreatedAt, &g.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	g.Cost = money.FromCents(costCents)
	if rangeLower != nil && rangeUpper != nil {
		g.PercentageRange = &models.PercentageRange{Lower: *rangeLower, Upper: *rangeUpper}
	}
	if len(catJSON) > 0 {
		if err := json.Unmarshal(catJSON, &g.CategoryScores); err != nil {
			return nil, fmt.Errorf("decode category scores: %w", err)
		}
	}
	if len(fbJSON) > 0 {
		if err := json.Unmarshal(fbJSON, &g.Feedback); err != nil {
			return nil, fmt.Errorf("decode feedback: %w", err)
		}
	}
	if synthesized != nil {
		g.FeedbackSynthesized = *synthesized
	}
	if promptVersion != nil {
		g.PromptVersion = *promptVersion
	}
	if errorMessage != nil {
		g.ErrorMessage = *errorMessage
	}
	return &g, nil
}

func (r *Repository) listModelResults(ctx context.Context, gradeID uuid.UUID) ([]models.ModelResult, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, grade_id, model, percentage, included, reason, duration_ms, cost_cents, recovered, created_at
		FROM model_results WHERE grade_id = $1 ORDER BY created_at, model
	`, gradeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.ModelResult
	for rows.Next() {
		var mr models.ModelResult
		var reason *string
		var costCents *int64
		if err := rows.Scan(&mr.ID, &mr.GradeID, &mr.Model, &mr.Percentage, &mr.Included, &reason,
			&mr.DurationMs, &costCents, &mr.Recovered, &mr.CreatedAt); err != nil {
			return nil, err
		}
		if reason != nil {
			mr.Reason = *reason
		}
		if costCents != nil {
			cost := money.FromCents(*costCents)
			mr.Cost = &cost
		}
		list = append(list, mr)
	}
	return list, rows.Err()
}
