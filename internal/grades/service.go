package grades

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gradecraft/backend/internal/grading"
	"github.com/gradecraft/backend/internal/models"
)

// ErrQueueNotReady means the job queue has not been wired yet; submissions
// are rejected rather than silently dropped.
var ErrQueueNotReady = errors.New("job queue not ready")

// Store is the grade persistence the service needs.
type Store interface {
	InTx(ctx context.Context, fn func(tx pgx.Tx) error) error
	CreateTx(ctx context.Context, tx pgx.Tx, g *models.Grade) error
	MarkCompleted(ctx context.Context, tx pgx.Tx, gradeID uuid.UUID, out *grading.Outcome) (bool, error)
	MarkFailed(ctx context.Context, tx pgx.Tx, gradeID uuid.UUID, message string) (bool, error)
	InsertModelResults(ctx context.Context, tx pgx.Tx, gradeID uuid.UUID, results []models.ModelResult) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Grade, error)
	ListByEssayID(ctx context.Context, essayID uuid.UUID) ([]*models.Grade, error)
}

// Ledger is the credit settlement surface the service needs.
type Ledger interface {
	Reserve(ctx context.Context, tx pgx.Tx, accountID, gradeID uuid.UUID, cost string) error
	Clear(ctx context.Context, tx pgx.Tx, accountID, gradeID uuid.UUID, cost string) error
	Refund(ctx context.Context, tx pgx.Tx, accountID, gradeID uuid.UUID, cost string) error
}

type EssayGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Essay, error)
}

// InsertJobTxFunc enqueues a grading job inside the caller's transaction, so
// the reservation, the grade row and the job commit atomically.
type InsertJobTxFunc func(ctx context.Context, tx pgx.Tx, args grading.GradeArgs) error

// Service owns the grade lifecycle: submission reserves credit and enqueues
// the job; completion and failure persist the terminal state and settle the
// reservation in the same transaction.
type Service struct {
	store  Store
	essays EssayGetter
	ledger Ledger
	cost   string
	log    *slog.Logger

	mu        sync.RWMutex
	insertJob InsertJobTxFunc
}

func NewService(store Store, essays EssayGetter, ledger Ledger, cost string, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, essays: essays, ledger: ledger, cost: cost, log: log}
}

var _ grading.Settler = (*Service)(nil)

// SetInsertJobFunc wires the queue after construction. The river client
// needs the workers at construction time and the workers need this service,
// so the enqueue function arrives late.
func (s *Service) SetInsertJobFunc(fn InsertJobTxFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertJob = fn
}

func (s *Service) enqueue(ctx context.Context, tx pgx.Tx, args grading.GradeArgs) error {
	s.mu.RLock()
	fn := s.insertJob
	s.mu.RUnlock()
	if fn == nil {
		return ErrQueueNotReady
	}
	return fn(ctx, tx, args)
}

// Submit reserves credit for one grading of the essay and enqueues the job.
// The reservation, the queued grade and the queue entry commit atomically;
// an insufficient balance surfaces as ledger.ErrInsufficientCredit with no
// state written.
func (s *Service) Submit(ctx context.Context, accountID, essayID uuid.UUID) (*models.Grade, error) {
	essay, err := s.essays.GetByID(ctx, essayID)
	if err != nil {
		return nil, err
	}
	if essay.AccountID != accountID {
		return nil, ErrNotFound
	}

	grade := &models.Grade{
		ID:        uuid.New(),
		AccountID: accountID,
		EssayID:   essayID,
		Status:    models.GradeStatusQueued,
		Cost:      s.cost,
	}
	err = s.store.InTx(ctx, func(tx pgx.Tx) error {
		if err := s.ledger.Reserve(ctx, tx, accountID, grade.ID, grade.Cost); err != nil {
			return err
		}
		if err := s.store.CreateTx(ctx, tx, grade); err != nil {
			return fmt.Errorf("create grade: %w", err)
		}
		return s.enqueue(ctx, tx, grading.GradeArgs{GradeID: grade.ID})
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("grade queued", "grade_id", grade.ID, "essay_id", essayID, "cost", grade.Cost)
	return grade, nil
}

// CompleteGrading persists the outcome and clears the reservation in one
// transaction. A grade no longer in processing state was settled by an
// earlier delivery and is left untouched.
func (s *Service) CompleteGrading(ctx context.Context, grade *models.Grade, out *grading.Outcome) error {
	return s.store.InTx(ctx, func(tx pgx.Tx) error {
		settled, err := s.store.MarkCompleted(ctx, tx, grade.ID, out)
		if err != nil {
			return fmt.Errorf("mark complete: %w", err)
		}
		if !settled {
			s.log.Warn("grade already settled, skipping completion", "grade_id", grade.ID)
			return nil
		}
		if err := s.store.InsertModelResults(ctx, tx, grade.ID, out.ModelResults); err != nil {
			return fmt.Errorf("insert model results: %w", err)
		}
		return s.ledger.Clear(ctx, tx, grade.AccountID, grade.ID, grade.Cost)
	})
}

// FailGrading records the failure with the generic caller-visible message
// and refunds the reservation. The internal cause goes to the logs only.
func (s *Service) FailGrading(ctx context.Context, grade *models.Grade, cause error) error {
	s.log.Error("grading failed", "grade_id", grade.ID, "essay_id", grade.EssayID, "error", cause)
	return s.store.InTx(ctx, func(tx pgx.Tx) error {
		if _, err := s.store.MarkFailed(ctx, tx, grade.ID, models.GenericFailureMessage); err != nil {
			return fmt.Errorf("mark failed: %w", err)
		}
		// Refund is replay-safe, so a re-settled grade costs nothing here.
		return s.ledger.Refund(ctx, tx, grade.AccountID, grade.ID, grade.Cost)
	})
}

// Get returns a grade owned by the account.
func (s *Service) Get(ctx context.Context, accountID, gradeID uuid.UUID) (*models.Grade, error) {
	grade, err := s.store.GetByID(ctx, gradeID)
	if err != nil {
		return nil, err
	}
	if grade.AccountID != accountID {
		return nil, ErrNotFound
	}
	return grade, nil
}

// ListByEssay returns the essay's grades, newest first.
func (s *Service) ListByEssay(ctx context.Context, accountID, essayID uuid.UUID) ([]*models.Grade, error) {
	essay, err := s.essays.GetByID(ctx, essayID)
	if err != nil {
		return nil, err
	}
	if essay.AccountID != accountID {
		return nil, ErrNotFound
	}
	return s.store.ListByEssayID(ctx, essayID)
}
