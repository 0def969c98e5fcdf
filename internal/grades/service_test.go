package grades

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradecraft/backend/internal/essays"
	"github.com/gradecraft/backend/internal/grading"
	"github.com/gradecraft/backend/internal/ledger"
	"github.com/gradecraft/backend/internal/models"
)

// ---------------------------------------------------------------------------
// In-memory fakes. The ledger side uses the real ledger.Service over fake
// stores, so settlement tests cover the actual credit transitions.
// ---------------------------------------------------------------------------

type memAccounts struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]models.CreditAccount
}

func (f *memAccounts) GetForUpdate(_ context.Context, _ pgx.Tx, id uuid.UUID) (models.CreditAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return models.CreditAccount{}, fmt.Errorf("account %s not found", id)
	}
	return a, nil
}

func (f *memAccounts) SetBalances(_ context.Context, _ pgx.Tx, id uuid.UUID, acct models.CreditAccount) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[id] = acct
	return nil
}

func (f *memAccounts) get(id uuid.UUID) models.CreditAccount {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.accounts[id]
}

type memTransactions struct {
	mu      sync.Mutex
	entries []*models.CreditTransaction
}

func (f *memTransactions) Insert(_ context.Context, _ pgx.Tx, t *models.CreditTransaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *t
	f.entries = append(f.entries, &cp)
	return nil
}

func (f *memTransactions) ExistsForGrade(_ context.Context, _ pgx.Tx, gradeID uuid.UUID, txType string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entries {
		if e.GradeID != nil && *e.GradeID == gradeID && e.Type == txType {
			return true, nil
		}
	}
	return false, nil
}

func (f *memTransactions) byType(txType string) []*models.CreditTransaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.CreditTransaction
	for _, e := range f.entries {
		if e.Type == txType {
			out = append(out, e)
		}
	}
	return out
}

type memGrades struct {
	mu      sync.Mutex
	grades  map[uuid.UUID]*models.Grade
	results map[uuid.UUID][]models.ModelResult
}

func newMemGrades() *memGrades {
	return &memGrades{
		grades:  make(map[uuid.UUID]*models.Grade),
		results: make(map[uuid.UUID][]models.ModelResult),
	}
}

func (f *memGrades) InTx(_ context.Context, fn func(tx pgx.Tx) error) error {
	return fn(nil)
}

func (f *memGrades) CreateTx(_ context.Context, _ pgx.Tx, g *models.Grade) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *g
	f.grades[g.ID] = &cp
	return nil
}

func (f *memGrades) MarkCompleted(_ context.Context, _ pgx.Tx, gradeID uuid.UUID, out *grading.Outcome) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.grades[gradeID]
	if !ok || g.Status != models.GradeStatusProcessing {
		return false, nil
	}
	g.Status = models.GradeStatusComplete
	r := out.Range
	g.PercentageRange = &r
	g.CategoryScores = out.CategoryScores
	g.Feedback = out.Feedback
	g.PromptVersion = out.PromptVersion
	return true, nil
}

func (f *memGrades) MarkFailed(_ context.Context, _ pgx.Tx, gradeID uuid.UUID, message string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.grades[gradeID]
	if !ok || g.Status != models.GradeStatusProcessing {
		return false, nil
	}
	g.Status = models.GradeStatusFailed
	g.ErrorMessage = message
	return true, nil
}

func (f *memGrades) InsertModelResults(_ context.Context, _ pgx.Tx, gradeID uuid.UUID, results []models.ModelResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[gradeID] = append(f.results[gradeID], results...)
	return nil
}

func (f *memGrades) GetByID(_ context.Context, id uuid.UUID) (*models.Grade, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.grades[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (f *memGrades) ListByEssayID(_ context.Context, essayID uuid.UUID) ([]*models.Grade, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Grade
	for _, g := range f.grades {
		if g.EssayID == essayID {
			cp := *g
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *memGrades) setStatus(id uuid.UUID, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.grades[id].Status = status
}

type memEssays struct {
	essays map[uuid.UUID]*models.Essay
}

func (f *memEssays) GetByID(_ context.Context, id uuid.UUID) (*models.Essay, error) {
	e, ok := f.essays[id]
	if !ok {
		return nil, essays.ErrNotFound
	}
	return e, nil
}

// ---

type fixture struct {
	svc      *Service
	store    *memGrades
	accounts *memAccounts
	txs      *memTransactions
	enqueued []grading.GradeArgs

	accountID uuid.UUID
	essayID   uuid.UUID
}

func newFixture(t *testing.T, balance string) *fixture {
	t.Helper()
	f := &fixture{
		store:     newMemGrades(),
		txs:       &memTransactions{},
		accountID: uuid.New(),
		essayID:   uuid.New(),
	}
	f.accounts = &memAccounts{accounts: map[uuid.UUID]models.CreditAccount{
		f.accountID: {Balance: balance, Reserved: "0.00"},
	}}
	essays := &memEssays{essays: map[uuid.UUID]*models.Essay{
		f.essayID: {ID: f.essayID, AccountID: f.accountID, Title: "T", BodyText: "B"},
	}}
	ledgerSvc := ledger.NewService(f.accounts, f.txs)
	f.svc = NewService(f.store, essays, ledgerSvc, "1.00", nil)
	f.svc.SetInsertJobFunc(func(_ context.Context, _ pgx.Tx, args grading.GradeArgs) error {
		f.enqueued = append(f.enqueued, args)
		return nil
	})
	return f
}

func (f *fixture) submit(t *testing.T) *models.Grade {
	t.Helper()
	grade, err := f.svc.Submit(context.Background(), f.accountID, f.essayID)
	require.NoError(t, err)
	return grade
}

func TestSubmitReservesAndQueues(t *testing.T) {
	f := newFixture(t, "3.00")

	grade := f.submit(t)

	assert.Equal(t, models.GradeStatusQueued, grade.Status)
	assert.Equal(t, "1.00", grade.Cost)

	acct := f.accounts.get(f.accountID)
	assert.Equal(t, "2.00", acct.Balance)
	assert.Equal(t, "1.00", acct.Reserved)

	spends := f.txs.byType(models.TxTypeGrading)
	require.Len(t, spends, 1)
	assert.Equal(t, "-1.00", spends[0].Amount)

	require.Len(t, f.enqueued, 1)
	assert.Equal(t, grade.ID, f.enqueued[0].GradeID)
}

func TestSubmitInsufficientCredit(t *testing.T) {
	f := newFixture(t, "0.50")

	_, err := f.svc.Submit(context.Background(), f.accountID, f.essayID)

	require.ErrorIs(t, err, ledger.ErrInsufficientCredit)
	acct := f.accounts.get(f.accountID)
	assert.Equal(t, "0.50", acct.Balance)
	assert.Empty(t, f.txs.entries)
	assert.Empty(t, f.enqueued)
	assert.Empty(t, f.store.grades)
}

func TestSubmitQueueNotWired(t *testing.T) {
	f := newFixture(t, "3.00")
	f.svc.SetInsertJobFunc(nil)

	_, err := f.svc.Submit(context.Background(), f.accountID, f.essayID)

	require.ErrorIs(t, err, ErrQueueNotReady)
}

func TestSubmitRejectsForeignEssay(t *testing.T) {
	f := newFixture(t, "3.00")

	_, err := f.svc.Submit(context.Background(), uuid.New(), f.essayID)

	require.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, f.enqueued)
}

func TestCompleteGradingClearsReservation(t *testing.T) {
	f := newFixture(t, "3.00")
	grade := f.submit(t)
	f.store.setStatus(grade.ID, models.GradeStatusProcessing)

	out := &grading.Outcome{
		Range:          models.PercentageRange{Lower: 70, Upper: 74},
		CategoryScores: map[string]float64{"structure": 72},
		Feedback:       &models.Feedback{Strengths: []string{"s"}},
		ModelResults:   []models.ModelResult{{Model: "m1", Percentage: 72, Included: true}},
		PromptVersion:  grading.PromptVersion,
	}
	require.NoError(t, f.svc.CompleteGrading(context.Background(), grade, out))

	stored, err := f.store.GetByID(context.Background(), grade.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GradeStatusComplete, stored.Status)
	require.NotNil(t, stored.PercentageRange)
	assert.Equal(t, 70.0, stored.PercentageRange.Lower)
	assert.Len(t, f.store.results[grade.ID], 1)

	// Reservation cleared, charge stands: the grading spend from reserve
	// time stays the only transaction.
	acct := f.accounts.get(f.accountID)
	assert.Equal(t, "2.00", acct.Balance)
	assert.Equal(t, "0.00", acct.Reserved)
	assert.Len(t, f.txs.entries, 1)
}

func TestCompleteGradingAlreadySettled(t *testing.T) {
	f := newFixture(t, "3.00")
	grade := f.submit(t)
	f.store.setStatus(grade.ID, models.GradeStatusComplete)

	require.NoError(t, f.svc.CompleteGrading(context.Background(), grade, &grading.Outcome{}))

	// Ledger untouched: reservation still standing for whoever settled first.
	acct := f.accounts.get(f.accountID)
	assert.Equal(t, "1.00", acct.Reserved)
	assert.Empty(t, f.store.results[grade.ID])
}

func TestFailGradingRefundsOnce(t *testing.T) {
	f := newFixture(t, "3.00")
	grade := f.submit(t)
	f.store.setStatus(grade.ID, models.GradeStatusProcessing)

	cause := errors.New("gemini: 503 backend overloaded")
	require.NoError(t, f.svc.FailGrading(context.Background(), grade, cause))

	stored, err := f.store.GetByID(context.Background(), grade.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GradeStatusFailed, stored.Status)
	assert.Equal(t, models.GenericFailureMessage, stored.ErrorMessage)
	assert.False(t, strings.Contains(stored.ErrorMessage, "gemini"))

	acct := f.accounts.get(f.accountID)
	assert.Equal(t, "3.00", acct.Balance)
	assert.Equal(t, "0.00", acct.Reserved)
	require.Len(t, f.txs.byType(models.TxTypeRefund), 1)

	// Replayed settlement must not refund twice.
	require.NoError(t, f.svc.FailGrading(context.Background(), grade, cause))
	assert.Equal(t, "3.00", f.accounts.get(f.accountID).Balance)
	assert.Len(t, f.txs.byType(models.TxTypeRefund), 1)
}
