package grading

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/riverqueue/river"

	"github.com/gradecraft/backend/internal/llm"
	"github.com/gradecraft/backend/internal/models"
)

// ErrEnsembleExhausted means no run produced a usable result.
var ErrEnsembleExhausted = errors.New("all grading runs failed")

// GradeArgs is the queue payload for one grading job.
type GradeArgs struct {
	GradeID uuid.UUID `json:"grade_id"`
}

func (GradeArgs) Kind() string { return "grade_essay" }

// GradeStore claims grades for processing.
type GradeStore interface {
	// Claim transitions the grade from queued to processing. The second
	// return is false when the grade was not in queued state, which is how
	// queue re-deliveries are detected.
	Claim(ctx context.Context, gradeID uuid.UUID) (*models.Grade, bool, error)
}

type EssayStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Essay, error)
}

// Settler finalizes a claimed grade: persists the terminal state and settles
// the credit reservation.
type Settler interface {
	CompleteGrading(ctx context.Context, grade *models.Grade, out *Outcome) error
	FailGrading(ctx context.Context, grade *models.Grade, cause error) error
}

// Outcome is everything a successful ensemble produces for persistence.
type Outcome struct {
	Range               models.PercentageRange
	CategoryScores      map[string]float64
	Feedback            *models.Feedback
	FeedbackSynthesized bool
	ModelResults        []models.ModelResult
	TotalTokens         int
	PromptVersion       string
}

// GradeWorker runs the grading ensemble for queued grades. One job grades
// one essay: claim, fan out N model runs, fold the results, settle.
type GradeWorker struct {
	river.WorkerDefaults[GradeArgs]

	grades    GradeStore
	essays    EssayStore
	grader    llm.Grader
	validator *ResultValidator
	resolve   func() Config
	settle    Settler
	sleep     Sleeper
	log       *slog.Logger
}

func NewGradeWorker(
	grades GradeStore,
	essays EssayStore,
	grader llm.Grader,
	validator *ResultValidator,
	resolve func() Config,
	settle Settler,
	log *slog.Logger,
) *GradeWorker {
	if log == nil {
		log = slog.Default()
	}
	return &GradeWorker{
		grades:    grades,
		essays:    essays,
		grader:    grader,
		validator: validator,
		resolve:   resolve,
		settle:    settle,
		sleep:     SleepWithContext,
		log:       log,
	}
}

func (w *GradeWorker) Work(ctx context.Context, job *river.Job[GradeArgs]) error {
	log := w.log.With("grade_id", job.Args.GradeID)

	grade, claimed, err := w.grades.Claim(ctx, job.Args.GradeID)
	if err != nil {
		return fmt.Errorf("claim grade: %w", err)
	}
	if !claimed {
		// Re-delivery of a job that already ran to a terminal state, or
		// whose first delivery is still in flight. Either way, not ours.
		log.Warn("grade not claimable, skipping delivery")
		return nil
	}

	essay, err := w.essays.GetByID(ctx, grade.EssayID)
	if err != nil {
		log.Error("load essay for grading", "essay_id", grade.EssayID, "error", err)
		return w.settle.FailGrading(ctx, grade, fmt.Errorf("load essay: %w", err))
	}

	cfg := w.resolve()
	log.Info("grading started", "runs", len(cfg.Runs), "prompt_version", PromptVersion)

	outcomes := w.runEnsemble(ctx, BuildPrompt(essay), cfg, log)
	out, err := w.fold(ctx, cfg, outcomes, log)
	if err != nil {
		log.Error("grading failed", "error", err)
		return w.settle.FailGrading(ctx, grade, err)
	}

	log.Info("grading complete",
		"model_results", len(out.ModelResults),
		"range_lower", out.Range.Lower,
		"range_upper", out.Range.Upper,
		"synthesized", out.FeedbackSynthesized)
	return w.settle.CompleteGrading(ctx, grade, out)
}

type runOutcome struct {
	run        Run
	res        *llm.Result
	err        error
	durationMs int64
}

// runEnsemble issues all configured runs in parallel and waits for every one
// of them; stragglers are never abandoned mid-flight.
func (w *GradeWorker) runEnsemble(ctx context.Context, prompt string, cfg Config, log *slog.Logger) []runOutcome {
	outcomes := make([]runOutcome, len(cfg.Runs))
	var wg sync.WaitGroup
	for i, run := range cfg.Runs {
		wg.Add(1)
		go func(i int, run Run) {
			defer wg.Done()
			outcomes[i] = w.runOne(ctx, prompt, cfg, run, log)
		}(i, run)
	}
	wg.Wait()
	return outcomes
}

func (w *GradeWorker) runOne(ctx context.Context, prompt string, cfg Config, run Run, log *slog.Logger) runOutcome {
	params := llm.RunParams{
		Model:           run.Model,
		Temperature:     cfg.Temperature,
		MaxOutputTokens: cfg.MaxOutputTokens,
		ReasoningEffort: run.ReasoningEffort,
	}
	start := time.Now()
	res, err := Retry(ctx, cfg.Retry, w.sleep, func(ctx context.Context) (*llm.Result, error) {
		return w.grader.Grade(ctx, prompt, params)
	})
	out := runOutcome{run: run, durationMs: time.Since(start).Milliseconds()}

	if err != nil {
		if rec := llm.Recover(err); rec != nil && w.conforming(rec) {
			log.Warn("run output recovered", "model", run.Model)
			out.res = rec
			return out
		}
		log.Warn("run failed", "model", run.Model, "reason", llm.FailureReason(err), "error", err)
		out.err = err
		return out
	}

	// Clean outputs already passed field validation at parse time, so a
	// schema deviation here is logged and tolerated.
	if w.validator != nil {
		if verr := w.validator.Validate(res.Raw); verr != nil {
			log.Warn("run output deviates from schema", "model", run.Model, "error", verr)
		}
	}
	out.res = res
	return out
}

// conforming gates recovered outputs: a result salvaged from malformed text
// must pass the full schema before it counts.
func (w *GradeWorker) conforming(res *llm.Result) bool {
	if w.validator == nil {
		return true
	}
	return w.validator.Validate(res.Raw) == nil
}

// fold turns the raw run outcomes into a persistable Outcome: outlier
// exclusion over the usable scores, aggregation over what remains, then
// optional feedback synthesis.
func (w *GradeWorker) fold(ctx context.Context, cfg Config, outcomes []runOutcome, log *slog.Logger) (*Outcome, error) {
	var usableScores []float64
	for _, o := range outcomes {
		if o.res != nil {
			usableScores = append(usableScores, o.res.Percentage)
		}
	}
	if len(usableScores) == 0 {
		return nil, ErrEnsembleExhausted
	}
	exclIdx, exclReason, hasOutlier := DetectOutlier(usableScores, cfg.OutlierThresholdPct)

	out := &Outcome{PromptVersion: PromptVersion}
	var included []*llm.Result
	usable := 0
	for _, o := range outcomes {
		mr := models.ModelResult{
			Model:      o.run.Model,
			DurationMs: o.durationMs,
		}
		switch {
		case o.res == nil:
			mr.Reason = "run failed: " + llm.FailureReason(o.err)
		case hasOutlier && usable == exclIdx:
			mr.Percentage = o.res.Percentage
			mr.Recovered = o.res.Recovered
			mr.Reason = exclReason
			usable++
			log.Info("run excluded as outlier", "model", o.run.Model, "reason", exclReason)
		default:
			mr.Percentage = o.res.Percentage
			mr.Recovered = o.res.Recovered
			mr.Included = true
			included = append(included, o.res)
			usable++
		}
		out.ModelResults = append(out.ModelResults, mr)
	}

	agg := Aggregate(included)
	out.Range = agg.Range
	out.CategoryScores = agg.CategoryScores
	out.Feedback = agg.Feedback
	out.TotalTokens = agg.TotalTokens

	if cfg.SynthesizeFeedback && len(included) > 1 {
		if fb := w.synthesize(ctx, cfg, included, log); fb != nil {
			out.Feedback = fb
			out.FeedbackSynthesized = true
		}
	}
	return out, nil
}

// synthesize blends the included runs' feedback; on any failure it returns
// nil and the caller keeps the lowest scorer's feedback.
func (w *GradeWorker) synthesize(ctx context.Context, cfg Config, included []*llm.Result, log *slog.Logger) *models.Feedback {
	feedbacks := make([]*models.Feedback, len(included))
	for i, res := range included {
		feedbacks[i] = res.Feedback()
	}
	fb, err := w.grader.Synthesize(ctx, BuildSynthesisPrompt(feedbacks), llm.RunParams{
		Model:           cfg.SynthesisModel,
		Temperature:     cfg.Temperature,
		MaxOutputTokens: cfg.MaxOutputTokens,
	})
	if err != nil {
		log.Warn("feedback synthesis failed, keeping lowest scorer feedback", "error", err)
		return nil
	}
	return fb
}
