// Package assistant answers questions by running the stage pipeline, recording
// each run in the ledger and escalating dlq decisions to the dead-letter queue.
package assistant

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tjfontaine/uda/internal/core/domain"
	"github.com/tjfontaine/uda/internal/core/ports"
	"github.com/tjfontaine/uda/internal/dlq"
)

// DefaultParallel bounds Batch when no limit is given.
const DefaultParallel = 4

// EscalationError is returned when a dlq decision could not be persisted.
type EscalationError struct {
	Err error
}

func (e *EscalationError) Error() string { return "dlq: enqueue: " + e.Err.Error() }

func (e *EscalationError) Unwrap() error { return e.Err }

// Result is the outcome of one Ask.
type Result struct {
	RunID   string
	State   domain.State
	Payload domain.AnswerPayload
}

// Assistant is safe for concurrent use. Runs share nothing but the stores.
type Assistant struct {
	runner ports.Runnable
	runs   ports.RunStore
	queue  ports.DeadLetterQueue
	logger *slog.Logger
	now    func() time.Time
}

// Option configures an Assistant.
type Option func(*Assistant)

// WithRunStore records every completed run.
func WithRunStore(s ports.RunStore) Option {
	return func(a *Assistant) { a.runs = s }
}

// WithDeadLetterQueue sets the escalation sink. Without one, dlq decisions
// are returned to the caller but not persisted.
func WithDeadLetterQueue(q ports.DeadLetterQueue) Option {
	return func(a *Assistant) { a.queue = q }
}

func WithLogger(l *slog.Logger) Option {
	return func(a *Assistant) {
		if l != nil {
			a.logger = l
		}
	}
}

// New wraps a compiled pipeline.
func New(runner ports.Runnable, opts ...Option) *Assistant {
	a := &Assistant{
		runner: runner,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Backend names the engine backend answering requests.
func (a *Assistant) Backend() string { return a.runner.Backend() }

// Ask runs one query end to end. Stage failures come back as
// *pipeline.StageError. A dlq decision that cannot be enqueued is an error.
func (a *Assistant) Ask(ctx context.Context, query string) (Result, error) {
	runID := uuid.NewString()
	start := a.now()

	st, err := a.runner.Invoke(ctx, domain.NewState(query))
	if err != nil {
		a.logger.Error("run failed",
			slog.String("run_id", runID),
			slog.String("backend", a.runner.Backend()),
			slog.String("error", err.Error()))
		return Result{}, err
	}
	elapsed := a.now().Sub(start)

	if st.Decision == domain.DecisionDLQ && a.queue != nil {
		env := dlq.NewEnvelope(runID, st)
		if err := a.queue.Enqueue(ctx, env); err != nil {
			a.logger.Error("escalation failed",
				slog.String("run_id", runID),
				slog.String("error", err.Error()))
			return Result{}, &EscalationError{Err: err}
		}
		a.logger.Info("run escalated",
			slog.String("run_id", runID),
			slog.String("envelope_id", env.ID),
			slog.String("reason_code", env.ReasonCode))
	}

	res := Result{RunID: runID, State: st, Payload: st.Payload()}

	if a.runs != nil {
		rec := &domain.RunRecord{
			ID:          runID,
			Query:       query,
			Intent:      st.Intent,
			Decision:    res.Payload.Decision,
			Answer:      st.DraftAnswer,
			Citations:   res.Payload.Citations,
			Uncertainty: st.Uncertainty,
			Validation:  st.ValidationReports,
			AuditTrail:  st.AuditTrail,
			Backend:     a.runner.Backend(),
			Duration:    elapsed,
			CreatedAt:   start.UTC(),
		}
		// The answer is already decided; a ledger failure is logged, not returned.
		if err := a.runs.SaveRun(ctx, rec); err != nil {
			a.logger.Warn("failed to record run",
				slog.String("run_id", runID),
				slog.String("error", err.Error()))
		}
	}

	a.logger.Debug("run complete",
		slog.String("run_id", runID),
		slog.String("decision", string(res.Payload.Decision)),
		slog.Duration("duration", elapsed))

	return res, nil
}

// BatchResult pairs a query with its outcome. Err is per item.
type BatchResult struct {
	Query  string
	Result Result
	Err    error
}

// Batch answers queries with at most parallel runs in flight. Results keep
// input order. The returned error is only the context's.
func (a *Assistant) Batch(ctx context.Context, queries []string, parallel int) ([]BatchResult, error) {
	if parallel <= 0 {
		parallel = DefaultParallel
	}

	results := make([]BatchResult, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i, q := range queries {
		g.Go(func() error {
			res, err := a.Ask(gctx, q)
			results[i] = BatchResult{Query: q, Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait() // errors captured in BatchResult

	return results, ctx.Err()
}
