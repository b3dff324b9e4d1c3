package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tjfontaine/uda/internal/core/domain"
	"github.com/tjfontaine/uda/internal/core/ports"
)

const tracerName = "github.com/tjfontaine/uda/internal/pipeline"

// ErrAuditContract is returned when a stage does not append exactly one
// audit record carrying its own name.
var ErrAuditContract = errors.New("audit contract violated")

// StageError is returned when a stage fails. The run is aborted.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline stage %s error: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// IsStageError returns true if err carries a stage failure.
func IsStageError(err error) bool {
	var se *StageError
	return errors.As(err, &se)
}

// compiler builds a Runnable on an optional backend.
type compiler func(ctx context.Context, stages []ports.Stage, s stepper) (ports.Runnable, error)

var (
	registryMu sync.RWMutex
	registry   = map[Backend]compiler{}
)

func register(b Backend, c compiler) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[b] = c
}

func lookup(b Backend) (compiler, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	c, ok := registry[b]
	return c, ok
}

// Available reports whether the optional backend b is compiled in.
func Available(b Backend) bool {
	if b == BackendSequential {
		return true
	}
	_, ok := lookup(b)
	return ok
}

type options struct {
	backend Backend
	logger  *slog.Logger
	tracer  trace.Tracer
}

// Option configures Build.
type Option func(*options)

// WithBackend forces a backend. BackendAuto (the default) prefers the graph.
func WithBackend(b Backend) Option {
	return func(o *options) { o.backend = b }
}

// WithLogger sets the logger used for fallback notices and per-stage debug lines.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) {
		if t != nil {
			o.tracer = t
		}
	}
}

// Build compiles stages into a Runnable. It never fails: when the graph
// backend is missing or cannot be compiled, the sequential runner is returned.
func Build(ctx context.Context, stages []ports.Stage, opts ...Option) ports.Runnable {
	o := options{
		backend: BackendAuto,
		logger:  slog.Default(),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(&o)
	}

	s := stepper{logger: o.logger, tracer: o.tracer}
	stages = append([]ports.Stage(nil), stages...)

	if o.backend != BackendSequential {
		c, ok := lookup(BackendGraph)
		if !ok {
			o.logger.Info("graph backend not compiled in, using sequential runner",
				slog.String("requested", string(o.backend)))
		} else if r, err := c(ctx, stages, s); err != nil {
			o.logger.Warn("graph backend construction failed, using sequential runner",
				slog.String("requested", string(o.backend)),
				slog.String("error", err.Error()))
		} else {
			o.logger.Debug("pipeline compiled",
				slog.String("backend", r.Backend()),
				slog.Int("stages", len(stages)))
			return r
		}
	}

	return &Sequential{stages: stages, step: s}
}

// stepper runs a single stage. Every backend goes through it.
type stepper struct {
	logger *slog.Logger
	tracer trace.Tracer
}

func (s stepper) run(ctx context.Context, backend Backend, stage ports.Stage, st domain.State) (domain.State, error) {
	name := stage.Name()
	if err := ctx.Err(); err != nil {
		return domain.State{}, &StageError{Stage: name, Err: err}
	}

	ctx, span := s.tracer.Start(ctx, "pipeline.stage", trace.WithAttributes(
		attribute.String("uda.stage", name),
		attribute.String("uda.backend", string(backend)),
	))
	defer span.End()

	start := time.Now()
	fail := func(err error) (domain.State, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.State{}, &StageError{Stage: name, Err: err}
	}

	upd, err := stage.Run(ctx, st)
	if err != nil {
		return fail(err)
	}
	if err := checkAudit(name, st.AuditTrail, upd); err != nil {
		return fail(err)
	}
	next, err := st.Apply(upd)
	if err != nil {
		return fail(err)
	}

	s.logger.DebugContext(ctx, "stage completed",
		slog.String("stage", name),
		slog.String("backend", string(backend)),
		slog.Int("audit_len", len(next.AuditTrail)),
		slog.Duration("duration", time.Since(start)))

	return next, nil
}

func checkAudit(name string, prior domain.AuditTrail, upd domain.Update) error {
	trail, ok := upd.AuditTrail()
	if !ok {
		return fmt.Errorf("%w: no audit record appended", ErrAuditContract)
	}
	if len(trail) != len(prior)+1 {
		return fmt.Errorf("%w: trail grew from %d to %d records", ErrAuditContract, len(prior), len(trail))
	}
	for i := range prior {
		if trail[i].Node != prior[i].Node {
			return fmt.Errorf("%w: record %d rewritten", ErrAuditContract, i)
		}
	}
	if got := trail[len(trail)-1].Node; got != name {
		return fmt.Errorf("%w: record node is %q", ErrAuditContract, got)
	}
	return nil
}
