package ports

import (
	"context"
	"errors"
	"iter"

	"github.com/tjfontaine/uda/internal/core/domain"
)

// ErrRunNotFound is returned by RunStore.GetRun for unknown ids.
var ErrRunNotFound = errors.New("run not found")

// ListOptions for paginated queries
type ListOptions struct {
	Limit    int
	Offset   int
	Decision domain.Decision // empty matches every decision
}

// RunStore is the append-only ledger of completed pipeline runs.
// Implementations: SQLite (default), in-memory.
type RunStore interface {
	// SaveRun appends a run. Saving an id twice is an error.
	SaveRun(ctx context.Context, run *domain.RunRecord) error

	// GetRun retrieves a run by ID
	GetRun(ctx context.Context, id string) (*domain.RunRecord, error)

	// ListRuns lists runs newest first
	ListRuns(ctx context.Context, opts ListOptions) ([]*domain.RunRecord, error)

	// Close closes the storage connection
	Close() error
}

// DeadLetterQueue is the durable sink for escalated requests.
type DeadLetterQueue interface {
	// Enqueue appends one item. Safe for concurrent callers.
	Enqueue(ctx context.Context, item any) error

	// Stream re-reads every committed item from the start.
	Stream(ctx context.Context) iter.Seq2[map[string]any, error]
}
