package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/tjfontaine/uda/internal/core/domain"
	"github.com/tjfontaine/uda/internal/storage"
)

// Store is an in-memory run ledger, used for tests and ephemeral serving.
type Store struct {
	mu    sync.RWMutex
	runs  []*domain.RunRecord
	index map[string]int
}

var _ storage.RunStore = (*Store)(nil)

// New creates a new in-memory store
func New() *Store {
	return &Store{
		index: make(map[string]int),
	}
}

func (s *Store) SaveRun(ctx context.Context, run *domain.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.index[run.ID]; exists {
		return fmt.Errorf("run %s already exists", run.ID)
	}

	cp := *run
	s.index[run.ID] = len(s.runs)
	s.runs = append(s.runs, &cp)
	return nil
}

func (s *Store) GetRun(ctx context.Context, id string) (*domain.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return nil, fmt.Errorf("run %s: %w", id, storage.ErrRunNotFound)
	}

	cp := *s.runs[i]
	return &cp, nil
}

func (s *Store) ListRuns(ctx context.Context, opts storage.ListOptions) ([]*domain.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := opts.Limit
	if limit <= 0 {
		limit = storage.DefaultListLimit
	}

	var result []*domain.RunRecord
	skipped := 0
	for i := len(s.runs) - 1; i >= 0 && len(result) < limit; i-- {
		run := s.runs[i]
		if opts.Decision != "" && run.Decision != opts.Decision {
			continue
		}
		if skipped < opts.Offset {
			skipped++
			continue
		}
		cp := *run
		result = append(result, &cp)
	}

	return result, nil
}

func (s *Store) Close() error {
	return nil
}
