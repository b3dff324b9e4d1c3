package runtime

import (
	"fmt"
	"log/slog"

	"github.com/tjfontaine/uda/internal/core/ports"
	"github.com/tjfontaine/uda/internal/corpus"
	"github.com/tjfontaine/uda/internal/pkg/config"
	"github.com/tjfontaine/uda/internal/stages"
	"github.com/tjfontaine/uda/internal/storage/sqlite"
)

// Option is a functional option for configuring an App.
type Option func(*App) error

// WithConfig uses an already loaded configuration.
func WithConfig(cfg *config.Config) Option {
	return func(a *App) error {
		if cfg == nil {
			return fmt.Errorf("config cannot be nil")
		}
		a.cfg = cfg
		return nil
	}
}

// WithFileConfig loads configuration from path, then the environment.
func WithFileConfig(path string) Option {
	return func(a *App) error {
		cfg, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("load config from %s: %w", path, err)
		}
		a.cfg = cfg
		return nil
	}
}

// WithSQLite opens the run ledger at path. The App closes it.
func WithSQLite(path string) Option {
	return func(a *App) error {
		store, err := sqlite.New(path)
		if err != nil {
			return fmt.Errorf("create sqlite storage: %w", err)
		}
		a.runs = store
		a.closers = append(a.closers, store.Close)
		return nil
	}
}

// WithRunStore sets a caller-owned run ledger.
func WithRunStore(s ports.RunStore) Option {
	return func(a *App) error {
		a.runs = s
		return nil
	}
}

// WithDeadLetterQueue sets a caller-owned escalation sink.
func WithDeadLetterQueue(q ports.DeadLetterQueue) Option {
	return func(a *App) error {
		a.queue = q
		return nil
	}
}

// WithCorpus replaces the seeded corpus store.
func WithCorpus(s *corpus.Store) Option {
	return func(a *App) error {
		a.corpus = s
		return nil
	}
}

// WithChecker overrides the faithfulness checker built from validator config.
func WithChecker(c ports.FaithfulnessChecker) Option {
	return func(a *App) error {
		a.checker = c
		return nil
	}
}

// WithTokenCounter overrides the token counter of the uncertainty stage.
func WithTokenCounter(c stages.TokenCounter) Option {
	return func(a *App) error {
		a.tokens = c
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) error {
		if logger != nil {
			a.logger = logger
		}
		return nil
	}
}
