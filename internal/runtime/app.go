// Package runtime assembles the assistant from configuration and manages the
// lifecycle of the HTTP server and the corpus watcher.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tjfontaine/uda/internal/assistant"
	"github.com/tjfontaine/uda/internal/core/ports"
	"github.com/tjfontaine/uda/internal/corpus"
	"github.com/tjfontaine/uda/internal/dlq"
	"github.com/tjfontaine/uda/internal/pipeline"
	"github.com/tjfontaine/uda/internal/pkg/config"
	"github.com/tjfontaine/uda/internal/server"
	"github.com/tjfontaine/uda/internal/stages"
	"github.com/tjfontaine/uda/internal/storage/memory"
	"github.com/tjfontaine/uda/internal/storage/sqlite"
	"github.com/tjfontaine/uda/internal/tokens"
	"github.com/tjfontaine/uda/internal/validation"
)

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 10 * time.Second

// App owns every long-lived resource of one assistant process.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	corpus  *corpus.Store
	checker ports.FaithfulnessChecker
	tokens  stages.TokenCounter
	runs    ports.RunStore
	queue   ports.DeadLetterQueue

	runner    ports.Runnable
	assistant *assistant.Assistant

	// closers run in reverse order on Close.
	closers []func() error
	mu      sync.Mutex
	closed  bool
}

// New builds an App. Collaborators not supplied through options are
// constructed from the configuration.
func New(ctx context.Context, opts ...Option) (*App, error) {
	app := &App{logger: slog.Default()}

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	if app.cfg == nil {
		cfg, err := config.Load("")
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		app.cfg = cfg
	}

	if err := app.init(ctx); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.cfg

	if a.corpus == nil {
		a.corpus = corpus.NewSeededStore()
		if cfg.Retrieval.CorpusFile != "" {
			n, err := corpus.LoadInto(a.corpus, cfg.Retrieval.CorpusFile)
			if err != nil {
				return fmt.Errorf("load corpus: %w", err)
			}
			a.logger.Info("corpus loaded",
				slog.String("path", cfg.Retrieval.CorpusFile),
				slog.Int("documents", n))
		}
	}

	if a.checker == nil {
		hook := cfg.Validator.Webhook
		checker, err := validation.NewChecker(validation.WebhookConfig{
			URL:     hook.URL,
			Timeout: hook.Timeout,
			OnError: validation.OnError(hook.OnError),
			Retries: hook.Retries,
			Headers: hook.Headers,
			Logger:  a.logger,

			BlockPrivate: hook.BlockPrivate,
		})
		if err != nil {
			return fmt.Errorf("create validator: %w", err)
		}
		a.checker = checker
	}

	if a.tokens == nil {
		a.tokens = tokens.NewDefaultRegistry()
	}

	if a.runs == nil {
		switch cfg.Storage.Type {
		case "memory":
			a.runs = memory.New()
		default:
			path := cfg.Storage.SQLitePath()
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("create storage dir: %w", err)
			}
			store, err := sqlite.New(path)
			if err != nil {
				return fmt.Errorf("open run ledger: %w", err)
			}
			a.runs = store
		}
		a.closers = append(a.closers, a.runs.Close)
	}

	if a.queue == nil {
		q, err := dlq.Open(cfg.Storage.DLQPath())
		if err != nil {
			return err
		}
		a.queue = q
		a.closers = append(a.closers, q.Close)
	}

	backend, err := pipeline.ParseBackend(cfg.Engine.Backend)
	if err != nil {
		return err
	}

	chain := stages.Default(stages.Deps{
		Corpus:      a.corpus,
		Checker:     a.checker,
		Tokens:      a.tokens,
		Model:       cfg.ModelName,
		TopK:        cfg.Retrieval.TopK,
		DefaultTags: cfg.Security.DefaultTags,
	})
	a.runner = pipeline.Build(ctx, chain,
		pipeline.WithBackend(backend),
		pipeline.WithLogger(a.logger))

	a.assistant = assistant.New(a.runner,
		assistant.WithRunStore(a.runs),
		assistant.WithDeadLetterQueue(a.queue),
		assistant.WithLogger(a.logger))

	a.logger.Info("assistant ready",
		slog.String("backend", a.runner.Backend()),
		slog.String("provider", cfg.Provider),
		slog.String("model", cfg.ModelName),
		slog.Int("documents", a.corpus.Len()))

	return nil
}

func (a *App) Config() *config.Config { return a.cfg }
func (a *App) Assistant() *assistant.Assistant { return a.assistant }
func (a *App) Runs() ports.RunStore { return a.runs }
func (a *App) DeadLetterQueue() ports.DeadLetterQueue { return a.queue }
func (a *App) Corpus() *corpus.Store { return a.corpus }

// Handler returns the HTTP API.
func (a *App) Handler() http.Handler {
	return server.New(server.Config{
		Assistant: a.assistant,
		Runs:      a.runs,
		DLQ:       a.queue,
		Timeout:   a.cfg.Server.Timeout,
		Logger:    a.logger,
	})
}

// Serve runs the HTTP API on ln, and the corpus watcher when enabled, until
// ctx is done or one of them fails.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	var watcher *corpus.Watcher
	if a.cfg.Retrieval.Watch && a.cfg.Retrieval.CorpusFile != "" {
		w, err := corpus.NewWatcher(a.cfg.Retrieval.CorpusFile, a.corpus, a.logger)
		if err != nil {
			ln.Close()
			return fmt.Errorf("watch corpus: %w", err)
		}
		watcher = w
	}

	srv := &http.Server{
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("HTTP server listening", slog.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if watcher != nil {
		g.Go(func() error { return watcher.Run(gctx) })
	}

	return g.Wait()
}

// ListenAndServe listens on the configured address and calls Serve.
func (a *App) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.Server.Addr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.cfg.Server.Addr(), err)
	}
	return a.Serve(ctx, ln)
}

// Close releases the stores the App opened itself. It is idempotent.
func (a *App) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Error("failed to close resource", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
