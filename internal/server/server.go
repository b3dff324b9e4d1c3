// Package server is the HTTP boundary of the assistant.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tjfontaine/uda/internal/assistant"
	"github.com/tjfontaine/uda/internal/core/domain"
	"github.com/tjfontaine/uda/internal/core/ports"
	"github.com/tjfontaine/uda/internal/dlq"
)

// maxBodyBytes caps /chat request bodies.
const maxBodyBytes = 1 << 20

// Asker answers one query.
type Asker interface {
	Ask(ctx context.Context, query string) (assistant.Result, error)
	Backend() string
}

// Config wires the server's collaborators. Runs and DLQ are optional; their
// routes answer with empty lists when unset.
type Config struct {
	Assistant Asker
	Runs      ports.RunStore
	DLQ       ports.DeadLetterQueue
	Timeout   time.Duration
	Logger    *slog.Logger
}

type Server struct {
	Router *chi.Mux

	asker  Asker
	runs   ports.RunStore
	queue  ports.DeadLetterQueue
	logger *slog.Logger
}

func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	// Apply middleware in order
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(TimeoutMiddleware(cfg.Timeout))
	r.Use(middleware.Recoverer)

	// Wrap with OpenTelemetry HTTP instrumentation
	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "uda")
	})

	s := &Server{
		Router: r,
		asker:  cfg.Assistant,
		runs:   cfg.Runs,
		queue:  cfg.DLQ,
		logger: logger,
	}

	r.Get("/health", s.handleHealth)
	r.Post("/chat", s.handleChat)
	r.Get("/dlq", s.handleDLQ)
	r.Get("/runs", s.handleListRuns)
	r.Get("/runs/{id}", s.handleGetRun)

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

type healthResponse struct {
	Status  string `json:"status"`
	Backend string `json:"backend,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	if s.asker != nil {
		resp.Backend = s.asker.Backend()
	}
	writeJSON(w, http.StatusOK, resp)
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// RunIDHeader names the ledger entry of a /chat response.
const RunIDHeader = "X-UDA-Run-ID"

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, r, domain.ErrInvalidRequest("invalid JSON body: "+err.Error()))
		return
	}

	res, err := s.asker.Ask(r.Context(), req.Message)
	if err != nil {
		writeError(w, r, err)
		return
	}

	AddLogField(r.Context(), "run_id", res.RunID)
	AddLogField(r.Context(), "decision", string(res.Payload.Decision))
	w.Header().Set(RunIDHeader, res.RunID)
	writeJSON(w, http.StatusOK, res.Payload)
}

type dlqResponse struct {
	Items []dlq.Record `json:"items"`
}

func (s *Server) handleDLQ(w http.ResponseWriter, r *http.Request) {
	resp := dlqResponse{Items: []dlq.Record{}}
	if s.queue == nil {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	items, err := dlq.Collect(r.Context(), s.queue, intParam(r, "limit", 50, 1000))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items != nil {
		resp.Items = items
	}
	writeJSON(w, http.StatusOK, resp)
}

type runListResponse struct {
	Runs []*domain.RunRecord `json:"runs"`
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	resp := runListResponse{Runs: []*domain.RunRecord{}}
	if s.runs == nil {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	decision := domain.Decision(r.URL.Query().Get("decision"))
	if decision != "" && !decision.Valid() {
		writeError(w, r, domain.ErrInvalidRequest("unknown decision "+strconv.Quote(string(decision))))
		return
	}

	runs, err := s.runs.ListRuns(r.Context(), ports.ListOptions{
		Limit:    intParam(r, "limit", 50, 200),
		Offset:   intParam(r, "offset", 0, -1),
		Decision: decision,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if runs != nil {
		resp.Runs = runs
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if s.runs == nil {
		writeError(w, r, domain.ErrNotFound("run ledger not configured").WithCode(domain.ErrorCodeRunNotFound))
		return
	}

	run, err := s.runs.GetRun(r.Context(), id)
	if err != nil {
		if !errors.Is(err, ports.ErrRunNotFound) {
			s.logger.Error("failed to get run", slog.String("run_id", id), slog.String("error", err.Error()))
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// intParam reads a non-negative query parameter, falling back to def when it
// is missing, malformed or above upper. A negative upper means unbounded.
func intParam(r *http.Request, name string, def, upper int) int {
	q := r.URL.Query().Get(name)
	if q == "" {
		return def
	}
	v, err := strconv.Atoi(q)
	if err != nil || v < 0 || (upper >= 0 && v > upper) {
		return def
	}
	return v
}
