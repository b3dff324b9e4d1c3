package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/tjfontaine/uda/internal/core/domain"
	"github.com/tjfontaine/uda/internal/core/ports"
)

// Backend names an engine implementation.
type Backend string

const (
	// BackendAuto uses the graph when available, else sequential.
	BackendAuto Backend = "auto"
	// BackendGraph is the optional eino compose graph.
	BackendGraph Backend = "graph"
	// BackendSequential is the in-process fallback loop.
	BackendSequential Backend = "sequential"
)

// ParseBackend validates a configured backend name. Empty means auto.
func ParseBackend(name string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(name))); b {
	case "":
		return BackendAuto, nil
	case BackendAuto, BackendGraph, BackendSequential:
		return b, nil
	default:
		return "", fmt.Errorf("invalid engine backend %q (must be 'auto', 'graph' or 'sequential')", name)
	}
}

// StageFunc adapts a plain function to a named stage.
func StageFunc(name string, fn func(ctx context.Context, st domain.State) (domain.Update, error)) ports.Stage {
	return &funcStage{name: name, fn: fn}
}

type funcStage struct {
	name string
	fn   func(ctx context.Context, st domain.State) (domain.Update, error)
}

func (s *funcStage) Name() string { return s.name }

func (s *funcStage) Run(ctx context.Context, st domain.State) (domain.Update, error) {
	return s.fn(ctx, st)
}
