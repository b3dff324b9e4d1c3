// Package ports defines the core interfaces of the assistant.
// This file contains the stage and runnable contracts of the pipeline engine.
package ports

import (
	"context"

	"github.com/tjfontaine/uda/internal/core/domain"
)

// Stage is one named step of the pipeline.
//
// A stage reads the full current State and returns an Update naming only the
// fields it changed. Every stage must append exactly one audit record whose
// node equals Name(); the engine rejects runs that break this.
type Stage interface {
	// Name returns the unique identifier for this stage.
	Name() string
	// Run executes the stage logic.
	Run(ctx context.Context, st domain.State) (domain.Update, error)
}

// Runnable is a compiled pipeline.
type Runnable interface {
	// Invoke runs every stage in order and returns the final State.
	// On error no partial State is returned.
	Invoke(ctx context.Context, initial domain.State) (domain.State, error)
	// Backend reports which implementation executes the stages.
	Backend() string
}

// FaithfulnessChecker decides whether a draft is supported by its evidence.
// Implementations: stub (default), remote NLI webhook.
type FaithfulnessChecker interface {
	Check(ctx context.Context, draft string, evidence []domain.EvidenceItem) (domain.ValidationReport, error)
}

// Corpus supplies the documents the retriever scores.
type Corpus interface {
	Documents(ctx context.Context) ([]domain.EvidenceItem, error)
}
