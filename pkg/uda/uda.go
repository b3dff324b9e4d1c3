// Package uda provides the public API for embedding the Universal Data Assistant.
// This is the stable API for external consumers.
package uda

import (
	"github.com/tjfontaine/uda/internal/core/domain"
	"github.com/tjfontaine/uda/internal/runtime"
)

// App is the main entry point for running the assistant.
// See internal/runtime.App for full documentation.
type App = runtime.App

// Option is a functional option for configuring an App.
type Option = runtime.Option

// Response shapes returned by App.Assistant().Ask.
type (
	AnswerPayload = domain.AnswerPayload
	RunRecord     = domain.RunRecord
	EvidenceItem  = domain.EvidenceItem
	Decision      = domain.Decision
)

const (
	DecisionAnswer = domain.DecisionAnswer
	DecisionDLQ    = domain.DecisionDLQ
)

// New creates a new App with the given options.
// Example:
//
//	app, err := uda.New(ctx,
//	    uda.WithFileConfig("config.yaml"),
//	    uda.WithSQLite("./storage/runs.db"),
//	)
var New = runtime.New

// Configuration options
var (
	// Config sources
	WithConfig     = runtime.WithConfig
	WithFileConfig = runtime.WithFileConfig

	// Storage
	WithSQLite          = runtime.WithSQLite
	WithRunStore        = runtime.WithRunStore
	WithDeadLetterQueue = runtime.WithDeadLetterQueue

	// Pipeline collaborators
	WithCorpus       = runtime.WithCorpus
	WithChecker      = runtime.WithChecker
	WithTokenCounter = runtime.WithTokenCounter

	// Advanced options
	WithLogger = runtime.WithLogger
)
