// Package storage holds the run ledger implementations.
package storage

import (
	"github.com/tjfontaine/uda/internal/core/ports"
)

// Re-export storage interfaces and types from core/ports.
type (
	RunStore    = ports.RunStore
	ListOptions = ports.ListOptions
)

// ErrRunNotFound is returned for unknown run ids.
var ErrRunNotFound = ports.ErrRunNotFound

// DefaultListLimit caps ListRuns when no limit is given.
const DefaultListLimit = 50
