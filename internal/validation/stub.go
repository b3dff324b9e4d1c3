// Package validation decides whether a draft answer is faithful to its evidence.
//
// The field contract {faithful, checks} is shared by every checker, so the
// stub can be swapped for a real NLI service without touching the pipeline.
package validation

import (
	"context"

	"github.com/tjfontaine/uda/internal/core/domain"
	"github.com/tjfontaine/uda/internal/core/ports"
)

// CheckStub is the check name reported by Stub.
const CheckStub = "stub"

// Stub treats a draft as faithful exactly when there is evidence behind it.
type Stub struct{}

// Check implements ports.FaithfulnessChecker.
func (Stub) Check(ctx context.Context, draft string, evidence []domain.EvidenceItem) (domain.ValidationReport, error) {
	return domain.ValidationReport{
		Faithful: len(evidence) > 0,
		Checks:   []string{CheckStub},
	}, nil
}

var _ ports.FaithfulnessChecker = Stub{}
