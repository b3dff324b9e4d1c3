package stages

import (
	"context"
	"fmt"

	"github.com/tjfontaine/uda/internal/core/domain"
	"github.com/tjfontaine/uda/internal/core/ports"
)

// Validator checks the draft against the evidence.
type Validator struct {
	Checker ports.FaithfulnessChecker
}

func (v *Validator) Name() string { return NameValidator }

func (v *Validator) Run(ctx context.Context, st domain.State) (domain.Update, error) {
	report, err := v.Checker.Check(ctx, st.DraftAnswer, st.RetrievedEvidence)
	if err != nil {
		return domain.Update{}, fmt.Errorf("faithfulness check: %w", err)
	}
	if report.Checks == nil {
		report.Checks = []string{}
	}
	return domain.Update{}.
		WithValidation(report).
		WithAuditTrail(st.AuditTrail.Append(domain.NewAuditRecord(NameValidator, "faithful", report.Faithful))), nil
}
