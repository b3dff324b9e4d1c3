package stages

import (
	"context"

	"github.com/tjfontaine/uda/internal/core/domain"
)

// UncertaintyThreshold separates confident from uncertain answers.
const UncertaintyThreshold = 0.8

// Auditor flags runs that are uncertain or unfaithful. The flag is advisory.
type Auditor struct{}

func (Auditor) Name() string { return NameAuditor }

func (Auditor) Run(ctx context.Context, st domain.State) (domain.Update, error) {
	flag := st.OverallUncertainty() > UncertaintyThreshold || !st.Faithful()
	return domain.Update{}.
		WithAuditTrail(st.AuditTrail.Append(domain.NewAuditRecord(NameAuditor, "flag", flag))), nil
}

// Supervisor makes the terminal decision.
type Supervisor struct{}

func (Supervisor) Name() string { return NameSupervisor }

func (Supervisor) Run(ctx context.Context, st domain.State) (domain.Update, error) {
	d := Decide(st.Faithful(), st.OverallUncertainty())
	return domain.Update{}.
		WithDecision(d).
		WithAuditTrail(st.AuditTrail.Append(domain.NewAuditRecord(NameSupervisor, "decision", d))), nil
}

// Decide routes a run to answer or dlq.
//
// A faithful draft is always answered, so overall only matters once
// uncertain-but-faithful answers get a route of their own.
func Decide(faithful bool, overall float64) domain.Decision {
	if faithful && overall < UncertaintyThreshold {
		return domain.DecisionAnswer
	}
	if faithful {
		return domain.DecisionAnswer
	}
	return domain.DecisionDLQ
}
