package stages

import (
	"context"

	"github.com/tjfontaine/uda/internal/core/domain"
	"github.com/tjfontaine/uda/internal/tokens"
	"github.com/tjfontaine/uda/internal/uncertainty"
)

// Synthetic span entropies used until real token logprobs are available.
const (
	GroundedEntropy   = 0.1
	UngroundedEntropy = 1.2
)

// TokenCounter counts draft tokens for span bounds.
type TokenCounter interface {
	CountText(model, text string) (int, error)
}

// Uncertainty estimates answer uncertainty as one span over the whole draft.
type Uncertainty struct {
	Tokens TokenCounter
	Model  string
}

func (u *Uncertainty) Name() string { return NameUncertainty }

func (u *Uncertainty) Run(ctx context.Context, st domain.State) (domain.Update, error) {
	entropy := UngroundedEntropy
	if len(st.RetrievedEvidence) > 0 {
		entropy = GroundedEntropy
	}
	unc := uncertainty.Aggregate([]domain.Span{{Start: 0, End: u.count(st.DraftAnswer), Entropy: entropy}})
	return domain.Update{}.
		WithUncertainty(unc).
		WithAuditTrail(st.AuditTrail.Append(domain.NewAuditRecord(NameUncertainty, "overall", unc.Overall))), nil
}

// count returns the draft length in tokens, at least 1.
func (u *Uncertainty) count(draft string) int {
	n, err := u.Tokens.CountText(u.Model, draft)
	if err != nil {
		n, _ = tokens.NewEstimator().CountText(u.Model, draft)
	}
	return max(n, 1)
}
