package stages

import (
	"context"

	"github.com/tjfontaine/uda/internal/core/domain"
)

// Ranker passes retrieved evidence through in retrieval order.
type Ranker struct{}

func (Ranker) Name() string { return NameRanker }

func (Ranker) Run(ctx context.Context, st domain.State) (domain.Update, error) {
	ev := st.RetrievedEvidence
	if ev == nil {
		ev = []domain.EvidenceItem{}
	}
	return domain.Update{}.
		WithEvidence(ev).
		WithAuditTrail(st.AuditTrail.Append(domain.NewAuditRecord(NameRanker, "kept", len(ev)))), nil
}
