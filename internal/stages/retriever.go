package stages

import (
	"context"
	"fmt"

	"github.com/tjfontaine/uda/internal/core/domain"
	"github.com/tjfontaine/uda/internal/core/ports"
	"github.com/tjfontaine/uda/internal/retrieval"
)

// Retriever fetches candidate evidence from the corpus.
type Retriever struct {
	Corpus   ports.Corpus
	Searcher retrieval.KeywordSearcher
}

func (r *Retriever) Name() string { return NameRetriever }

func (r *Retriever) Run(ctx context.Context, st domain.State) (domain.Update, error) {
	docs, err := r.Corpus.Documents(ctx)
	if err != nil {
		return domain.Update{}, fmt.Errorf("load corpus: %w", err)
	}
	ev := r.Searcher.Search(docs, st.UserQuery)
	return domain.Update{}.
		WithEvidence(ev).
		WithAuditTrail(st.AuditTrail.Append(domain.NewAuditRecord(NameRetriever, "hits", len(ev)))), nil
}
