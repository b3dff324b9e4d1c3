package stages

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/tjfontaine/uda/internal/citation"
	"github.com/tjfontaine/uda/internal/core/domain"
)

// AbstentionMessage is the draft when no evidence was found.
const AbstentionMessage = "I don't have enough information to answer confidently. " +
	"Please provide more details or ingest relevant documents."

// quotedItems is how many evidence items the draft quotes.
const quotedItems = 2

// Answerer drafts a grounded answer by quoting the top evidence.
type Answerer struct{}

func (Answerer) Name() string { return NameAnswerer }

func (Answerer) Run(ctx context.Context, st domain.State) (domain.Update, error) {
	draft, citations := Draft(st.UserQuery, st.RetrievedEvidence)
	return domain.Update{}.
		WithDraftAnswer(draft).
		WithCitations(citations).
		WithAuditTrail(st.AuditTrail.Append(
			domain.NewAuditRecord(NameAnswerer, "len", utf8.RuneCountInString(draft)))), nil
}

// Draft builds the answer text and its citations.
func Draft(query string, ev []domain.EvidenceItem) (string, []string) {
	if len(ev) == 0 {
		return AbstentionMessage, []string{}
	}
	quoted := ev[:min(quotedItems, len(ev))]

	var b strings.Builder
	b.WriteString("Q: ")
	b.WriteString(query)
	b.WriteString("\nA (grounded):")
	for _, item := range quoted {
		b.WriteString("\n- ")
		b.WriteString(item.Text)
	}
	return b.String(), citation.Format(quoted)
}
