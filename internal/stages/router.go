package stages

import (
	"context"
	"strings"

	"github.com/tjfontaine/uda/internal/core/domain"
)

var (
	synthesisKeywords = []string{"why", "how", "compare", "design", "tradeoff"}
	policyKeywords    = []string{"policy", "gdpr", "security", "compliance"}
)

// Router classifies the query by keyword. Policy keywords win over synthesis ones.
type Router struct{}

func (Router) Name() string { return NameRouter }

func (Router) Run(ctx context.Context, st domain.State) (domain.Update, error) {
	intent := Classify(st.UserQuery)
	return domain.Update{}.
		WithIntent(intent).
		WithAuditTrail(st.AuditTrail.Append(domain.NewAuditRecord(NameRouter, "intent", intent))), nil
}

// Classify maps a query to an intent by case-insensitive substring match.
func Classify(query string) domain.Intent {
	q := strings.ToLower(query)
	intent := domain.IntentLookup
	if containsAny(q, synthesisKeywords) {
		intent = domain.IntentSynthesis
	}
	if containsAny(q, policyKeywords) {
		intent = domain.IntentPolicy
	}
	return intent
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
