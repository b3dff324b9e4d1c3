package stages

import (
	"github.com/tjfontaine/uda/internal/core/ports"
	"github.com/tjfontaine/uda/internal/corpus"
	"github.com/tjfontaine/uda/internal/retrieval"
	"github.com/tjfontaine/uda/internal/tokens"
	"github.com/tjfontaine/uda/internal/validation"
)

// Deps are the collaborators of the default chain. Nil fields get defaults.
type Deps struct {
	Corpus      ports.Corpus
	Checker     ports.FaithfulnessChecker
	Tokens      TokenCounter
	Model       string
	TopK        int
	DefaultTags []string
}

// Default returns the eight stages in execution order.
func Default(d Deps) []ports.Stage {
	if d.Corpus == nil {
		d.Corpus = corpus.NewSeededStore()
	}
	if d.Checker == nil {
		d.Checker = validation.Stub{}
	}
	if d.Tokens == nil {
		d.Tokens = tokens.NewDefaultRegistry()
	}

	return []ports.Stage{
		Router{},
		&Retriever{
			Corpus:   d.Corpus,
			Searcher: retrieval.KeywordSearcher{TopK: d.TopK, DefaultTags: d.DefaultTags},
		},
		Ranker{},
		Answerer{},
		&Uncertainty{Tokens: d.Tokens, Model: d.Model},
		&Validator{Checker: d.Checker},
		Auditor{},
		Supervisor{},
	}
}
