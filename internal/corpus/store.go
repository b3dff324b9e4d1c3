// Package corpus holds the documents the retriever searches.
package corpus

import (
	"context"
	"slices"
	"sync"

	"github.com/tjfontaine/uda/internal/core/domain"
	"github.com/tjfontaine/uda/internal/core/ports"
)

// Seed returns the built-in documents describing the assistant itself.
func Seed() []domain.EvidenceItem {
	return []domain.EvidenceItem{
		{
			DocID:        "doc-1",
			Heading:      "UDA Overview",
			Text:         "Universal Data Assistant provides precise, cited answers using RAG.",
			SourceURI:    "internal://docs/uda/overview.md",
			SecurityTags: []string{"public"},
		},
		{
			DocID:        "doc-2",
			Heading:      "Uncertainty Handling",
			Text:         "UDA tracks token-level uncertainty via logprob entropy and span aggregation.",
			SourceURI:    "internal://docs/uda/uncertainty.md",
			SecurityTags: []string{"public"},
		},
	}
}

// Store is a concurrency-safe, in-memory document set.
type Store struct {
	mu   sync.RWMutex
	docs []domain.EvidenceItem
}

// NewStore creates a store holding docs.
func NewStore(docs ...domain.EvidenceItem) *Store {
	return &Store{docs: cloneDocs(docs)}
}

// NewSeededStore creates a store holding the built-in documents.
func NewSeededStore() *Store {
	return NewStore(Seed()...)
}

// Add appends documents.
func (s *Store) Add(docs ...domain.EvidenceItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = append(s.docs, cloneDocs(docs)...)
}

// Replace swaps the whole document set.
func (s *Store) Replace(docs []domain.EvidenceItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = cloneDocs(docs)
}

// All returns a copy of the documents in insertion order.
func (s *Store) All() []domain.EvidenceItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneDocs(s.docs)
}

// Len returns the number of documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Documents implements ports.Corpus.
func (s *Store) Documents(ctx context.Context) ([]domain.EvidenceItem, error) {
	return s.All(), nil
}

func cloneDocs(docs []domain.EvidenceItem) []domain.EvidenceItem {
	out := make([]domain.EvidenceItem, len(docs))
	for i, d := range docs {
		d.SecurityTags = slices.Clone(d.SecurityTags)
		out[i] = d
	}
	return out
}

var _ ports.Corpus = (*Store)(nil)
