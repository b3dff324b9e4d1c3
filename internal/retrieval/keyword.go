// Package retrieval scores corpus documents against a query.
package retrieval

import (
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/tjfontaine/uda/internal/core/domain"
)

// DefaultTopK is the number of hits returned when no limit is configured.
const DefaultTopK = 5

// minTermRunes drops short filler terms ("is", "a", "of").
const minTermRunes = 3

// Terms lowercases the query, splits it on whitespace and keeps terms of at
// least three characters. Duplicates are kept and count once each.
func Terms(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	terms := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) >= minTermRunes {
			terms = append(terms, f)
		}
	}
	return terms
}

// Score sums the non-overlapping, case-insensitive occurrence counts of each
// term in the document text.
func Score(doc domain.EvidenceItem, terms []string) int {
	text := strings.ToLower(doc.Text)
	score := 0
	for _, t := range terms {
		score += strings.Count(text, t)
	}
	return score
}

// KeywordSearcher ranks documents by keyword occurrence.
type KeywordSearcher struct {
	// TopK caps the number of hits. Zero or less means DefaultTopK.
	TopK int
	// DefaultTags are applied to hits that carry no security tags.
	DefaultTags []string
}

// Search returns copies of the matching documents with Score set, ordered by
// descending score. Ties keep corpus order. Documents scoring zero are dropped.
func (s KeywordSearcher) Search(docs []domain.EvidenceItem, query string) []domain.EvidenceItem {
	if query == "" {
		return []domain.EvidenceItem{}
	}
	terms := Terms(query)
	if len(terms) == 0 {
		return []domain.EvidenceItem{}
	}

	type hit struct {
		score int
		doc   domain.EvidenceItem
	}
	var hits []hit
	for _, d := range docs {
		if score := Score(d, terms); score > 0 {
			hits = append(hits, hit{score: score, doc: d})
		}
	}
	slices.SortStableFunc(hits, func(a, b hit) int { return b.score - a.score })

	k := s.TopK
	if k <= 0 {
		k = DefaultTopK
	}
	if len(hits) > k {
		hits = hits[:k]
	}

	out := make([]domain.EvidenceItem, len(hits))
	for i, h := range hits {
		item := h.doc
		item.Score = float64(h.score)
		if len(item.SecurityTags) == 0 {
			item.SecurityTags = slices.Clone(s.DefaultTags)
		} else {
			item.SecurityTags = slices.Clone(item.SecurityTags)
		}
		out[i] = item
	}
	return out
}
