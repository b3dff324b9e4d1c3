// Package uncertainty summarises span-level entropy into a single score.
package uncertainty

import (
	"math"
	"slices"

	"github.com/tjfontaine/uda/internal/core/domain"
)

// Aggregate returns the arithmetic mean of the span entropies.
// No spans yields {0.0, []}.
func Aggregate(spans []domain.Span) domain.Uncertainty {
	if len(spans) == 0 {
		return domain.Uncertainty{Overall: 0.0, Spans: []domain.Span{}}
	}
	var sum float64
	for _, s := range spans {
		sum += s.Entropy
	}
	return domain.Uncertainty{
		Overall: sum / float64(len(spans)),
		Spans:   slices.Clone(spans),
	}
}

// EntropyFromLogprobs computes the Shannon entropy (nats) of the distribution
// given by the top-k log probabilities, renormalised to sum to one.
func EntropyFromLogprobs(logprobs []float64) float64 {
	probs := make([]float64, len(logprobs))
	var total float64
	for i, lp := range logprobs {
		probs[i] = math.Exp(lp)
		total += probs[i]
	}
	if total == 0 {
		return 0.0
	}
	var h float64
	for _, p := range probs {
		p /= total
		h -= p * math.Log(p+1e-12)
	}
	return math.Max(h, 0)
}
