package uncertainty

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tjfontaine/uda/internal/core/domain"
)

func TestAggregate(t *testing.T) {
	tests := []struct {
		name  string
		spans []domain.Span
		want  domain.Uncertainty
	}{
		{
			name:  "no spans",
			spans: nil,
			want:  domain.Uncertainty{Overall: 0.0, Spans: []domain.Span{}},
		},
		{
			name:  "single span",
			spans: []domain.Span{{Start: 0, End: 10, Entropy: 0.1}},
			want:  domain.Uncertainty{Overall: 0.1, Spans: []domain.Span{{Start: 0, End: 10, Entropy: 0.1}}},
		},
		{
			name:  "mean of spans",
			spans: []domain.Span{{Start: 0, End: 2, Entropy: 0.5}, {Start: 2, End: 4, Entropy: 1.5}},
			want:  domain.Uncertainty{Overall: 1.0, Spans: []domain.Span{{Start: 0, End: 2, Entropy: 0.5}, {Start: 2, End: 4, Entropy: 1.5}}},
		},
		{
			name:  "grounded and ungrounded span",
			spans: []domain.Span{{Entropy: 0.1}, {Entropy: 1.2}},
			want:  domain.Uncertainty{Overall: 0.65, Spans: []domain.Span{{Entropy: 0.1}, {Entropy: 1.2}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Aggregate(tt.spans)); diff != "" {
				t.Errorf("Aggregate() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAggregate_DoesNotAlias(t *testing.T) {
	spans := []domain.Span{{Start: 0, End: 1, Entropy: 0.3}}
	got := Aggregate(spans)
	spans[0].Entropy = 9
	if got.Spans[0].Entropy != 0.3 {
		t.Errorf("Aggregate aliased its input: %v", got.Spans)
	}
}

func TestEntropyFromLogprobs(t *testing.T) {
	tests := []struct {
		name     string
		logprobs []float64
		want     float64
	}{
		{name: "empty", logprobs: nil, want: 0},
		{name: "certain", logprobs: []float64{0}, want: 0},
		{name: "uniform pair", logprobs: []float64{math.Log(0.5), math.Log(0.5)}, want: math.Log(2)},
		{name: "unnormalised uniform", logprobs: []float64{-3, -3, -3, -3}, want: math.Log(4)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EntropyFromLogprobs(tt.logprobs)
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("EntropyFromLogprobs(%v) = %v, want %v", tt.logprobs, got, tt.want)
			}
			if got < 0 {
				t.Errorf("entropy must be non-negative, got %v", got)
			}
		})
	}
}
