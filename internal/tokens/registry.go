// Package tokens provides token counting for draft answers.
package tokens

import (
	"fmt"
	"math"
	"unicode/utf8"
)

// Counter counts the tokens of a plain text string.
type Counter interface {
	CountText(model, text string) (int, error)
	SupportsModel(model string) bool
}

// Registry picks a counter per model.
// It supports:
// 1. Registered Counter implementations (like tiktoken)
// 2. A fallback estimator for unknown models or failing counters
type Registry struct {
	counters []Counter
	fallback Counter
}

// NewRegistry creates a new token counter registry.
func NewRegistry() *Registry {
	return &Registry{
		fallback: NewEstimator(),
	}
}

// NewDefaultRegistry returns a registry with tiktoken registered.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewTiktokenCounter())
	return r
}

// Register adds a token counter to the registry.
func (r *Registry) Register(counter Counter) {
	r.counters = append(r.counters, counter)
}

// SetFallback sets the fallback counter for unsupported models.
func (r *Registry) SetFallback(counter Counter) {
	r.fallback = counter
}

// CountText counts tokens using the first counter that supports the model.
// When that counter fails, the fallback is used instead.
func (r *Registry) CountText(model, text string) (int, error) {
	for _, counter := range r.counters {
		if !counter.SupportsModel(model) {
			continue
		}
		n, err := counter.CountText(model, text)
		if err == nil {
			return n, nil
		}
		break
	}

	if r.fallback != nil {
		return r.fallback.CountText(model, text)
	}

	return 0, fmt.Errorf("no token counter available for model: %s", model)
}

// GetCounter returns the appropriate counter for a model.
func (r *Registry) GetCounter(model string) Counter {
	for _, counter := range r.counters {
		if counter.SupportsModel(model) {
			return counter
		}
	}
	return r.fallback
}

// Estimator provides token count estimation based on character count.
type Estimator struct {
	// CharsPerToken is the average characters per token (default: 4)
	CharsPerToken float64
}

// NewEstimator creates a new token estimator.
func NewEstimator() *Estimator {
	return &Estimator{
		CharsPerToken: 4.0,
	}
}

// CountText estimates the token count, rounding up.
func (e *Estimator) CountText(model, text string) (int, error) {
	chars := utf8.RuneCountInString(text)
	return int(math.Ceil(float64(chars) / e.CharsPerToken)), nil
}

// SupportsModel returns true - estimator supports all models as a fallback.
func (e *Estimator) SupportsModel(model string) bool {
	return true
}
