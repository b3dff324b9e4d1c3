package pipeline

import (
	"context"

	"github.com/tjfontaine/uda/internal/core/domain"
	"github.com/tjfontaine/uda/internal/core/ports"
)

// Sequential runs the stages in order in the calling goroutine.
type Sequential struct {
	stages []ports.Stage
	step   stepper
}

// Invoke executes all stages in order.
func (p *Sequential) Invoke(ctx context.Context, initial domain.State) (domain.State, error) {
	st := initial
	for _, stage := range p.stages {
		next, err := p.step.run(ctx, BackendSequential, stage, st)
		if err != nil {
			return domain.State{}, err
		}
		st = next
	}
	return st, nil
}

// Backend returns "sequential".
func (p *Sequential) Backend() string { return string(BackendSequential) }

// Stages returns the stage names in execution order.
func (p *Sequential) Stages() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name()
	}
	return names
}

var _ ports.Runnable = (*Sequential)(nil)
