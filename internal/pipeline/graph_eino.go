//go:build !noeino

package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/compose"

	"github.com/tjfontaine/uda/internal/core/domain"
	"github.com/tjfontaine/uda/internal/core/ports"
)

func init() {
	register(BackendGraph, compileGraph)
}

// graphRunnable executes the stages as a linear eino graph.
type graphRunnable struct {
	r compose.Runnable[domain.State, domain.State]
}

type failureKey struct{}

// failure carries the first stage error out of the graph, since eino wraps
// node errors in its own types.
type failure struct {
	err error
}

func compileGraph(ctx context.Context, stages []ports.Stage, s stepper) (ports.Runnable, error) {
	if len(stages) == 0 {
		return nil, errors.New("graph needs at least one stage")
	}

	g := compose.NewGraph[domain.State, domain.State]()
	prev := compose.START
	for _, stage := range stages {
		name := stage.Name()
		node := compose.InvokableLambda(func(ctx context.Context, st domain.State) (domain.State, error) {
			next, err := s.run(ctx, BackendGraph, stage, st)
			if err != nil {
				if f, ok := ctx.Value(failureKey{}).(*failure); ok && f.err == nil {
					f.err = err
				}
				return domain.State{}, err
			}
			return next, nil
		})
		if err := g.AddLambdaNode(name, node); err != nil {
			return nil, fmt.Errorf("add node %s: %w", name, err)
		}
		if err := g.AddEdge(prev, name); err != nil {
			return nil, fmt.Errorf("add edge %s -> %s: %w", prev, name, err)
		}
		prev = name
	}
	if err := g.AddEdge(prev, compose.END); err != nil {
		return nil, fmt.Errorf("add edge %s -> end: %w", prev, err)
	}

	r, err := g.Compile(ctx, compose.WithGraphName("uda"))
	if err != nil {
		return nil, fmt.Errorf("compile graph: %w", err)
	}
	return &graphRunnable{r: r}, nil
}

// Invoke runs the compiled graph.
func (g *graphRunnable) Invoke(ctx context.Context, initial domain.State) (domain.State, error) {
	f := &failure{}
	out, err := g.r.Invoke(context.WithValue(ctx, failureKey{}, f), initial)
	if f.err != nil {
		return domain.State{}, f.err
	}
	if err != nil {
		return domain.State{}, &StageError{Stage: "graph", Err: err}
	}
	return out, nil
}

// Backend returns "graph".
func (g *graphRunnable) Backend() string { return string(BackendGraph) }
