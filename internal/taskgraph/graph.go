// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package taskgraph

import (
	"context"
	"sync"
	"time"

	"github.com/juju/errors"
	"golang.org/x/sync/errgroup"
)

// Observer is notified as tasks start and finish.
type Observer interface {
	TaskStarted(name string)
	TaskFinished(name string, elapsed time.Duration, err error)
}

// Option configures a single run of a graph.
type Option func(*runOptions)

type runOptions struct {
	observers []Observer
}

// WithObserver adds an observer to the run.
func WithObserver(obs Observer) Option {
	return func(o *runOptions) {
		if obs != nil {
			o.observers = append(o.observers, obs)
		}
	}
}

// Graph is a validated, topologically ordered set of tasks.
type Graph struct {
	nodes      []Node
	dependents map[Node][]Node
}

// NewGraph returns the graph made of targets and everything they depend
// on, transitively. Task names must be unique.
func NewGraph(targets ...Node) (*Graph, error) {
	g := &Graph{
		dependents: make(map[Node][]Node),
	}
	names := make(map[string]Node)
	visited := make(map[Node]bool)

	var visit func(n Node) error
	visit = func(n Node) error {
		if n == nil {
			return errors.NotValidf("nil task")
		}
		if visited[n] {
			return nil
		}
		visited[n] = true
		if other, ok := names[n.Name()]; ok && other != n {
			return errors.NotValidf("duplicate task name %q", n.Name())
		}
		names[n.Name()] = n
		for _, in := range n.Inputs() {
			if err := visit(in); err != nil {
				return errors.Annotatef(err, "input of %q", n.Name())
			}
			g.dependents[in] = append(g.dependents[in], n)
		}
		g.nodes = append(g.nodes, n)
		return nil
	}
	for _, t := range targets {
		if err := visit(t); err != nil {
			return nil, errors.Trace(err)
		}
	}
	if len(g.nodes) == 0 {
		return nil, errors.NotValidf("empty task graph")
	}
	return g, nil
}

// Order returns the task names in a valid execution order.
func (g *Graph) Order() []string {
	names := make([]string, len(g.nodes))
	for i, n := range g.nodes {
		names[i] = n.Name()
	}
	return names
}

// Run executes the graph. A task starts only once all of its inputs have
// completed successfully; tasks with no outstanding inputs run
// concurrently. The first task error cancels the run, no further tasks are
// started, and that error is returned as is. Completed tasks are not
// undone. The returned Results hold the outputs of every task that
// completed, even on failure.
func (g *Graph) Run(ctx context.Context, opts ...Option) (*Results, error) {
	var o runOptions
	for _, opt := range opts {
		opt(&o)
	}

	results := newResults()
	pending := make(map[Node]int, len(g.nodes))
	for _, n := range g.nodes {
		pending[n] = len(n.Inputs())
	}

	eg, ctx := errgroup.WithContext(ctx)
	var mu sync.Mutex

	var start func(n Node)
	start = func(n Node) {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			o.started(n.Name())
			began := time.Now()
			out, err := n.run(ctx, results.scope(n))
			o.finished(n.Name(), time.Since(began), err)
			if err != nil {
				return err
			}
			results.set(n, out)

			var ready []Node
			mu.Lock()
			for _, d := range g.dependents[n] {
				pending[d]--
				if pending[d] == 0 {
					ready = append(ready, d)
				}
			}
			mu.Unlock()

			for _, d := range ready {
				start(d)
			}
			return nil
		})
	}

	var roots []Node
	for _, n := range g.nodes {
		if pending[n] == 0 {
			roots = append(roots, n)
		}
	}
	for _, n := range roots {
		start(n)
	}

	if err := eg.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func (o *runOptions) started(name string) {
	for _, obs := range o.observers {
		obs.TaskStarted(name)
	}
}

func (o *runOptions) finished(name string, elapsed time.Duration, err error) {
	for _, obs := range o.observers {
		obs.TaskFinished(name, elapsed, err)
	}
}
