// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package taskgraph

import (
	"context"
	"fmt"
	"sync"
)

// Node is a vertex of a task graph. The only implementation is *Task[T];
// the unexported method keeps it that way.
type Node interface {
	// Name returns the unique name of the task within its graph.
	Name() string

	// Inputs returns the tasks that must complete successfully before
	// this task can start.
	Inputs() []Node

	run(ctx context.Context, r *Results) (any, error)
}

// TaskFunc computes the output of a task from the outputs of its inputs.
type TaskFunc[T any] func(ctx context.Context, r *Results) (T, error)

// Task is a node of a task graph producing a value of type T.
type Task[T any] struct {
	name   string
	inputs []Node
	fn     TaskFunc[T]
}

// NewTask returns a task that runs fn once every one of inputs has
// completed. Inputs are fixed at construction, so a graph built from tasks
// can never contain a cycle.
func NewTask[T any](name string, fn TaskFunc[T], inputs ...Node) *Task[T] {
	seen := make(map[Node]bool, len(inputs))
	unique := make([]Node, 0, len(inputs))
	for _, in := range inputs {
		if seen[in] {
			continue
		}
		seen[in] = true
		unique = append(unique, in)
	}
	return &Task[T]{
		name:   name,
		inputs: unique,
		fn:     fn,
	}
}

// Name is part of the Node interface.
func (t *Task[T]) Name() string {
	return t.name
}

// Inputs is part of the Node interface.
func (t *Task[T]) Inputs() []Node {
	return t.inputs
}

// Output returns the value this task produced. Inside a TaskFunc only the
// outputs of declared inputs are visible; asking for anything else is a
// wiring bug and panics.
func (t *Task[T]) Output(r *Results) T {
	v, ok := r.get(t)
	if !ok {
		panic(fmt.Sprintf("taskgraph: output of task %q is not available", t.name))
	}
	return v.(T)
}

func (t *Task[T]) run(ctx context.Context, r *Results) (any, error) {
	if t.fn == nil {
		return nil, fmt.Errorf("task %q has no function", t.name)
	}
	return t.fn(ctx, r)
}

// Results holds the outputs of completed tasks.
type Results struct {
	mu     sync.RWMutex
	values map[Node]any
}

func newResults() *Results {
	return &Results{values: make(map[Node]any)}
}

// Has reports whether the task completed successfully.
func (r *Results) Has(n Node) bool {
	_, ok := r.get(n)
	return ok
}

func (r *Results) get(n Node) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.values[n]
	return v, ok
}

func (r *Results) set(n Node, v any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[n] = v
}

// scope returns a view holding only the outputs of the inputs of n.
func (r *Results) scope(n Node) *Results {
	r.mu.RLock()
	defer r.mu.RUnlock()
	view := &Results{values: make(map[Node]any, len(n.Inputs()))}
	for _, in := range n.Inputs() {
		if v, ok := r.values[in]; ok {
			view.values[in] = v
		}
	}
	return view
}
