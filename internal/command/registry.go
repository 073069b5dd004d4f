package command

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Registry maps command kinds to their executors.
// It is safe for concurrent reads; Register should only be called at startup.
type Registry struct {
	mu        sync.RWMutex
	executors map[string]Executor
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{executors: make(map[string]Executor)}
}

// NewDefaultRegistry returns a Registry with the exec and shell kinds registered.
func NewDefaultRegistry(opts ...Option) *Registry {
	r := NewRegistry()
	r.Register(NewProcessExecutor(opts...))
	r.Register(NewShellExecutor(opts...))
	return r
}

// Register adds an executor. Panics on duplicate kind to surface misconfiguration early.
func (r *Registry) Register(e Executor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.executors[e.Kind()]; exists {
		panic(fmt.Sprintf("command registry: duplicate kind %q", e.Kind()))
	}
	r.executors[e.Kind()] = e
}

// Get returns the executor for the given kind.
func (r *Registry) Get(kind string) (Executor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.executors[kind]
	if !ok {
		return nil, fmt.Errorf("no executor registered for command kind %q", kind)
	}
	return e, nil
}

// Kinds returns all registered kinds, sorted.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.executors))
	for k := range r.executors {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Validate checks spec against the executor registered for its kind.
func (r *Registry) Validate(spec Spec) error {
	e, err := r.Get(spec.kind())
	if err != nil {
		return err
	}
	return e.Validate(spec)
}

// Execute dispatches spec to the executor registered for its kind.
func (r *Registry) Execute(ctx context.Context, spec Spec) (int, error) {
	e, err := r.Get(spec.kind())
	if err != nil {
		return 0, err
	}
	return e.Execute(ctx, spec)
}
