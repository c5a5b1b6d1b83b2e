package workflow

import (
	"fmt"
	"sort"
	"sync"

	"github.com/claimflow/claimflow"
)

// Registry maps executor names to implementations. It is the typed
// replacement for string-keyed dispatch at run time: the engine resolves
// every executor reference against the registry once, at construction,
// so a missing executor is a configuration fault rather than a mid-run
// surprise. Safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	executors map[string]Executor
}

// NewRegistry creates an empty executor registry.
func NewRegistry() *Registry {
	return &Registry{executors: make(map[string]Executor)}
}

// Register binds an executor implementation to a name. Re-registering a
// name replaces the previous binding.
func (r *Registry) Register(name string, e Executor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executors[name] = e
}

// RegisterFunc binds an ordinary function as an executor.
func (r *Registry) RegisterFunc(name string, fn ExecutorFunc) {
	r.Register(name, fn)
}

// Get returns the executor registered under name.
func (r *Registry) Get(name string) (Executor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.executors[name]
	return e, ok
}

// Names returns all registered executor names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.executors))
	for name := range r.executors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the executor for every step in the definition, keyed by
// step name. A step whose executor is not registered fails with an error
// wrapping claimflow.ErrExecutorNotFound.
func (r *Registry) Resolve(def *Definition) (map[string]Executor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	resolved := make(map[string]Executor, def.Len())
	for _, step := range def.Steps() {
		e, ok := r.executors[step.Executor]
		if !ok {
			return nil, fmt.Errorf("%w: step %q references executor %q",
				claimflow.ErrExecutorNotFound, step.Name, step.Executor)
		}
		resolved[step.Name] = e
	}
	return resolved, nil
}
