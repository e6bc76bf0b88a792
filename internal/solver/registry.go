package solver

import (
	"fmt"
	"sort"
	"sync"

	"github.com/samber/lo"
)

// Entry describes a registered solver.
type Entry struct {
	Name    string
	Doc     string
	Factory Factory
}

// Registry maps solver names to factories. It is filled once at start-up
// and read afterwards.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Register adds a solver under name.
func (r *Registry) Register(name, doc string, f Factory) error {
	if name == "" {
		return &ValidationError{Field: "name", Reason: "cannot be empty"}
	}
	if f == nil {
		return &ValidationError{Field: "factory", Reason: "cannot be nil"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, name)
	}
	r.entries[name] = Entry{Name: name, Doc: doc, Factory: f}
	return nil
}

// Lookup returns the entry registered under name.
func (r *Registry) Lookup(name string) (Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return Entry{}, &UnknownSolverError{Name: name}
	}
	return e, nil
}

// New builds the invoker registered under name.
func (r *Registry) New(name string, opts Options, env Env) (Invoker, error) {
	e, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	return e.Factory(opts, env)
}

// List returns all entries sorted by name.
func (r *Registry) List() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := lo.Keys(r.entries)
	sort.Strings(names)
	return lo.Map(names, func(n string, _ int) Entry { return r.entries[n] })
}
