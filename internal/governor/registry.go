package governor

import (
	"fmt"
	"sort"
	"sync"

	"codewarden/internal/logging"
)

// Registry holds the governors registered for an engine instance.
// Registration happens at setup time; lookups during a run are
// read-only and safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	governors map[string]Governor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{governors: make(map[string]Governor)}
}

// Register adds a governor. Names must be unique and non-empty, and
// weights must be positive, so a misconfigured governor cannot silently
// zero itself out of the compliance score.
func (r *Registry) Register(g Governor) error {
	if g == nil {
		return fmt.Errorf("nil governor")
	}
	if g.Name() == "" {
		return fmt.Errorf("governor has empty name")
	}
	if g.Weight() <= 0 {
		return fmt.Errorf("governor %q has non-positive weight %v", g.Name(), g.Weight())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.governors[g.Name()]; exists {
		return fmt.Errorf("governor %q already registered", g.Name())
	}
	r.governors[g.Name()] = g
	logging.Get(logging.CategoryGovernor).Info("registered governor %s (weight %.2f)", g.Name(), g.Weight())
	return nil
}

// Get returns the governor with the given name, or nil.
func (r *Registry) Get(name string) Governor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.governors[name]
}

// List returns all governors sorted by name. The order is stable so
// score computation and directive synthesis are deterministic.
func (r *Registry) List() []Governor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Governor, 0, len(r.governors))
	for _, g := range r.governors {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Len returns the number of registered governors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.governors)
}
