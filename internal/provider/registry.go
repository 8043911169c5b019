package provider

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Factory builds a backend candidate. It returns any rather than Provider so
// the conformance check in Load stays meaningful: a backend missing part of
// the contract still registers, and is rejected with an error naming the
// missing capability instead of failing unpredictably later.
type Factory func() any

// Registry maps provider names to factories. Names are registered once at
// startup and never mutated afterwards.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a named factory. Registering an empty name, a nil factory or
// a duplicate name is a programming error and fails.
func (r *Registry) Register(name string, factory Factory) error {
	if name == "" {
		return fmt.Errorf("provider name must not be empty")
	}
	if factory == nil {
		return fmt.Errorf("provider %q: factory must not be nil", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("provider %q is already registered", name)
	}
	r.factories[name] = factory
	return nil
}

// Names lists the registered provider names. The order is sorted for display;
// callers must not attach meaning to it.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load resolves a name to a fully conformance-checked provider. It never
// returns a partially validated handle: either the candidate satisfies the
// whole contract or the load fails.
func (r *Registry) Load(name string) (Provider, error) {
	if name == "" {
		return nil, fmt.Errorf("provider name must not be empty")
	}

	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("provider %q not found (available: %s)",
			name, strings.Join(r.Names(), ", "))
	}

	return Conformance(name, factory())
}
