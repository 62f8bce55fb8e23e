package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/signaltree/pkg/domain"
)

// Registry manages the named actions available to descriptions.
// Ref items and YAML descriptions resolve through it.
type Registry struct {
	mu      sync.RWMutex
	actions map[string]*domain.Action
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		actions: make(map[string]*domain.Action),
	}
}

// Register adds actions to the registry.
// An action with an existing name overwrites the previous one.
func (r *Registry) Register(actions ...*domain.Action) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range actions {
		if a == nil || a.Name == "" {
			continue
		}
		r.actions[a.Name] = a
	}
}

// RegisterFunc is a shorthand for Register(domain.NewAction(...)).
func (r *Registry) RegisterFunc(name string, fn domain.StepFunc, opts ...domain.ActionOption) *domain.Action {
	a := domain.NewAction(name, fn, opts...)
	r.Register(a)
	return a
}

// Get looks an action up by name.
func (r *Registry) Get(name string) (*domain.Action, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.actions[name]
	return a, ok
}

// MustGet is Get for static wiring; it panics on unknown names.
func (r *Registry) MustGet(name string) *domain.Action {
	a, ok := r.Get(name)
	if !ok {
		panic(fmt.Sprintf("registry: action not found: %s", name))
	}
	return a
}

// Resolver adapts the registry to the compiler's lookup function.
func (r *Registry) Resolver() domain.ActionResolver {
	return r.Get
}

// Names returns the registered action names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.actions))
	for name := range r.actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
