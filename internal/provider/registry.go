package provider

import "sync"

// Registry maps provider identities to their adapters.
// Adapters are registered once at startup and resolved per call, keeping the
// routing policy provider-agnostic.
type Registry struct {
	mu       sync.RWMutex
	adapters map[Identity]Adapter
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[Identity]Adapter),
	}
}

// Register installs an adapter under its identity, replacing any prior one.
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Identity()] = a
}

// Resolve returns the adapter for the given identity.
func (r *Registry) Resolve(id Identity) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[id]
	return a, ok
}

// All returns every registered adapter.
func (r *Registry) All() []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]Adapter, 0, len(r.adapters))
	for _, a := range r.adapters {
		all = append(all, a)
	}
	return all
}

// Shutdown shuts down every registered adapter.
func (r *Registry) Shutdown() {
	for _, a := range r.All() {
		a.Shutdown()
	}
}
