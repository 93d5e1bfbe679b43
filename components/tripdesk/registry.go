package tripdesk

import (
	"fmt"
	"sort"
	"sync"
)

// ResourceHook lets packages register resources when a registry is built.
type ResourceHook func(reg *Registry) error

var (
	globalHookMu sync.Mutex
	globalHooks  []ResourceHook
)

// RegisterResourceHook registers a hook executed against new registries.
func RegisterResourceHook(h ResourceHook) {
	globalHookMu.Lock()
	defer globalHookMu.Unlock()
	globalHooks = append(globalHooks, h)
}

// Registry maps resource kinds to their desks.
type Registry struct {
	mu        sync.RWMutex
	resources map[ResourceKind]Resource
}

// NewRegistry builds an empty registry and applies global hooks.
func NewRegistry() *Registry {
	reg := &Registry{resources: map[ResourceKind]Resource{}}
	_ = reg.ApplyHooks()
	return reg
}

// ApplyHooks executes registered resource hooks.
func (r *Registry) ApplyHooks() error {
	globalHookMu.Lock()
	defer globalHookMu.Unlock()
	for _, hook := range globalHooks {
		if err := hook(r); err != nil {
			return err
		}
	}
	return nil
}

// Register adds a resource. Registering the same kind twice is an error.
func (r *Registry) Register(res Resource) error {
	if res == nil {
		return fmt.Errorf("tripdesk: resource is nil")
	}
	kind := res.Kind()
	if kind == "" {
		return fmt.Errorf("tripdesk: resource kind is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.resources[kind]; exists {
		return fmt.Errorf("tripdesk: resource %s already registered", kind)
	}
	r.resources[kind] = res
	return nil
}

// Resource returns the resource registered for kind.
func (r *Registry) Resource(kind ResourceKind) (Resource, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.resources[kind]
	return res, ok
}

// Kinds lists the registered kinds sorted by name.
func (r *Registry) Kinds() []ResourceKind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ResourceKind, 0, len(r.resources))
	for kind := range r.resources {
		out = append(out, kind)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
