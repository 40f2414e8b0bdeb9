package module

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Config represents module-specific configuration (opaque to the runtime).
type Config map[string]any

// Factory constructs a unit with the provided configuration.
type Factory func(Config) (*Unit, error)

// ErrNotRegistered is wrapped by LoadError when an id has no factory.
var ErrNotRegistered = errors.New("module: not registered")

// LoadError names the module id that could not be bound.
type LoadError struct {
	ModuleID string
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("module: load %s: %v", e.ModuleID, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Registry maintains known module factories. It is filled once at startup
// and maps catalog ids to the code implementing them.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// Register installs a module factory. Returns an error if the ID already exists.
func (r *Registry) Register(id string, factory Factory) error {
	if id == "" {
		return fmt.Errorf("module: id is required")
	}
	if factory == nil {
		return fmt.Errorf("module: factory is required for %s", id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[id]; exists {
		return fmt.Errorf("module: %s already registered", id)
	}
	r.factories[id] = factory
	return nil
}

// MustRegister panics if registration fails.
func (r *Registry) MustRegister(id string, factory Factory) {
	if err := r.Register(id, factory); err != nil {
		panic(err)
	}
}

// Has reports whether id has a factory.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[id]
	return ok
}

// Resolve constructs a unit by ID.
func (r *Registry) Resolve(id string, cfg Config) (*Unit, error) {
	r.mu.RLock()
	factory, ok := r.factories[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, id)
	}
	unit, err := factory(cfg)
	if err != nil {
		return nil, err
	}
	if unit == nil {
		return nil, fmt.Errorf("module: factory for %s returned no unit", id)
	}
	if err := unit.Info.Validate(); err != nil {
		return nil, err
	}
	if unit.Info.ID != id {
		return nil, fmt.Errorf("module: factory for %s built unit %s", id, unit.Info.ID)
	}
	return unit, nil
}

// Load binds ids in order. The first id that cannot be bound stops loading
// and is reported as a *LoadError; no partial list is returned.
func (r *Registry) Load(ids []string) ([]*Unit, error) {
	return r.LoadConfigured(ids, nil)
}

// LoadConfigured is Load with per-module configuration keyed by id.
func (r *Registry) LoadConfigured(ids []string, configs map[string]Config) ([]*Unit, error) {
	units := make([]*Unit, 0, len(ids))
	for _, id := range ids {
		unit, err := r.Resolve(id, configs[id])
		if err != nil {
			return nil, &LoadError{ModuleID: id, Err: err}
		}
		units = append(units, unit)
	}
	return units, nil
}

// Missing returns the ids without a factory, preserving order.
func (r *Registry) Missing(ids []string) []string {
	var out []string
	for _, id := range ids {
		if !r.Has(id) {
			out = append(out, id)
		}
	}
	return out
}

// IDs returns a sorted list of registered module identifiers.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
