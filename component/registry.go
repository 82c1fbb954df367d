package component

import (
	"fmt"
	"sort"
	"sync"

	"github.com/c360/cyclekit/errors"
	"github.com/c360/cyclekit/stream"
)

// Info holds metadata about an available component type.
type Info struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`
}

// Registration holds the factory and metadata for one component type.
// CycleKit uses EXPLICIT registration rather than init() self-registration:
// the application registers the component types it mounts, which keeps the
// dependency graph visible and lets tests build isolated registries.
type Registration struct {
	Name        string
	Description string
	Version     string
	Factory     Factory
}

// Registry manages component factories and mounted instances. It provides
// thread-safe registration and lookup of both factories (for mounting) and
// instances (for diagnostics and teardown).
type Registry struct {
	factories map[string]*Registration
	instances map[string]*Component
	mu        sync.RWMutex
}

// NewRegistry creates a new empty component registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]*Registration),
		instances: make(map[string]*Component),
	}
}

// Register adds a component type to the registry. Returns an error if the
// name is empty, the factory is nil, or the name is already taken.
func (r *Registry) Register(reg Registration) error {
	if reg.Name == "" {
		return errors.WrapConfig(errors.ErrMissingName, "Registry", "Register", "factory name validation")
	}
	if reg.Factory == nil {
		return errors.WrapConfig(
			fmt.Errorf("factory %q: %w", reg.Name, errors.ErrUnknownFactory),
			"Registry", "Register", "factory function validation")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[reg.Name]; exists {
		return errors.WrapConfig(
			fmt.Errorf("factory %q: %w", reg.Name, errors.ErrDuplicateFactory),
			"Registry", "Register", "duplicate factory check")
	}

	r.factories[reg.Name] = &reg
	return nil
}

// Mount creates a component instance using the named factory and tracks it
// under instanceName. The sources and loop are passed through to the factory
// unchanged.
func (r *Registry) Mount(instanceName, factoryName string, src Sources, loop *stream.Loop) (*Component, error) {
	if instanceName == "" {
		return nil, errors.WrapConfig(errors.ErrMissingName, "Registry", "Mount", "instance name validation")
	}

	r.mu.RLock()
	reg, ok := r.factories[factoryName]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.WrapConfig(
			fmt.Errorf("factory %q: %w", factoryName, errors.ErrUnknownFactory),
			"Registry", "Mount", "factory lookup")
	}

	c, err := reg.Factory(src, loop)
	if err != nil {
		return nil, errors.Wrap(err, "Registry", "Mount", fmt.Sprintf("mount %q", instanceName))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.instances[instanceName]; exists {
		c.Close()
		return nil, errors.WrapConfig(
			fmt.Errorf("instance %q: %w", instanceName, errors.ErrDuplicateFactory),
			"Registry", "Mount", "duplicate instance check")
	}
	r.instances[instanceName] = c
	return c, nil
}

// Instance returns a mounted component by instance name.
func (r *Registry) Instance(name string) (*Component, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.instances[name]
	return c, ok
}

// Unmount closes and forgets one mounted instance.
func (r *Registry) Unmount(name string) error {
	r.mu.Lock()
	c, ok := r.instances[name]
	delete(r.instances, name)
	r.mu.Unlock()

	if !ok {
		return errors.WrapConfig(
			fmt.Errorf("instance %q: %w", name, errors.ErrUnknownFactory),
			"Registry", "Unmount", "instance lookup")
	}
	c.Close()
	return nil
}

// List returns metadata for every registered component type, sorted by name.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.factories))
	for _, reg := range r.factories {
		infos = append(infos, Info{
			Name:        reg.Name,
			Description: reg.Description,
			Version:     reg.Version,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// CloseAll tears down every mounted instance.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	instances := r.instances
	r.instances = make(map[string]*Component)
	r.mu.Unlock()

	for _, c := range instances {
		c.Close()
	}
}
