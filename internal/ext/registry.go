// Package ext implements the extension registry and default extension
// (spec §4.8): named functions/getters/setters injected into the
// embedded namespace (internal/evalns), plus the default set the core
// ships with (cursor access, navigation helpers, pointer resolution).
package ext

import "fmt"

// Factory builds one named extension the first time it is loaded.
type Factory func(*Registry) (interface{}, error)

// Registry loads extensions by name, memoizing each and rejecting
// recursive load dependencies (spec §4.8, grounded on the original's
// ExtensionRegistry._loading_extensions guard).
type Registry struct {
	factories map[string]Factory
	loaded    map[string]interface{}
	loading   map[string]bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: map[string]Factory{},
		loaded:    map[string]interface{}{},
		loading:   map[string]bool{},
	}
}

// Register associates name with the factory that builds it.
func (r *Registry) Register(name string, f Factory) {
	r.factories[name] = f
}

// Load returns the named extension, building and memoizing it on first
// use. A cycle in the load graph is a TypeError-equivalent programming
// error, not a pattern-match failure.
func (r *Registry) Load(name string) (interface{}, error) {
	if v, ok := r.loaded[name]; ok {
		return v, nil
	}
	if r.loading[name] {
		return nil, fmt.Errorf("recursive dependency loading extension %q", name)
	}
	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("no extension registered as %q", name)
	}
	r.loading[name] = true
	v, err := f(r)
	delete(r.loading, name)
	if err != nil {
		return nil, err
	}
	r.loaded[name] = v
	return v, nil
}

// LoadAll eagerly builds every registered extension (spec §4.8
// `load_extensions`). The order in which they are built is not defined.
func (r *Registry) LoadAll() error {
	for name := range r.factories {
		if _, err := r.Load(name); err != nil {
			return err
		}
	}
	return nil
}
