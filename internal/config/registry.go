package config

import "sort"

// Registry is an immutable id→name map.
type Registry struct {
	names map[string]string
}

// NewRegistry copies entries into a Registry.
func NewRegistry(entries map[string]string) *Registry {
	names := make(map[string]string, len(entries))
	for id, name := range entries {
		names[id] = name
	}
	return &Registry{names: names}
}

// Name returns the display name for id.
func (r *Registry) Name(id string) (string, bool) {
	if r == nil {
		return "", false
	}
	name, ok := r.names[id]
	return name, ok
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.Name(id)
	return ok
}

// Len returns the number of entries.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.names)
}

// IDs returns registered ids in ascending order.
func (r *Registry) IDs() []string {
	if r == nil {
		return nil
	}
	ids := make([]string, 0, len(r.names))
	for id := range r.names {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
