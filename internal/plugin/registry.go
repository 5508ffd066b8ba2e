package plugin

import (
	"fmt"
	"sort"
)

// Registry is an immutable, name-ordered set of plugin definitions. It is
// safe for concurrent use.
type Registry struct {
	defs  map[string]Definition
	names []string
}

// NewRegistry builds a registry from defs. Duplicate names are a
// *ConfigError. Definitions built in code get the same defaults a YAML file
// would: keywords derived from the name, match mode all, extension .txt.
func NewRegistry(defs ...Definition) (*Registry, error) {
	r := &Registry{defs: make(map[string]Definition, len(defs))}
	for _, d := range defs {
		if d.Name == "" {
			return nil, &ConfigError{File: d.Source, Field: "name", Msg: "must not be empty"}
		}
		if prev, dup := r.defs[d.Name]; dup {
			return nil, &ConfigError{
				File:  d.Source,
				Field: "name",
				Msg:   fmt.Sprintf("duplicate plugin %q (already defined in %s)", d.Name, prev.Source),
			}
		}
		if d.Run == "" {
			return nil, &ConfigError{File: d.Source, Field: "run", Msg: "is required"}
		}
		if d.Match == "" {
			d.Match = MatchAll
		}
		if len(d.Keywords) == 0 {
			d.Keywords = DeriveKeywords(d.Name)
		}
		d.OutputExtension = normalizeExtension(d.OutputExtension)
		r.defs[d.Name] = d
		r.names = append(r.names, d.Name)
	}
	sort.Strings(r.names)
	return r, nil
}

// Len returns the number of plugins.
func (r *Registry) Len() int { return len(r.names) }

// Names returns plugin names in sorted order. The slice is a copy.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Get returns the definition for name.
func (r *Registry) Get(name string) (Definition, bool) {
	d, ok := r.defs[name]
	return d, ok
}

// All returns every definition in name order.
func (r *Registry) All() []Definition {
	out := make([]Definition, 0, len(r.names))
	for _, n := range r.names {
		out = append(out, r.defs[n])
	}
	return out
}
