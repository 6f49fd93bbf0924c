package agentdef

import (
	"os"
	"path/filepath"
	"sort"
)

const definitionFilename = "AGENT.md"

// Registry holds the resolved set of agent definitions, applying the
// precedence rule user-global < project-local < embedded: embedded
// definitions cannot be overridden.
type Registry struct {
	defs     map[string]*Definition
	embedded map[string]bool
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{defs: map[string]*Definition{}, embedded: map[string]bool{}}
}

// RegisterEmbedded seeds the registry with compiled-in definitions.
// Embedded entries are marked so Discover can never override them.
func (r *Registry) RegisterEmbedded(defs ...*Definition) {
	for _, d := range defs {
		r.defs[d.Name] = d
		r.embedded[d.Name] = true
	}
}

// Discover walks searchPaths from lowest to highest priority, looking
// in each for immediate subdirectories containing a definition file
// (<dir>/<name>/AGENT.md), letting later entries overwrite earlier
// ones — except that any disk entry colliding with an embedded name is
// silently skipped.
func (r *Registry) Discover(searchPaths []string) error {
	for _, root := range searchPaths {
		entries, err := os.ReadDir(root)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			path := filepath.Join(root, e.Name(), definitionFilename)
			content, err := os.ReadFile(path)
			if err != nil {
				continue
			}
			def, err := Parse(string(content), path, filepath.Join(root, e.Name()))
			if err != nil {
				continue
			}
			if r.embedded[def.Name] {
				continue
			}
			r.defs[def.Name] = def
		}
	}
	return nil
}

// Get looks up a definition by name.
func (r *Registry) Get(name string) (*Definition, bool) {
	d, ok := r.defs[name]
	return d, ok
}

// List returns every registered definition, sorted by name.
func (r *Registry) List() []*Definition {
	names := make([]string, 0, len(r.defs))
	for n := range r.defs {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]*Definition, len(names))
	for i, n := range names {
		out[i] = r.defs[n]
	}
	return out
}
