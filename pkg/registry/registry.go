// Package registry maps design-system component names to the files that
// define them, in both directions.
package registry

import (
	"path"
	"strings"
)

// Definition is one component exported by the design-system library.
type Definition struct {
	// ExportedName is the public name consumers import.
	ExportedName string `json:"exported_name" yaml:"exported_name"`
	// Path is the defining file, relative to the library root or absolute.
	Path string `json:"path" yaml:"path"`
}

// Entry is a registered component.
type Entry struct {
	ExportedName           string `json:"exported_name" yaml:"exported_name"`
	DefinitionFileBaseName string `json:"definition_file" yaml:"definition_file"`
}

// Registry is the read-only lookup built once per scan run.
//
// Both mappings are total over registered components but not necessarily
// injective: if two definitions share an exported name or a file base name,
// the later definition wins.
type Registry struct {
	nameToFile map[string]string
	fileToName map[string]string
	entries    []Entry
	index      map[string]int
}

// Build derives the registry from the library's component definitions.
// Pure function, O(n).
func Build(defs []Definition) *Registry {
	r := &Registry{
		nameToFile: make(map[string]string, len(defs)),
		fileToName: make(map[string]string, len(defs)),
		index:      make(map[string]int, len(defs)),
	}

	for _, def := range defs {
		if def.ExportedName == "" {
			continue
		}
		base := FileBaseName(def.Path)
		if base == "" {
			base = def.ExportedName
		}

		r.nameToFile[def.ExportedName] = base
		r.fileToName[base] = def.ExportedName

		if i, ok := r.index[def.ExportedName]; ok {
			r.entries[i].DefinitionFileBaseName = base
			continue
		}
		r.index[def.ExportedName] = len(r.entries)
		r.entries = append(r.entries, Entry{
			ExportedName:           def.ExportedName,
			DefinitionFileBaseName: base,
		})
	}

	return r
}

// FileBaseName returns the final path segment without its extension.
// index files take the name of their directory ("Button/index.tsx" → "Button").
func FileBaseName(p string) string {
	p = strings.TrimSuffix(strings.ReplaceAll(p, "\\", "/"), "/")
	base := path.Base(p)
	if base == "." || base == "/" {
		return ""
	}
	base = strings.TrimSuffix(base, path.Ext(base))
	if base == "index" {
		dir := path.Base(path.Dir(p))
		if dir != "." && dir != "/" {
			return dir
		}
	}
	return base
}

// FileOf returns the definition file base name for an exported name.
func (r *Registry) FileOf(exportedName string) (string, bool) {
	f, ok := r.nameToFile[exportedName]
	return f, ok
}

// NameOf returns the exported name defined by a file base name.
func (r *Registry) NameOf(fileBaseName string) (string, bool) {
	n, ok := r.fileToName[fileBaseName]
	return n, ok
}

// HasExport reports whether name is a registered exported name.
func (r *Registry) HasExport(name string) bool {
	_, ok := r.nameToFile[name]
	return ok
}

// Resolve maps an imported name to its canonical exported name: first by
// exported name, then by definition file base name.
func (r *Registry) Resolve(name string) (string, bool) {
	if r.HasExport(name) {
		return name, true
	}
	return r.NameOf(name)
}

// Entries returns the registered components in definition order.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the number of registered components.
func (r *Registry) Len() int { return len(r.entries) }
