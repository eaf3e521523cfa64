package odoc

import (
	"sort"
	"strings"
)

// ModuleIndex maps dotted, unstripped module paths (e.g. "Tablecloth.String")
// to their struct modules. Aliases and includes are resolved through it on
// demand, so the model itself never holds back-pointers.
type ModuleIndex struct {
	byPath map[string]*Module
}

// NewModuleIndex indexes every struct module reachable from the model's
// top-level modules.
func NewModuleIndex(m *Model) *ModuleIndex {
	idx := &ModuleIndex{byPath: make(map[string]*Module)}

	keys := make([]string, 0, len(m.Modules))
	for k := range m.Modules {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		idx.add([]Node{m.Modules[k]}, nil)
	}
	return idx
}

func (idx *ModuleIndex) add(nodes []Node, parent []string) {
	for _, n := range nodes {
		if n.Tag != TagModule || n.Module.Kind.Tag != KindStruct {
			continue
		}
		path := make([]string, len(parent), len(parent)+1)
		copy(path, parent)
		path = append(path, n.Module.Name)
		idx.byPath[strings.Join(path, ".")] = n.Module
		idx.add(n.Module.Kind.Struct, path)
	}
}

// Lookup returns the module at the given qualified path.
func (idx *ModuleIndex) Lookup(path string) (*Module, bool) {
	m, ok := idx.byPath[path]
	return m, ok
}

// Paths returns every indexed module path in sorted order.
func (idx *ModuleIndex) Paths() []string {
	paths := make([]string, 0, len(idx.byPath))
	for p := range idx.byPath {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Len reports the number of indexed modules.
func (idx *ModuleIndex) Len() int {
	return len(idx.byPath)
}
