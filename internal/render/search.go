package render

import (
	"maps"
	"slices"
	"strings"
)

// SearchPath is a dotted query split into segments. All but the last segment
// select enclosing modules; the last selects the leaf name.
type SearchPath []string

// ParseSearch splits a dotted query, dropping empty segments, so "String.to"
// and "String..to." parse alike.
func ParseSearch(query string) SearchPath {
	var out SearchPath
	for _, seg := range strings.Split(query, ".") {
		if seg = strings.TrimSpace(seg); seg != "" {
			out = append(out, seg)
		}
	}
	return out
}

// Active reports whether the search filters anything.
func (s SearchPath) Active() bool { return len(s) > 0 }

func (s SearchPath) String() string { return strings.Join(s, ".") }

// split returns the module segments and the leaf segment.
func (s SearchPath) split() (modules []string, leaf string) {
	if len(s) == 0 {
		return nil, ""
	}
	return s[:len(s)-1], s[len(s)-1]
}

// Leaf returns the segment declarations are matched against.
func (s SearchPath) Leaf() string {
	_, leaf := s.split()
	return leaf
}

// Matches reports whether name contains segment, ignoring case.
func Matches(name, segment string) bool {
	return matches(name, segment)
}

func matches(name, segment string) bool {
	return strings.Contains(strings.ToLower(name), strings.ToLower(segment))
}

// CollapsedSet holds the qualified display names of collapsed modules.
type CollapsedSet map[string]bool

// ParseCollapsed reads a comma separated list of qualified module names.
func ParseCollapsed(list string) CollapsedSet {
	out := make(CollapsedSet)
	for _, name := range strings.Split(list, ",") {
		if name = strings.TrimSpace(name); name != "" {
			out[name] = true
		}
	}
	return out
}

// Toggle returns a copy of c with name flipped.
func (c CollapsedSet) Toggle(name string) CollapsedSet {
	out := maps.Clone(c)
	if out == nil {
		out = make(CollapsedSet)
	}
	if out[name] {
		delete(out, name)
	} else {
		out[name] = true
	}
	return out
}

// Names returns the collapsed modules in sorted order.
func (c CollapsedSet) Names() []string {
	return slices.Sorted(maps.Keys(c))
}
