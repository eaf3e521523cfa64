package render

import (
	"log/slog"
	"strings"

	"github.com/tableclothml/odocsite/internal/odoc"
)

// SidebarNode is one navigable entry of the sidebar tree.
type SidebarNode struct {
	Kind      BlockKind      `json:"kind"`
	Title     string         `json:"title"`
	Name      string         `json:"name"`
	Anchor    string         `json:"anchor,omitempty"`
	URL       string         `json:"url,omitempty"`
	Module    string         `json:"module,omitempty"`
	Collapsed bool           `json:"collapsed,omitempty"`
	Children  []*SidebarNode `json:"children,omitempty"`
}

// BuildSidebar derives the navigation tree for nodes declared under path,
// filtered by search. Modules named in collapsed are listed without their
// children; collapse keys are qualified relative to path. Anchors match the
// ones Flatten registers for the same nodes and path.
func (r *Renderer) BuildSidebar(nodes []odoc.Node, path []string, search SearchPath, collapsed CollapsedSet) ([]*SidebarNode, error) {
	b := &sidebarBuilder{r: r, collapsed: collapsed, active: make(expanding)}
	return b.walk(nodes, search, path, nil)
}

type sidebarBuilder struct {
	r         *Renderer
	collapsed CollapsedSet
	active    expanding
}

// walk lists the visible entries of nodes. path holds the enclosing module
// names as declared, display the same names stripped.
func (b *sidebarBuilder) walk(nodes []odoc.Node, search SearchPath, path, display []string) ([]*SidebarNode, error) {
	elements, err := b.r.dedupe(nodes)
	if err != nil {
		return nil, err
	}
	modules, leaf := search.split()
	leafVisible := func(name string) bool {
		return !search.Active() || (len(modules) == 0 && matches(name, leaf))
	}

	var out []*SidebarNode
	for _, n := range elements {
		switch n.Tag {
		case odoc.TagText:

		case odoc.TagType:
			if leafVisible(n.Type.Name) {
				out = append(out, b.leaf(BlockType, n.Type.Name, "type "+n.Type.Name, Anchor(path, odoc.TagType, n.Type.Name)))
			}

		case odoc.TagValue:
			name := n.Value.Name
			if b.r.hideSnakeCase && strings.Contains(name, "_") {
				continue
			}
			if leafVisible(name) {
				out = append(out, b.leaf(BlockValue, name, name, Anchor(path, odoc.TagValue, name)))
			}

		case odoc.TagModuleType:
			name := n.ModuleType.Name
			if leafVisible(name) {
				out = append(out, b.leaf(BlockModuleType, name, "module type "+name, Anchor(path, odoc.TagModuleType, name)))
			}

		case odoc.TagModule:
			node, err := b.module(n.Module, search, path, display)
			if err != nil {
				return nil, err
			}
			if node != nil {
				out = append(out, node)
			}

		case odoc.TagIncludedModule:
			children, err := b.include(n.Include.Name, search, path, display)
			if err != nil {
				return nil, err
			}
			out = append(out, children...)

		default:
			node, err := b.unhandled("node "+n.Tag, path)
			if err != nil {
				return nil, err
			}
			out = append(out, node)
		}
	}
	return out, nil
}

func (b *sidebarBuilder) include(target string, search SearchPath, path, display []string) ([]*SidebarNode, error) {
	site := strings.Join(path, ".")
	body, err := b.r.resolveStruct(target, "include", site)
	if err != nil {
		return nil, err
	}
	if err := b.active.enter(target, "include", site); err != nil {
		return nil, err
	}
	defer b.active.leave(target)
	return b.walk(body, search, path, display)
}

func (b *sidebarBuilder) leaf(kind BlockKind, name, title, anchor string) *SidebarNode {
	return &SidebarNode{Kind: kind, Title: title, Name: name, Anchor: anchor, URL: b.r.nav.Href(anchor)}
}

func (b *sidebarBuilder) module(m *odoc.Module, search SearchPath, path, display []string) (*SidebarNode, error) {
	var body []odoc.Node
	switch m.Kind.Tag {
	case odoc.KindStruct:
		body = m.Kind.Struct
	case odoc.KindAlias:
		target := m.Kind.Alias.Name
		resolved, err := b.r.resolveStruct(target, "alias", m.Name)
		if err != nil {
			return nil, err
		}
		if err := b.active.enter(target, "alias", m.Name); err != nil {
			return nil, err
		}
		defer b.active.leave(target)
		body = resolved
	case odoc.KindFunctor:
		modules, leaf := search.split()
		if search.Active() && (len(modules) > 0 || !matches(m.Name, leaf)) {
			return nil, nil
		}
		return b.leaf(BlockFunctor, m.Name, m.Name, Anchor(path, odoc.KindFunctor, m.Name)), nil
	default:
		return b.unhandled("module kind "+m.Kind.Tag, path)
	}

	shown := b.r.strip.Strip(m.Name)
	qualified := strings.Join(extend(display, shown), ".")

	modules, leaf := search.split()
	nameMatches := search.Active() && matches(shown, leaf)
	var sub SearchPath
	switch {
	case len(modules) == 0 && nameMatches:
		// The module itself is the hit; list everything inside it.
	case len(modules) == 0:
		sub = search
	case matches(shown, modules[0]):
		sub = append(cloneSegments(modules[1:]), leaf)
	default:
		sub = search
	}

	children, err := b.walk(body, sub, extend(path, m.Name), extend(display, shown))
	if err != nil {
		return nil, err
	}
	if search.Active() && !(len(modules) == 0 && nameMatches) && len(children) == 0 {
		return nil, nil
	}

	anchor := Anchor(path, odoc.TagModule, shown)
	node := &SidebarNode{
		Kind:   BlockModule,
		Title:  "module " + qualified,
		Name:   shown,
		Anchor: anchor,
		URL:    b.r.nav.Href(anchor),
		Module: qualified,
	}
	if b.collapsed[qualified] {
		node.Collapsed = true
	} else {
		node.Children = children
	}
	return node, nil
}

func (b *sidebarBuilder) unhandled(what string, path []string) (*SidebarNode, error) {
	if b.r.mode == Production {
		return nil, &UnhandledCaseError{Case: what, Path: path}
	}
	slog.Debug("sidebar entry for unhandled case", "case", what, "path", path)
	return &SidebarNode{Kind: BlockUnhandled, Title: "Unhandled case: " + what, Name: what}, nil
}

func cloneSegments(s []string) SearchPath {
	out := make(SearchPath, len(s), len(s)+1)
	copy(out, s)
	return out
}
