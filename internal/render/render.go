// Package render turns an odoc documentation model into an ordered list of
// content blocks with an anchor index, and into a filterable sidebar tree.
package render

import (
	"errors"
	"fmt"

	"github.com/tableclothml/odocsite/internal/markdown"
	"github.com/tableclothml/odocsite/internal/odoc"
)

// Mode selects how unknown model shapes are surfaced.
type Mode int

const (
	// Development renders unknown shapes as visible placeholder blocks.
	Development Mode = iota
	// Production fails the render on unknown shapes.
	Production
)

type Options struct {
	StripPrefix   string
	Mode          Mode
	Navigator     Navigator
	HideSnakeCase bool
}

// Renderer renders nodes resolved against one model's module index. It holds
// no per-render state and may be shared.
type Renderer struct {
	index         *odoc.ModuleIndex
	strip         Stripper
	mode          Mode
	nav           Navigator
	hideSnakeCase bool
}

func New(index *odoc.ModuleIndex, opts Options) *Renderer {
	nav := opts.Navigator
	if nav == nil {
		nav = FragmentNavigator{}
	}
	return &Renderer{
		index:         index,
		strip:         Stripper(opts.StripPrefix),
		mode:          opts.Mode,
		nav:           nav,
		hideSnakeCase: opts.HideSnakeCase,
	}
}

// Root is the body of a model's entry point together with the path its
// declarations live under, so anchors come out fully qualified.
type Root struct {
	Path     []string
	Elements []odoc.Node
}

func EntryRoot(m *odoc.Model) (Root, error) {
	elements, err := m.EntryElements()
	if err != nil {
		return Root{}, err
	}
	return Root{Path: []string{m.EntryPoint.Name()}, Elements: elements}, nil
}

// RenderModel indexes m and flattens its entry point.
func RenderModel(m *odoc.Model, opts Options) (*Renderer, Root, *Document, error) {
	root, err := EntryRoot(m)
	if err != nil {
		return nil, Root{}, nil, err
	}
	r := New(odoc.NewModuleIndex(m), opts)
	doc, err := r.Flatten(root.Elements, root.Path)
	if err != nil {
		return nil, Root{}, nil, err
	}
	return r, root, doc, nil
}

// Strip removes the configured library prefix from s.
func (r *Renderer) Strip(s string) string {
	return r.strip.Strip(s)
}

// ModulePaths lists every module path includes and aliases can resolve to.
func (r *Renderer) ModulePaths() []string {
	return r.index.Paths()
}

// Href returns the link destination for an anchor.
func (r *Renderer) Href(anchor string) string {
	return r.nav.Href(anchor)
}

// resolveStruct looks up the body of the struct module at path.
func (r *Renderer) resolveStruct(path, via, site string) ([]odoc.Node, error) {
	mod, ok := r.index.Lookup(path)
	if !ok {
		return nil, &ResolutionError{Via: via, Target: path, Site: site}
	}
	if mod.Kind.Tag != odoc.KindStruct {
		return nil, &ResolutionError{Via: via, Target: path, Site: site, Kind: mod.Kind.Tag}
	}
	return mod.Kind.Struct, nil
}

// expanding holds the include and alias targets whose bodies are being
// walked, so a model that refers back to an ancestor fails instead of
// recursing forever.
type expanding map[string]bool

func (e expanding) enter(target, via, site string) error {
	if e[target] {
		return &ResolutionError{Via: via, Target: target, Site: site, Cycle: true}
	}
	e[target] = true
	return nil
}

func (e expanding) leave(target string) {
	delete(e, target)
}

// dedupe splices included modules into their parent's element list and
// merges same-named modules: the last definition wins, at the position of
// the first.
func (r *Renderer) dedupe(nodes []odoc.Node) ([]odoc.Node, error) {
	flat := make([]odoc.Node, 0, len(nodes))
	for _, n := range nodes {
		if n.Tag != odoc.TagIncludedModule {
			flat = append(flat, n)
			continue
		}
		body, err := r.resolveStruct(n.Include.Name, "include", "")
		if err != nil {
			return nil, err
		}
		flat = append(flat, body...)
	}

	seen := make(map[string]int)
	out := make([]odoc.Node, 0, len(flat))
	for _, n := range flat {
		if n.Tag == odoc.TagModule {
			name := r.strip.Strip(n.Module.Name)
			if i, ok := seen[name]; ok {
				out[i] = n
				continue
			}
			seen[name] = len(out)
		}
		out = append(out, n)
	}
	return out, nil
}

// docText renders an optional doc comment to markdown.
func (r *Renderer) docText(info *odoc.Info, path []string) (string, error) {
	if info == nil {
		return "", nil
	}
	return r.text(info.Description, path)
}

func (r *Renderer) text(elements []odoc.TextElement, path []string) (string, error) {
	md, err := markdown.FromElements(elements, markdown.Options{
		Strip:  r.strip.Strip,
		Href:   r.nav.Href,
		Strict: r.mode == Production,
	})
	if err != nil {
		var uerr *markdown.UnhandledElementError
		if errors.As(err, &uerr) {
			return "", &UnhandledCaseError{Case: "text element " + uerr.Tag, Path: path}
		}
		return "", fmt.Errorf("rendering doc text in %v: %w", path, err)
	}
	return md, nil
}
