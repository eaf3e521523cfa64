package render

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tableclothml/odocsite/internal/odoc"
)

type BlockKind string

const (
	BlockText       BlockKind = "text"
	BlockType       BlockKind = "type"
	BlockValue      BlockKind = "value"
	BlockModuleType BlockKind = "module_type"
	BlockModule     BlockKind = "module"
	BlockFunctor    BlockKind = "functor"
	BlockSpacer     BlockKind = "spacer"
	BlockUnhandled  BlockKind = "unhandled"
)

// Block is one renderable row of the flattened document. Doc holds markdown.
type Block struct {
	Kind      BlockKind `json:"kind"`
	Anchor    string    `json:"anchor,omitempty"`
	Name      string    `json:"name,omitempty"`
	Heading   string    `json:"heading,omitempty"`
	Signature string    `json:"signature,omitempty"`
	Doc       string    `json:"doc,omitempty"`
	Path      []string  `json:"path,omitempty"`
}

// Document is the flattened form of a module tree.
type Document struct {
	Blocks  []Block        `json:"blocks"`
	Anchors map[string]int `json:"anchors"`
}

// Lookup returns the block registered under anchor and its position.
func (d *Document) Lookup(anchor string) (Block, int, bool) {
	i, ok := d.Anchors[anchor]
	if !ok {
		return Block{}, 0, false
	}
	return d.Blocks[i], i, true
}

// AnchorList returns every anchor in block order.
func (d *Document) AnchorList() []string {
	out := make([]string, 0, len(d.Anchors))
	for i, b := range d.Blocks {
		if b.Anchor != "" && d.Anchors[b.Anchor] == i {
			out = append(out, b.Anchor)
		}
	}
	return out
}

// Flatten walks nodes, declared inside the modules in path, into an ordered
// block list and an anchor → block index map. Nested modules are flattened
// in place. Resolution failures abort the walk.
func (r *Renderer) Flatten(nodes []odoc.Node, path []string) (*Document, error) {
	f := &flattener{r: r, doc: &Document{Anchors: make(map[string]int)}, active: make(expanding)}
	if err := f.walk(nodes, path); err != nil {
		return nil, err
	}
	return f.doc, nil
}

type flattener struct {
	r      *Renderer
	doc    *Document
	active expanding
}

func (f *flattener) register(anchor string) {
	if prev, ok := f.doc.Anchors[anchor]; ok {
		slog.Warn("duplicate anchor, keeping first", "anchor", anchor, "first", prev, "duplicate", len(f.doc.Blocks))
		return
	}
	f.doc.Anchors[anchor] = len(f.doc.Blocks)
}

func (f *flattener) push(b Block) {
	f.doc.Blocks = append(f.doc.Blocks, b)
}

func (f *flattener) walk(nodes []odoc.Node, path []string) error {
	elements, err := f.r.dedupe(nodes)
	if err != nil {
		return err
	}
	for _, n := range elements {
		if err := f.node(n, path); err != nil {
			return err
		}
	}
	return nil
}

func (f *flattener) node(n odoc.Node, path []string) error {
	r := f.r
	switch n.Tag {
	case odoc.TagText:
		doc, err := r.text(n.Text, path)
		if err != nil {
			return err
		}
		f.push(Block{Kind: BlockText, Doc: doc, Path: path})

	case odoc.TagType:
		t := n.Type
		anchor := Anchor(path, odoc.TagType, t.Name)
		doc, err := r.docText(t.Info, path)
		if err != nil {
			return err
		}
		f.register(anchor)
		f.push(Block{
			Kind:      BlockType,
			Anchor:    anchor,
			Name:      t.Name,
			Signature: r.typeSignature(t),
			Doc:       doc,
			Path:      path,
		})

	case odoc.TagValue:
		v := n.Value
		anchor := Anchor(path, odoc.TagValue, v.Name)
		doc, err := r.docText(v.Info, path)
		if err != nil {
			return err
		}
		f.register(anchor)
		f.push(Block{
			Kind:      BlockValue,
			Anchor:    anchor,
			Name:      v.Name,
			Heading:   anchor,
			Signature: fmt.Sprintf("let %s: %s", v.Name, r.strip.Strip(v.Type.Rendered)),
			Doc:       doc,
			Path:      path,
		})

	case odoc.TagModuleType:
		mt := n.ModuleType
		anchor := Anchor(path, odoc.TagModuleType, mt.Name)
		doc, err := r.docText(mt.Info, path)
		if err != nil {
			return err
		}
		f.register(anchor)
		f.push(Block{
			Kind:    BlockModuleType,
			Anchor:  anchor,
			Name:    mt.Name,
			Heading: "module type " + anchor,
			Doc:     doc,
			Path:    path,
		})
		return f.walk(mt.Elements, extend(path, mt.Name))

	case odoc.TagModule:
		return f.module(n.Module, path)

	case odoc.TagIncludedModule:
		target, site := n.Include.Name, strings.Join(path, ".")
		body, err := r.resolveStruct(target, "include", site)
		if err != nil {
			return err
		}
		if err := f.active.enter(target, "include", site); err != nil {
			return err
		}
		defer f.active.leave(target)
		return f.walk(body, path)

	default:
		return f.unhandled("node "+n.Tag, path, n.Raw)
	}
	return nil
}

func (f *flattener) module(m *odoc.Module, path []string) error {
	r := f.r
	switch m.Kind.Tag {
	case odoc.KindStruct:
		shown := r.strip.Strip(m.Name)
		anchor := Anchor(path, odoc.TagModule, shown)
		doc, err := r.docText(m.Info, path)
		if err != nil {
			return err
		}
		f.register(anchor)
		f.push(Block{Kind: BlockModule, Anchor: anchor, Name: shown, Heading: "module " + anchor, Doc: doc, Path: path})
		return f.walk(m.Kind.Struct, extend(path, m.Name))

	case odoc.KindAlias:
		target := m.Kind.Alias.Name
		body, err := r.resolveStruct(target, "alias", m.Name)
		if err != nil {
			return err
		}
		if err := f.active.enter(target, "alias", m.Name); err != nil {
			return err
		}
		defer f.active.leave(target)
		anchor := Anchor(path, odoc.TagModule, r.strip.Strip(m.Name))
		f.register(anchor)
		f.push(Block{
			Kind:    BlockModule,
			Anchor:  anchor,
			Name:    r.strip.Strip(m.Name),
			Heading: "module " + r.strip.Strip(target),
			Path:    path,
		})
		if err := f.walk(body, extend(path, m.Name)); err != nil {
			return err
		}
		f.push(Block{Kind: BlockSpacer, Path: path})

	case odoc.KindFunctor:
		sig, err := r.functorSignature(m.Name, m.Kind.Functor, path)
		if err != nil {
			return err
		}
		doc, err := r.docText(m.Info, path)
		if err != nil {
			return err
		}
		anchor := Anchor(path, odoc.KindFunctor, m.Name)
		f.register(anchor)
		f.push(Block{Kind: BlockFunctor, Anchor: anchor, Name: m.Name, Signature: sig, Doc: doc, Path: path})

	default:
		return f.unhandled("module kind "+m.Kind.Tag, path, m.Kind.Raw)
	}
	return nil
}

// unhandled emits a visible placeholder in development mode and fails in
// production mode.
func (f *flattener) unhandled(what string, path []string, raw json.RawMessage) error {
	if f.r.mode == Production {
		return &UnhandledCaseError{Case: what, Path: path, Value: raw}
	}
	slog.Debug("rendering unhandled case", "case", what, "path", path)
	f.push(Block{
		Kind:    BlockUnhandled,
		Heading: "Unhandled case: " + what,
		Doc:     "```json\n" + prettyJSON(raw) + "\n```",
		Path:    path,
	})
	return nil
}

func (r *Renderer) typeSignature(t *odoc.Type) string {
	var b strings.Builder
	b.WriteString("type ")
	b.WriteString(t.Name)
	if len(t.Parameters) > 0 {
		b.WriteString("(" + strings.Join(t.Parameters, ", ") + ")")
	}
	if t.Manifest != nil {
		b.WriteString(" = ")
		b.WriteString(r.strip.Strip(t.Manifest.Rendered))
	}
	return b.String()
}

func (r *Renderer) functorSignature(name string, fn *odoc.Functor, path []string) (string, error) {
	if fn == nil {
		return "", &UnhandledCaseError{Case: "functor without a body", Path: path}
	}
	var result string
	switch fn.Result.Tag {
	case odoc.KindStruct:
		manifest, ok := firstManifest(fn.Result.Struct)
		if !ok {
			return "", &UnhandledCaseError{Case: "functor result struct without a type manifest", Path: path}
		}
		result = "sig type t = " + r.strip.Strip(manifest) + " end"
	case odoc.KindWith:
		result = r.strip.Strip(fn.Result.With)
	default:
		return "", &UnhandledCaseError{Case: "functor result " + fn.Result.Tag, Path: path, Value: fn.Result.Raw}
	}
	return fmt.Sprintf("module %s : functor(%s : %s) -> %s",
		name, fn.Parameter.Name, r.strip.Strip(fn.Parameter.Signature), result), nil
}

func firstManifest(body []odoc.Node) (string, bool) {
	if len(body) == 0 || body[0].Tag != odoc.TagType || body[0].Type.Manifest == nil {
		return "", false
	}
	return body[0].Type.Manifest.Rendered, true
}

func prettyJSON(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "null"
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return string(raw)
	}
	return string(out)
}
