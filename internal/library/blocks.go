package library

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/tableclothml/odocsite/internal/db"
	"github.com/tableclothml/odocsite/internal/render"
)

// Rows converts the page's anchored blocks into symbol index rows.
func (p *Page) Rows() []db.Anchor {
	doc := p.Document
	rows := make([]db.Anchor, 0, len(doc.Anchors))
	for i, b := range doc.Blocks {
		if b.Anchor == "" || doc.Anchors[b.Anchor] != i {
			continue
		}
		rows = append(rows, db.Anchor{
			Variant:   p.Source.Name,
			Anchor:    b.Anchor,
			Position:  i,
			Kind:      string(b.Kind),
			Name:      b.Name,
			Module:    strings.Join(b.Path, "."),
			Signature: b.Signature,
			Summary:   Summary(b.Doc),
		})
	}
	return rows
}

// Summary returns the first paragraph of a markdown doc comment.
func Summary(doc string) string {
	first, _, _ := strings.Cut(strings.TrimSpace(doc), "\n\n")
	return strings.Join(strings.Fields(first), " ")
}

// BlockMarkdown renders one block as a standalone markdown section.
func BlockMarkdown(b render.Block) string {
	var sb strings.Builder
	switch {
	case b.Heading != "":
		sb.WriteString("## " + b.Heading + "\n\n")
	case b.Anchor != "":
		sb.WriteString("## " + b.Anchor + "\n\n")
	}
	if b.Signature != "" {
		sb.WriteString("```ocaml\n" + b.Signature + "\n```\n\n")
	}
	if b.Doc != "" {
		sb.WriteString(b.Doc + "\n")
	}
	return strings.TrimRight(sb.String(), "\n") + "\n"
}

// Section renders the block at anchor and, for modules, every block up to
// the next declaration at the same or an outer level.
func (p *Page) Section(anchor string) (string, bool) {
	doc := p.Document
	b, start, ok := doc.Lookup(anchor)
	if !ok {
		return "", false
	}
	if b.Kind != render.BlockModule && b.Kind != render.BlockModuleType {
		return BlockMarkdown(b), true
	}

	depth := len(b.Path)
	var sb strings.Builder
	sb.WriteString(BlockMarkdown(b))
	for _, next := range doc.Blocks[start+1:] {
		if len(next.Path) <= depth {
			break
		}
		if next.Kind == render.BlockSpacer {
			continue
		}
		sb.WriteString("\n" + BlockMarkdown(next))
	}
	return sb.String(), true
}

// Matches returns the sidebar entries whose own name matches the last
// segment of query, in sidebar order.
func (p *Page) Matches(query string, limit int) ([]*render.SidebarNode, error) {
	search := render.ParseSearch(query)
	if !search.Active() {
		return nil, nil
	}
	nodes, err := p.Sidebar(search, nil)
	if err != nil {
		return nil, err
	}
	var out []*render.SidebarNode
	var walk func([]*render.SidebarNode)
	walk = func(ns []*render.SidebarNode) {
		for _, n := range ns {
			if limit > 0 && len(out) >= limit {
				return
			}
			if n.Kind != render.BlockUnhandled && render.Matches(n.Name, search.Leaf()) {
				out = append(out, n)
			}
			walk(n.Children)
		}
	}
	walk(nodes)
	return out, nil
}

// Search finds symbols matching query. The DuckDB index answers when it holds
// rows for this exact model; otherwise the sidebar filter is used.
func (p *Page) Search(database *db.DB, query string, limit int) ([]db.Anchor, error) {
	if database != nil {
		hash, ok, err := database.VariantHash(p.Source.Name)
		if err != nil {
			return nil, fmt.Errorf("checking index for %s: %w", p.Source.Name, err)
		}
		if ok && hash == p.ModelHash {
			return database.SearchAnchors(p.Source.Name, query, limit)
		}
		slog.Debug("index stale, searching sidebar", "variant", p.Source.Name)
	}

	matches, err := p.Matches(query, limit)
	if err != nil {
		return nil, err
	}
	out := make([]db.Anchor, 0, len(matches))
	for _, n := range matches {
		b, i, ok := p.Document.Lookup(n.Anchor)
		if !ok {
			continue
		}
		out = append(out, db.Anchor{
			Variant:   p.Source.Name,
			Anchor:    b.Anchor,
			Position:  i,
			Kind:      string(b.Kind),
			Name:      b.Name,
			Module:    strings.Join(b.Path, "."),
			Signature: b.Signature,
			Summary:   Summary(b.Doc),
		})
	}
	return out, nil
}

// Modules lists the module, module type and functor blocks in order.
func (p *Page) Modules() []render.Block {
	var out []render.Block
	for _, b := range p.Document.Blocks {
		switch b.Kind {
		case render.BlockModule, render.BlockModuleType, render.BlockFunctor:
			out = append(out, b)
		}
	}
	return out
}
