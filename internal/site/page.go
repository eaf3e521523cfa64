// Package site renders documentation pages to HTML and builds the static
// site for every configured variant.
package site

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/tableclothml/odocsite/internal/library"
	"github.com/tableclothml/odocsite/internal/markdown"
	"github.com/tableclothml/odocsite/internal/render"
)

//go:embed templates
var templates embed.FS

//go:embed templates/main.css
var css string

var tmpl = template.Must(template.New("").ParseFS(templates, "templates/*.tmpl"))

type htmlBlock struct {
	render.Block
	HTML template.HTML
}

type pageArgs struct {
	Title    string
	Variant  string
	Root     string
	CSS      template.CSS
	Variants []library.Source
	Sidebar  []*render.SidebarNode
	Blocks   []htmlBlock
	Anchors  map[string]int
}

type indexArgs struct {
	Title    string
	Root     string
	CSS      template.CSS
	Variants []library.Source
}

// PageOptions controls how a page links to the rest of the site. Root is
// the relative or absolute path of the site root, ending in "/".
type PageOptions struct {
	Title     string
	Root      string
	Variants  []library.Source
	Search    render.SearchPath
	Collapsed render.CollapsedSet
}

// WritePage renders p as a complete HTML document.
func WritePage(w io.Writer, p *library.Page, opts PageOptions) error {
	sidebar, err := p.Sidebar(opts.Search, opts.Collapsed)
	if err != nil {
		return fmt.Errorf("building sidebar: %w", err)
	}
	blocks := make([]htmlBlock, len(p.Document.Blocks))
	for i, b := range p.Document.Blocks {
		blocks[i] = htmlBlock{Block: b, HTML: template.HTML(markdown.ToHTML(b.Doc))}
	}
	return tmpl.ExecuteTemplate(w, "page.tmpl", pageArgs{
		Title:    opts.Title,
		Variant:  p.Source.Name,
		Root:     opts.Root,
		CSS:      template.CSS(css),
		Variants: opts.Variants,
		Sidebar:  sidebar,
		Blocks:   blocks,
		Anchors:  p.Document.Anchors,
	})
}

// WriteIndex renders the landing page that links every variant.
func WriteIndex(w io.Writer, title, root string, variants []library.Source) error {
	return tmpl.ExecuteTemplate(w, "index.tmpl", indexArgs{
		Title:    title,
		Root:     root,
		CSS:      template.CSS(css),
		Variants: variants,
	})
}
