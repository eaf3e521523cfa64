// Package library loads and renders the configured documentation variants,
// caching one rendered Page per variant until its model file changes.
package library

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/tableclothml/odocsite/internal/cas"
	"github.com/tableclothml/odocsite/internal/config"
	"github.com/tableclothml/odocsite/internal/odoc"
	"github.com/tableclothml/odocsite/internal/render"
)

// Source says where one variant's model lives.
type Source struct {
	Name     string
	Path     string
	Key      string
	Language string
}

// Sources lists the configured variants in name order.
func Sources(cfg *config.Config) []Source {
	out := make([]Source, 0, len(cfg.Variants))
	for _, name := range cfg.VariantNames() {
		v := cfg.Variants[name]
		out = append(out, Source{Name: name, Path: v.Model, Key: v.Key, Language: v.Language})
	}
	return out
}

// RenderOptions maps the site config onto renderer options.
func RenderOptions(cfg *config.Config) render.Options {
	mode := render.Development
	if cfg.Site.Production {
		mode = render.Production
	}
	return render.Options{
		StripPrefix:   cfg.Site.StripPrefix,
		Mode:          mode,
		HideSnakeCase: cfg.Site.HideSnakeCase,
	}
}

// Page is one rendered variant. It is immutable once loaded.
type Page struct {
	Source    Source
	ModelHash string
	ModTime   time.Time
	Renderer  *render.Renderer
	Root      render.Root
	Document  *render.Document
}

// Sidebar builds the page's sidebar for a search and collapse state.
func (p *Page) Sidebar(search render.SearchPath, collapsed render.CollapsedSet) ([]*render.SidebarNode, error) {
	return p.Renderer.BuildSidebar(p.Root.Elements, p.Root.Path, search, collapsed)
}

// LoadPage reads, indexes and flattens src's model.
func LoadPage(src Source, opts render.Options) (*Page, error) {
	info, err := os.Stat(src.Path)
	if err != nil {
		return nil, fmt.Errorf("variant %s: %w", src.Name, err)
	}
	model, data, err := odoc.Load(src.Path, src.Key)
	if err != nil {
		return nil, fmt.Errorf("variant %s: %w", src.Name, err)
	}
	r, root, doc, err := render.RenderModel(model, opts)
	if err != nil {
		return nil, fmt.Errorf("rendering variant %s: %w", src.Name, err)
	}
	slog.Debug("rendered variant", "variant", src.Name, "modules", len(r.ModulePaths()), "blocks", len(doc.Blocks), "anchors", len(doc.Anchors))
	return &Page{
		Source:    src,
		ModelHash: cas.Hash(data),
		ModTime:   info.ModTime(),
		Renderer:  r,
		Root:      root,
		Document:  doc,
	}, nil
}

type Options struct {
	Render    render.Options
	CacheSize int
	// Navigator gives each variant its link base. Nil keeps in-page
	// fragment links.
	Navigator func(variant string) render.Navigator
}

// Library serves rendered pages for a fixed set of sources. Concurrent
// requests for the same page share one load.
type Library struct {
	sources map[string]Source
	opts    Options
	cache   *lru.Cache[string, *Page]
	group   singleflight.Group
}

func New(sources []Source, opts Options) (*Library, error) {
	size := opts.CacheSize
	if size <= 0 {
		size = 8
	}
	cache, err := lru.New[string, *Page](size)
	if err != nil {
		return nil, fmt.Errorf("creating page cache: %w", err)
	}
	bySource := make(map[string]Source, len(sources))
	for _, s := range sources {
		bySource[s.Name] = s
	}
	return &Library{sources: bySource, opts: opts, cache: cache}, nil
}

// Variants returns the sources in name order.
func (l *Library) Variants() []Source {
	out := make([]Source, 0, len(l.sources))
	for _, s := range l.sources {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ErrUnknownVariant is returned by Page for names with no source.
type ErrUnknownVariant struct {
	Name string
}

func (e *ErrUnknownVariant) Error() string {
	return fmt.Sprintf("unknown variant %q", e.Name)
}

// Page returns the rendered page for variant, rendering it again when the
// model file has changed since it was cached.
func (l *Library) Page(ctx context.Context, variant string) (*Page, error) {
	src, ok := l.sources[variant]
	if !ok {
		return nil, &ErrUnknownVariant{Name: variant}
	}
	info, err := os.Stat(src.Path)
	if err != nil {
		return nil, fmt.Errorf("variant %s: %w", variant, err)
	}
	key := fmt.Sprintf("%s@%d:%d", variant, info.ModTime().UnixNano(), info.Size())

	if p, ok := l.cache.Get(key); ok {
		return p, nil
	}

	ch := l.group.DoChan(key, func() (interface{}, error) {
		opts := l.opts.Render
		if l.opts.Navigator != nil {
			opts.Navigator = l.opts.Navigator(variant)
		}
		p, err := LoadPage(src, opts)
		if err != nil {
			return nil, err
		}
		l.cache.Add(key, p)
		return p, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Page), nil
	}
}

// Purge drops every cached page.
func (l *Library) Purge() {
	l.cache.Purge()
}

// Cached reports how many pages are held.
func (l *Library) Cached() int {
	return l.cache.Len()
}
