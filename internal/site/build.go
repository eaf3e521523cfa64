package site

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tableclothml/odocsite/internal/cas"
	"github.com/tableclothml/odocsite/internal/library"
	"github.com/tableclothml/odocsite/internal/odoc"
	"github.com/tableclothml/odocsite/internal/render"
)

type BuildOptions struct {
	Title     string
	OutputDir string
	Sources   []library.Source
	Render    render.Options
	Store     *cas.Store
	// Force re-renders variants whose inputs are unchanged.
	Force bool
	// Jobs bounds concurrent variant builds; 0 means one per variant.
	Jobs int
}

type VariantResult struct {
	Variant string `json:"variant"`
	Skipped bool   `json:"skipped"`
	Anchors int    `json:"anchors"`
	Hash    string `json:"hash"`
}

type Report struct {
	Variants []VariantResult `json:"variants"`
}

// Build writes docs/<variant>/index.html and docs/<variant>/anchors.json for
// every source, plus the landing page. A variant whose model and render
// settings hash to the last built key is restored from the store instead of
// rendered again.
func Build(ctx context.Context, opts BuildOptions) (*Report, error) {
	if opts.Store == nil {
		opts.Store = cas.Default()
	}
	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	results := make([]VariantResult, len(opts.Sources))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	if opts.Jobs > 0 {
		g.SetLimit(opts.Jobs)
	}
	for i, src := range opts.Sources {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := buildVariant(src, opts)
			if err != nil {
				return fmt.Errorf("variant %s: %w", src.Name, err)
			}
			mu.Lock()
			results[i] = res
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := WriteIndex(&buf, opts.Title, "", opts.Sources); err != nil {
		return nil, fmt.Errorf("rendering index: %w", err)
	}
	if err := os.WriteFile(filepath.Join(opts.OutputDir, "index.html"), buf.Bytes(), 0644); err != nil {
		return nil, fmt.Errorf("writing index: %w", err)
	}

	return &Report{Variants: results}, nil
}

// buildKey fingerprints everything that affects a variant's output.
func buildKey(modelHash string, src library.Source, opts BuildOptions) string {
	key, _ := json.Marshal(struct {
		Model    string
		Source   library.Source
		Title    string
		Strip    string
		Mode     render.Mode
		Snake    bool
		Variants []library.Source
	}{modelHash, src, opts.Title, opts.Render.StripPrefix, opts.Render.Mode, opts.Render.HideSnakeCase, opts.Sources})
	return cas.Hash(key)
}

func buildVariant(src library.Source, opts BuildOptions) (VariantResult, error) {
	store := opts.Store
	dir := filepath.Join(opts.OutputDir, "docs", src.Name)
	pageRef := "site/" + src.Name + "/page"
	anchorsRef := "site/" + src.Name + "/anchors"
	keyRef := "site/" + src.Name + "/key"

	data, err := odoc.ReadFile(src.Path)
	if err != nil {
		return VariantResult{}, err
	}
	key := buildKey(cas.Hash(data), src, opts)

	if !opts.Force {
		if res, ok, err := restore(store, dir, key, keyRef, pageRef, anchorsRef); err != nil {
			return VariantResult{}, err
		} else if ok {
			slog.Info("variant unchanged, restored from cache", "variant", src.Name)
			res.Variant = src.Name
			return res, nil
		}
	}

	ropts := opts.Render
	ropts.Navigator = render.FragmentNavigator{}
	page, err := library.LoadPage(src, ropts)
	if err != nil {
		return VariantResult{}, err
	}

	var html bytes.Buffer
	if err := WritePage(&html, page, PageOptions{Title: opts.Title, Root: "../../", Variants: opts.Sources}); err != nil {
		return VariantResult{}, fmt.Errorf("rendering page: %w", err)
	}
	anchors, err := json.MarshalIndent(page.Document.Anchors, "", "  ")
	if err != nil {
		return VariantResult{}, fmt.Errorf("encoding anchors: %w", err)
	}

	if err := writeOutputs(dir, html.Bytes(), anchors); err != nil {
		return VariantResult{}, err
	}

	pageHash, err := store.Put(html.Bytes())
	if err != nil {
		return VariantResult{}, err
	}
	anchorsHash, err := store.Put(anchors)
	if err != nil {
		return VariantResult{}, err
	}
	if err := commitRefs(store, ref{pageRef, pageHash}, ref{anchorsRef, anchorsHash}, ref{keyRef, key}); err != nil {
		return VariantResult{}, err
	}

	slog.Info("built variant", "variant", src.Name, "blocks", len(page.Document.Blocks), "anchors", len(page.Document.Anchors))
	return VariantResult{Variant: src.Name, Anchors: len(page.Document.Anchors), Hash: pageHash}, nil
}

type refWriter interface {
	SetRef(name, hash string) error
}

type ref struct{ name, hash string }

// commitRefs points each ref at its hash in order and stops at the first
// failure. The cache key must come last: restore trusts the other refs
// only once the key matches.
func commitRefs(w refWriter, refs ...ref) error {
	for _, r := range refs {
		if err := w.SetRef(r.name, r.hash); err != nil {
			return err
		}
	}
	return nil
}

func restore(store *cas.Store, dir, key, keyRef, pageRef, anchorsRef string) (VariantResult, bool, error) {
	last, ok, err := store.Ref(keyRef)
	if err != nil || !ok || last != key {
		return VariantResult{}, false, err
	}
	pageHash, ok, err := store.Ref(pageRef)
	if err != nil || !ok || !store.Has(pageHash) {
		return VariantResult{}, false, err
	}
	anchorsHash, ok, err := store.Ref(anchorsRef)
	if err != nil || !ok || !store.Has(anchorsHash) {
		return VariantResult{}, false, err
	}

	html, err := store.Get(pageHash)
	if err != nil {
		return VariantResult{}, false, err
	}
	anchors, err := store.Get(anchorsHash)
	if err != nil {
		return VariantResult{}, false, err
	}
	var index map[string]int
	if err := json.Unmarshal(anchors, &index); err != nil {
		return VariantResult{}, false, fmt.Errorf("decoding cached anchors: %w", err)
	}
	if err := writeOutputs(dir, html, anchors); err != nil {
		return VariantResult{}, false, err
	}
	return VariantResult{Skipped: true, Anchors: len(index), Hash: pageHash}, true, nil
}

func writeOutputs(dir string, html, anchors []byte) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	if err := os.WriteFile(filepath.Join(dir, "index.html"), html, 0644); err != nil {
		return fmt.Errorf("writing page: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "anchors.json"), anchors, 0644); err != nil {
		return fmt.Errorf("writing anchors: %w", err)
	}
	return nil
}
