package library

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/tableclothml/odocsite/internal/config"
	"github.com/tableclothml/odocsite/internal/db"
	"github.com/tableclothml/odocsite/internal/render"
)

const model = `{
  "modules": {
    "Tablecloth": {"tag": "Module", "value": {"name": "Tablecloth", "kind": {"tag": "ModuleStruct", "value": [
      {"tag": "Module", "value": {"name": "String", "kind": {"tag": "ModuleStruct", "value": [
        {"tag": "Value", "value": {"name": "toList", "type": {"rendered": "string -> char list"},
          "info": {"description": {"tag": "Text", "value": [
            {"tag": "Raw", "value": "Returns the characters."},
            {"tag": "Newline"},
            {"tag": "Raw", "value": "In order."}
          ]}}}},
        {"tag": "Value", "value": {"name": "length", "type": {"rendered": "string -> int"}}}
      ]}}}
    ]}}}
  },
  "entry_point": {"tag": "Module", "value": {"name": "Tablecloth", "kind": {"tag": "ModuleStruct", "value": [
    {"tag": "Module", "value": {"name": "String", "kind": {"tag": "ModuleStruct", "value": [
      {"tag": "Value", "value": {"name": "toList", "type": {"rendered": "string -> char list"},
        "info": {"description": {"tag": "Text", "value": [
          {"tag": "Raw", "value": "Returns the characters."},
          {"tag": "Newline"},
          {"tag": "Raw", "value": "In order."}
        ]}}}},
      {"tag": "Value", "value": {"name": "length", "type": {"rendered": "string -> int"}}}
    ]}}}
  ]}}}
}`

func writeModel(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadPage(t *testing.T) {
	t.Parallel()

	path := writeModel(t, t.TempDir(), "native.json", model)
	p, err := LoadPage(Source{Name: "native", Path: path}, render.Options{})
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"Tablecloth.String", "Tablecloth.String.toList", "Tablecloth.String.length"}
	if diff := cmp.Diff(want, p.Document.AnchorList()); diff != "" {
		t.Errorf("anchors (-want +got):\n%s", diff)
	}
	if p.ModelHash == "" {
		t.Error("expected model hash")
	}

	rows := p.Rows()
	if len(rows) != 3 {
		t.Fatalf("got %d rows", len(rows))
	}
	if rows[1].Module != "Tablecloth.String" || rows[1].Summary != "Returns the characters." || rows[1].Variant != "native" {
		t.Errorf("row = %+v", rows[1])
	}

	section, ok := p.Section("Tablecloth.String")
	if !ok {
		t.Fatal("module section missing")
	}
	for _, s := range []string{"## module Tablecloth.String", "let toList: string -> char list", "In order.", "let length: string -> int"} {
		if !strings.Contains(section, s) {
			t.Errorf("section missing %q:\n%s", s, section)
		}
	}
	if _, ok := p.Section("Tablecloth.Nope"); ok {
		t.Error("unexpected section for unknown anchor")
	}
}

func TestLoadPage_Errors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	if _, err := LoadPage(Source{Name: "x", Path: filepath.Join(dir, "missing.json")}, render.Options{}); err == nil {
		t.Error("expected error for missing file")
	}

	broken := writeModel(t, dir, "broken.json", strings.Replace(model,
		`{"tag": "Value", "value": {"name": "length"`,
		`{"tag": "IncludedModule", "value": {"name": "Tablecloth.Gone"}}, {"tag": "Value", "value": {"name": "length"`, -1))
	_, err := LoadPage(Source{Name: "x", Path: broken}, render.Options{})
	var rerr *render.ResolutionError
	if !errors.As(err, &rerr) {
		t.Errorf("expected ResolutionError, got %v", err)
	}
}

func TestLibrary_CachesUntilModelChanges(t *testing.T) {
	t.Parallel()

	path := writeModel(t, t.TempDir(), "native.json", model)
	lib, err := New([]Source{{Name: "native", Path: path}}, Options{
		Navigator: func(v string) render.Navigator { return render.PageNavigator{Base: "/docs/" + v} },
	})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	first, err := lib.Page(ctx, "native")
	if err != nil {
		t.Fatal(err)
	}
	second, err := lib.Page(ctx, "native")
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("expected cached page on second request")
	}
	if got := first.Renderer.Href("x"); got != "/docs/native#x" {
		t.Errorf("navigator not applied: %q", got)
	}

	changed := strings.Replace(model, `"length"`, `"size"`, -1)
	if err := os.WriteFile(path, []byte(changed), 0o644); err != nil {
		t.Fatal(err)
	}
	later := time.Now().Add(time.Minute)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatal(err)
	}

	third, err := lib.Page(ctx, "native")
	if err != nil {
		t.Fatal(err)
	}
	if third == first {
		t.Fatal("expected a fresh page after the model changed")
	}
	if _, _, ok := third.Document.Lookup("Tablecloth.String.size"); !ok {
		t.Error("fresh page does not reflect the new model")
	}

	lib.Purge()
	if lib.Cached() != 0 {
		t.Errorf("cache not purged: %d", lib.Cached())
	}
}

func TestLibrary_ConcurrentLoads(t *testing.T) {
	t.Parallel()

	path := writeModel(t, t.TempDir(), "native.json", model)
	lib, err := New([]Source{{Name: "native", Path: path}}, Options{})
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	pages := make([]*Page, 8)
	for i := range pages {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := lib.Page(context.Background(), "native")
			if err != nil {
				t.Error(err)
				return
			}
			pages[i] = p
		}()
	}
	wg.Wait()
	if lib.Cached() != 1 {
		t.Errorf("expected one cached page, got %d", lib.Cached())
	}
}

func TestLibrary_UnknownVariant(t *testing.T) {
	t.Parallel()

	lib, err := New(nil, Options{})
	if err != nil {
		t.Fatal(err)
	}
	_, err = lib.Page(context.Background(), "bucklescript")
	var uerr *ErrUnknownVariant
	if !errors.As(err, &uerr) {
		t.Errorf("expected ErrUnknownVariant, got %v", err)
	}
}

func TestSourcesAndOptions(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		Site: config.SiteConfig{StripPrefix: "Tablecloth", Production: true, HideSnakeCase: true},
		Variants: map[string]config.VariantConfig{
			"rescript": {Model: "all.json", Key: "rescript", Language: "rescript"},
			"native":   {Model: "native.json"},
		},
	}
	want := []Source{
		{Name: "native", Path: "native.json"},
		{Name: "rescript", Path: "all.json", Key: "rescript", Language: "rescript"},
	}
	if diff := cmp.Diff(want, Sources(cfg)); diff != "" {
		t.Errorf("sources (-want +got):\n%s", diff)
	}

	opts := RenderOptions(cfg)
	if opts.Mode != render.Production || opts.StripPrefix != "Tablecloth" || !opts.HideSnakeCase {
		t.Errorf("options = %+v", opts)
	}
}

func TestSummary(t *testing.T) {
	t.Parallel()

	if got := Summary("First line\nwraps.\n\nSecond."); got != "First line wraps." {
		t.Errorf("got %q", got)
	}
	if got := Summary(""); got != "" {
		t.Errorf("got %q", got)
	}
}

func TestPage_Matches(t *testing.T) {
	t.Parallel()

	path := writeModel(t, t.TempDir(), "native.json", model)
	p, err := LoadPage(Source{Name: "native", Path: path}, render.Options{})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		query string
		limit int
		want  []string
	}{
		{"String.to", 0, []string{"Tablecloth.String.toList"}},
		{"str", 0, []string{"Tablecloth.String"}},
		{"t", 0, []string{"Tablecloth.String", "Tablecloth.String.toList", "Tablecloth.String.length"}},
		{"t", 2, []string{"Tablecloth.String", "Tablecloth.String.toList"}},
		{"", 0, nil},
	}
	for _, tt := range tests {
		got, err := p.Matches(tt.query, tt.limit)
		if err != nil {
			t.Fatal(err)
		}
		var anchors []string
		for _, n := range got {
			anchors = append(anchors, n.Anchor)
		}
		if diff := cmp.Diff(tt.want, anchors); diff != "" {
			t.Errorf("Matches(%q, %d) (-want +got):\n%s", tt.query, tt.limit, diff)
		}
	}
}

func TestPage_Search(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeModel(t, dir, "native.json", model)
	p, err := LoadPage(Source{Name: "native", Path: path}, render.Options{})
	if err != nil {
		t.Fatal(err)
	}

	anchors := func(rows []db.Anchor) []string {
		var out []string
		for _, r := range rows {
			out = append(out, r.Anchor)
		}
		return out
	}

	rows, err := p.Search(nil, "len", 10)
	if err != nil {
		t.Fatal(err)
	}
	want := []db.Anchor{{
		Variant:   "native",
		Anchor:    "Tablecloth.String.length",
		Position:  2,
		Kind:      "value",
		Name:      "length",
		Module:    "Tablecloth.String",
		Signature: "let length: string -> int",
	}}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("sidebar search (-want +got):\n%s", diff)
	}

	database, err := db.New(filepath.Join(dir, "index.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { database.Close() })

	indexed := []db.Anchor{{Anchor: "Tablecloth.String.lengthFromIndex", Kind: "value", Name: "lengthFromIndex", Module: "Tablecloth.String"}}

	if err := database.ReplaceAnchors("native", "stale", indexed); err != nil {
		t.Fatal(err)
	}
	rows, err = p.Search(database, "len", 10)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"Tablecloth.String.length"}, anchors(rows)); diff != "" {
		t.Errorf("stale index should fall back (-want +got):\n%s", diff)
	}

	if err := database.ReplaceAnchors("native", p.ModelHash, indexed); err != nil {
		t.Fatal(err)
	}
	rows, err = p.Search(database, "len", 10)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"Tablecloth.String.lengthFromIndex"}, anchors(rows)); diff != "" {
		t.Errorf("current index (-want +got):\n%s", diff)
	}
}

func TestPage_Modules(t *testing.T) {
	t.Parallel()

	path := writeModel(t, t.TempDir(), "native.json", model)
	p, err := LoadPage(Source{Name: "native", Path: path}, render.Options{})
	if err != nil {
		t.Fatal(err)
	}
	mods := p.Modules()
	if len(mods) != 1 || mods[0].Anchor != "Tablecloth.String" || mods[0].Kind != render.BlockModule {
		t.Errorf("modules = %+v", mods)
	}
}
