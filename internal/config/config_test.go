package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/viper"
)

func TestCacheBase_XDGSet(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/custom/cache")
	got := cacheBase()
	want := filepath.Join("/custom/cache", "odocsite")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCacheBase_HomeDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "")
	got := cacheBase()
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home dir")
	}
	want := filepath.Join(home, ".cache", "odocsite")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCacheBase_TmpFallback(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "")
	t.Setenv("HOME", "")
	got := cacheBase()
	// Should use os.TempDir() when HOME is unset
	if !strings.Contains(got, "odocsite") {
		t.Errorf("expected odocsite in path, got %q", got)
	}
}

// loadIn runs Load with dir as the working directory and an isolated viper.
func loadIn(t *testing.T, dir string) (*Config, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Chdir(dir)
	return Load()
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := loadIn(t, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Site.Title != "Documentation" || cfg.Site.StripPrefix != "Tablecloth." || cfg.Site.OutputDir != "public" {
		t.Errorf("site defaults = %+v", cfg.Site)
	}
	if cfg.Server.Addr != "127.0.0.1:8000" || cfg.Server.CacheSize != 8 {
		t.Errorf("server defaults = %+v", cfg.Server)
	}
	if len(cfg.Variants) != 0 {
		t.Errorf("expected no variants, got %v", cfg.Variants)
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	toml := `
[site]
title = "Tablecloth"
production = true

[variants]
native = "docs/native.json"

[variants.rescript]
model = "docs/all.json.zst"
key = "rescript"
language = "rescript"

[playground]
modules = ["Tablecloth", "Stdlib"]
`
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(toml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadIn(t, dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Site.Title != "Tablecloth" || !cfg.Site.Production {
		t.Errorf("site = %+v", cfg.Site)
	}
	want := map[string]VariantConfig{
		"native":   {Model: "docs/native.json"},
		"rescript": {Model: "docs/all.json.zst", Key: "rescript", Language: "rescript"},
	}
	if diff := cmp.Diff(want, cfg.Variants); diff != "" {
		t.Errorf("variants (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"native", "rescript"}, cfg.VariantNames()); diff != "" {
		t.Errorf("names (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Tablecloth", "Stdlib"}, cfg.Playground.Modules); diff != "" {
		t.Errorf("modules (-want +got):\n%s", diff)
	}

	if _, err := cfg.Variant("bucklescript"); err == nil {
		t.Error("expected error for unknown variant")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("ODOCSITE_SERVER_ADDR", ":9999")
	t.Setenv("ODOCSITE_SITE_HIDE_SNAKE_CASE", "true")

	cfg, err := loadIn(t, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != ":9999" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if !cfg.Site.HideSnakeCase {
		t.Error("expected hide_snake_case from env")
	}
}

func TestLoad_VariantWithoutModel(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[variants.native]\nlanguage = \"ocaml\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadIn(t, dir); err == nil {
		t.Error("expected error for variant without a model")
	}
}
