package playground

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/tableclothml/odocsite/internal/config"
)

func TestSerializeBinary(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{"empty", nil, `""`},
		{"printable", []byte("Tablecloth ~!"), `"Tablecloth ~!"`},
		{"quote_and_backslash", []byte(`a"b\c`), `"a\"b\\c"`},
		{"control_escapes", []byte{'\b', '\t', '\n', '\f', '\r'}, `"\b\t\n\f\r"`},
		{"nul_at_end", []byte{'a', 0}, `"a\0"`},
		{"nul_before_letter", []byte{0, 'x'}, `"\0x"`},
		{"nul_before_digit", []byte{0, '7'}, `"\x007"`},
		{"other_control", []byte{1, 7, 11, 14, 31}, `"\x01\x07\x0b\x0e\x1f"`},
		{"del_and_high", []byte{127, 128, 0xff}, `"\x7f\x80\xff"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := SerializeBinary(&buf, tt.in); err != nil {
				t.Fatal(err)
			}
			if got := buf.String(); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func writeArtifacts(t *testing.T, dir string) {
	t.Helper()
	files := map[string][]byte{
		"exports.js":            []byte("var ocaml = {};\n"),
		"lib/bs/Tablecloth.cmi": {'C', 0, '1'},
		"lib/bs/Tablecloth.cmj": {'J', '\n'},
	}
	for name, data := range files {
		p := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestBuild(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeArtifacts(t, dir)

	res, err := Build(context.Background(), Options{
		Workdir:     dir,
		ArtifactDir: "lib/bs",
		Modules:     []string{"Tablecloth"},
		Prelude:     "exports.js",
		Output:      "assets/js/bsTablecloth.js",
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(filepath.Join(dir, "assets/js/bsTablecloth.js"))
	if err != nil {
		t.Fatal(err)
	}
	want := "var ocaml = {};\n" +
		`ocaml.load_module("/static/cmis/Tablecloth.cmi", "C\x001", "Tablecloth.cmj", "J\n");` + "\n"
	if string(got) != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
	if res.Modules != 1 || res.Bytes != int64(len(want)) {
		t.Errorf("result = %+v", res)
	}
}

func TestBuild_RunsCompiler(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("no shell available")
	}
	t.Parallel()

	dir := t.TempDir()
	writeArtifacts(t, dir)

	var log bytes.Buffer
	_, err = Build(context.Background(), Options{
		Compiler:    sh,
		Args:        []string{"-c", "echo compiled"},
		Workdir:     dir,
		ArtifactDir: "lib/bs",
		Modules:     []string{"Tablecloth"},
		Output:      "out.js",
		Log:         &log,
	})
	if err != nil {
		t.Fatal(err)
	}
	if log.String() != "compiled\n" {
		t.Errorf("compiler output = %q", log.String())
	}

	_, err = Build(context.Background(), Options{
		Compiler: sh,
		Args:     []string{"-c", "exit 2"},
		Workdir:  dir,
		Modules:  []string{"Tablecloth"},
		Output:   "out.js",
	})
	if err == nil {
		t.Error("expected error from failing compiler")
	}
}

func TestBuild_MissingModuleKeepsOutput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeArtifacts(t, dir)
	out := filepath.Join(dir, "out.js")
	if err := os.WriteFile(out, []byte("previous"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Build(context.Background(), Options{
		Workdir:     dir,
		ArtifactDir: "lib/bs",
		Modules:     []string{"Tablecloth", "Missing"},
		Output:      out,
	})
	if err == nil {
		t.Fatal("expected error for missing module")
	}
	got, _ := os.ReadFile(out)
	if string(got) != "previous" {
		t.Errorf("output was replaced: %q", got)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	t.Parallel()

	opts := OptionsFromConfig(config.PlaygroundConfig{
		Compiler: "bsb",
		Args:     []string{"-make-world"},
		Modules:  []string{"Tablecloth"},
		Output:   "public/playground.js",
	})
	if opts.Compiler != "bsb" || len(opts.Args) != 1 || opts.Output != "public/playground.js" {
		t.Errorf("opts = %+v", opts)
	}
	if opts.resolve("/abs") != "/abs" {
		t.Error("absolute paths should be left alone")
	}
}
