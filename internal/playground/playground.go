// Package playground builds the script that preloads the library's compiled
// interfaces into the in-browser compiler.
package playground

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/tableclothml/odocsite/internal/config"
)

const hexDigits = "0123456789abcdef"

// SerializeBinary writes data as a double-quoted JavaScript string literal
// that ocaml.load_module accepts. Printable ASCII is written as is, apart
// from the quote and backslash. A NUL is written as \0 unless a digit
// follows it. Other bytes use \xHH.
func SerializeBinary(w io.Writer, data []byte) error {
	bw := bufio.NewWriter(w)
	bw.WriteByte('"')
	for i, c := range data {
		switch {
		case c == '"':
			bw.WriteString(`\"`)
		case c == '\\':
			bw.WriteString(`\\`)
		case c >= 32 && c < 127:
			bw.WriteByte(c)
		case c == 0 && (i == len(data)-1 || data[i+1] < '0' || data[i+1] > '9'):
			bw.WriteString(`\0`)
		case c == '\b':
			bw.WriteString(`\b`)
		case c == '\t':
			bw.WriteString(`\t`)
		case c == '\n':
			bw.WriteString(`\n`)
		case c == '\f':
			bw.WriteString(`\f`)
		case c == '\r':
			bw.WriteString(`\r`)
		default:
			bw.Write([]byte{'\\', 'x', hexDigits[c>>4], hexDigits[c&15]})
		}
	}
	bw.WriteByte('"')
	return bw.Flush()
}

// Options describes one playground build. Relative ArtifactDir, Prelude
// and Output paths are resolved against Workdir.
type Options struct {
	// Compiler is run first with Args in Workdir. Empty skips compilation.
	Compiler    string
	Args        []string
	Workdir     string
	ArtifactDir string
	Modules     []string
	Prelude     string
	Output      string
	// Log receives the compiler's output. Nil discards it.
	Log io.Writer
}

// OptionsFromConfig maps the playground config section onto Options.
func OptionsFromConfig(cfg config.PlaygroundConfig) Options {
	return Options{
		Compiler:    cfg.Compiler,
		Args:        cfg.Args,
		Workdir:     cfg.Workdir,
		ArtifactDir: cfg.ArtifactDir,
		Modules:     cfg.Modules,
		Prelude:     cfg.Prelude,
		Output:      cfg.Output,
	}
}

func (o Options) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || o.Workdir == "" {
		return p
	}
	return filepath.Join(o.Workdir, p)
}

// Result reports what Build wrote.
type Result struct {
	Output  string
	Modules int
	Bytes   int64
}

// Build compiles the library, then writes the prelude followed by one
// ocaml.load_module call per module to the output file. The output is
// replaced atomically so a failed build leaves the previous script intact.
func Build(ctx context.Context, opts Options) (*Result, error) {
	if len(opts.Modules) == 0 {
		return nil, fmt.Errorf("no playground modules configured")
	}
	if opts.Output == "" {
		return nil, fmt.Errorf("no playground output configured")
	}

	if opts.Compiler != "" {
		if err := compile(ctx, opts); err != nil {
			return nil, err
		}
	}

	output := opts.resolve(opts.Output)
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(output), ".playground-*.js")
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := write(tmp, opts)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}
	if err := os.Rename(tmp.Name(), output); err != nil {
		return nil, fmt.Errorf("writing %s: %w", output, err)
	}

	slog.Info("wrote playground script", "output", output, "modules", len(opts.Modules), "bytes", n)
	return &Result{Output: output, Modules: len(opts.Modules), Bytes: n}, nil
}

func compile(ctx context.Context, opts Options) error {
	start := time.Now()
	cmd := exec.CommandContext(ctx, opts.Compiler, opts.Args...)
	cmd.Dir = opts.Workdir
	out := opts.Log
	if out == nil {
		out = io.Discard
	}
	cmd.Stdout = out
	cmd.Stderr = out

	slog.Info("compiling playground library", "compiler", opts.Compiler, "args", opts.Args, "dir", opts.Workdir)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("running %s: %w", opts.Compiler, err)
	}
	slog.Debug("compiled playground library", "elapsed", time.Since(start))
	return nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

func write(w io.Writer, opts Options) (int64, error) {
	cw := &countingWriter{w: w}

	if opts.Prelude != "" {
		prelude, err := os.Open(opts.resolve(opts.Prelude))
		if err != nil {
			return 0, fmt.Errorf("opening prelude: %w", err)
		}
		_, err = io.Copy(cw, prelude)
		prelude.Close()
		if err != nil {
			return 0, fmt.Errorf("copying prelude: %w", err)
		}
	}

	dir := opts.resolve(opts.ArtifactDir)
	for _, name := range opts.Modules {
		if err := writeModule(cw, dir, name); err != nil {
			return 0, err
		}
	}
	return cw.n, nil
}

func writeModule(w io.Writer, dir, name string) error {
	cmiName, cmjName := name+".cmi", name+".cmj"
	cmi, err := os.ReadFile(filepath.Join(dir, cmiName))
	if err != nil {
		return fmt.Errorf("module %s: %w", name, err)
	}
	cmj, err := os.ReadFile(filepath.Join(dir, cmjName))
	if err != nil {
		return fmt.Errorf("module %s: %w", name, err)
	}

	if _, err := fmt.Fprintf(w, `ocaml.load_module("/static/cmis/%s", `, cmiName); err != nil {
		return err
	}
	if err := SerializeBinary(w, cmi); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, `, "%s", `, cmjName); err != nil {
		return err
	}
	if err := SerializeBinary(w, cmj); err != nil {
		return err
	}
	_, err = io.WriteString(w, ");\n")
	return err
}
