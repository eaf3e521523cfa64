package odoc

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// ReadFile reads a model file from disk. Files ending in .zst are
// decompressed transparently.
func ReadFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening model file: %w", err)
	}
	defer f.Close()

	if !strings.HasSuffix(path, ".zst") {
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("reading model file %s: %w", path, err)
		}
		return data, nil
	}

	r, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("creating zstd reader: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("decompressing model file %s: %w", path, err)
	}
	return data, nil
}

// Parse decodes a single model document.
func Parse(data []byte) (*Model, error) {
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshaling odoc model: %w", err)
	}
	if m.EntryPoint.Tag == "" {
		return nil, fmt.Errorf("odoc model has no entry_point")
	}
	return &m, nil
}

// ParseVariants decodes a document holding one model per library variant,
// e.g. {"rescript": {...}, "native": {...}}.
func ParseVariants(data []byte) (map[string]*Model, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshaling variant models: %w", err)
	}
	models := make(map[string]*Model, len(raw))
	for name, body := range raw {
		m, err := Parse(body)
		if err != nil {
			return nil, fmt.Errorf("variant %s: %w", name, err)
		}
		models[name] = m
	}
	return models, nil
}

// Load reads and parses a model file. If variant is non-empty the file is
// treated as a multi-variant document and that variant is selected.
func Load(path, variant string) (*Model, []byte, error) {
	data, err := ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	if variant == "" {
		m, err := Parse(data)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", path, err)
		}
		return m, data, nil
	}
	models, err := ParseVariants(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	m, ok := models[variant]
	if !ok {
		return nil, nil, fmt.Errorf("%s: no variant %q", path, variant)
	}
	return m, data, nil
}

// EntryElements returns the body of the entry point module.
func (m *Model) EntryElements() ([]Node, error) {
	ep := m.EntryPoint
	if ep.Tag != TagModule {
		return nil, fmt.Errorf("entry point is a %s, not a Module", ep.Tag)
	}
	if ep.Module.Kind.Tag != KindStruct {
		return nil, fmt.Errorf("entry point %s is a %s, not a struct", ep.Module.Name, ep.Module.Kind.Tag)
	}
	return ep.Module.Kind.Struct, nil
}
