// Package cas is a content-addressable blob store. Blobs are zstd-compressed
// and named by the SHA-256 of their uncompressed content; refs are small
// named pointers to blob hashes.
package cas

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/tableclothml/odocsite/internal/config"
)

type Store struct {
	dir string
}

func Open(dir string) *Store {
	return &Store{dir: dir}
}

// Default opens the store under the user cache directory.
func Default() *Store {
	return Open(config.CASDir())
}

func (s *Store) Dir() string {
	return s.dir
}

// Hash returns the hex SHA-256 of data, the name it is stored under.
func Hash(data []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(data))
}

// path returns the sharded file path for a hash: cas/<first2>/<rest>.zst
func (s *Store) path(hash string) string {
	return filepath.Join(s.dir, hash[:2], hash[2:]+".zst")
}

// Put stores data, returning its hash. If the content already exists, this
// is a no-op.
func (s *Store) Put(data []byte) (string, error) {
	hash := Hash(data)

	p := s.path(hash)
	if _, err := os.Stat(p); err == nil {
		return hash, nil
	}

	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return "", fmt.Errorf("creating CAS directory: %w", err)
	}

	var buf bytes.Buffer
	w, err := zstd.NewWriter(&buf)
	if err != nil {
		return "", fmt.Errorf("creating zstd writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", fmt.Errorf("compressing CAS content: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("closing zstd writer: %w", err)
	}

	if err := os.WriteFile(p, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("writing CAS file: %w", err)
	}

	return hash, nil
}

// Get retrieves content by hash.
func (s *Store) Get(hash string) ([]byte, error) {
	if len(hash) < 3 {
		return nil, fmt.Errorf("invalid CAS hash %q", hash)
	}
	f, err := os.Open(s.path(hash))
	if err != nil {
		return nil, fmt.Errorf("reading CAS file %s: %w", hash, err)
	}
	defer f.Close()

	r, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("creating zstd reader: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("decompressing CAS file %s: %w", hash, err)
	}
	return data, nil
}

func (s *Store) Has(hash string) bool {
	if len(hash) < 3 {
		return false
	}
	_, err := os.Stat(s.path(hash))
	return err == nil
}

func (s *Store) refPath(name string) (string, error) {
	clean := filepath.Clean(name)
	if name == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid ref name %q", name)
	}
	return filepath.Join(s.dir, "refs", clean), nil
}

// SetRef points name at hash. Names may contain slashes.
func (s *Store) SetRef(name, hash string) error {
	p, err := s.refPath(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return fmt.Errorf("creating ref directory: %w", err)
	}
	if err := os.WriteFile(p, []byte(hash+"\n"), 0644); err != nil {
		return fmt.Errorf("writing ref %s: %w", name, err)
	}
	return nil
}

// Ref returns the hash name points at. A missing ref is not an error.
func (s *Store) Ref(name string) (string, bool, error) {
	p, err := s.refPath(name)
	if err != nil {
		return "", false, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading ref %s: %w", name, err)
	}
	return strings.TrimSpace(string(data)), true, nil
}
