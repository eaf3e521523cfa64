package cas

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestPutGet_RoundTrip(t *testing.T) {
	t.Parallel()
	s := Open(t.TempDir())

	content := []byte("<h1>Tablecloth</h1>\n<p>Documentation.</p>")
	hash, err := s.Put(content)
	if err != nil {
		t.Fatal(err)
	}
	if hash != Hash(content) {
		t.Errorf("hash = %s, want %s", hash, Hash(content))
	}
	if !s.Has(hash) {
		t.Error("Has reported stored blob missing")
	}

	got, err := s.Get(hash)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Errorf("round-trip failed: got %q, want %q", got, content)
	}
}

func TestPut_Dedup(t *testing.T) {
	t.Parallel()
	s := Open(t.TempDir())

	hash1, err := s.Put([]byte("duplicate content"))
	if err != nil {
		t.Fatal(err)
	}
	hash2, err := s.Put([]byte("duplicate content"))
	if err != nil {
		t.Fatal(err)
	}
	if hash1 != hash2 {
		t.Errorf("same content produced different hashes: %s vs %s", hash1, hash2)
	}

	hash3, err := s.Put([]byte("content B"))
	if err != nil {
		t.Fatal(err)
	}
	if hash1 == hash3 {
		t.Error("different content should produce different hashes")
	}
}

func TestGet_MissingHash(t *testing.T) {
	t.Parallel()
	s := Open(t.TempDir())

	_, err := s.Get("0000000000000000000000000000000000000000000000000000000000000000")
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
	if s.Has("00") {
		t.Error("short hash should never be present")
	}
}

func TestRefs(t *testing.T) {
	t.Parallel()
	s := Open(t.TempDir())

	if _, ok, err := s.Ref("site/native/model"); err != nil || ok {
		t.Fatalf("missing ref: ok=%v err=%v", ok, err)
	}
	if err := s.SetRef("site/native/model", "abc123"); err != nil {
		t.Fatal(err)
	}
	got, ok, err := s.Ref("site/native/model")
	if err != nil || !ok || got != "abc123" {
		t.Errorf("Ref = %q, %v, %v", got, ok, err)
	}
	if _, err := os.Stat(filepath.Join(s.Dir(), "refs", "site", "native", "model")); err != nil {
		t.Errorf("ref file not written: %v", err)
	}

	for _, bad := range []string{"", "../escape", "/abs"} {
		if err := s.SetRef(bad, "x"); err == nil {
			t.Errorf("SetRef(%q) should fail", bad)
		}
	}
}

func TestDefault_UsesCacheDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", dir)

	if got, want := Default().Dir(), filepath.Join(dir, "odocsite", "cas"); got != want {
		t.Errorf("Dir() = %q, want %q", got, want)
	}
}
