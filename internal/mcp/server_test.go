package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/tableclothml/odocsite/internal/library"
)

const model = `{
  "modules": {},
  "entry_point": {"tag": "Module", "value": {"name": "Tablecloth", "kind": {"tag": "ModuleStruct", "value": [
    {"tag": "Module", "value": {"name": "String", "kind": {"tag": "ModuleStruct", "value": [
      {"tag": "Value", "value": {"name": "toList", "type": {"rendered": "string -> char list"},
        "info": {"description": {"tag": "Text", "value": [
          {"tag": "Raw", "value": "Characters, see "},
          {"tag": "Ref", "value": {"reference": {"target": "Tablecloth.String.length", "content": [{"tag": "Raw", "value": "length"}]}}}
        ]}}}},
      {"tag": "Value", "value": {"name": "length", "type": {"rendered": "string -> int"}}}
    ]}}}
  ]}}}
}`

func testServer(t *testing.T) *Server {
	t.Helper()
	path := filepath.Join(t.TempDir(), "native.json")
	if err := os.WriteFile(path, []byte(model), 0o644); err != nil {
		t.Fatal(err)
	}
	lib, err := library.New([]library.Source{{Name: "native", Path: path}}, library.Options{})
	if err != nil {
		t.Fatal(err)
	}
	return NewServer(lib, nil, "test")
}

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("expected one content item, got %d", len(res.Content))
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T", res.Content[0])
	}
	return text.Text
}

func TestParseURI(t *testing.T) {
	t.Parallel()

	v, a, err := ParseURI("odoc://rescript/Tablecloth.Option.map")
	if err != nil || v != "rescript" || a != "Tablecloth.Option.map" {
		t.Errorf("got %q %q %v", v, a, err)
	}
	for _, bad := range []string{"rsdoc://x/y", "odoc://native", "odoc:///x", "odoc://native/"} {
		if _, _, err := ParseURI(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestSearchDocs(t *testing.T) {
	t.Parallel()
	s := testServer(t)

	res, err := s.handleSearchDocs(context.Background(), call(map[string]any{"query": "String.len"}))
	if err != nil {
		t.Fatal(err)
	}
	var hits []searchHit
	if err := json.Unmarshal([]byte(resultText(t, res)), &hits); err != nil {
		t.Fatal(err)
	}
	want := []searchHit{{
		URI:       "odoc://native/Tablecloth.String.length",
		Kind:      "value",
		Module:    "Tablecloth.String",
		Signature: "let length: string -> int",
	}}
	if diff := cmp.Diff(want, hits); diff != "" {
		t.Errorf("hits (-want +got):\n%s", diff)
	}

	res, err = s.handleSearchDocs(context.Background(), call(map[string]any{}))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Error("expected tool error for missing query")
	}

	res, err = s.handleSearchDocs(context.Background(), call(map[string]any{"query": "x", "variant": "bucklescript"}))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Error("expected tool error for unknown variant")
	}
}

func TestListModules(t *testing.T) {
	t.Parallel()
	s := testServer(t)

	res, err := s.handleListModules(context.Background(), call(map[string]any{"variant": "native"}))
	if err != nil {
		t.Fatal(err)
	}
	text := resultText(t, res)
	if !strings.Contains(text, `"uri": "odoc://native/Tablecloth.String"`) {
		t.Errorf("modules = %s", text)
	}
	if strings.Contains(text, "toList") {
		t.Errorf("values should not be listed: %s", text)
	}
}

func TestRead(t *testing.T) {
	t.Parallel()
	s := testServer(t)

	got, err := s.read(context.Background(), "odoc://native/Tablecloth.String.toList")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"---\nanchor: Tablecloth.String.toList\nkind: value\nvariant: native\n---\n",
		"let toList: string -> char list",
		"[length](odoc://native/Tablecloth.String.length)",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("resource missing %q:\n%s", want, got)
		}
	}

	module, err := s.read(context.Background(), "odoc://native/Tablecloth.String")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(module, "let length: string -> int") {
		t.Errorf("module section should include its members:\n%s", module)
	}

	if _, err := s.read(context.Background(), "odoc://native/Tablecloth.Nope"); err == nil {
		t.Error("expected error for missing anchor")
	}
}
