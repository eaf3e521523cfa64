package markdown

import (
	"errors"
	"strings"
	"testing"

	"github.com/tableclothml/odocsite/internal/odoc"
)

func stripTablecloth(s string) string {
	return strings.ReplaceAll(s, "Tablecloth.", "")
}

func TestFromElements_Inline(t *testing.T) {
	t.Parallel()

	els := []odoc.TextElement{
		odoc.Raw("Converts a "),
		odoc.Code("string"),
		odoc.Raw(" into a "),
		{Tag: odoc.TextEmphasize, Children: []odoc.TextElement{odoc.Raw("list")}},
		odoc.Raw(" of "),
		{Tag: odoc.TextBold, Children: []odoc.TextElement{odoc.Raw("chars")}},
	}
	got, err := FromElements(els, Options{})
	if err != nil {
		t.Fatal(err)
	}
	want := "Converts a `string` into a *list* of **chars**"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFromElements_RawIsEscaped(t *testing.T) {
	t.Parallel()

	got, err := FromElements([]odoc.TextElement{odoc.Raw("a * b [c] to_list")}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if got != `a \* b \[c\] to\_list` {
		t.Errorf("got %q", got)
	}
}

func TestFromElements_Ref(t *testing.T) {
	t.Parallel()

	opts := Options{Strip: stripTablecloth}

	t.Run("code_content_is_stripped", func(t *testing.T) {
		got, err := FromElements([]odoc.TextElement{
			odoc.Ref("Tablecloth.List.map", odoc.Code("Tablecloth.List.map")),
		}, opts)
		if err != nil {
			t.Fatal(err)
		}
		if got != "[`List.map`](#Tablecloth.List.map)" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("custom_href", func(t *testing.T) {
		o := opts
		o.Href = func(a string) string { return "/docs/ocaml#" + a }
		got, err := FromElements([]odoc.TextElement{
			odoc.Ref("Tablecloth.Option.t", odoc.Raw("options")),
		}, o)
		if err != nil {
			t.Fatal(err)
		}
		if got != "[options](/docs/ocaml#Tablecloth.Option.t)" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("empty_content", func(t *testing.T) {
		_, err := FromElements([]odoc.TextElement{odoc.Ref("Tablecloth.X")}, opts)
		if err == nil {
			t.Fatal("expected error for empty reference")
		}
	})
}

func TestFromElements_Blocks(t *testing.T) {
	t.Parallel()

	els := []odoc.TextElement{
		odoc.Raw("Intro."),
		{Tag: odoc.TextTitle, Size: 1, Label: "examples", Children: []odoc.TextElement{odoc.Raw("Examples")}},
		{Tag: odoc.TextList, Items: [][]odoc.TextElement{{odoc.Raw("one")}, {odoc.Code("two")}}},
		{Tag: odoc.TextEnum, Items: [][]odoc.TextElement{{odoc.Raw("first")}}},
		{Tag: odoc.TextCodePre, Literal: "List.map [1] ~f:succ\n"},
		{Tag: odoc.TextNewline},
		{Tag: odoc.TextLink, Target: "https://ocaml.org", Children: []odoc.TextElement{odoc.Raw("OCaml")}},
	}
	got, err := FromElements(els, Options{})
	if err != nil {
		t.Fatal(err)
	}
	want := "Intro.\n\n" +
		"## Examples {#examples}\n\n" +
		"- one\n- `two`\n\n" +
		"1. first\n\n" +
		"```ocaml\nList.map [1] ~f:succ\n```\n\n" +
		"[OCaml](https://ocaml.org)"
	if got != want {
		t.Errorf("got:\n%s\n\nwant:\n%s", got, want)
	}
}

func TestFromElements_LinkTargetIsEscaped(t *testing.T) {
	t.Parallel()

	tests := []struct {
		target string
		want   string
	}{
		{"https://ocaml.org", "[site](https://ocaml.org)"},
		{"https://example.com/a b", "[site](https://example.com/a%20b)"},
		{"https://en.wikipedia.org/wiki/Fold_(higher-order_function)", "[site](https://en.wikipedia.org/wiki/Fold_%28higher-order_function%29)"},
		{"<x>", "[site](%3Cx%3E)"},
	}
	for _, tt := range tests {
		got, err := FromElements([]odoc.TextElement{
			{Tag: odoc.TextLink, Target: tt.target, Children: []odoc.TextElement{odoc.Raw("site")}},
		}, Options{})
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Errorf("link to %q = %q, want %q", tt.target, got, tt.want)
		}
	}
}

func TestFromElements_Unhandled(t *testing.T) {
	t.Parallel()

	els := []odoc.TextElement{{Tag: "Verbatim"}}

	got, err := FromElements(els, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "Unhandled case") {
		t.Errorf("expected visible placeholder, got %q", got)
	}

	_, err = FromElements(els, Options{Strict: true})
	var uerr *UnhandledElementError
	if !errors.As(err, &uerr) || uerr.Tag != "Verbatim" {
		t.Errorf("expected UnhandledElementError, got %v", err)
	}
}

func TestCodeSpan(t *testing.T) {
	t.Parallel()

	if got := codeSpan("a"); got != "`a`" {
		t.Errorf("got %q", got)
	}
	if got := codeSpan("a`b"); got != "`` a`b ``" {
		t.Errorf("got %q", got)
	}
}
