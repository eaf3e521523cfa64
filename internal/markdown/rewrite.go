package markdown

import (
	"fmt"
	"sort"
	"strings"

	gm "github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	"github.com/gomarkdown/markdown/html"
	gmparser "github.com/gomarkdown/markdown/parser"
)

func newParser() *gmparser.Parser {
	return gmparser.NewWithExtensions(
		gmparser.CommonExtensions | gmparser.Autolink | gmparser.HeadingIDs,
	)
}

// ToHTML renders markdown produced by FromElements to an HTML fragment.
func ToHTML(src string) string {
	if src == "" {
		return ""
	}
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	return string(gm.ToHTML([]byte(src), newParser(), renderer))
}

// RewriteLinks rewrites markdown link destinations. rewrite is called once
// per distinct destination found in the parsed document; returning false
// leaves that destination alone. Replacements are targeted string edits so
// the original formatting is preserved.
func RewriteLinks(src string, rewrite func(dest string) (string, bool)) string {
	if rewrite == nil {
		return src
	}

	doc := gm.Parse([]byte(src), newParser())

	seen := make(map[string]bool)
	type replacement struct {
		oldDest string
		newDest string
	}
	var replacements []replacement

	ast.WalkFunc(doc, func(node ast.Node, entering bool) ast.WalkStatus {
		if !entering {
			return ast.GoToNext
		}
		link, ok := node.(*ast.Link)
		if !ok {
			return ast.GoToNext
		}
		dest := string(link.Destination)
		if seen[dest] {
			return ast.GoToNext
		}
		seen[dest] = true
		if newDest, ok := rewrite(dest); ok && newDest != dest {
			replacements = append(replacements, replacement{dest, newDest})
		}
		return ast.GoToNext
	})

	if len(replacements) == 0 {
		return src
	}

	result := src
	for _, r := range replacements {
		result = strings.ReplaceAll(result, "]("+r.oldDest+")", "]("+r.newDest+")")
	}
	return result
}

// AnchorRewriter returns a RewriteLinks callback that turns in-page
// "#anchor" destinations into base+anchor.
func AnchorRewriter(base string) func(string) (string, bool) {
	return func(dest string) (string, bool) {
		anchor, ok := strings.CutPrefix(dest, "#")
		if !ok || anchor == "" {
			return "", false
		}
		return base + anchor, true
	}
}

// AddFrontMatter prepends a YAML front-matter block with the given fields,
// sorted by key.
func AddFrontMatter(src string, fields map[string]string) string {
	if len(fields) == 0 {
		return src
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("---\n")
	for _, k := range keys {
		b.WriteString(fmt.Sprintf("%s: %s\n", k, fields[k]))
	}
	b.WriteString("---\n\n")
	b.WriteString(src)
	return b.String()
}
