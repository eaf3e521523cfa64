package render

import (
	"strings"

	"github.com/tableclothml/odocsite/internal/odoc"
)

// typePrefix keeps a type's anchor distinct from a same-named value, e.g.
// Float.radians (a function) and Float.type_radians (a type).
const typePrefix = "type_"

// Anchor builds the stable anchor for a declaration named name, of the given
// node tag, declared inside the modules listed in path.
func Anchor(path []string, tag, name string) string {
	var b strings.Builder
	for _, p := range path {
		b.WriteString(p)
		b.WriteByte('.')
	}
	if tag == odoc.TagType {
		b.WriteString(typePrefix)
	}
	b.WriteString(name)
	return b.String()
}

// Stripper removes the library prefix (e.g. "Tablecloth") from names shown
// to readers. Resolution lookups always use the unstripped names.
type Stripper string

func (s Stripper) Strip(v string) string {
	if s == "" {
		return v
	}
	return strings.ReplaceAll(v, string(s), "")
}

// Navigator turns an anchor into a link destination. It is how
// cross-reference links and sidebar entries reach the surrounding page.
type Navigator interface {
	Href(anchor string) string
}

// FragmentNavigator links to anchors on the current page.
type FragmentNavigator struct{}

func (FragmentNavigator) Href(anchor string) string { return "#" + anchor }

// PageNavigator links to anchors on the page at Base.
type PageNavigator struct {
	Base string
}

func (p PageNavigator) Href(anchor string) string { return p.Base + "#" + anchor }

func extend(path []string, name string) []string {
	out := make([]string, len(path), len(path)+1)
	copy(out, path)
	return append(out, name)
}
