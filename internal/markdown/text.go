package markdown

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tableclothml/odocsite/internal/odoc"
)

// Options controls how doc text is turned into markdown.
type Options struct {
	// Strip removes the library prefix from displayed names and reference
	// targets. Nil leaves text untouched.
	Strip func(string) string
	// Href maps a reference anchor to a link destination. Nil yields "#anchor".
	Href func(anchor string) string
	// Strict makes unknown element tags an error instead of a visible
	// placeholder.
	Strict bool
}

// UnhandledElementError reports a text element tag with no markdown mapping.
type UnhandledElementError struct {
	Tag string
}

func (e *UnhandledElementError) Error() string {
	return fmt.Sprintf("unhandled text element %q", e.Tag)
}

// FromElements renders a sequence of doc text elements as markdown.
func FromElements(elements []odoc.TextElement, opts Options) (string, error) {
	var b strings.Builder
	if err := writeElements(&b, elements, opts); err != nil {
		return "", err
	}
	return tidy(b.String()), nil
}

// destinationEscaper percent-encodes the characters that end or split an
// inline link destination.
var destinationEscaper = strings.NewReplacer(
	" ", "%20",
	"\t", "%09",
	"\n", "%0A",
	"(", "%28",
	")", "%29",
	"<", "%3C",
	">", "%3E",
)

func destination(target string) string {
	return destinationEscaper.Replace(target)
}

var blankRunRe = regexp.MustCompile(`\n{3,}`)

func tidy(s string) string {
	return strings.TrimSpace(blankRunRe.ReplaceAllString(s, "\n\n"))
}

func writeElements(b *strings.Builder, elements []odoc.TextElement, opts Options) error {
	for _, e := range elements {
		if err := writeElement(b, e, opts); err != nil {
			return err
		}
	}
	return nil
}

func inline(elements []odoc.TextElement, opts Options) (string, error) {
	var b strings.Builder
	if err := writeElements(&b, elements, opts); err != nil {
		return "", err
	}
	return strings.TrimSpace(b.String()), nil
}

func writeElement(b *strings.Builder, e odoc.TextElement, opts Options) error {
	switch e.Tag {
	case odoc.TextRaw:
		b.WriteString(escape(e.Literal))
	case odoc.TextNewline:
		b.WriteString("\n\n")
	case odoc.TextEmphasize, odoc.TextBold:
		text, err := inline(e.Children, opts)
		if err != nil {
			return err
		}
		mark := "*"
		if e.Tag == odoc.TextBold {
			mark = "**"
		}
		b.WriteString(mark + text + mark)
	case odoc.TextLink:
		text, err := inline(e.Children, opts)
		if err != nil {
			return err
		}
		if text == "" {
			text = escape(e.Target)
		}
		fmt.Fprintf(b, "[%s](%s)", text, destination(e.Target))
	case odoc.TextCode:
		b.WriteString(codeSpan(e.Literal))
	case odoc.TextList, odoc.TextEnum:
		b.WriteString("\n\n")
		for i, item := range e.Items {
			text, err := inline(item, opts)
			if err != nil {
				return err
			}
			if e.Tag == odoc.TextEnum {
				fmt.Fprintf(b, "%d. %s\n", i+1, text)
			} else {
				fmt.Fprintf(b, "- %s\n", text)
			}
		}
		b.WriteString("\n")
	case odoc.TextRef:
		if len(e.Children) == 0 {
			return fmt.Errorf("empty reference to %q", e.Target)
		}
		var text string
		if len(e.Children) == 1 && e.Children[0].Tag == odoc.TextCode {
			text = codeSpan(opts.strip(e.Children[0].Literal))
		} else {
			var err error
			if text, err = inline(e.Children, opts); err != nil {
				return err
			}
		}
		fmt.Fprintf(b, "[%s](%s)", text, opts.href(e.Target))
	case odoc.TextTitle:
		text, err := inline(e.Children, opts)
		if err != nil {
			return err
		}
		b.WriteString("\n\n" + strings.Repeat("#", e.Size+1) + " " + text)
		if e.Label != "" {
			b.WriteString(" {#" + e.Label + "}")
		}
		b.WriteString("\n\n")
	case odoc.TextCodePre:
		fmt.Fprintf(b, "\n\n```ocaml\n%s\n```\n\n", strings.TrimRight(e.Literal, "\n"))
	default:
		if opts.Strict {
			return &UnhandledElementError{Tag: e.Tag}
		}
		fmt.Fprintf(b, "**Unhandled case:** `%s`", e.Tag)
	}
	return nil
}

func (o Options) strip(s string) string {
	if o.Strip == nil {
		return s
	}
	return o.Strip(s)
}

func (o Options) href(anchor string) string {
	if o.Href == nil {
		return "#" + anchor
	}
	return o.Href(anchor)
}

var escaper = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
	`*`, `\*`,
	`_`, `\_`,
	`[`, `\[`,
	`]`, `\]`,
	`<`, `\<`,
)

func escape(s string) string {
	return escaper.Replace(s)
}

// codeSpan wraps s in enough backticks that any backticks inside survive.
func codeSpan(s string) string {
	fence := "`"
	for strings.Contains(s, fence) {
		fence += "`"
	}
	if len(fence) > 1 {
		return fence + " " + s + " " + fence
	}
	return fence + s + fence
}
