package cmd

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/tableclothml/odocsite/internal/library"
	"github.com/tableclothml/odocsite/internal/mcp"
	"github.com/tableclothml/odocsite/internal/server"
)

var getCmd = &cobra.Command{
	Use:   "get <odoc://variant/anchor | variant anchor>",
	Short: "Read a documented declaration in the terminal",
	Example: `  odocsite get odoc://native/Tablecloth.String.toList
  odocsite get rescript Tablecloth.Option
  odocsite get native Tablecloth.List.map --raw`,
	Args: cobra.RangeArgs(1, 2),
	Run:  runGet,
}

var (
	getRaw    bool
	getWidth  int
	getServer string
)

func init() {
	getCmd.Flags().BoolVar(&getRaw, "raw", false, "print markdown without terminal styling")
	getCmd.Flags().IntVar(&getWidth, "width", 100, "word wrap width")
	getCmd.Flags().StringVar(&getServer, "server", "", "read from a running server instead of rendering locally")
}

func runGet(cmd *cobra.Command, args []string) {
	var variant, anchor string
	if len(args) == 2 {
		variant, anchor = args[0], args[1]
	} else {
		var err error
		variant, anchor, err = mcp.ParseURI(args[0])
		if err != nil {
			log.Fatalf("%v (expected odoc://variant/anchor)", err)
		}
	}

	var md string
	if getServer != "" {
		resp, err := server.NewClient(getServer).Anchor(context.Background(), variant, anchor)
		if err != nil {
			log.Fatalf("get failed: %v", err)
		}
		md = resp.Markdown
	} else {
		cfg := loadConfig()
		p := loadPage(openLibrary(cfg, library.Options{}), variant)
		section, ok := p.Section(anchor)
		if !ok {
			log.Fatalf("%s not found in %s%s", anchor, variant, suggest(p, anchor))
		}
		md = section
	}

	if getRaw {
		fmt.Print(md)
		return
	}
	renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(getWidth))
	if err != nil {
		log.Fatalf("creating renderer: %v", err)
	}
	out, err := renderer.Render(md)
	if err != nil {
		log.Fatalf("rendering markdown: %v", err)
	}
	fmt.Print(out)
}

// suggest lists a few anchors sharing the missing anchor's last segment.
func suggest(p *library.Page, anchor string) string {
	leaf := anchor[strings.LastIndex(anchor, ".")+1:]
	matches, err := p.Matches(leaf, 5)
	if err != nil || len(matches) == 0 {
		return ""
	}
	var names []string
	for _, m := range matches {
		names = append(names, m.Anchor)
	}
	return "; did you mean: " + strings.Join(names, ", ")
}
