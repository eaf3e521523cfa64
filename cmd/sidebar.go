package cmd

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tableclothml/odocsite/internal/library"
	"github.com/tableclothml/odocsite/internal/render"
	"github.com/tableclothml/odocsite/internal/server"
)

var sidebarCmd = &cobra.Command{
	Use:   "sidebar [variant]",
	Short: "Print the sidebar tree for a search and collapse state",
	Example: `  odocsite sidebar native
  odocsite sidebar native --search String.to
  odocsite sidebar native --collapse String,Map.Poly
  odocsite sidebar rescript --server localhost:8000 --search map`,
	Args: cobra.MaximumNArgs(1),
	Run:  runSidebar,
}

var (
	sidebarSearch   string
	sidebarCollapse string
	sidebarServer   string
)

func init() {
	sidebarCmd.Flags().StringVar(&sidebarSearch, "search", "", "dotted search path, e.g. String.to")
	sidebarCmd.Flags().StringVar(&sidebarCollapse, "collapse", "", "comma-separated modules to collapse")
	sidebarCmd.Flags().StringVar(&sidebarServer, "server", "", "ask a running server instead of rendering locally")
}

func runSidebar(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	variant := defaultVariant(cfg, args)

	var nodes []*render.SidebarNode
	if sidebarServer != "" {
		resp, err := server.NewClient(sidebarServer).Sidebar(context.Background(), variant, sidebarSearch, sidebarCollapse)
		if err != nil {
			log.Fatalf("sidebar request failed: %v", err)
		}
		nodes = resp.Nodes
	} else {
		p := loadPage(openLibrary(cfg, library.Options{}), variant)
		var err error
		nodes, err = p.Sidebar(render.ParseSearch(sidebarSearch), render.ParseCollapsed(sidebarCollapse))
		if err != nil {
			log.Fatalf("building sidebar: %v", err)
		}
	}

	if len(nodes) == 0 {
		fmt.Println("no matches")
		return
	}
	printTree(nodes, 0)
}

func printTree(nodes []*render.SidebarNode, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, n := range nodes {
		suffix := ""
		if n.Collapsed {
			suffix = " [+]"
		}
		if n.Anchor != "" {
			fmt.Printf("%s%s%s  #%s\n", indent, n.Title, suffix, n.Anchor)
		} else {
			fmt.Printf("%s%s%s\n", indent, n.Title, suffix)
		}
		printTree(n.Children, depth+1)
	}
}
