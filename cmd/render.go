package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/tableclothml/odocsite/internal/library"
	"github.com/tableclothml/odocsite/internal/render"
)

var renderCmd = &cobra.Command{
	Use:   "render [variant]",
	Short: "Render a variant's model to blocks",
	Example: `  odocsite render native
  odocsite render rescript --format markdown
  odocsite render native --format anchors`,
	Args: cobra.MaximumNArgs(1),
	Run:  runRender,
}

var renderFormat string

func init() {
	renderCmd.Flags().StringVar(&renderFormat, "format", "json", "output format: json, markdown, anchors, or modules")
}

func runRender(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	lib := openLibrary(cfg, library.Options{})
	p := loadPage(lib, defaultVariant(cfg, args))

	switch renderFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(p.Document); err != nil {
			log.Fatalf("encoding document: %v", err)
		}
	case "markdown":
		for _, b := range p.Document.Blocks {
			if b.Kind == render.BlockSpacer {
				fmt.Println("---")
				fmt.Println()
				continue
			}
			fmt.Println(library.BlockMarkdown(b))
		}
	case "anchors":
		for _, a := range p.Document.AnchorList() {
			fmt.Println(a)
		}
	case "modules":
		for _, m := range p.Renderer.ModulePaths() {
			fmt.Println(m)
		}
	default:
		log.Fatalf("unknown format %q", renderFormat)
	}
}
