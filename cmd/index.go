package cmd

import (
	"fmt"
	"log"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/tableclothml/odocsite/internal/config"
	"github.com/tableclothml/odocsite/internal/db"
	"github.com/tableclothml/odocsite/internal/library"
)

var indexCmd = &cobra.Command{
	Use:   "index [variant ...]",
	Short: "Index anchors into the symbol search database",
	Long: `Render each variant and store its anchors, signatures and summaries in
the DuckDB symbol index used by search, get and the MCP server. Variants
whose model is unchanged since the last index are skipped.`,
	Example: `  odocsite index
  odocsite index native --force
  odocsite index --prune`,
	Run: runIndex,
}

var (
	indexForce bool
	indexPrune bool
)

func init() {
	indexCmd.Flags().BoolVar(&indexForce, "force", false, "re-index unchanged variants")
	indexCmd.Flags().BoolVar(&indexPrune, "prune", false, "remove indexed variants that are no longer configured")
}

func runIndex(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	lib := openLibrary(cfg, library.Options{})

	database, err := db.New(config.DBPath())
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()

	variants := args
	if len(variants) == 0 {
		variants = cfg.VariantNames()
	}

	for _, v := range variants {
		p := loadPage(lib, v)
		hash, ok, err := database.VariantHash(v)
		if err != nil {
			log.Fatalf("checking %s: %v", v, err)
		}
		if ok && hash == p.ModelHash && !indexForce {
			fmt.Printf("  %-12s unchanged\n", v)
			continue
		}
		rows := p.Rows()
		if err := database.ReplaceAnchors(v, p.ModelHash, rows); err != nil {
			log.Fatalf("indexing %s: %v", v, err)
		}
		slog.Debug("indexed variant", "variant", v, "anchors", len(rows))
		fmt.Printf("  %-12s %d anchors\n", v, len(rows))
	}

	if indexPrune {
		indexed, err := database.ListVariants()
		if err != nil {
			log.Fatalf("listing variants: %v", err)
		}
		configured := cfg.VariantNames()
		for _, v := range indexed {
			if slices.Contains(configured, v.Name) {
				continue
			}
			if err := database.DeleteVariant(v.Name); err != nil {
				log.Fatalf("removing %s: %v", v.Name, err)
			}
			fmt.Printf("  %-12s removed\n", v.Name)
		}
	}
}
