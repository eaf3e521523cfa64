package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/tableclothml/odocsite/internal/cas"
	"github.com/tableclothml/odocsite/internal/library"
	"github.com/tableclothml/odocsite/internal/site"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the static documentation site",
	Long: `Render every configured variant to docs/<variant>/index.html with its
anchors.json, plus a landing page. Variants whose model and settings are
unchanged since the last build are restored from the cache.`,
	Example: `  odocsite build
  odocsite build --out dist --force
  odocsite build --production --jobs 2`,
	Run: runBuild,
}

var (
	buildOut   string
	buildForce bool
	buildJobs  int
	buildJSON  bool
)

func init() {
	buildCmd.Flags().StringVar(&buildOut, "out", "", "output directory (default: site.output_dir)")
	buildCmd.Flags().BoolVar(&buildForce, "force", false, "re-render unchanged variants")
	buildCmd.Flags().IntVar(&buildJobs, "jobs", 0, "concurrent variant builds (0: one per variant)")
	buildCmd.Flags().BoolVar(&buildJSON, "json", false, "print the build report as JSON")
}

func runBuild(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	if len(cfg.Variants) == 0 {
		log.Fatalf("no variants configured; add a [variants] section to config.toml")
	}
	out := buildOut
	if out == "" {
		out = cfg.Site.OutputDir
	}

	report, err := site.Build(context.Background(), site.BuildOptions{
		Title:     cfg.Site.Title,
		OutputDir: out,
		Sources:   library.Sources(cfg),
		Render:    library.RenderOptions(cfg),
		Store:     cas.Default(),
		Force:     buildForce,
		Jobs:      buildJobs,
	})
	if err != nil {
		log.Fatalf("build failed: %v", err)
	}

	if buildJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(report)
		return
	}
	for _, r := range report.Variants {
		state := "rendered"
		if r.Skipped {
			state = "unchanged"
		}
		fmt.Printf("  %-12s %-10s %d anchors\n", r.Variant, state, r.Anchors)
	}
	fmt.Printf("site written to %s\n", out)
}
