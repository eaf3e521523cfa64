package cmd

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/tableclothml/odocsite/internal/playground"
)

var playgroundCmd = &cobra.Command{
	Use:   "playground",
	Short: "Build the playground's module preload script",
	Long: `Compile the library, then write the playground prelude followed by an
ocaml.load_module call for each configured module, with the module's .cmi
and .cmj embedded as string literals.`,
	Example: `  odocsite playground
  odocsite playground --skip-compile --out public/bsTablecloth.js`,
	Run: runPlayground,
}

var (
	playgroundSkipCompile bool
	playgroundOut         string
)

func init() {
	playgroundCmd.Flags().BoolVar(&playgroundSkipCompile, "skip-compile", false, "use existing build artifacts")
	playgroundCmd.Flags().StringVar(&playgroundOut, "out", "", "output file (default: playground.output)")
}

func runPlayground(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	opts := playground.OptionsFromConfig(cfg.Playground)
	opts.Log = os.Stderr
	if playgroundSkipCompile {
		opts.Compiler = ""
	}
	if playgroundOut != "" {
		opts.Output = playgroundOut
	}

	res, err := playground.Build(context.Background(), opts)
	if err != nil {
		log.Fatalf("playground build failed: %v", err)
	}
	fmt.Printf("wrote %s (%d modules, %d bytes)\n", res.Output, res.Modules, res.Bytes)
}
