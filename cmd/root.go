package cmd

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tableclothml/odocsite/internal/config"
	"github.com/tableclothml/odocsite/internal/db"
	"github.com/tableclothml/odocsite/internal/library"
)

var (
	debug      bool
	production bool
)

var rootCmd = &cobra.Command{
	Use:   "odocsite",
	Short: "Render odoc documentation models into a browsable site",
	Long: `odocsite renders the JSON documentation model produced by odoc into
anchored documentation pages with a searchable sidebar. Pages can be built
as a static site, served over HTTP, indexed for symbol search, read in the
terminal, or exposed to MCP clients.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			slog.Warn("failed to load .env", "error", err)
		}
		level := slog.LevelInfo
		if debug {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("command failed: %v", err)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&production, "production", false, "fail on unhandled model shapes instead of rendering placeholders")

	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(sidebarCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(reloadCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(playgroundCmd)
	rootCmd.AddCommand(logsCmd)
}

// loadConfig reads the config and applies persistent flag overrides.
func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if production {
		cfg.Site.Production = true
	}
	return cfg
}

// openLibrary builds a page library over every configured variant.
func openLibrary(cfg *config.Config, opts library.Options) *library.Library {
	if len(cfg.Variants) == 0 {
		log.Fatalf("no variants configured; add a [variants] section to config.toml")
	}
	opts.Render = library.RenderOptions(cfg)
	if opts.CacheSize == 0 {
		opts.CacheSize = cfg.Server.CacheSize
	}
	lib, err := library.New(library.Sources(cfg), opts)
	if err != nil {
		log.Fatalf("failed to create library: %v", err)
	}
	return lib
}

// openIndex opens the symbol index if one has been built. A missing index
// is not an error; callers fall back to sidebar search.
func openIndex() *db.DB {
	path := config.DBPath()
	if _, err := os.Stat(path); err != nil {
		slog.Debug("no symbol index", "path", path)
		return nil
	}
	database, err := db.New(path)
	if err != nil {
		slog.Warn("failed to open symbol index", "path", path, "error", err)
		return nil
	}
	return database
}

// loadPage loads one variant's page or exits.
func loadPage(lib *library.Library, variant string) *library.Page {
	p, err := lib.Page(context.Background(), variant)
	if err != nil {
		log.Fatalf("failed to load %s: %v", variant, err)
	}
	return p
}

// defaultVariant returns the only configured variant, or exits asking for one.
func defaultVariant(cfg *config.Config, args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	names := cfg.VariantNames()
	if len(names) != 1 {
		log.Fatalf("specify a variant (configured: %v)", names)
	}
	return names[0]
}

func waitForSignal(errCh chan error) error {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		slog.Info("received signal", "signal", sig.String())
		return nil
	case err := <-errCh:
		return err
	}
}
