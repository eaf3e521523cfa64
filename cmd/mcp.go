package cmd

import (
	"log"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tableclothml/odocsite/internal/library"
	"github.com/tableclothml/odocsite/internal/mcp"
)

// version is reported to MCP clients.
var version = "0.1.0"

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run as an MCP server over stdio",
	Long: `Expose the configured variants to MCP clients: search_docs and
list_modules tools, and odoc://{variant}/{anchor} resources.`,
	Run: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) {
	// stdout carries the protocol.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	cfg := loadConfig()
	database := openIndex()
	if database != nil {
		defer database.Close()
	}

	srv := mcp.NewServer(openLibrary(cfg, library.Options{}), database, version)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run() }()

	if err := waitForSignal(errCh); err != nil {
		log.Fatalf("mcp server error: %v", err)
	}
}
