package cmd

import (
	"context"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/tableclothml/odocsite/internal/config"
	"github.com/tableclothml/odocsite/internal/library"
	"github.com/tableclothml/odocsite/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve documentation pages and the JSON API over HTTP",
	Long: `Serve rendered pages at /docs/<variant> and the JSON API under /api.
Pages are re-rendered when a model file changes. Search uses the symbol
index when "odocsite index" has been run for the current model.`,
	Example: `  odocsite serve
  odocsite serve --addr :8080`,
	Run: runServe,
}

var serveAddr string

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: server.addr)")
}

func runServe(cmd *cobra.Command, args []string) {
	logPath := config.LogPath()
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		log.Fatalf("failed to create log directory: %v", err)
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		log.Fatalf("failed to open log file: %v", err)
	}
	defer logFile.Close()
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(io.MultiWriter(os.Stderr, logFile), &slog.HandlerOptions{Level: level})))

	cfg := loadConfig()
	addr := serveAddr
	if addr == "" {
		addr = cfg.Server.Addr
	}

	lib := openLibrary(cfg, library.Options{Navigator: server.Navigator})
	srv := server.NewServer(lib, openIndex(), cfg.Site.Title, addr)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(context.Background()) }()

	if err := waitForSignal(errCh); err != nil {
		log.Fatalf("server error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		slog.Error("shutdown failed", "error", err)
	}
}
