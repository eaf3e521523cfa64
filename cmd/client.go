package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tableclothml/odocsite/internal/config"
	"github.com/tableclothml/odocsite/internal/server"
)

var clientServer string

func init() {
	for _, c := range []*cobra.Command{statusCmd, reloadCmd} {
		c.Flags().StringVar(&clientServer, "server", "", "server address (default: server.addr)")
	}
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output as JSON")
}

func serverClient() *server.Client {
	addr := clientServer
	if addr == "" {
		addr = loadConfig().Server.Addr
	}
	return server.NewClient(addr)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show a running server's cached pages and indexed variants",
	Run:   runStatus,
}

var statusJSON bool

func runStatus(cmd *cobra.Command, args []string) {
	client := serverClient()
	if !client.IsAvailable() {
		fmt.Println("server is not running")
		return
	}

	resp, err := client.Status(context.Background())
	if err != nil {
		slog.Error("status failed", "error", err)
		os.Exit(1)
	}

	if statusJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(resp)
		return
	}

	fmt.Printf("cached pages: %d\n", resp.Cached)
	for _, v := range resp.Variants {
		if !v.Indexed {
			fmt.Printf("  %-12s not indexed\n", v.Name)
			continue
		}
		when := ""
		if v.IndexedAt != nil {
			when = " at " + v.IndexedAt.Format("2006-01-02 15:04")
		}
		fmt.Printf("  %-12s %d anchors indexed%s\n", v.Name, v.Anchors, when)
	}
	fmt.Printf("index: %s\n", config.DBPath())
}

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Drop a running server's cached pages",
	Run:   runReload,
}

func runReload(cmd *cobra.Command, args []string) {
	client := serverClient()
	if !client.IsAvailable() {
		fmt.Println("server is not running")
		return
	}

	resp, err := client.Reload(context.Background())
	if err != nil {
		slog.Error("reload failed", "error", err)
		os.Exit(1)
	}
	fmt.Printf("purged %d cached pages\n", resp.Purged)
}
