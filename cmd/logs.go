package cmd

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tableclothml/odocsite/internal/config"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View the server log file",
	Example: `  odocsite logs -n 100
  odocsite logs -f --level warn`,
	Run: runLogs,
}

var (
	logsFollow bool
	logsLines  int
	logsLevel  string
)

func init() {
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "follow log output")
	logsCmd.Flags().IntVarP(&logsLines, "lines", "n", 50, "number of lines to show")
	logsCmd.Flags().StringVar(&logsLevel, "level", "", "only show records at or above this level (debug, info, warn, error)")
}

var levelRank = map[string]int{"DEBUG": 0, "INFO": 1, "WARN": 2, "ERROR": 3}

// recordLevel extracts the level=... field of a slog text record.
func recordLevel(line string) (int, bool) {
	_, rest, ok := strings.Cut(line, " level=")
	if !ok {
		return 0, false
	}
	level, _, _ := strings.Cut(rest, " ")
	rank, ok := levelRank[level]
	return rank, ok
}

func runLogs(cmd *cobra.Command, args []string) {
	logPath := config.LogPath()
	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		fmt.Println("no log file found (the server may not have run yet)")
		return
	}

	minRank := -1
	if logsLevel != "" {
		rank, ok := levelRank[strings.ToUpper(logsLevel)]
		if !ok {
			log.Fatalf("unknown level %q", logsLevel)
		}
		minRank = rank
	}

	tailArgs := []string{"-n", strconv.Itoa(logsLines)}
	if logsFollow {
		tailArgs = append(tailArgs, "-f")
	}
	tailArgs = append(tailArgs, logPath)

	tailCmd := exec.Command("tail", tailArgs...)
	tailCmd.Stderr = os.Stderr
	if minRank < 0 {
		tailCmd.Stdout = os.Stdout
		if err := tailCmd.Run(); err != nil {
			log.Fatalf("tail failed: %v", err)
		}
		return
	}

	out, err := tailCmd.StdoutPipe()
	if err != nil {
		log.Fatalf("tail failed: %v", err)
	}
	if err := tailCmd.Start(); err != nil {
		log.Fatalf("tail failed: %v", err)
	}
	scanner := bufio.NewScanner(out)
	for scanner.Scan() {
		if rank, ok := recordLevel(scanner.Text()); !ok || rank >= minRank {
			fmt.Println(scanner.Text())
		}
	}
	if err := tailCmd.Wait(); err != nil {
		log.Fatalf("tail failed: %v", err)
	}
}
