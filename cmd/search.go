package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/tableclothml/odocsite/internal/library"
	"github.com/tableclothml/odocsite/internal/rpc"
	"github.com/tableclothml/odocsite/internal/server"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search documented names",
	Long: `Search values, types and modules by name. Dotted queries narrow by
module, e.g. "String.to". Uses the symbol index when it is current and the
sidebar filter otherwise.`,
	Example: `  odocsite search toList
  odocsite search --variant rescript Option.map
  odocsite search --server localhost:8000 --limit 5 map`,
	Args: cobra.ExactArgs(1),
	Run:  runSearch,
}

var (
	searchVariant string
	searchLimit   int
	searchServer  string
	searchJSON    bool
)

func init() {
	searchCmd.Flags().StringVar(&searchVariant, "variant", "", "variant to search (default: all)")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 10, "max results per variant")
	searchCmd.Flags().StringVar(&searchServer, "server", "", "query a running server")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output as JSON")
}

type variantResults struct {
	Variant string             `json:"variant"`
	Results []rpc.SearchResult `json:"results"`
}

func runSearch(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	query := args[0]
	var all []variantResults

	if searchServer != "" {
		client := server.NewClient(searchServer)
		variants := []string{searchVariant}
		if searchVariant == "" {
			resp, err := client.Variants(ctx)
			if err != nil {
				log.Fatalf("listing variants: %v", err)
			}
			variants = variants[:0]
			for _, v := range resp.Variants {
				variants = append(variants, v.Name)
			}
		}
		for _, v := range variants {
			resp, err := client.Search(ctx, v, query, searchLimit)
			if err != nil {
				log.Fatalf("search failed: %v", err)
			}
			all = append(all, variantResults{Variant: v, Results: resp.Results})
		}
	} else {
		cfg := loadConfig()
		lib := openLibrary(cfg, library.Options{})
		database := openIndex()
		if database != nil {
			defer database.Close()
		}
		variants := []string{searchVariant}
		if searchVariant == "" {
			variants = cfg.VariantNames()
		}
		for _, v := range variants {
			p := loadPage(lib, v)
			rows, err := p.Search(database, query, searchLimit)
			if err != nil {
				log.Fatalf("search failed: %v", err)
			}
			vr := variantResults{Variant: v}
			for _, a := range rows {
				vr.Results = append(vr.Results, rpc.SearchResult{
					Anchor:    a.Anchor,
					Kind:      a.Kind,
					Name:      a.Name,
					Module:    a.Module,
					Signature: a.Signature,
					Summary:   a.Summary,
					URL:       "odoc://" + v + "/" + a.Anchor,
				})
			}
			all = append(all, vr)
		}
	}

	if searchJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(all)
		return
	}

	found := false
	for _, vr := range all {
		for i, r := range vr.Results {
			found = true
			fmt.Printf("%d. %s (%s) [%s]\n", i+1, r.Anchor, r.Kind, vr.Variant)
			if r.Signature != "" {
				fmt.Printf("   %s\n", r.Signature)
			}
			if r.Summary != "" {
				fmt.Printf("   %s\n", r.Summary)
			}
		}
	}
	if !found {
		fmt.Println("no results")
	}
}
