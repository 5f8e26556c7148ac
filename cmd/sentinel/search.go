package main

import (
	"time"

	"github.com/spf13/cobra"

	"sentinel/internal/storage"
)

var (
	searchFormat string
	searchLimit  int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search indexed symbols by name",
	Long: `Search the indexed symbols by name. Exact matches rank first, then
prefix and full-text matches.

Examples:
  sentinel search Handler
  sentinel search --limit=50 --format=human parse`,
	Args: cobra.ExactArgs(1),
	Run:  runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&searchFormat, "format", "json", "Output format (json, human)")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 20, "Maximum results")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	start := time.Now()
	ctx, cancel := newContext()
	defer cancel()
	env := mustGetEnv(ctx)
	defer env.Close()

	results, err := env.engine.Search(ctx, args[0], searchLimit)
	if err != nil {
		fail("Error searching symbols", err)
	}
	printOutput(&SearchResponseCLI{Query: args[0], Results: results}, searchFormat)

	env.logger.Debug("Search completed",
		"query", args[0],
		"results", len(results),
		"duration", time.Since(start).Milliseconds())
}

// SearchResponseCLI contains symbol search results
type SearchResponseCLI struct {
	Query   string                 `json:"query"`
	Results []storage.SearchResult `json:"results"`
}
