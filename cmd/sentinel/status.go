package main

import (
	"sort"

	"github.com/spf13/cobra"

	"sentinel/internal/model"
	"sentinel/internal/project"
	"sentinel/internal/storage"
	"sentinel/internal/version"
)

var (
	statusFormat string
	statusRuns   int
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the project identity and store statistics",
	Long: `Show the project identity and how many files, symbols and relationships
the store holds, broken down by language.

Examples:
  sentinel status
  sentinel status --format=human`,
	Args: cobra.NoArgs,
	Run:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusFormat, "format", "json", "Output format (json, human)")
	statusCmd.Flags().IntVar(&statusRuns, "runs", 5, "Number of recent index runs to show")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	ctx, cancel := newContext()
	defer cancel()
	env := mustGetEnv(ctx)
	defer env.Close()

	st, err := env.engine.Stats(ctx)
	if err != nil {
		fail("Error reading store", err)
	}
	resp := &StatusResponseCLI{
		Version:  version.Version,
		Project:  env.engine.Project(),
		Database: env.engine.Store().Path(),
		Stats:    st,
	}
	if statusRuns > 0 {
		runs, err := env.engine.RecentRuns(ctx, statusRuns)
		if err != nil {
			env.logger.Warn("Failed to read index runs", "error", err.Error())
		}
		resp.RecentRuns = runs
	}
	printOutput(resp, statusFormat)
}

// StatusResponseCLI describes the project and its store
type StatusResponseCLI struct {
	Version    string              `json:"version"`
	Project    *project.Identity   `json:"project"`
	Database   string              `json:"database"`
	Stats      *storage.StoreStats `json:"stats"`
	RecentRuns []storage.IndexRun  `json:"recentRuns,omitempty"`
}

func sortedLanguages(counts map[model.Language]int) []model.Language {
	langs := make([]model.Language, 0, len(counts))
	for l := range counts {
		langs = append(langs, l)
	}
	sort.Slice(langs, func(i, j int) bool { return langs[i] < langs[j] })
	return langs
}
