package main

import (
	"time"

	"github.com/spf13/cobra"
)

var linksFormat string

var linksCmd = &cobra.Command{
	Use:   "links",
	Short: "Report cross-language links in the indexed project",
	Long: `Detect edges that cross a language boundary (API calls matched to their
handlers, foreign-function bindings, imports and process spawns), classify
them and score how tightly the project's languages are coupled.

Examples:
  sentinel links
  sentinel links --format=human`,
	Args: cobra.NoArgs,
	Run:  runLinks,
}

func init() {
	linksCmd.Flags().StringVar(&linksFormat, "format", "json", "Output format (json, human)")
	rootCmd.AddCommand(linksCmd)
}

func runLinks(cmd *cobra.Command, args []string) {
	start := time.Now()
	ctx, cancel := newContext()
	defer cancel()
	env := mustGetEnv(ctx)
	defer env.Close()

	report, err := env.engine.AnalyzeCrossLanguage(ctx)
	if err != nil {
		fail("Error analyzing cross-language links", err)
	}
	printOutput(report, linksFormat)

	env.logger.Debug("Cross-language analysis completed",
		"edges", report.Metrics.CrossLanguageEdges,
		"boundaries", report.Metrics.Boundaries,
		"duration", time.Since(start).Milliseconds())
}
