package main

import (
	"time"

	"github.com/spf13/cobra"
)

var parseFormat string

var parseCmd = &cobra.Command{
	Use:   "parse <file>",
	Short: "Parse one file and print its symbols",
	Long: `Parse a single file through the parser fallback ladder and print the
extracted symbols, relationships and confidence vector. The store is not
modified.

Examples:
  sentinel parse src/server.cpp
  sentinel parse --format=human internal/api/handler.go`,
	Args: cobra.ExactArgs(1),
	Run:  runParse,
}

func init() {
	parseCmd.Flags().StringVar(&parseFormat, "format", "json", "Output format (json, human)")
	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) {
	start := time.Now()
	ctx, cancel := newContext()
	defer cancel()
	env := mustGetEnv(ctx)
	defer env.Close()

	mod, err := env.engine.ParseFile(ctx, args[0])
	if err != nil {
		fail("Error parsing file", err)
	}
	printOutput(mod, parseFormat)

	env.logger.Debug("Parse completed",
		"file", mod.FilePath,
		"parser", mod.ParserUsed,
		"symbols", len(mod.Symbols()),
		"duration", time.Since(start).Milliseconds())
}
