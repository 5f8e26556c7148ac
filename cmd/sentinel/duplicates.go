package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"sentinel/internal/model"
	"sentinel/internal/patterns"
)

var (
	duplicatesFormat    string
	duplicatesLang      string
	duplicatesThreshold float64
	duplicatesLimit     int
)

var duplicatesCmd = &cobra.Command{
	Use:   "duplicates",
	Short: "Find near-duplicate functions and types",
	Long: `Compare the indexed definitions of each language pairwise and report the
pairs that look like the same code. Similarity weighs the name, the
signature, the size and language, and the file location.

Examples:
  sentinel duplicates
  sentinel duplicates --threshold=0.9 --lang=python --format=human`,
	Args: cobra.NoArgs,
	Run:  runDuplicates,
}

func init() {
	duplicatesCmd.Flags().StringVar(&duplicatesFormat, "format", "json", "Output format (json, human)")
	duplicatesCmd.Flags().StringVar(&duplicatesLang, "lang", "", "Only compare one language")
	duplicatesCmd.Flags().Float64Var(&duplicatesThreshold, "threshold", 0.85, "Minimum similarity (0-1)")
	duplicatesCmd.Flags().IntVar(&duplicatesLimit, "limit", 50, "Limit number of pairs shown (0 for all)")
	rootCmd.AddCommand(duplicatesCmd)
}

func runDuplicates(cmd *cobra.Command, args []string) {
	if duplicatesThreshold < 0 || duplicatesThreshold > 1 {
		fmt.Fprintf(os.Stderr, "Error: --threshold must be between 0 and 1, got %v\n", duplicatesThreshold)
		os.Exit(2)
	}
	start := time.Now()
	ctx, cancel := newContext()
	defer cancel()
	env := mustGetEnv(ctx)
	defer env.Close()

	dups, err := env.engine.FindDuplicates(ctx, model.Language(duplicatesLang), duplicatesThreshold)
	if err != nil {
		fail("Error comparing symbols", err)
	}
	total := len(dups)
	if duplicatesLimit > 0 && len(dups) > duplicatesLimit {
		dups = dups[:duplicatesLimit]
	}
	printOutput(&DuplicatesResponseCLI{Threshold: duplicatesThreshold, Total: total, Pairs: dups}, duplicatesFormat)

	env.logger.Debug("Duplicate search completed",
		"language", duplicatesLang,
		"pairs", total,
		"duration", time.Since(start).Milliseconds())
}

// DuplicatesResponseCLI contains near-duplicate symbol pairs
type DuplicatesResponseCLI struct {
	Threshold float64              `json:"threshold"`
	Total     int                  `json:"total"`
	Pairs     []patterns.Duplicate `json:"pairs"`
}
