package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var pruneRetention time.Duration

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Drop old index run records and rebuild the search index",
	Long: `Delete index run records older than the retention window and rebuild the
symbol name search index from the stored symbols.

Examples:
  sentinel prune
  sentinel prune --retention=168h`,
	Args: cobra.NoArgs,
	Run:  runPrune,
}

func init() {
	pruneCmd.Flags().DurationVar(&pruneRetention, "retention", 30*24*time.Hour, "Keep runs newer than this")
	rootCmd.AddCommand(pruneCmd)
}

func runPrune(cmd *cobra.Command, args []string) {
	ctx, cancel := newContext()
	defer cancel()
	env := mustGetEnv(ctx)
	defer env.Close()

	n, err := env.engine.Prune(ctx, pruneRetention)
	if err != nil {
		fail("Error pruning store", err)
	}
	fmt.Printf("✓ Dropped %d index runs, search index rebuilt\n", n)
}
