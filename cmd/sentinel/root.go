package main

import (
	"github.com/spf13/cobra"

	"sentinel/internal/version"
)

var (
	// rootFlag is the project root; empty means the working directory.
	rootFlag    string
	verboseFlag int
	quietFlag   bool
)

var rootCmd = &cobra.Command{
	Use:   "sentinel",
	Short: "Sentinel - cross-language source intelligence",
	Long: `Sentinel parses source files in many languages into one symbol and
relationship graph, stores it per project and answers analysis queries over
it: call graphs, control flow and complexity, taint flows, architectural
patterns and cross-language process spawns.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("sentinel version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&rootFlag, "root", "", "Project root (default: working directory)")
	rootCmd.PersistentFlags().CountVarP(&verboseFlag, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Only log errors")
}
