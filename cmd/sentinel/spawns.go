package main

import (
	"time"

	"github.com/spf13/cobra"

	"sentinel/internal/crosslang"
)

var (
	spawnsFormat    string
	spawnsCrossOnly bool
	spawnsTree      bool
)

var spawnsCmd = &cobra.Command{
	Use:   "spawns",
	Short: "Find process spawns and the chains they form",
	Long: `Scan the indexed files for process-creation calls, guess the language of
each spawned command and link the spawns into chains and a process tree.

Spawn signatures come from the built-in catalog, extended by
.sentinel/SPAWNS.toml when present.

Examples:
  sentinel spawns
  sentinel spawns --cross-language --format=human`,
	Args: cobra.NoArgs,
	Run:  runSpawns,
}

func init() {
	spawnsCmd.Flags().StringVar(&spawnsFormat, "format", "json", "Output format (json, human)")
	spawnsCmd.Flags().BoolVar(&spawnsCrossOnly, "cross-language", false, "Only report spawns that change language")
	spawnsCmd.Flags().BoolVar(&spawnsTree, "tree", false, "Include the process tree")
	rootCmd.AddCommand(spawnsCmd)
}

func runSpawns(cmd *cobra.Command, args []string) {
	start := time.Now()
	ctx, cancel := newContext()
	defer cancel()
	env := mustGetEnv(ctx)
	defer env.Close()

	res, err := env.engine.AnalyzeSpawns(ctx)
	if err != nil {
		fail("Error analyzing spawns", err)
	}
	printOutput(convertSpawnsResponse(res, spawnsCrossOnly, spawnsTree), spawnsFormat)

	env.logger.Debug("Spawn analysis completed",
		"spawns", res.Statistics.Total,
		"chains", len(res.SpawnChains),
		"duration", time.Since(start).Milliseconds())
}

// SpawnsResponseCLI contains detected spawns for CLI output
type SpawnsResponseCLI struct {
	Spawns      []crosslang.Spawn         `json:"spawns"`
	Chains      []crosslang.SpawnChain    `json:"chains,omitempty"`
	ProcessTree []*crosslang.ProcessNode  `json:"processTree,omitempty"`
	Statistics  crosslang.SpawnStatistics `json:"statistics"`
}

func convertSpawnsResponse(res *crosslang.SpawnAnalysisResult, crossOnly, tree bool) *SpawnsResponseCLI {
	resp := &SpawnsResponseCLI{
		Spawns:     make([]crosslang.Spawn, 0, len(res.Spawns)),
		Statistics: res.Statistics,
	}
	for _, s := range res.Spawns {
		if crossOnly && (s.ChildLanguage == "" || s.ChildLanguage == s.ParentLanguage) {
			continue
		}
		resp.Spawns = append(resp.Spawns, s)
	}
	for _, c := range res.SpawnChains {
		if crossOnly && !c.CrossesLanguages {
			continue
		}
		resp.Chains = append(resp.Chains, c)
	}
	if tree {
		resp.ProcessTree = res.ProcessTree
	}
	return resp
}
