package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"sentinel/internal/graph"
)

var (
	callgraphDirection string
	callgraphDepth     int
	callgraphFormat    string
)

var callgraphCmd = &cobra.Command{
	Use:   "callgraph <symbol>",
	Short: "Get caller/callee relationships for a symbol",
	Long: `Show the callers and callees of a symbol up to a given depth, with its
fan-in, fan-out, recursion and importance in the project's call graph.

The symbol may be a symbol id or a qualified name. When nothing matches,
similarly named symbols are suggested.

Direction options:
  - callers: Show only functions that call this symbol
  - callees: Show only functions called by this symbol
  - both: Show both callers and callees (default)

Examples:
  sentinel callgraph api.Server.Handle
  sentinel callgraph --direction=callers --depth=3 util.Parse
  sentinel callgraph --format=human 'Engine::run'`,
	Args: cobra.ExactArgs(1),
	Run:  runCallgraph,
}

func init() {
	callgraphCmd.Flags().StringVar(&callgraphDirection, "direction", "both", "Direction to traverse (callers, callees, both)")
	callgraphCmd.Flags().IntVar(&callgraphDepth, "depth", 1, "Maximum depth to traverse")
	callgraphCmd.Flags().StringVar(&callgraphFormat, "format", "json", "Output format (json, human)")
	rootCmd.AddCommand(callgraphCmd)
}

func runCallgraph(cmd *cobra.Command, args []string) {
	start := time.Now()
	switch callgraphDirection {
	case "both", "callers", "callees":
	default:
		fmt.Fprintf(os.Stderr, "Error: invalid direction %q (use callers, callees or both)\n", callgraphDirection)
		os.Exit(2)
	}

	ctx, cancel := newContext()
	defer cancel()
	env := mustGetEnv(ctx)
	defer env.Close()

	cg, err := env.engine.CallGraph(ctx, args[0], callgraphDepth)
	if err != nil {
		fail("Error getting call graph", err)
	}
	printOutput(convertCallgraphResponse(cg, callgraphDirection), callgraphFormat)

	env.logger.Debug("Callgraph query completed",
		"symbol", args[0],
		"direction", callgraphDirection,
		"callers", len(cg.Callers),
		"callees", len(cg.Callees),
		"duration", time.Since(start).Milliseconds(),
	)
}

// CallgraphResponseCLI contains call graph results for CLI output
type CallgraphResponseCLI struct {
	Target    string                 `json:"target"`
	TargetID  string                 `json:"targetId"`
	Direction string                 `json:"direction"`
	Callers   []CallSiteCLI          `json:"callers,omitempty"`
	Callees   []CallSiteCLI          `json:"callees,omitempty"`
	Metrics   graph.CallGraphMetrics `json:"metrics"`
}

// CallSiteCLI is one caller or callee
type CallSiteCLI struct {
	Symbol   string `json:"symbol"`
	ID       string `json:"id,omitempty"`
	Kind     string `json:"kind,omitempty"`
	FilePath string `json:"filePath,omitempty"`
	Line     int    `json:"line,omitempty"`
	Depth    int    `json:"depth"`
}

func convertCallgraphResponse(cg *graph.CallGraph, direction string) *CallgraphResponseCLI {
	resp := &CallgraphResponseCLI{
		Target:    cg.Target.QualifiedName,
		TargetID:  cg.Target.ID,
		Direction: direction,
		Metrics:   cg.Metrics,
	}
	if direction != "callees" {
		resp.Callers = convertCallSites(cg.Callers)
	}
	if direction != "callers" {
		resp.Callees = convertCallSites(cg.Callees)
	}
	return resp
}

func convertCallSites(sites []graph.CallSite) []CallSiteCLI {
	out := make([]CallSiteCLI, 0, len(sites))
	for _, s := range sites {
		out = append(out, CallSiteCLI{
			Symbol:   s.Symbol,
			ID:       s.ID,
			Kind:     string(s.Kind),
			FilePath: s.FilePath,
			Line:     s.Line,
			Depth:    s.Depth,
		})
	}
	return out
}
