package main

import (
	"sort"
	"time"

	"github.com/spf13/cobra"

	"sentinel/internal/complexity"
)

var (
	complexityFormat           string
	complexityIncludeFunctions bool
	complexitySortBy           string
	complexityLimit            int
)

var complexityCmd = &cobra.Command{
	Use:   "complexity <file>",
	Short: "Get code complexity metrics for a source file",
	Long: `Get per-function cyclomatic and cognitive complexity using the grammar
parser, plus file-level aggregates. Requires a cgo build.

Examples:
  sentinel complexity internal/api/handler.go
  sentinel complexity --include-functions=false src/main.ts
  sentinel complexity --sort=cognitive --limit=10 pkg/service.go`,
	Args: cobra.ExactArgs(1),
	Run:  runComplexity,
}

func init() {
	complexityCmd.Flags().StringVar(&complexityFormat, "format", "json", "Output format (json, human)")
	complexityCmd.Flags().BoolVar(&complexityIncludeFunctions, "include-functions", true, "Include per-function complexity")
	complexityCmd.Flags().StringVar(&complexitySortBy, "sort", "cyclomatic", "Sort by: cyclomatic, cognitive, or name")
	complexityCmd.Flags().IntVar(&complexityLimit, "limit", 0, "Limit number of functions shown (0 for all)")
	rootCmd.AddCommand(complexityCmd)
}

func runComplexity(cmd *cobra.Command, args []string) {
	start := time.Now()
	ctx, cancel := newContext()
	defer cancel()
	env := mustGetEnv(ctx)
	defer env.Close()

	fc, err := env.engine.Complexity(ctx, args[0])
	if err != nil {
		fail("Error analyzing file", err)
	}
	printOutput(convertComplexityResponse(fc), complexityFormat)

	env.logger.Debug("Complexity analysis completed",
		"file", fc.Path,
		"functionCount", fc.FunctionCount,
		"maxCyclomatic", fc.MaxCyclomatic,
		"maxCognitive", fc.MaxCognitive,
		"duration", time.Since(start).Milliseconds(),
	)
}

// ComplexityResponseCLI contains complexity results for CLI output
type ComplexityResponseCLI struct {
	File      string                  `json:"file"`
	Language  string                  `json:"language"`
	Summary   ComplexitySummaryCLI    `json:"summary"`
	Functions []FunctionComplexityCLI `json:"functions,omitempty"`
}

type ComplexitySummaryCLI struct {
	FunctionCount     int     `json:"functionCount"`
	TotalCyclomatic   int     `json:"totalCyclomatic"`
	TotalCognitive    int     `json:"totalCognitive"`
	MaxCyclomatic     int     `json:"maxCyclomatic"`
	MaxCognitive      int     `json:"maxCognitive"`
	AverageCyclomatic float64 `json:"averageCyclomatic"`
	AverageCognitive  float64 `json:"averageCognitive"`
}

type FunctionComplexityCLI struct {
	Name       string `json:"name"`
	StartLine  int    `json:"startLine"`
	EndLine    int    `json:"endLine"`
	Cyclomatic int    `json:"cyclomatic"`
	Cognitive  int    `json:"cognitive"`
	Risk       string `json:"risk"`
}

func convertComplexityResponse(fc *complexity.FileComplexity) *ComplexityResponseCLI {
	result := &ComplexityResponseCLI{
		File:     fc.Path,
		Language: string(fc.Language),
		Summary: ComplexitySummaryCLI{
			FunctionCount:     fc.FunctionCount,
			TotalCyclomatic:   fc.TotalCyclomatic,
			TotalCognitive:    fc.TotalCognitive,
			MaxCyclomatic:     fc.MaxCyclomatic,
			MaxCognitive:      fc.MaxCognitive,
			AverageCyclomatic: fc.AverageCyclomatic,
			AverageCognitive:  fc.AverageCognitive,
		},
	}
	if !complexityIncludeFunctions {
		return result
	}

	functions := make([]FunctionComplexityCLI, 0, len(fc.Functions))
	for _, f := range fc.Functions {
		functions = append(functions, FunctionComplexityCLI{
			Name:       f.Name,
			StartLine:  f.StartLine,
			EndLine:    f.EndLine,
			Cyclomatic: f.Cyclomatic,
			Cognitive:  f.Cognitive,
			Risk:       string(f.Risk),
		})
	}
	switch complexitySortBy {
	case "cognitive":
		sort.SliceStable(functions, func(i, j int) bool { return functions[i].Cognitive > functions[j].Cognitive })
	case "name":
		sort.SliceStable(functions, func(i, j int) bool { return functions[i].Name < functions[j].Name })
	default:
		sort.SliceStable(functions, func(i, j int) bool { return functions[i].Cyclomatic > functions[j].Cyclomatic })
	}
	if complexityLimit > 0 && len(functions) > complexityLimit {
		functions = functions[:complexityLimit]
	}
	result.Functions = functions
	return result
}
