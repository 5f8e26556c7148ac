package main

import (
	"time"

	"github.com/spf13/cobra"

	"sentinel/internal/model"
	"sentinel/internal/patterns"
)

var (
	patternsFormat   string
	patternsLang     string
	patternsList     bool
	patternsCategory string
	patternsLimit    int
)

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Detect architectural patterns in the indexed project",
	Long: `Score the pattern catalog against the indexed symbols and relationships.

Each language is analyzed on its own. Results are sorted by confidence and
only instances above the configured threshold are reported. The catalog is
the built-in one, extended by .sentinel/patterns.yaml when present.

Examples:
  sentinel patterns
  sentinel patterns --lang=java --category=creational
  sentinel patterns --list --format=human`,
	Args: cobra.NoArgs,
	Run:  runPatterns,
}

func init() {
	patternsCmd.Flags().StringVar(&patternsFormat, "format", "json", "Output format (json, human)")
	patternsCmd.Flags().StringVar(&patternsLang, "lang", "", "Only analyze one language")
	patternsCmd.Flags().BoolVar(&patternsList, "list", false, "List the pattern catalog instead of detecting")
	patternsCmd.Flags().StringVar(&patternsCategory, "category", "", "Only report one category")
	patternsCmd.Flags().IntVar(&patternsLimit, "limit", 0, "Limit number of instances shown (0 for all)")
	rootCmd.AddCommand(patternsCmd)
}

func runPatterns(cmd *cobra.Command, args []string) {
	start := time.Now()
	ctx, cancel := newContext()
	defer cancel()
	env := mustGetEnv(ctx)
	defer env.Close()

	if patternsList {
		printOutput(convertCatalogResponse(env.engine.PatternDefinitions()), patternsFormat)
		return
	}

	detected, err := env.engine.DetectPatterns(ctx, model.Language(patternsLang))
	if err != nil {
		fail("Error detecting patterns", err)
	}
	resp := &PatternsResponseCLI{Language: patternsLang, Patterns: filterPatterns(detected, patternsCategory, patternsLimit)}
	printOutput(resp, patternsFormat)

	env.logger.Debug("Pattern detection completed",
		"language", patternsLang,
		"detected", len(detected),
		"reported", len(resp.Patterns),
		"duration", time.Since(start).Milliseconds())
}

// PatternsResponseCLI contains detected pattern instances
type PatternsResponseCLI struct {
	Language string                     `json:"language,omitempty"`
	Patterns []patterns.DetectedPattern `json:"patterns"`
}

// CatalogResponseCLI lists the loaded pattern definitions
type CatalogResponseCLI struct {
	Definitions []CatalogEntryCLI `json:"definitions"`
}

type CatalogEntryCLI struct {
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Description string   `json:"description,omitempty"`
	Roles       []string `json:"roles"`
}

func filterPatterns(in []patterns.DetectedPattern, category string, limit int) []patterns.DetectedPattern {
	out := make([]patterns.DetectedPattern, 0, len(in))
	for _, p := range in {
		if category != "" && p.Category != category {
			continue
		}
		out = append(out, p)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func convertCatalogResponse(defs []patterns.Definition) *CatalogResponseCLI {
	resp := &CatalogResponseCLI{Definitions: make([]CatalogEntryCLI, 0, len(defs))}
	for _, d := range defs {
		roles := make([]string, 0, len(d.Roles))
		for _, r := range d.Roles {
			roles = append(roles, r.Name)
		}
		resp.Definitions = append(resp.Definitions, CatalogEntryCLI{
			Name:        d.Name,
			Category:    d.Category,
			Description: d.Description,
			Roles:       roles,
		})
	}
	return resp
}
