package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"sentinel/internal/controlflow"
	"sentinel/internal/model"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatHuman OutputFormat = "human"
)

// FormatResponse formats a response according to the specified format
func FormatResponse(resp any, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatHuman:
		return formatHuman(resp)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// formatJSON formats the response as JSON
func formatJSON(resp any) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

// formatHuman formats the response in human-readable format
func formatHuman(resp any) (string, error) {
	switch v := resp.(type) {
	case *IndexResponseCLI:
		return formatIndexHuman(v)
	case *model.ModuleInfo:
		return formatModuleHuman(v)
	case *ComplexityResponseCLI:
		return formatComplexityHuman(v)
	case *controlflow.Analysis:
		return formatFlowHuman(v)
	case *PatternsResponseCLI:
		return formatPatternsHuman(v)
	case *CatalogResponseCLI:
		return formatCatalogHuman(v)
	case *CallgraphResponseCLI:
		return formatCallgraphHuman(v)
	case *SpawnsResponseCLI:
		return formatSpawnsHuman(v)
	case *ExportResponseCLI:
		return formatExportHuman(v)
	case *StatusResponseCLI:
		return formatStatusHuman(v)
	case *SearchResponseCLI:
		return formatSearchHuman(v)
	case *DuplicatesResponseCLI:
		return formatDuplicatesHuman(v)
	default:
		// For unknown types, fall back to JSON
		return formatJSON(resp)
	}
}

func header(b *strings.Builder, title string) {
	b.WriteString(title + "\n")
	b.WriteString(strings.Repeat("=", 60) + "\n\n")
}

func formatIndexHuman(resp *IndexResponseCLI) (string, error) {
	var b strings.Builder
	header(&b, "Index Run "+resp.RunID)

	b.WriteString(fmt.Sprintf("Files: %d (%d indexed, %d unchanged, %d removed)\n",
		resp.Files, resp.Indexed, resp.Skipped, resp.Removed))
	b.WriteString(fmt.Sprintf("Symbols: %d\n", resp.Symbols))
	b.WriteString(fmt.Sprintf("Relationships: %d\n", resp.Relationships))
	b.WriteString(fmt.Sprintf("Duration: %dms\n", resp.DurationMs))
	if resp.Canceled {
		b.WriteString("\n! Interrupted; remaining files were not indexed\n")
	}

	if len(resp.Errors) > 0 {
		b.WriteString(fmt.Sprintf("\nFailed files (%d):\n", len(resp.Errors)))
		for _, e := range resp.Errors {
			b.WriteString(fmt.Sprintf("  ✗ %s: %s\n", e.Path, e.Message))
		}
	}
	return b.String(), nil
}

func formatModuleHuman(mod *model.ModuleInfo) (string, error) {
	var b strings.Builder
	header(&b, fmt.Sprintf("%s (%s)", mod.FilePath, mod.Language))

	b.WriteString(fmt.Sprintf("Parser: %s\n", mod.ParserUsed))
	b.WriteString(fmt.Sprintf("Confidence: %.2f (%s)\n", mod.Confidence.Overall, mod.Confidence.Quality))
	b.WriteString(fmt.Sprintf("Lines: %d\n\n", mod.LineCount))

	syms := mod.Symbols()
	b.WriteString(fmt.Sprintf("Symbols (%d):\n", len(syms)))
	for _, s := range syms {
		b.WriteString(fmt.Sprintf("  %-10s %s  %s:%d\n", s.Kind, s.QualifiedName, s.FilePath, s.Line))
	}

	if len(mod.Relationships) > 0 {
		b.WriteString(fmt.Sprintf("\nRelationships (%d):\n", len(mod.Relationships)))
		for _, r := range mod.Relationships {
			b.WriteString(fmt.Sprintf("  %s -%s-> %s\n", r.FromName, r.Type, r.ToName))
		}
	}
	if len(mod.Unresolved) > 0 {
		b.WriteString(fmt.Sprintf("\nUnresolved: %s\n", strings.Join(mod.Unresolved, ", ")))
	}
	for _, n := range mod.Notes {
		b.WriteString(fmt.Sprintf("! %s\n", n))
	}
	return b.String(), nil
}

func formatComplexityHuman(resp *ComplexityResponseCLI) (string, error) {
	var b strings.Builder
	header(&b, fmt.Sprintf("Complexity: %s (%s)", resp.File, resp.Language))

	s := resp.Summary
	b.WriteString(fmt.Sprintf("Functions: %d\n", s.FunctionCount))
	b.WriteString(fmt.Sprintf("Cyclomatic: avg %.1f, max %d, total %d\n", s.AverageCyclomatic, s.MaxCyclomatic, s.TotalCyclomatic))
	b.WriteString(fmt.Sprintf("Cognitive: avg %.1f, max %d, total %d\n\n", s.AverageCognitive, s.MaxCognitive, s.TotalCognitive))

	for _, f := range resp.Functions {
		b.WriteString(fmt.Sprintf("  %-30s L%d-%d  cyclo %d  cog %d  [%s]\n",
			f.Name, f.StartLine, f.EndLine, f.Cyclomatic, f.Cognitive, f.Risk))
	}
	return b.String(), nil
}

func formatFlowHuman(a *controlflow.Analysis) (string, error) {
	var b strings.Builder
	header(&b, fmt.Sprintf("Control Flow: %s (lines %d-%d)", a.Function, a.StartLine, a.EndLine))

	m := a.Metrics
	b.WriteString(fmt.Sprintf("Cyclomatic: %d\n", m.Cyclomatic))
	b.WriteString(fmt.Sprintf("Cognitive: %d\n", m.Cognitive))
	b.WriteString(fmt.Sprintf("Max nesting: %d\n", m.MaxNesting))
	b.WriteString(fmt.Sprintf("Maintainability: %.1f\n", m.Maintainability))
	b.WriteString(fmt.Sprintf("Risk: %s\n", m.Risk))
	if a.Graph != nil {
		b.WriteString(fmt.Sprintf("Graph: %d nodes, %d edges\n", len(a.Graph.Nodes), len(a.Graph.Edges)))
	}

	if len(a.DeadCode) > 0 {
		b.WriteString("\nUnreachable:\n")
		for _, d := range a.DeadCode {
			b.WriteString(fmt.Sprintf("  %s lines %d-%d\n", d.Type, d.StartLine, d.EndLine))
		}
	}
	if len(a.TaintFlows) > 0 {
		b.WriteString("\nTaint flows:\n")
		for _, t := range a.TaintFlows {
			mark := "✗"
			if t.Sanitized {
				mark = "✓"
			}
			b.WriteString(fmt.Sprintf("  %s %s: line %d -> line %d\n", mark, t.Variable, t.Source.Line, t.Sink.Line))
		}
	}
	if len(a.Bottlenecks) > 0 {
		b.WriteString("\nBottlenecks:\n")
		for _, bn := range a.Bottlenecks {
			b.WriteString(fmt.Sprintf("  [%s] line %d %s: %s\n", bn.Severity, bn.Line, bn.Kind, bn.Description))
		}
	}
	if len(a.Optimizations) > 0 {
		b.WriteString("\nSuggestions:\n")
		for _, o := range a.Optimizations {
			b.WriteString(fmt.Sprintf("  line %d: %s\n", o.Line, o.Suggestion))
		}
	}
	return b.String(), nil
}

func formatPatternsHuman(resp *PatternsResponseCLI) (string, error) {
	var b strings.Builder
	header(&b, "Detected Patterns")
	b.WriteString(fmt.Sprintf("Found %d instances\n\n", len(resp.Patterns)))

	for i, p := range resp.Patterns {
		b.WriteString(fmt.Sprintf("%d. %s (%s) %.2f [%s]\n", i+1, p.Name, p.Category, p.Confidence, p.Quality))
		if p.Anchor != "" {
			b.WriteString(fmt.Sprintf("   Anchor: %s (%s)\n", p.Anchor, p.Language))
		}
		for _, issue := range p.Issues {
			b.WriteString(fmt.Sprintf("   ! %s\n", issue))
		}
		for _, rec := range p.Recommendations {
			b.WriteString(fmt.Sprintf("   - %s\n", rec))
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}

func formatCatalogHuman(resp *CatalogResponseCLI) (string, error) {
	var b strings.Builder
	header(&b, "Pattern Catalog")
	for _, d := range resp.Definitions {
		b.WriteString(fmt.Sprintf("  %-24s %-16s %s\n", d.Name, d.Category, d.Description))
	}
	return b.String(), nil
}

func formatCallgraphHuman(resp *CallgraphResponseCLI) (string, error) {
	var b strings.Builder
	header(&b, "Call Graph: "+resp.Target)

	m := resp.Metrics
	b.WriteString(fmt.Sprintf("Fan-in: %d, fan-out: %d, recursive: %v\n", m.FanIn, m.FanOut, m.Recursive))
	b.WriteString(fmt.Sprintf("Importance: %.2f, criticality: %.1f\n\n", m.Importance, m.Criticality))

	writeSites := func(title string, sites []CallSiteCLI) {
		b.WriteString(fmt.Sprintf("%s (%d):\n", title, len(sites)))
		for _, s := range sites {
			indent := strings.Repeat("  ", s.Depth)
			loc := ""
			if s.FilePath != "" {
				loc = fmt.Sprintf("  %s:%d", s.FilePath, s.Line)
			}
			b.WriteString(fmt.Sprintf("%s%s%s\n", indent, s.Symbol, loc))
		}
		b.WriteString("\n")
	}
	if resp.Direction != "callees" {
		writeSites("Callers", resp.Callers)
	}
	if resp.Direction != "callers" {
		writeSites("Callees", resp.Callees)
	}
	return b.String(), nil
}

func formatSpawnsHuman(resp *SpawnsResponseCLI) (string, error) {
	var b strings.Builder
	header(&b, "Process Spawns")

	st := resp.Statistics
	b.WriteString(fmt.Sprintf("Total: %d (%d sync, %d async, %d via shell)\n", st.Total, st.Synchronous, st.Asynchronous, st.Shell))
	b.WriteString(fmt.Sprintf("Cross-language: %d\n\n", st.CrossLanguage))

	for _, s := range resp.Spawns {
		lang := string(s.ChildLanguage)
		if lang == "" {
			lang = "?"
		}
		b.WriteString(fmt.Sprintf("  %s:%d %s -> %s (%s)\n", s.FilePath, s.Line, s.Function, s.Command, lang))
	}

	if len(resp.Chains) > 0 {
		b.WriteString("\nChains:\n")
		for _, c := range resp.Chains {
			suffix := ""
			if c.Cyclic {
				suffix = " (cycle)"
			} else if c.Truncated {
				suffix = " (truncated)"
			}
			b.WriteString(fmt.Sprintf("  %s%s\n", strings.Join(c.Nodes, " -> "), suffix))
		}
	}
	return b.String(), nil
}

func formatExportHuman(resp *ExportResponseCLI) (string, error) {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("✓ %s %s\n", resp.Action, resp.Path))
	b.WriteString(fmt.Sprintf("  Format: %s\n", resp.Format))
	if resp.Documents > 0 {
		b.WriteString(fmt.Sprintf("  Documents: %d\n", resp.Documents))
	}
	if resp.Files > 0 {
		b.WriteString(fmt.Sprintf("  Files: %d\n", resp.Files))
	}
	b.WriteString(fmt.Sprintf("  Symbols: %d\n", resp.Symbols))
	b.WriteString(fmt.Sprintf("  Relationships: %d\n", resp.Relationships))
	if resp.SizeBytes > 0 {
		b.WriteString(fmt.Sprintf("  Size: %s\n", formatBytes(resp.SizeBytes)))
	}
	return b.String(), nil
}

func formatStatusHuman(resp *StatusResponseCLI) (string, error) {
	var b strings.Builder
	header(&b, "Sentinel Status - v"+resp.Version)

	b.WriteString(fmt.Sprintf("Project: %s (%s)\n", resp.Project.Name, resp.Project.ID))
	b.WriteString(fmt.Sprintf("Root: %s\n", resp.Project.Root))
	b.WriteString(fmt.Sprintf("Database: %s\n\n", resp.Database))

	b.WriteString(fmt.Sprintf("Files: %d\n", resp.Stats.Files))
	b.WriteString(fmt.Sprintf("Symbols: %d\n", resp.Stats.Symbols))
	b.WriteString(fmt.Sprintf("Relationships: %d\n", resp.Stats.Relationships))
	if len(resp.Stats.ByLanguage) > 0 {
		b.WriteString("\nBy language:\n")
		for _, l := range sortedLanguages(resp.Stats.ByLanguage) {
			b.WriteString(fmt.Sprintf("  %-12s %d\n", l, resp.Stats.ByLanguage[l]))
		}
	}
	if len(resp.RecentRuns) > 0 {
		b.WriteString("\nRecent runs:\n")
		for _, r := range resp.RecentRuns {
			mark := "✓"
			if r.Canceled || r.FilesFailed > 0 {
				mark = "!"
			}
			b.WriteString(fmt.Sprintf("  %s %s  %d indexed, %d unchanged, %d failed (%dms)\n",
				mark, r.StartedAt.Local().Format("2006-01-02 15:04:05"),
				r.FilesIndexed, r.FilesSkipped, r.FilesFailed, r.Duration().Milliseconds()))
		}
	}
	return b.String(), nil
}

func formatSearchHuman(resp *SearchResponseCLI) (string, error) {
	var b strings.Builder
	header(&b, "Search Results for: "+resp.Query)
	b.WriteString(fmt.Sprintf("Found %d matches\n\n", len(resp.Results)))

	for i, r := range resp.Results {
		b.WriteString(fmt.Sprintf("%d. %s (%s)\n", i+1, r.QualifiedName, r.Kind))
		b.WriteString(fmt.Sprintf("   Location: %s:%d\n", r.FilePath, r.Line))
		b.WriteString(fmt.Sprintf("   Match: %s\n\n", r.MatchType))
	}
	return b.String(), nil
}

func formatDuplicatesHuman(resp *DuplicatesResponseCLI) (string, error) {
	var b strings.Builder
	header(&b, "Near-Duplicate Symbols")
	b.WriteString(fmt.Sprintf("Found %d pairs at similarity >= %.2f", resp.Total, resp.Threshold))
	if len(resp.Pairs) < resp.Total {
		b.WriteString(fmt.Sprintf(" (showing %d)", len(resp.Pairs)))
	}
	b.WriteString("\n\n")

	for i, d := range resp.Pairs {
		b.WriteString(fmt.Sprintf("%d. %s ~ %s (%.0f%%)\n", i+1, d.First.QualifiedName, d.Second.QualifiedName, d.Similarity.Overall*100))
		b.WriteString(fmt.Sprintf("   %s:%d\n   %s:%d\n", d.First.FilePath, d.First.Line, d.Second.FilePath, d.Second.Line))
		b.WriteString(fmt.Sprintf("   name %.2f, signature %.2f, structure %.2f, context %.2f\n\n",
			d.Similarity.Name, d.Similarity.Signature, d.Similarity.Structure, d.Similarity.Context))
	}
	return b.String(), nil
}

// formatBytes formats byte size in human-readable format
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
