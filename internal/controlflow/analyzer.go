package controlflow

import (
	"log/slog"
	"strings"

	"sentinel/internal/complexity"
	"sentinel/internal/config"
	"sentinel/internal/model"
	"sentinel/internal/slogutil"
)

// Analyzer runs the full control-flow analysis on functions.
type Analyzer struct {
	cfg    config.ControlFlowConfig
	logger *slog.Logger
}

// NewAnalyzer creates an analyzer. Non-positive limits fall back to defaults.
func NewAnalyzer(cfg config.ControlFlowConfig, logger *slog.Logger) *Analyzer {
	def := config.DefaultConfig().ControlFlow
	if cfg.MaxPaths <= 0 {
		cfg.MaxPaths = def.MaxPaths
	}
	if cfg.MaxHotPaths <= 0 {
		cfg.MaxHotPaths = def.MaxHotPaths
	}
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	return &Analyzer{cfg: cfg, logger: logger}
}

// AnalyzeSource extracts and analyzes one function from its source text.
func (a *Analyzer) AnalyzeSource(name string, startLine int, source string, lang model.Language) *Analysis {
	return a.Analyze(Extract(name, startLine, source, lang))
}

// Analyze builds the graph of fn and derives every report from it.
func (a *Analyzer) Analyze(fn *Function) *Analysis {
	g := Build(fn)
	vars := Variables(fn, g)
	bottlenecks := Bottlenecks(fn, g)

	res := &Analysis{
		Function:      fn.Name,
		StartLine:     fn.StartLine,
		EndLine:       fn.EndLine,
		Graph:         g,
		Metrics:       complexity.Compute(strings.Join(fn.Lines, "\n"), g.Shape(fn.Language)),
		Variables:     vars,
		DataFlows:     DataFlows(vars, g),
		TaintFlows:    Taint(fn, vars, g),
		DeadCode:      DeadCode(g),
		HotPaths:      HotPaths(g, a.cfg.MaxPaths, a.cfg.MaxHotPaths),
		Bottlenecks:   bottlenecks,
		Hotspots:      Hotspots(g, bottlenecks),
		Optimizations: Optimizations(g, bottlenecks),
	}

	a.logger.Debug("Control flow analyzed",
		"function", fn.Name,
		"nodes", len(g.Nodes),
		"edges", len(g.Edges),
		"cyclomatic", res.Metrics.Cyclomatic,
		"deadNodes", len(res.DeadCode),
		"taintFlows", len(res.TaintFlows),
	)
	return res
}

// Shape reports the graph size for cyclomatic complexity, E - N + 2, with
// all exit nodes counted as one.
func (g *Graph) Shape(lang model.Language) complexity.Shape {
	exits := 0
	for _, n := range g.Nodes {
		if n.Type == NodeExit {
			exits++
		}
	}
	nodes := len(g.Nodes)
	if exits > 1 {
		nodes -= exits - 1
	}
	return complexity.Shape{Language: lang, Nodes: nodes, Edges: len(g.Edges)}
}
