package graph

import (
	"context"
	"sort"
	"sync"

	"sentinel/internal/errors"
	"sentinel/internal/model"
)

// CallSite is a caller or callee of a call-graph target.
type CallSite struct {
	Symbol     string           `json:"symbol"`
	ID         string           `json:"id,omitempty"`
	Kind       model.SymbolKind `json:"kind,omitempty"`
	FilePath   string           `json:"filePath,omitempty"`
	Line       int              `json:"line,omitempty"`
	Depth      int              `json:"depth"`
	Confidence float64          `json:"confidence"`
}

// CallGraphMetrics summarizes a symbol's position in the call graph.
type CallGraphMetrics struct {
	FanIn     int  `json:"fanIn"`
	FanOut    int  `json:"fanOut"`
	Recursive bool `json:"recursive"`
	// Importance is the symbol's PageRank relative to the highest-ranked
	// symbol, in [0,1].
	Importance  float64 `json:"importance"`
	Criticality float64 `json:"criticality"`
}

// CallGraph is the neighborhood of one symbol in the call graph.
type CallGraph struct {
	Target  model.Symbol     `json:"target"`
	Callers []CallSite       `json:"callers"`
	Callees []CallSite       `json:"callees"`
	Metrics CallGraphMetrics `json:"metrics"`
}

// Index answers call-graph queries over one snapshot.
type Index struct {
	snap  *model.Snapshot
	graph *Graph

	mu         sync.Mutex
	importance map[string]float64
}

// NewIndex builds the symbol graph for snap.
func NewIndex(snap *model.Snapshot, weights EdgeWeights) *Index {
	return &Index{snap: snap, graph: BuildSnapshot(snap, weights)}
}

// Graph returns the underlying symbol graph.
func (x *Index) Graph() *Graph {
	return x.graph
}

// CallGraphFor returns the callers and callees of target, which may be a
// symbol id or a qualified name, up to depth levels away (minimum 1).
func (x *Index) CallGraphFor(ctx context.Context, target string, depth int) (*CallGraph, error) {
	sym, ok := x.resolve(target)
	if !ok {
		return nil, errors.Newf(errors.SymbolNotFound, "symbol %q not found", target)
	}
	if depth < 1 {
		depth = 1
	}

	keys := symbolKeys(sym)
	cg := &CallGraph{
		Target:  sym,
		Callers: x.walk(keys, depth, true),
		Callees: x.walk(keys, depth, false),
	}

	for _, cs := range cg.Callers {
		if cs.Depth == 1 {
			cg.Metrics.FanIn++
		}
	}
	for _, cs := range cg.Callees {
		if cs.Depth == 1 {
			cg.Metrics.FanOut++
		}
	}
	cg.Metrics.Recursive = x.recursive(keys)
	fi, fo := float64(cg.Metrics.FanIn), float64(cg.Metrics.FanOut)
	cg.Metrics.Criticality = fi*fo + (fi+fo)/2

	imp, err := x.importanceOf(ctx, keys)
	if err != nil {
		return nil, err
	}
	cg.Metrics.Importance = imp
	return cg, nil
}

func (x *Index) resolve(target string) (model.Symbol, bool) {
	if s, ok := x.snap.ByID(target); ok {
		return s, true
	}
	matches := x.snap.ByName(target)
	if len(matches) == 0 {
		return model.Symbol{}, false
	}
	for _, s := range matches {
		if s.IsDefinition {
			return s, true
		}
	}
	return matches[0], true
}

// symbolKeys lists the node names a symbol may appear under.
func symbolKeys(s model.Symbol) []string {
	keys := []string{nodeKey(s)}
	if s.Name != "" && s.Name != keys[0] {
		keys = append(keys, s.Name)
	}
	return keys
}

// walk collects call sites breadth first. Each node is reported once, at
// its shallowest depth; the target itself is reported only when it calls
// itself directly.
func (x *Index) walk(start []string, depth int, reverse bool) []CallSite {
	seen := make(map[string]bool)
	startSet := make(map[string]bool)
	for _, k := range start {
		startSet[k] = true
	}
	var out []CallSite
	frontier := start
	for level := 1; level <= depth && len(frontier) > 0; level++ {
		var next []string
		for _, n := range frontier {
			var edges []Edge
			if reverse {
				edges = x.graph.In(n, model.RelCalls)
			} else {
				edges = x.graph.Out(n, model.RelCalls)
			}
			for _, e := range edges {
				other := e.To
				if reverse {
					other = e.From
				}
				if seen[other] || (startSet[other] && level > 1) {
					continue
				}
				seen[other] = true
				out = append(out, x.callSite(other, level, e.Weight))
				if !startSet[other] {
					next = append(next, other)
				}
			}
		}
		frontier = next
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Depth != out[j].Depth {
			return out[i].Depth < out[j].Depth
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out
}

func (x *Index) callSite(name string, depth int, weight float64) CallSite {
	cs := CallSite{Symbol: name, Depth: depth, Confidence: weight}
	if matches := x.snap.ByName(name); len(matches) > 0 {
		s := matches[0]
		cs.ID, cs.Kind, cs.FilePath, cs.Line = s.ID, s.Kind, s.FilePath, s.Line
	}
	return cs
}

// recursive reports whether any call path leads from the symbol back to
// itself.
func (x *Index) recursive(keys []string) bool {
	target := make(map[string]bool)
	for _, k := range keys {
		target[k] = true
	}
	visited := make(map[string]bool)
	stack := append([]string(nil), keys...)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range x.graph.Out(n, model.RelCalls) {
			if target[e.To] {
				return true
			}
			if !visited[e.To] {
				visited[e.To] = true
				stack = append(stack, e.To)
			}
		}
	}
	return false
}

// importanceOf ranks every node once per index with a uniform teleport
// vector and normalizes by the top score.
func (x *Index) importanceOf(ctx context.Context, keys []string) (float64, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.importance == nil {
		importance := make(map[string]float64)
		if x.graph.NumNodes() > 0 {
			opts := DefaultRankOptions()
			opts.TopK = -1
			opts.IncludePaths = false
			out, err := x.graph.Rank(ctx, x.graph.Nodes(), opts)
			if err != nil {
				return 0, err
			}
			if len(out.Results) > 0 {
				top := out.Results[0].Score
				for _, r := range out.Results {
					importance[r.Node] = r.Score / top
				}
			}
		}
		x.importance = importance
	}
	best := 0.0
	for _, k := range keys {
		if v := x.importance[k]; v > best {
			best = v
		}
	}
	return best, nil
}
