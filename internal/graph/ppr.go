// Package graph holds the symbol graph built from relationships and the
// call-graph queries answered over it.
package graph

import (
	"context"
	"sort"

	"sentinel/internal/errors"
	"sentinel/internal/model"
)

// Edge is a weighted, typed edge between two qualified names.
type Edge struct {
	From   string
	To     string
	Weight float64
	Kind   model.RelationshipType
}

// RankOptions configures Personalized PageRank.
type RankOptions struct {
	// Damping is the probability of following an edge instead of jumping
	// back to a seed (default 0.85).
	Damping float64

	// MaxIterations caps power iteration (default 20).
	MaxIterations int

	// Tolerance is the convergence threshold (default 1e-6).
	Tolerance float64

	// TopK limits the result (default 20, negative for all).
	TopK int

	// IncludePaths records how each result is reached from a seed.
	IncludePaths bool
}

// DefaultRankOptions returns the defaults.
func DefaultRankOptions() RankOptions {
	return RankOptions{
		Damping:       0.85,
		MaxIterations: 20,
		Tolerance:     1e-6,
		TopK:          20,
		IncludePaths:  true,
	}
}

// Ranked is one node with its PageRank score.
type Ranked struct {
	Node  string   `json:"node"`
	Score float64  `json:"score"`
	Path  []string `json:"path,omitempty"`
}

// RankOutput is the result of a PageRank run.
type RankOutput struct {
	Results    []Ranked `json:"results"`
	Iterations int      `json:"iterations"`
	Converged  bool     `json:"converged"`
	Seeds      []string `json:"seeds"`
	TotalNodes int      `json:"totalNodes"`
	TotalEdges int      `json:"totalEdges"`
}

// Graph is a sparse directed multigraph over qualified names.
type Graph struct {
	nodes   []string
	nodeIdx map[string]int

	// out[i] and in[i] hold the edges leaving and entering node i.
	out [][]edgeEntry
	in  [][]edgeEntry
}

type edgeEntry struct {
	target int
	weight float64
	kind   model.RelationshipType
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{nodeIdx: make(map[string]int)}
}

// AddNode adds id if missing and returns its index.
func (g *Graph) AddNode(id string) int {
	if idx, ok := g.nodeIdx[id]; ok {
		return idx
	}
	idx := len(g.nodes)
	g.nodes = append(g.nodes, id)
	g.nodeIdx[id] = idx
	g.out = append(g.out, nil)
	g.in = append(g.in, nil)
	return idx
}

// AddEdge adds a directed edge. Parallel edges of the same kind are merged
// by keeping the higher weight.
func (g *Graph) AddEdge(src, dst string, weight float64, kind model.RelationshipType) {
	s := g.AddNode(src)
	d := g.AddNode(dst)
	for i, e := range g.out[s] {
		if e.target == d && e.kind == kind {
			if weight > e.weight {
				g.out[s][i].weight = weight
				for j, r := range g.in[d] {
					if r.target == s && r.kind == kind {
						g.in[d][j].weight = weight
					}
				}
			}
			return
		}
	}
	g.out[s] = append(g.out[s], edgeEntry{target: d, weight: weight, kind: kind})
	g.in[d] = append(g.in[d], edgeEntry{target: s, weight: weight, kind: kind})
}

// AddEdges adds several edges.
func (g *Graph) AddEdges(edges []Edge) {
	for _, e := range edges {
		g.AddEdge(e.From, e.To, e.Weight, e.Kind)
	}
}

// NumNodes returns the node count.
func (g *Graph) NumNodes() int {
	return len(g.nodes)
}

// NumEdges returns the edge count.
func (g *Graph) NumEdges() int {
	total := 0
	for _, edges := range g.out {
		total += len(edges)
	}
	return total
}

// Nodes returns every node in insertion order.
func (g *Graph) Nodes() []string {
	return g.nodes
}

// HasNode reports whether id is in the graph.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodeIdx[id]
	return ok
}

// Out returns the edges leaving id, optionally restricted to kinds.
func (g *Graph) Out(id string, kinds ...model.RelationshipType) []Edge {
	return g.edges(id, g.out, false, kinds)
}

// In returns the edges entering id, optionally restricted to kinds.
func (g *Graph) In(id string, kinds ...model.RelationshipType) []Edge {
	return g.edges(id, g.in, true, kinds)
}

func (g *Graph) edges(id string, adj [][]edgeEntry, reverse bool, kinds []model.RelationshipType) []Edge {
	idx, ok := g.nodeIdx[id]
	if !ok {
		return nil
	}
	var out []Edge
	for _, e := range adj[idx] {
		if !kindIn(e.kind, kinds) {
			continue
		}
		edge := Edge{From: id, To: g.nodes[e.target], Weight: e.weight, Kind: e.kind}
		if reverse {
			edge.From, edge.To = edge.To, edge.From
		}
		out = append(out, edge)
	}
	return out
}

func kindIn(k model.RelationshipType, kinds []model.RelationshipType) bool {
	if len(kinds) == 0 {
		return true
	}
	for _, want := range kinds {
		if k == want {
			return true
		}
	}
	return false
}

// Rank computes Personalized PageRank from seeds. Seeds missing from the
// graph are ignored; with no seeds at all it fails.
func (g *Graph) Rank(ctx context.Context, seeds []string, opts RankOptions) (*RankOutput, error) {
	if len(seeds) == 0 {
		return nil, errors.New(errors.InternalError, "no seed nodes provided", nil)
	}
	n := len(g.nodes)
	output := &RankOutput{Results: []Ranked{}, Seeds: []string{}, TotalNodes: n, TotalEdges: g.NumEdges()}

	if opts.Damping <= 0 || opts.Damping >= 1 {
		opts.Damping = 0.85
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = 20
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = 1e-6
	}
	if opts.TopK == 0 {
		opts.TopK = 20
	}

	var seedIdx []int
	seedSet := make(map[int]bool)
	for _, s := range seeds {
		if idx, ok := g.nodeIdx[s]; ok && !seedSet[idx] {
			seedIdx = append(seedIdx, idx)
			seedSet[idx] = true
			output.Seeds = append(output.Seeds, s)
		}
	}
	if len(seedIdx) == 0 {
		return output, nil
	}

	teleport := make([]float64, n)
	for _, idx := range seedIdx {
		teleport[idx] = 1 / float64(len(seedIdx))
	}
	scores := make([]float64, n)
	copy(scores, teleport)

	outWeight := make([]float64, n)
	for i, edges := range g.out {
		for _, e := range edges {
			outWeight[i] += e.weight
		}
	}

	next := make([]float64, n)
	for iter := 0; iter < opts.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		output.Iterations = iter + 1

		for i := range next {
			next[i] = 0
		}
		// Mass from dangling nodes returns to the seeds.
		dangling := 0.0
		for i, edges := range g.out {
			if outWeight[i] == 0 {
				dangling += scores[i]
				continue
			}
			share := scores[i] / outWeight[i]
			for _, e := range edges {
				next[e.target] += share * e.weight
			}
		}

		maxDiff := 0.0
		for i := range next {
			next[i] = opts.Damping*(next[i]+dangling*teleport[i]) + (1-opts.Damping)*teleport[i]
			if d := abs(next[i] - scores[i]); d > maxDiff {
				maxDiff = d
			}
		}
		scores, next = next, scores
		if maxDiff < opts.Tolerance {
			output.Converged = true
			break
		}
	}

	ranked := make([]int, 0, n)
	for i, s := range scores {
		if s > 0 {
			ranked = append(ranked, i)
		}
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		if scores[ranked[a]] != scores[ranked[b]] {
			return scores[ranked[a]] > scores[ranked[b]]
		}
		return g.nodes[ranked[a]] < g.nodes[ranked[b]]
	})
	if opts.TopK > 0 && len(ranked) > opts.TopK {
		ranked = ranked[:opts.TopK]
	}

	for _, idx := range ranked {
		r := Ranked{Node: g.nodes[idx], Score: scores[idx]}
		if opts.IncludePaths && !seedSet[idx] {
			r.Path = g.backtrackPath(idx, seedSet, 5)
		}
		output.Results = append(output.Results, r)
	}
	return output, nil
}

// backtrackPath follows the heaviest unvisited incoming edge from target
// until it reaches a seed or maxDepth hops, and returns the path seed first.
func (g *Graph) backtrackPath(target int, seedSet map[int]bool, maxDepth int) []string {
	path := []string{g.nodes[target]}
	visited := map[int]bool{target: true}
	current := target

	for depth := 0; depth < maxDepth; depth++ {
		prev, best := -1, 0.0
		for _, e := range g.in[current] {
			if !visited[e.target] && e.weight > best {
				prev, best = e.target, e.weight
			}
		}
		if prev < 0 {
			break
		}
		path = append(path, g.nodes[prev])
		visited[prev] = true
		if seedSet[prev] {
			break
		}
		current = prev
	}

	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
