package graph

import (
	"context"
	"strconv"
	"testing"

	"sentinel/internal/model"
)

func TestRankBasic(t *testing.T) {
	// parse -> lex -> next
	// parse -> report
	// lex -> report
	g := NewGraph()
	g.AddEdge("parse", "lex", 1.0, model.RelCalls)
	g.AddEdge("lex", "next", 1.0, model.RelCalls)
	g.AddEdge("parse", "report", 0.5, model.RelUses)
	g.AddEdge("lex", "report", 0.8, model.RelCalls)

	opts := DefaultRankOptions()
	opts.TopK = 10
	result, err := g.Rank(context.Background(), []string{"parse"}, opts)
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	if len(result.Results) != 4 {
		t.Fatalf("Results = %d, want 4", len(result.Results))
	}
	if result.Results[0].Node != "parse" {
		t.Errorf("top = %q, want the seed", result.Results[0].Node)
	}
	if result.TotalNodes != 4 || result.TotalEdges != 4 {
		t.Errorf("totals = %d nodes, %d edges; want 4, 4", result.TotalNodes, result.TotalEdges)
	}

	sum := 0.0
	for _, r := range result.Results {
		sum += r.Score
	}
	if sum < 0.999 || sum > 1.001 {
		t.Errorf("score mass = %v, want 1", sum)
	}
}

func TestRankMultipleSeeds(t *testing.T) {
	g := NewGraph()
	g.AddEdge("a", "shared", 1.0, model.RelCalls)
	g.AddEdge("c", "shared", 1.0, model.RelCalls)
	g.AddEdge("shared", "leaf", 1.0, model.RelCalls)
	g.AddEdge("other", "leaf", 1.0, model.RelCalls)

	result, err := g.Rank(context.Background(), []string{"a", "c"}, DefaultRankOptions())
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	scores := make(map[string]float64)
	for _, r := range result.Results {
		scores[r.Node] = r.Score
	}
	if scores["shared"] == 0 {
		t.Error("node reachable from both seeds should be ranked")
	}
	if scores["other"] != 0 {
		t.Errorf("unreachable node scored %v", scores["other"])
	}
}

func TestRankSeeds(t *testing.T) {
	g := NewGraph()
	g.AddEdge("a", "b", 1.0, model.RelCalls)

	if _, err := g.Rank(context.Background(), nil, DefaultRankOptions()); err == nil {
		t.Error("Rank() with no seeds should fail")
	}

	result, err := g.Rank(context.Background(), []string{"x", "y"}, DefaultRankOptions())
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	if len(result.Results) != 0 || len(result.Seeds) != 0 {
		t.Errorf("unknown seeds gave %d results, %d seeds", len(result.Results), len(result.Seeds))
	}
}

func TestRankCanceled(t *testing.T) {
	g := NewGraph()
	g.AddEdge("a", "b", 1.0, model.RelCalls)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := g.Rank(ctx, []string{"a"}, DefaultRankOptions()); err == nil {
		t.Error("Rank() on a canceled context should fail")
	}
}

func TestRankPathBacktracking(t *testing.T) {
	g := NewGraph()
	g.AddEdge("main", "run", 1.0, model.RelCalls)
	g.AddEdge("run", "step", 1.0, model.RelCalls)
	g.AddEdge("step", "emit", 1.0, model.RelCalls)

	opts := DefaultRankOptions()
	opts.IncludePaths = true
	result, err := g.Rank(context.Background(), []string{"main"}, opts)
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	for _, r := range result.Results {
		if r.Node != "emit" {
			continue
		}
		want := []string{"main", "run", "step", "emit"}
		if len(r.Path) != len(want) {
			t.Fatalf("Path = %v, want %v", r.Path, want)
		}
		for i := range want {
			if r.Path[i] != want[i] {
				t.Errorf("Path = %v, want %v", r.Path, want)
				break
			}
		}
		return
	}
	t.Error("emit not ranked")
}

func TestAddEdge_MergesParallelEdges(t *testing.T) {
	g := NewGraph()
	g.AddEdge("a", "b", 0.4, model.RelCalls)
	g.AddEdge("a", "b", 0.9, model.RelCalls)
	g.AddEdge("a", "b", 0.5, model.RelUses)

	if g.NumEdges() != 2 {
		t.Fatalf("NumEdges = %d, want 2", g.NumEdges())
	}
	calls := g.Out("a", model.RelCalls)
	if len(calls) != 1 || calls[0].Weight != 0.9 {
		t.Errorf("calls = %+v, want one edge weighted 0.9", calls)
	}
	if in := g.In("b", model.RelCalls); len(in) != 1 || in[0].From != "a" || in[0].Weight != 0.9 {
		t.Errorf("In = %+v", in)
	}
}

func BenchmarkRank(b *testing.B) {
	g := NewGraph()
	numNodes := 1000
	for i := 0; i < numNodes; i++ {
		for j := 1; j <= 5; j++ {
			g.AddEdge(nodeID(i), nodeID((i+j)%numNodes), 1.0, model.RelCalls)
		}
	}
	opts := DefaultRankOptions()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = g.Rank(context.Background(), []string{"fn_0"}, opts)
	}
}

func nodeID(i int) string {
	return "fn_" + strconv.Itoa(i)
}
