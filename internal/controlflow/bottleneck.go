package controlflow

import (
	"fmt"
	"regexp"
	"sort"

	"sentinel/internal/complexity"
)

var (
	reIO     = regexp.MustCompile(`\b(?:read|write|open|fopen|fread|fwrite|fetch|http|Get|Post|query|Query|execute|Exec|socket|recv|send|print|println|printf|Println|Printf|ReadFile|WriteFile|readFile|writeFile|urlopen)\b`)
	reSync   = regexp.MustCompile(`\b(?:lock|Lock|unlock|Unlock|mutex|Mutex|synchronized|await|wait|Wait|sleep|Sleep|join|Join|acquire|release|atomic)\b`)
	reMemory = regexp.MustCompile(`\b(?:new|malloc|calloc|realloc|make|append|alloc|clone|copy|resize|reserve|push_back|push|concat)\b`)
	reCarry  = regexp.MustCompile(`[-+*/%&|^]=|\b(?:break|return|continue)\b`)
)

// Bottlenecks classifies nodes by the performance concerns their code shows:
// nested loops, I/O, synchronization and allocation inside loops.
func Bottlenecks(fn *Function, g *Graph) []Bottleneck {
	code := complexity.StripLiterals(fn.Lines, fn.Language)
	var out []Bottleneck
	seen := make(map[string]bool)
	add := func(n Node, line int, kind BottleneckKind, severity, desc string) {
		key := n.ID + "|" + string(kind)
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, Bottleneck{NodeID: n.ID, Line: line, Kind: kind, Severity: severity, Description: desc})
	}

	for _, n := range g.Nodes {
		if n.Type == NodeLoop && n.LoopDepth >= 2 {
			severity := "medium"
			if n.LoopDepth >= 3 {
				severity = "high"
			}
			add(n, n.StartLine, BottleneckNestedLoop, severity, fmt.Sprintf("loop nested %d deep, O(n^%d)", n.LoopDepth, n.LoopDepth))
		}
	}

	for i, line := range code {
		lineNo := fn.StartLine + i
		n, ok := g.Node(g.NodeForLine(lineNo))
		if !ok {
			continue
		}
		inLoop := n.LoopDepth > 0
		if reIO.MatchString(line) {
			if inLoop {
				add(n, lineNo, BottleneckIO, "high", "I/O inside a loop")
			} else {
				add(n, lineNo, BottleneckIO, "low", "blocking I/O")
			}
		}
		if reSync.MatchString(line) {
			if inLoop {
				add(n, lineNo, BottleneckSync, "high", "synchronization inside a loop")
			} else {
				add(n, lineNo, BottleneckSync, "medium", "synchronization point")
			}
		}
		if inLoop && reMemory.MatchString(line) {
			add(n, lineNo, BottleneckMemory, "medium", "allocation inside a loop")
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Line < out[j].Line })
	return out
}

// Hotspots scores nodes by loop depth and the bottlenecks found in them.
func Hotspots(g *Graph, bottlenecks []Bottleneck) []Hotspot {
	reasons := make(map[string][]string)
	for _, b := range bottlenecks {
		reasons[b.NodeID] = append(reasons[b.NodeID], b.Description)
	}
	var out []Hotspot
	for _, n := range g.Nodes {
		r := reasons[n.ID]
		if len(r) == 0 && n.LoopDepth == 0 {
			continue
		}
		if n.Type == NodeLoop && len(r) == 0 {
			r = []string{fmt.Sprintf("loop depth %d", n.LoopDepth)}
		}
		if len(r) == 0 {
			continue
		}
		out = append(out, Hotspot{
			NodeID:  n.ID,
			Line:    n.StartLine,
			Score:   float64(n.LoopDepth+1) * float64(1+len(reasons[n.ID])),
			Reasons: r,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Line < out[j].Line
	})
	return out
}

// Optimizations suggests changes for loops: hoisting I/O and allocation,
// flattening nested iteration, and parallelizing independent iterations.
func Optimizations(g *Graph, bottlenecks []Bottleneck) []Optimization {
	kinds := make(map[string]map[BottleneckKind]bool)
	for _, b := range bottlenecks {
		if kinds[b.NodeID] == nil {
			kinds[b.NodeID] = make(map[BottleneckKind]bool)
		}
		kinds[b.NodeID][b.Kind] = true
	}
	var out []Optimization
	for _, n := range g.Nodes {
		k := kinds[n.ID]
		suggest := func(s string) {
			out = append(out, Optimization{NodeID: n.ID, Line: n.StartLine, Suggestion: s})
		}
		if k[BottleneckIO] && n.LoopDepth > 0 {
			suggest("batch I/O outside the loop")
		}
		if k[BottleneckMemory] {
			suggest("preallocate before the loop")
		}
		if k[BottleneckNestedLoop] {
			suggest("replace nested iteration with an index or map lookup")
		}
		if n.Type == NodeLoop && !k[BottleneckIO] && !k[BottleneckSync] && !reCarry.MatchString(n.Code) {
			suggest("iterations look independent and could run in parallel")
		}
	}
	return out
}
