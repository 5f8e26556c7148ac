package controlflow

import (
	"fmt"
	"sort"
	"strings"
)

// NodeTypeFor maps a block keyword to its node type.
func NodeTypeFor(kind string) NodeType {
	switch kind {
	case "if", "else if", "elif", "when", "switch", "select", "match":
		return NodeCondition
	case "for", "foreach", "while", "do", "loop", "until", "async for":
		return NodeLoop
	case "try", "catch", "except", "finally":
		return NodeException
	}
	return NodeBlock
}

func isBranch(kind string) bool {
	return kind == "if" || kind == "else if" || kind == "elif" || kind == "when"
}

func isMultiway(kind string) bool {
	return kind == "switch" || kind == "select" || kind == "match" || kind == "case"
}

func blockID(i int) string { return fmt.Sprintf("b%d", i) }
func exitID(i int) string  { return fmt.Sprintf("x%d", i) }

// Build assembles the control-flow graph of fn. Blocks at the same level are
// chained in line order; an exit interrupts the chain so anything after it at
// that level has no incoming edge.
func Build(fn *Function) *Graph {
	if len(fn.Exits) == 0 {
		fn.Exits = []Exit{{Line: fn.EndLine, Kind: "end"}}
	}
	b := &builder{
		fn:       fn,
		g:        &Graph{Function: fn.Name, Entry: "entry"},
		seen:     make(map[string]bool),
		attached: make(map[int][]int),
		heads:    make(map[int][]int),
	}
	b.g.addNode(Node{ID: "entry", Type: NodeEntry, StartLine: fn.StartLine, EndLine: fn.StartLine})
	for i, blk := range fn.Blocks {
		b.g.addNode(Node{
			ID:        blockID(i),
			Type:      NodeTypeFor(blk.Kind),
			StartLine: blk.StartLine,
			EndLine:   blk.EndLine,
			LoopDepth: b.loopDepth(i),
		})
	}
	final := len(fn.Exits) - 1
	for i, ex := range fn.Exits {
		b.g.addNode(Node{ID: exitID(i), Type: NodeExit, StartLine: ex.Line, EndLine: ex.Line, Synthetic: ex.Kind == "end"})
		if ex.Kind == "end" {
			final = i
		}
	}

	b.group()
	b.edge("entry", b.wire(-1, exitID(final)), EdgeSequential, 1)
	b.g.mapLines(fn, b.levelItems(-1))
	return b.g
}

type builder struct {
	fn   *Function
	g    *Graph
	seen map[string]bool

	// heads lists, per parent block, the children that start a sequential
	// step; attached holds the else/catch blocks that follow a head.
	heads    map[int][]int
	attached map[int][]int
}

func (b *builder) loopDepth(i int) int {
	depth := 0
	for j := i; j >= 0; j = b.fn.Blocks[j].Parent {
		if NodeTypeFor(b.fn.Blocks[j].Kind) == NodeLoop {
			depth++
		}
	}
	return depth
}

func (b *builder) group() {
	last := make(map[int]int)
	for i, blk := range b.fn.Blocks {
		head, ok := last[blk.Parent]
		if ok && attaches(b.chainTail(head), blk.Kind) {
			b.attached[head] = append(b.attached[head], i)
			continue
		}
		b.heads[blk.Parent] = append(b.heads[blk.Parent], i)
		last[blk.Parent] = i
	}
}

func (b *builder) chainTail(head int) string {
	if chain := b.attached[head]; len(chain) > 0 {
		return b.fn.Blocks[chain[len(chain)-1]].Kind
	}
	return b.fn.Blocks[head].Kind
}

func attaches(prev, kind string) bool {
	switch kind {
	case "else", "else if", "elif":
		return isBranch(prev)
	case "catch", "except":
		return prev == "try" || prev == "catch" || prev == "except"
	case "finally":
		return prev == "try" || prev == "catch" || prev == "except"
	}
	return false
}

type item struct {
	id    string
	line  int
	block int
}

// levelItems returns the heads and direct exits of a level in line order.
func (b *builder) levelItems(parent int) []item {
	var items []item
	for _, i := range b.heads[parent] {
		items = append(items, item{id: blockID(i), line: b.fn.Blocks[i].StartLine, block: i})
	}
	for i, ex := range b.fn.Exits {
		if b.fn.innermost(ex.Line) == parent && !(ex.Kind == "end" && parent >= 0) {
			items = append(items, item{id: exitID(i), line: ex.Line, block: -1})
		}
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].line < items[j].line })
	return items
}

// wire connects one level and returns the node control enters it through.
func (b *builder) wire(parent int, next string) string {
	items := b.levelItems(parent)
	if len(items) == 0 {
		return next
	}
	for k, it := range items {
		if it.block < 0 {
			continue
		}
		succ := next
		if k+1 < len(items) {
			succ = items[k+1].id
		}
		b.wireBlock(it.block, succ)
	}
	return items[0].id
}

func (b *builder) wireBlock(i int, succ string) {
	id := blockID(i)
	kind := b.fn.Blocks[i].Kind
	switch {
	case isBranch(kind):
		b.edge(id, b.wire(i, succ), EdgeTrue, ProbTrue)
		chain := b.attached[i]
		falseTo := succ
		if len(chain) > 0 {
			falseTo = blockID(chain[0])
		}
		b.edge(id, falseTo, EdgeFalse, ProbFalse)
		for k, a := range chain {
			aid := blockID(a)
			if !isBranch(b.fn.Blocks[a].Kind) {
				b.edge(aid, b.wire(a, succ), EdgeSequential, 1)
				continue
			}
			b.edge(aid, b.wire(a, succ), EdgeTrue, ProbTrue)
			ft := succ
			if k+1 < len(chain) {
				ft = blockID(chain[k+1])
			}
			b.edge(aid, ft, EdgeFalse, ProbFalse)
		}

	case isMultiway(kind) && kind != "case" && len(b.heads[i]) > 0:
		cases := b.heads[i]
		hasDefault := false
		for _, c := range cases {
			ck := b.fn.Blocks[c].Kind
			hasDefault = hasDefault || ck == "default"
			b.edge(id, blockID(c), EdgeCase, 1/float64(len(cases)))
			b.edge(blockID(c), b.wire(c, succ), EdgeSequential, 1)
		}
		if !hasDefault {
			b.edge(id, succ, EdgeFalse, ProbFalse)
		}

	case NodeTypeFor(kind) == NodeLoop:
		if body := b.wire(i, id); body != id {
			b.edge(id, body, EdgeTrue, ProbLoopBack)
		} else {
			b.edge(id, id, EdgeLoopBack, ProbLoopBack)
		}
		b.edge(id, succ, EdgeLoopExit, ProbLoopExit)

	case kind == "try":
		after := succ
		chain := b.attached[i]
		finally := -1
		if n := len(chain); n > 0 && b.fn.Blocks[chain[n-1]].Kind == "finally" {
			finally = chain[n-1]
			chain = chain[:n-1]
			after = blockID(finally)
		}
		b.edge(id, b.wire(i, after), EdgeSequential, 1)
		for _, c := range chain {
			b.edge(id, blockID(c), EdgeException, ProbException)
			b.edge(blockID(c), b.wire(c, after), EdgeSequential, 1)
		}
		if finally >= 0 {
			b.edge(after, b.wire(finally, succ), EdgeSequential, 1)
		}

	default:
		b.edge(id, b.wire(i, succ), EdgeSequential, 1)
	}
}

// edge adds a transition once. A sequential edge that returns from inside a
// loop to the loop itself is recorded as the loop-back edge.
func (b *builder) edge(from, to string, typ EdgeType, prob float64) {
	if typ == EdgeSequential && b.returnsToLoop(from, to) {
		typ, prob = EdgeLoopBack, ProbLoopBack
	}
	key := from + "|" + to + "|" + string(typ)
	if b.seen[key] {
		return
	}
	b.seen[key] = true
	b.g.addEdge(Edge{From: from, To: to, Type: typ, Probability: prob})
}

func (b *builder) returnsToLoop(from, to string) bool {
	var fi, ti int
	if _, err := fmt.Sscanf(to, "b%d", &ti); err != nil || NodeTypeFor(b.fn.Blocks[ti].Kind) != NodeLoop {
		return false
	}
	if _, err := fmt.Sscanf(from, "b%d", &fi); err != nil {
		return false
	}
	for j := fi; j >= 0; j = b.fn.Blocks[j].Parent {
		if j == ti {
			return true
		}
	}
	return false
}

func (g *Graph) addNode(n Node) {
	if g.index == nil {
		g.index = make(map[string]int)
		g.out = make(map[string][]int)
	}
	g.index[n.ID] = len(g.Nodes)
	g.Nodes = append(g.Nodes, n)
}

func (g *Graph) addEdge(e Edge) {
	g.out[e.From] = append(g.out[e.From], len(g.Edges))
	g.Edges = append(g.Edges, e)
}

// AddEdge inserts an extra transition; used to model edits to a graph.
func (g *Graph) AddEdge(e Edge) {
	g.addEdge(e)
}

// RemoveEdges drops every edge between from and to.
func (g *Graph) RemoveEdges(from, to string) {
	kept := g.Edges[:0]
	for _, e := range g.Edges {
		if e.From != from || e.To != to {
			kept = append(kept, e)
		}
	}
	g.Edges = kept
	g.out = make(map[string][]int)
	for i, e := range g.Edges {
		g.out[e.From] = append(g.out[e.From], i)
	}
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (Node, bool) {
	i, ok := g.index[id]
	if !ok {
		return Node{}, false
	}
	return g.Nodes[i], true
}

// Outgoing returns the edges leaving id.
func (g *Graph) Outgoing(id string) []Edge {
	out := make([]Edge, 0, len(g.out[id]))
	for _, i := range g.out[id] {
		out = append(out, g.Edges[i])
	}
	return out
}

// NodeForLine returns the node a source line is attributed to.
func (g *Graph) NodeForLine(line int) string {
	if id, ok := g.lineMap[line]; ok {
		return id
	}
	return g.Entry
}

// mapLines attributes each source line to a node. Lines inside a block go
// to the innermost block; function-level lines go to the next step at that
// level, or to the entry before the first one.
func (g *Graph) mapLines(fn *Function, top []item) {
	g.lineMap = make(map[int]string, len(fn.Lines))
	exitAt := make(map[int]string)
	for i, ex := range fn.Exits {
		if _, ok := exitAt[ex.Line]; !ok {
			exitAt[ex.Line] = exitID(i)
		}
	}
	code := make(map[string][]string)
	for i, text := range fn.Lines {
		line := fn.StartLine + i
		id := g.Entry
		if blk := fn.innermost(line); blk >= 0 {
			id = blockID(blk)
		} else if x, ok := exitAt[line]; ok {
			id = x
		} else if i > 0 && len(top) > 0 && line > top[0].line {
			id = top[len(top)-1].id
			for _, it := range top {
				if it.line >= line {
					id = it.id
					break
				}
			}
		}
		g.lineMap[line] = id
		if t := strings.TrimSpace(text); t != "" {
			code[id] = append(code[id], t)
		}
	}
	for i := range g.Nodes {
		g.Nodes[i].Code = strings.Join(code[g.Nodes[i].ID], "\n")
	}
}

// Successors returns the distinct targets reachable in one step from id.
func (g *Graph) Successors(id string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, i := range g.out[id] {
		to := g.Edges[i].To
		if !seen[to] {
			seen[to] = true
			out = append(out, to)
		}
	}
	return out
}
