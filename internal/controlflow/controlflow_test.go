package controlflow

import (
	"math"
	"reflect"
	"testing"

	"sentinel/internal/config"
	"sentinel/internal/model"
)

const ifElseLoop = `func classify(x int) int {
	if x > 0 {
		fmt.Println("pos")
	} else {
		fmt.Println("neg")
	}
	for i := 0; i < x; i++ {
		total += i
	}
	return total
}`

func countEdges(g *Graph, from string, typ EdgeType) int {
	n := 0
	for _, e := range g.Outgoing(from) {
		if e.Type == typ {
			n++
		}
	}
	return n
}

func TestExtract_Braces(t *testing.T) {
	fn := Extract("classify", 1, ifElseLoop, model.LangGo)

	kinds := make([]string, len(fn.Blocks))
	for i, b := range fn.Blocks {
		kinds[i] = b.Kind
	}
	if want := []string{"if", "else", "for"}; !reflect.DeepEqual(kinds, want) {
		t.Fatalf("kinds = %v, want %v", kinds, want)
	}
	spans := [][2]int{{2, 4}, {4, 6}, {7, 9}}
	for i, b := range fn.Blocks {
		if b.StartLine != spans[i][0] || b.EndLine != spans[i][1] || b.Parent != -1 {
			t.Errorf("block %d = %+v, want span %v at top level", i, b, spans[i])
		}
	}
	if want := []Exit{{Line: 10, Kind: "return"}}; !reflect.DeepEqual(fn.Exits, want) {
		t.Errorf("exits = %+v, want %+v", fn.Exits, want)
	}
	if want := []string{"x"}; !reflect.DeepEqual(fn.Parameters, want) {
		t.Errorf("parameters = %v, want %v", fn.Parameters, want)
	}
	if fn.EndLine != 11 {
		t.Errorf("EndLine = %d, want 11", fn.EndLine)
	}
}

func TestExtract_Indented(t *testing.T) {
	src := `def scan(items):
    total = 0
    for item in items:
        if item > 10:
            total += item
        elif item < 0:
            continue
        else:
            total -= 1
    return total`
	fn := Extract("scan", 1, src, model.LangPython)

	want := []Block{
		{Kind: "for", StartLine: 3, EndLine: 9, Parent: -1},
		{Kind: "if", StartLine: 4, EndLine: 5, Parent: 0},
		{Kind: "elif", StartLine: 6, EndLine: 7, Parent: 0},
		{Kind: "else", StartLine: 8, EndLine: 9, Parent: 0},
	}
	if len(fn.Blocks) != len(want) {
		t.Fatalf("got %d blocks, want %d: %+v", len(fn.Blocks), len(want), fn.Blocks)
	}
	for i, b := range fn.Blocks {
		b.Condition = ""
		if b != want[i] {
			t.Errorf("block %d = %+v, want %+v", i, b, want[i])
		}
	}
	if wantExits := []Exit{{Line: 10, Kind: "return"}}; !reflect.DeepEqual(fn.Exits, wantExits) {
		t.Errorf("exits = %+v, want %+v", fn.Exits, wantExits)
	}
	if !reflect.DeepEqual(fn.Parameters, []string{"items"}) {
		t.Errorf("parameters = %v", fn.Parameters)
	}

	g := Build(fn)
	if got := g.Shape(model.LangPython); got.Edges-got.Nodes+2 != 4 {
		t.Errorf("cyclomatic = %d, want 4", got.Edges-got.Nodes+2)
	}
	if countEdges(g, "b3", EdgeLoopBack) != 1 {
		t.Errorf("else branch should loop back: %+v", g.Outgoing("b3"))
	}
	if countEdges(g, "b0", EdgeLoopExit) != 1 {
		t.Errorf("loop should have one exit edge: %+v", g.Outgoing("b0"))
	}
}

func TestExtract_Shell(t *testing.T) {
	src := `deploy() {
  if [ -z "$1" ]; then
    exit 1
  else
    echo ok
  fi
  for f in *.txt; do
    cat "$f"
  done
}`
	fn := Extract("deploy", 1, src, model.LangShell)
	var kinds []string
	for _, b := range fn.Blocks {
		kinds = append(kinds, b.Kind)
	}
	if want := []string{"if", "else", "for"}; !reflect.DeepEqual(kinds, want) {
		t.Fatalf("kinds = %v, want %v", kinds, want)
	}
	if fn.Blocks[0].EndLine != 3 || fn.Blocks[1].EndLine != 6 || fn.Blocks[2].EndLine != 9 {
		t.Errorf("unexpected spans: %+v", fn.Blocks)
	}
	if fn.Exits[0] != (Exit{Line: 3, Kind: "exit"}) {
		t.Errorf("first exit = %+v", fn.Exits[0])
	}
}

func TestBuild_IfElseLoop(t *testing.T) {
	fn := Extract("classify", 1, ifElseLoop, model.LangGo)
	g := Build(fn)

	if len(g.Nodes) != 5 || len(g.Edges) != 6 {
		t.Fatalf("got %d nodes and %d edges, want 5 and 6", len(g.Nodes), len(g.Edges))
	}
	if n, _ := g.Node("b0"); n.Type != NodeCondition {
		t.Errorf("b0 type = %s, want condition", n.Type)
	}
	if countEdges(g, "b0", EdgeTrue) != 1 || countEdges(g, "b0", EdgeFalse) != 1 {
		t.Errorf("condition needs exactly one true and one false edge: %+v", g.Outgoing("b0"))
	}
	if n, _ := g.Node("b2"); n.Type != NodeLoop || n.LoopDepth != 1 {
		t.Errorf("b2 = %+v, want loop at depth 1", n)
	}
	if countEdges(g, "b2", EdgeLoopBack) != 1 {
		t.Errorf("loop without nested blocks should loop back to itself: %+v", g.Outgoing("b2"))
	}

	a := NewAnalyzer(config.ControlFlowConfig{}, nil).Analyze(fn)
	if a.Metrics.Cyclomatic != 3 || !a.Metrics.FromGraph {
		t.Errorf("cyclomatic = %d (fromGraph %v), want 3 from graph", a.Metrics.Cyclomatic, a.Metrics.FromGraph)
	}
	if len(a.DeadCode) != 0 {
		t.Errorf("unexpected dead code: %+v", a.DeadCode)
	}
}

func TestBuild_ElseIfChain(t *testing.T) {
	src := `int grade(int score) {
    if (score > 90) {
        return 1;
    } else if (score > 50) {
        return 2;
    } else {
        return 3;
    }
}`
	fn := Extract("grade", 1, src, model.LangJava)
	if !reflect.DeepEqual(fn.Parameters, []string{"score"}) {
		t.Errorf("parameters = %v", fn.Parameters)
	}
	g := Build(fn)

	tests := []struct {
		from, to string
		typ      EdgeType
	}{
		{"entry", "b0", EdgeSequential},
		{"b0", "x0", EdgeTrue},
		{"b0", "b1", EdgeFalse},
		{"b1", "x1", EdgeTrue},
		{"b1", "b2", EdgeFalse},
		{"b2", "x2", EdgeSequential},
	}
	if len(g.Edges) != len(tests) {
		t.Fatalf("got %d edges, want %d: %+v", len(g.Edges), len(tests), g.Edges)
	}
	for _, tt := range tests {
		found := false
		for _, e := range g.Outgoing(tt.from) {
			found = found || (e.To == tt.to && e.Type == tt.typ)
		}
		if !found {
			t.Errorf("missing edge %s->%s (%s)", tt.from, tt.to, tt.typ)
		}
	}
	if got := DeadCode(g); len(got) != 0 {
		t.Errorf("implicit end must not be reported dead: %+v", got)
	}
	if s := g.Shape(model.LangJava); s.Edges-s.Nodes+2 != 3 {
		t.Errorf("cyclomatic = %d, want 3", s.Edges-s.Nodes+2)
	}
}

func TestBuild_Switch(t *testing.T) {
	src := `func kind(x int) string {
	switch x {
	case 1:
		return "one"
	case 2:
		return "two"
	default:
		return "many"
	}
}`
	fn := Extract("kind", 1, src, model.LangGo)
	g := Build(fn)

	if got := countEdges(g, "b0", EdgeCase); got != 3 {
		t.Fatalf("case edges = %d, want 3", got)
	}
	for _, e := range g.Outgoing("b0") {
		if math.Abs(e.Probability-1.0/3) > 1e-9 {
			t.Errorf("case probability = %v, want 1/3", e.Probability)
		}
	}
	if countEdges(g, "b0", EdgeFalse) != 0 {
		t.Error("switch with default should not fall through")
	}
	if s := g.Shape(model.LangGo); s.Edges-s.Nodes+2 != 3 {
		t.Errorf("cyclomatic = %d, want 3", s.Edges-s.Nodes+2)
	}
	if dead := DeadCode(g); len(dead) != 0 {
		t.Errorf("unexpected dead code: %+v", dead)
	}
}

func TestDeadCode_EdgeChanges(t *testing.T) {
	src := `func early(x int) int {
	return x
	if x > 0 {
		log(x)
	}
}`
	g := Build(Extract("early", 1, src, model.LangGo))

	dead := DeadCode(g)
	if len(dead) != 1 || dead[0].NodeID != "b0" || dead[0].StartLine != 3 {
		t.Fatalf("dead = %+v, want only b0 at line 3", dead)
	}

	g.AddEdge(Edge{From: "entry", To: "b0", Type: EdgeSequential, Probability: 1})
	if dead := DeadCode(g); len(dead) != 0 {
		t.Errorf("adding an edge to b0 should revive it: %+v", dead)
	}

	g.RemoveEdges("entry", "x0")
	dead = DeadCode(g)
	if len(dead) != 1 || dead[0].NodeID != "x0" {
		t.Errorf("removing the only edge into x0 should kill it: %+v", dead)
	}
}

func TestDeadCode_SkipsImplicitEnd(t *testing.T) {
	src := `func early(x int) int {
	return x
	if x > 0 {
		log(x)
	}
}`
	g := Build(Extract("early", 1, src, model.LangGo))
	end, ok := g.Node("x1")
	if !ok || !end.Synthetic || end.StartLine != 6 {
		t.Fatalf("x1 = %+v, want the synthetic end at line 6", end)
	}
	if g.reachable(g.Entry)["x1"] {
		t.Fatal("implicit end should be unreachable after an early return")
	}
	for _, d := range DeadCode(g) {
		if d.NodeID == "x1" {
			t.Errorf("implicit end reported as dead: %+v", d)
		}
	}
}

func TestHotPaths(t *testing.T) {
	g := Build(Extract("classify", 1, ifElseLoop, model.LangGo))
	paths := HotPaths(g, 1000, 10)
	if len(paths) != 2 {
		t.Fatalf("got %d paths, want 2: %+v", len(paths), paths)
	}
	if want := []string{"entry", "b0", "b2", "x0"}; !reflect.DeepEqual(paths[0].Nodes, want) {
		t.Errorf("hottest path = %v, want %v", paths[0].Nodes, want)
	}
	if math.Abs(paths[0].Probability-0.14) > 1e-9 || math.Abs(paths[1].Probability-0.06) > 1e-9 {
		t.Errorf("probabilities = %v, %v; want 0.14, 0.06", paths[0].Probability, paths[1].Probability)
	}
	if got := HotPaths(g, 1000, 1); len(got) != 1 {
		t.Errorf("limit ignored: %d paths", len(got))
	}
}

func TestHotPaths_ExceptionEdgesLowerProbability(t *testing.T) {
	src := `function load(path) {
  try {
    data = readFile(path);
  } catch (e) {
    log(e);
  }
  return data;
}`
	g := Build(Extract("load", 1, src, model.LangJavaScript))
	paths := HotPaths(g, 1000, 10)
	if len(paths) != 2 {
		t.Fatalf("got %d paths, want 2: %+v", len(paths), paths)
	}
	for i := 1; i < len(paths); i++ {
		if paths[i].Probability > paths[i-1].Probability {
			t.Errorf("paths not sorted by probability: %+v", paths)
		}
	}
	if want := []string{"entry", "b0", "b1", "x0"}; !reflect.DeepEqual(paths[1].Nodes, want) {
		t.Errorf("exceptional path = %v, want %v", paths[1].Nodes, want)
	}
	if paths[1].Probability > ProbException {
		t.Errorf("path through catch = %v, want <= %v", paths[1].Probability, ProbException)
	}
}

func TestDataFlows(t *testing.T) {
	src := `func sum(xs []int) int {
	total := 0
	for _, x := range xs {
		total += x
	}
	return total
}`
	fn := Extract("sum", 1, src, model.LangGo)
	g := Build(fn)
	vars := Variables(fn, g)

	names := make([]string, len(vars))
	for i, v := range vars {
		names[i] = v.Name
	}
	if want := []string{"xs", "total", "x"}; !reflect.DeepEqual(names, want) {
		t.Fatalf("variables = %v, want %v", names, want)
	}
	if !vars[0].Parameter || vars[1].Parameter {
		t.Errorf("parameter flags wrong: %+v", vars[:2])
	}
	var kinds []UsageKind
	for _, u := range vars[1].Usages {
		kinds = append(kinds, u.Kind)
	}
	if want := []UsageKind{UsageWrite, UsageModify, UsageRead}; !reflect.DeepEqual(kinds, want) {
		t.Errorf("total usages = %v, want %v", kinds, want)
	}

	flows := DataFlows(vars, g)
	has := func(name string, from, to int) bool {
		for _, f := range flows {
			if f.Variable == name && f.From.Line == from && f.To.Line == to {
				return true
			}
		}
		return false
	}
	for _, want := range [][2]int{{2, 4}, {2, 6}, {4, 6}} {
		if !has("total", want[0], want[1]) {
			t.Errorf("missing flow total %d -> %d in %+v", want[0], want[1], flows)
		}
	}
	if !has("xs", 1, 3) {
		t.Error("missing flow from parameter xs to its read in the loop header")
	}
	for _, f := range flows {
		if f.To.Kind == UsageWrite {
			t.Errorf("flow into a plain write: %+v", f)
		}
	}
}

func TestVariables_ShortDeclarations(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{"range with index", "for i, x := range xs {", []string{"xs", "i", "x"}},
		{"counted loop", "for n := 0; n < len(xs); n++ {", []string{"xs", "n"}},
		{"if with init", "if v, ok := seen[xs]; ok {", []string{"xs", "v", "ok"}},
		{"switch with init", "switch k := kind(xs); k {", []string{"xs", "k"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := "func f(xs []int) {\n\t" + tt.line + "\n\t\tuse(xs)\n\t}\n}"
			fn := Extract("f", 1, src, model.LangGo)
			vars := Variables(fn, Build(fn))
			names := make([]string, len(vars))
			for i, v := range vars {
				names[i] = v.Name
			}
			if !reflect.DeepEqual(names, tt.want) {
				t.Errorf("variables = %q, want %q", names, tt.want)
			}
		})
	}
}

func TestTaint_SanitizedIff(t *testing.T) {
	tests := []struct {
		name      string
		src       string
		sanitized bool
	}{
		{
			name: "raw",
			src: `def handler(request):
    cmd = request.args.get("cmd")
    os.system(cmd)`,
			sanitized: false,
		},
		{
			name: "sanitized",
			src: `def handler(request):
    cmd = request.args.get("cmd")
    cmd = sanitize(cmd)
    os.system(cmd)`,
			sanitized: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn := Extract("handler", 1, tt.src, model.LangPython)
			g := Build(fn)
			flows := Taint(fn, Variables(fn, g), g)
			if len(flows) != 1 {
				t.Fatalf("got %d taint flows, want 1: %+v", len(flows), flows)
			}
			f := flows[0]
			if f.Variable != "cmd" || f.Source.Line != 2 {
				t.Errorf("flow = %+v", f)
			}
			if f.Sanitized != tt.sanitized {
				t.Errorf("sanitized = %v, want %v", f.Sanitized, tt.sanitized)
			}
			matched := false
			for _, id := range f.Path {
				n, _ := g.Node(id)
				matched = matched || reSanitize.MatchString(n.Code)
			}
			if matched != f.Sanitized {
				t.Errorf("sanitized flag %v disagrees with path nodes", f.Sanitized)
			}
		})
	}
}

func TestBottlenecks_NestedLoopIO(t *testing.T) {
	src := `func store(rows []Row) {
	for _, r := range rows {
		for _, c := range r.Cols {
			db.Exec(c)
		}
	}
}`
	fn := Extract("store", 1, src, model.LangGo)
	g := Build(fn)
	found := Bottlenecks(fn, g)

	has := func(node string, kind BottleneckKind, severity string) bool {
		for _, b := range found {
			if b.NodeID == node && b.Kind == kind && b.Severity == severity {
				return true
			}
		}
		return false
	}
	if !has("b1", BottleneckNestedLoop, "medium") {
		t.Errorf("missing nested loop bottleneck: %+v", found)
	}
	if !has("b1", BottleneckIO, "high") {
		t.Errorf("missing I/O-in-loop bottleneck: %+v", found)
	}

	spots := Hotspots(g, found)
	if len(spots) == 0 || spots[0].NodeID != "b1" {
		t.Errorf("inner loop should be the top hotspot: %+v", spots)
	}
	opts := Optimizations(g, found)
	batched := false
	for _, o := range opts {
		batched = batched || (o.NodeID == "b1" && o.Suggestion == "batch I/O outside the loop")
	}
	if !batched {
		t.Errorf("expected batching suggestion: %+v", opts)
	}
}

func TestAnalyzer_AnalyzeSource(t *testing.T) {
	a := NewAnalyzer(config.ControlFlowConfig{MaxPaths: 1000, MaxHotPaths: 1}, nil)
	res := a.AnalyzeSource("classify", 1, ifElseLoop, model.LangGo)

	if res.Function != "classify" || res.Graph == nil {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Metrics.Cyclomatic != 3 {
		t.Errorf("cyclomatic = %d, want 3", res.Metrics.Cyclomatic)
	}
	if len(res.HotPaths) != 1 {
		t.Errorf("hot paths = %d, want 1", len(res.HotPaths))
	}
}
