package crosslang

import (
	"os"
	"path/filepath"
	"testing"

	"sentinel/internal/config"
	"sentinel/internal/errors"
	"sentinel/internal/model"
)

func newTestAnalyzer(t *testing.T, cfg config.CrossLanguageConfig) *Analyzer {
	t.Helper()
	a, err := NewAnalyzer(cfg, nil)
	if err != nil {
		t.Fatalf("NewAnalyzer() error = %v", err)
	}
	return a
}

func spawnEdge(source, target string, sourceLang, targetLang model.Language) model.CrossLanguageEdge {
	return model.CrossLanguageEdge{
		Source:         source,
		Target:         target,
		SourceLanguage: sourceLang,
		TargetLanguage: targetLang,
		Type:           model.ConnSpawn,
		Weight:         1,
		Details:        "exec",
	}
}

func TestAnalyze_SpawnChildLanguageFromScriptName(t *testing.T) {
	a := newTestAnalyzer(t, config.DefaultConfig().CrossLanguage)
	nodes := []model.Symbol{
		{Name: "dispatch", QualifiedName: "jobs.dispatch", Kind: model.KindFunction, Language: model.LangGo},
		{Name: "run_worker.py", QualifiedName: "run_worker.py", Kind: model.KindModule, Language: model.LangPython},
	}
	edges := []model.CrossLanguageEdge{spawnEdge("jobs.dispatch", "run_worker.py", model.LangGo, "")}

	report := a.Analyze(nodes, edges)

	if len(report.Classification.Indirect) != 1 {
		t.Fatalf("Indirect = %d, want 1", len(report.Classification.Indirect))
	}
	if len(report.Spawns) != 1 {
		t.Fatalf("Spawns = %d, want 1", len(report.Spawns))
	}
	s := report.Spawns[0]
	if s.ChildLanguage != model.LangPython {
		t.Errorf("ChildLanguage = %q, want python", s.ChildLanguage)
	}
	if s.ParentLanguage != model.LangGo {
		t.Errorf("ParentLanguage = %q, want go", s.ParentLanguage)
	}
	if s.Mechanism != model.SpawnExec {
		t.Errorf("Mechanism = %q, want exec", s.Mechanism)
	}

	if len(report.SpawnChains) != 1 {
		t.Fatalf("SpawnChains = %d, want 1", len(report.SpawnChains))
	}
	chain := report.SpawnChains[0]
	if !chain.CrossesLanguages || chain.Depth() != 1 {
		t.Errorf("chain = %+v, want one cross-language hop", chain)
	}
	if len(report.ProcessTree) != 1 || report.ProcessTree[0].Name != "jobs.dispatch" {
		t.Fatalf("ProcessTree roots = %+v", report.ProcessTree)
	}
	if child := report.ProcessTree[0].Children; len(child) != 1 || child[0].Language != model.LangPython {
		t.Errorf("ProcessTree children = %+v", child)
	}
}

func TestAnalyze_Classification(t *testing.T) {
	a := newTestAnalyzer(t, config.DefaultConfig().CrossLanguage)
	edges := []model.CrossLanguageEdge{
		{Source: "ui", Target: "api", SourceLanguage: model.LangTypeScript, TargetLanguage: model.LangPython, Type: model.ConnAPICall, Weight: 1},
		{Source: "core", Target: "libm", SourceLanguage: model.LangRust, TargetLanguage: model.LangC, Type: model.ConnFFI, Weight: 1},
		{Source: "main", Target: "util", SourceLanguage: model.LangTypeScript, TargetLanguage: model.LangJavaScript, Type: model.ConnImport, Weight: 1},
		spawnEdge("main.go", "tool.py", model.LangGo, model.LangPython),
		{Source: "x", Target: "y", Type: "telepathy"},
	}
	c := a.Analyze(nil, edges).Classification
	if len(c.API) != 1 || len(c.FFI) != 1 || len(c.Direct) != 1 || len(c.Indirect) != 1 {
		t.Errorf("classification = direct %d, indirect %d, api %d, ffi %d; want 1 each",
			len(c.Direct), len(c.Indirect), len(c.API), len(c.FFI))
	}
}

func TestAnalyze_SpawnChainCycle(t *testing.T) {
	a := newTestAnalyzer(t, config.DefaultConfig().CrossLanguage)
	edges := []model.CrossLanguageEdge{
		spawnEdge("a.sh", "b.py", model.LangShell, model.LangPython),
		spawnEdge("b.py", "a.sh", model.LangPython, model.LangShell),
	}
	report := a.Analyze(nil, edges)
	if len(report.SpawnChains) != 1 {
		t.Fatalf("SpawnChains = %d, want 1", len(report.SpawnChains))
	}
	chain := report.SpawnChains[0]
	if !chain.Cyclic {
		t.Error("chain should be cyclic")
	}
	want := []string{"a.sh", "b.py", "a.sh"}
	if len(chain.Nodes) != len(want) {
		t.Fatalf("Nodes = %v, want %v", chain.Nodes, want)
	}
	for i := range want {
		if chain.Nodes[i] != want[i] {
			t.Errorf("Nodes[%d] = %q, want %q", i, chain.Nodes[i], want[i])
		}
	}
	if len(report.ProcessTree) != 1 {
		t.Errorf("ProcessTree roots = %d, want 1", len(report.ProcessTree))
	}
}

func TestAnalyze_SpawnChainDepthCap(t *testing.T) {
	a := newTestAnalyzer(t, config.CrossLanguageConfig{MaxSpawnDepth: 2})
	edges := []model.CrossLanguageEdge{
		spawnEdge("p0.go", "p1.py", model.LangGo, model.LangPython),
		spawnEdge("p1.py", "p2.js", model.LangPython, model.LangJavaScript),
		spawnEdge("p2.js", "p3.sh", model.LangJavaScript, model.LangShell),
	}
	chains := a.Analyze(nil, edges).SpawnChains
	if len(chains) != 1 {
		t.Fatalf("SpawnChains = %d, want 1", len(chains))
	}
	if !chains[0].Truncated || chains[0].Depth() != 2 {
		t.Errorf("chain = %+v, want truncated at depth 2", chains[0])
	}
}

func TestIntegrationMetrics(t *testing.T) {
	api := func(n int, from, to model.Language) []model.CrossLanguageEdge {
		var out []model.CrossLanguageEdge
		for i := 0; i < n; i++ {
			out = append(out, model.CrossLanguageEdge{SourceLanguage: from, TargetLanguage: to, Type: model.ConnAPICall, Weight: 1})
		}
		return out
	}
	multi := []model.CrossLanguageEdge{
		{SourceLanguage: model.LangGo, TargetLanguage: model.LangPython, Type: model.ConnSpawn},
		{SourceLanguage: model.LangRust, TargetLanguage: model.LangC, Type: model.ConnFFI},
		{SourceLanguage: model.LangJava, TargetLanguage: model.LangCpp, Type: model.ConnFFI},
		{SourceLanguage: model.LangTypeScript, TargetLanguage: model.LangGo, Type: model.ConnAPICall},
	}

	tests := []struct {
		name           string
		edges          []model.CrossLanguageEdge
		wantRisk       LatencyRisk
		wantBoundaries int
		wantMaintain   float64
		wantComplexity float64
	}{
		{"empty", nil, LatencyLow, 0, 1, 0},
		{"few api calls", api(3, model.LangTypeScript, model.LangPython), LatencyLow, 1, 1.0 / 3, 0.25},
		{"moderate api calls", api(6, model.LangTypeScript, model.LangPython), LatencyMedium, 1, 1.0 / 6, 0.25},
		{"many api calls", api(21, model.LangTypeScript, model.LangPython), LatencyHigh, 1, 1.0 / 21, 0.25},
		{"many boundaries", multi, LatencyMedium, 4, 1, 0.75},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := integrationMetrics(tt.edges)
			if m.LatencyRisk != tt.wantRisk {
				t.Errorf("LatencyRisk = %q, want %q", m.LatencyRisk, tt.wantRisk)
			}
			if m.Boundaries != tt.wantBoundaries {
				t.Errorf("Boundaries = %d, want %d", m.Boundaries, tt.wantBoundaries)
			}
			if diff := m.Maintainability - tt.wantMaintain; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("Maintainability = %v, want %v", m.Maintainability, tt.wantMaintain)
			}
			if m.CommunicationComplexity != tt.wantComplexity {
				t.Errorf("CommunicationComplexity = %v, want %v", m.CommunicationComplexity, tt.wantComplexity)
			}
			if m.IntegrationScore < 0 || m.IntegrationScore > 1 {
				t.Errorf("IntegrationScore = %v, want within [0,1]", m.IntegrationScore)
			}
		})
	}
}

func TestSharedDataHints(t *testing.T) {
	nodes := []model.Symbol{
		{Name: "encodeOrderJSON", Signature: "func encodeOrderJSON(o OrderRequest) ([]byte, error)"},
		{Name: "loadProtobufSchema"},
		{Name: "add", Signature: "func add(a, b int) int"},
	}
	hints := sharedDataHints(nodes)
	if len(hints) != 2 {
		t.Fatalf("hints = %+v, want 2", hints)
	}
	if len(hints[0].Formats) != 1 || hints[0].Formats[0] != "json" {
		t.Errorf("Formats = %v, want [json]", hints[0].Formats)
	}
	if !containsAll(hints[0].Types, "request") {
		t.Errorf("Types = %v, want request", hints[0].Types)
	}
	if len(hints[1].Formats) != 1 || hints[1].Formats[0] != "protobuf" {
		t.Errorf("Formats = %v, want [protobuf]", hints[1].Formats)
	}
}

func TestGuessLanguage(t *testing.T) {
	tests := []struct {
		command string
		args    []string
		want    model.Language
		ok      bool
	}{
		{"python3", []string{"run_worker.py"}, model.LangPython, true},
		{"python3.11", nil, model.LangPython, true},
		{"/usr/bin/node", nil, model.LangJavaScript, true},
		{"java", []string{"-jar", "app.jar"}, model.LangJava, true},
		{"bash deploy.sh", nil, model.LangShell, true},
		{"./bin/server", []string{"--port", "80"}, model.LangUnknown, false},
		{"ls", []string{"-la"}, model.LangUnknown, false},
	}
	for _, tt := range tests {
		got, ok := GuessLanguage(tt.command, tt.args...)
		if got != tt.want || ok != tt.ok {
			t.Errorf("GuessLanguage(%q, %v) = %q, %v; want %q, %v", tt.command, tt.args, got, ok, tt.want, tt.ok)
		}
	}
}

func TestSpawnDetector_Python(t *testing.T) {
	src := "import subprocess\n" +
		"\n" +
		"def launch(data):\n" +
		"    # subprocess.run([\"ignored.py\"])\n" +
		"    subprocess.run([\"python3\", \"workers/run_worker.py\", \"--input\", \"data.json\"], capture_output=True)\n"
	f := SourceFile{
		Path:     "app/main.py",
		Language: model.LangPython,
		Content:  []byte(src),
		Symbols: []model.Symbol{
			{Name: "launch", QualifiedName: "launch", Kind: model.KindFunction, Line: 3, EndLine: 5},
		},
	}
	spawns := NewSpawnDetector(nil).Detect(f)
	if len(spawns) != 1 {
		t.Fatalf("spawns = %d, want 1: %+v", len(spawns), spawns)
	}
	s := spawns[0]
	if s.ParentSymbol != "launch" {
		t.Errorf("ParentSymbol = %q, want launch", s.ParentSymbol)
	}
	if s.Command != "python3" || len(s.Arguments) != 3 {
		t.Errorf("Command = %q %v", s.Command, s.Arguments)
	}
	if s.ChildLanguage != model.LangPython {
		t.Errorf("ChildLanguage = %q, want python", s.ChildLanguage)
	}
	if s.Script != "workers/run_worker.py" {
		t.Errorf("Script = %q", s.Script)
	}
	if !s.CapturesOutput {
		t.Error("CapturesOutput = false, want true")
	}
	if s.IsAsync {
		t.Error("subprocess.run should be synchronous")
	}
	if s.Line != 5 {
		t.Errorf("Line = %d, want 5", s.Line)
	}
	if s.Confidence != 1 {
		t.Errorf("Confidence = %v, want 1", s.Confidence)
	}
	if !hasTransfer(s.Transfer, TransferFiles) || !hasTransfer(s.Transfer, TransferArgs) {
		t.Errorf("Transfer = %v, want args and files", s.Transfer)
	}
}

func hasTransfer(ts []TransferMethod, want TransferMethod) bool {
	for _, t := range ts {
		if t == want {
			return true
		}
	}
	return false
}

func TestSpawnDetector_Languages(t *testing.T) {
	tests := []struct {
		name      string
		lang      model.Language
		src       string
		command   string
		child     model.Language
		mechanism model.SpawnMechanism
		async     bool
	}{
		{"go exec", model.LangGo, `	cmd := exec.Command("node", "scripts/build.js")`, "node", model.LangJavaScript, model.SpawnExec, false},
		{"node spawn", model.LangJavaScript, `const child = spawn("python", ["train.py"]);`, "python", model.LangPython, model.SpawnSpawn, true},
		{"node exec string", model.LangTypeScript, `execSync("cargo run --release")`, "cargo", model.LangRust, model.SpawnExec, false},
		{"rust command", model.LangRust, `    let out = Command::new("python3").arg("etl.py").output()?;`, "python3", model.LangPython, model.SpawnExec, false},
		{"shell background", model.LangShell, `python3 worker.py --port 8080 &`, "python3", model.LangPython, model.SpawnExec, true},
		{"java builder", model.LangJava, `new ProcessBuilder("java", "-jar", "indexer.jar").start();`, "java", model.LangJava, model.SpawnSpawn, true},
	}
	d := NewSpawnDetector(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spawns := d.Detect(SourceFile{Path: "src/file", Language: tt.lang, Content: []byte(tt.src + "\n")})
			if len(spawns) != 1 {
				t.Fatalf("spawns = %d, want 1: %+v", len(spawns), spawns)
			}
			s := spawns[0]
			if s.Command != tt.command {
				t.Errorf("Command = %q, want %q", s.Command, tt.command)
			}
			if s.ChildLanguage != tt.child {
				t.Errorf("ChildLanguage = %q, want %q", s.ChildLanguage, tt.child)
			}
			if s.Mechanism != tt.mechanism {
				t.Errorf("Mechanism = %q, want %q", s.Mechanism, tt.mechanism)
			}
			if s.IsAsync != tt.async {
				t.Errorf("IsAsync = %v, want %v", s.IsAsync, tt.async)
			}
		})
	}
}

func TestAnalyzeSpawns_Chain(t *testing.T) {
	a := newTestAnalyzer(t, config.DefaultConfig().CrossLanguage)
	files := []SourceFile{
		{
			Path:     "app/main.py",
			Language: model.LangPython,
			Content:  []byte(`subprocess.run(["python3", "workers/run_worker.py"])` + "\n"),
		},
		{
			Path:     "workers/run_worker.py",
			Language: model.LangPython,
			Content:  []byte(`proc = subprocess.Popen(["node", "render.js"], stdout=subprocess.PIPE)` + "\n"),
		},
	}
	result := a.AnalyzeSpawns(files)

	if result.Statistics.Total != 2 {
		t.Fatalf("Total = %d, want 2", result.Statistics.Total)
	}
	if result.Statistics.Synchronous != 1 || result.Statistics.Asynchronous != 1 {
		t.Errorf("sync/async = %d/%d, want 1/1", result.Statistics.Synchronous, result.Statistics.Asynchronous)
	}
	if result.Statistics.CrossLanguage != 1 {
		t.Errorf("CrossLanguage = %d, want 1", result.Statistics.CrossLanguage)
	}
	if result.Statistics.ByMechanism[model.SpawnSubprocess] != 2 {
		t.Errorf("ByMechanism = %v", result.Statistics.ByMechanism)
	}

	if len(result.SpawnChains) != 1 {
		t.Fatalf("SpawnChains = %+v, want 1", result.SpawnChains)
	}
	chain := result.SpawnChains[0]
	want := []string{"main.py", "run_worker.py", "render.js"}
	for i := range want {
		if i >= len(chain.Nodes) || chain.Nodes[i] != want[i] {
			t.Fatalf("Nodes = %v, want %v", chain.Nodes, want)
		}
	}
	if !chain.CrossesLanguages {
		t.Error("chain should cross languages")
	}

	if len(result.ProcessTree) != 1 {
		t.Fatalf("ProcessTree roots = %d, want 1", len(result.ProcessTree))
	}
	worker := result.ProcessTree[0].Children
	if len(worker) != 1 || worker[0].Name != "run_worker.py" || len(worker[0].Children) != 1 {
		t.Errorf("ProcessTree = %+v", result.ProcessTree[0])
	}
}

func TestLoadCatalogExtensions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, SpawnsDeclarationFile)
	content := `version = 1

[[spawn]]
language = "python"
function = "sh.Command"
pattern = '\bsh\.Command\s*\('
mechanism = "exec"
use = "sh library wrapper"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	a := newTestAnalyzer(t, config.CrossLanguageConfig{SpawnCatalogPath: path})
	result := a.AnalyzeSpawns([]SourceFile{{
		Path:     "tool.py",
		Language: model.LangPython,
		Content:  []byte(`runner = sh.Command("node", "bundle.js")` + "\n"),
	}})
	if len(result.Spawns) != 1 {
		t.Fatalf("spawns = %d, want 1", len(result.Spawns))
	}
	if got := result.Spawns[0].Function; got != "sh.Command" {
		t.Errorf("Function = %q, want sh.Command", got)
	}
	if got := result.Spawns[0].ChildLanguage; got != model.LangJavaScript {
		t.Errorf("ChildLanguage = %q, want javascript", got)
	}
}

func TestLoadCatalogExtensions_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown mechanism", "[[spawn]]\nlanguage = \"go\"\nfunction = \"x\"\npattern = 'x\\('\nmechanism = \"teleport\"\n"},
		{"unknown language", "[[spawn]]\nlanguage = \"cobol\"\nfunction = \"x\"\npattern = 'x\\('\nmechanism = \"exec\"\n"},
		{"bad pattern", "[[spawn]]\nlanguage = \"go\"\nfunction = \"x\"\npattern = 'x('\nmechanism = \"exec\"\n"},
		{"missing pattern", "[[spawn]]\nlanguage = \"go\"\nfunction = \"x\"\nmechanism = \"exec\"\n"},
		{"malformed toml", "[[spawn]\nlanguage = "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), SpawnsDeclarationFile)
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := NewAnalyzer(config.CrossLanguageConfig{SpawnCatalogPath: path}, nil)
			if !errors.IsCode(err, errors.InvalidDefinition) {
				t.Errorf("NewAnalyzer() error = %v, want INVALID_DEFINITION", err)
			}
		})
	}
}

func TestEndpointCorrelator(t *testing.T) {
	c := NewEndpointCorrelator()
	c.Add(SourceFile{
		Path:     "server/app.js",
		Language: model.LangJavaScript,
		Content:  []byte("app.get(\"/api/users/:id\", getUser);\n"),
	})
	c.Add(SourceFile{
		Path:     "api/main.py",
		Language: model.LangPython,
		Content:  []byte("@app.post(\"/api/orders\")\ndef create_order():\n    pass\n"),
	})
	c.Add(SourceFile{
		Path:     "client/fetch.ts",
		Language: model.LangTypeScript,
		Content:  []byte("await fetch(\"/api/orders\", { method: \"POST\" });\n"),
	})
	c.Add(SourceFile{
		Path:     "scripts/sync.py",
		Language: model.LangPython,
		Content:  []byte("resp = requests.get(\"http://localhost:3000/api/users/42?full=1\")\n"),
	})

	if n := len(c.Endpoints()); n != 4 {
		t.Fatalf("Endpoints = %d, want 4: %+v", n, c.Endpoints())
	}
	corr := c.Correlate()
	if len(corr) != 2 {
		t.Fatalf("Correlate = %d, want 2: %+v", len(corr), corr)
	}
	if corr[0].Kind != MatchExact || corr[0].Server.Framework != "FastAPI" {
		t.Errorf("first = %s via %s, want exact FastAPI", corr[0].Kind, corr[0].Server.Framework)
	}
	if corr[1].Kind != MatchPattern || corr[1].Server.Framework != "Express" {
		t.Errorf("second = %s via %s, want pattern Express", corr[1].Kind, corr[1].Server.Framework)
	}

	edges := c.Edges()
	if len(edges) != 2 {
		t.Fatalf("Edges = %d, want 2", len(edges))
	}
	if edges[0].Type != model.ConnAPICall || edges[0].SourceLanguage != model.LangTypeScript || edges[0].TargetLanguage != model.LangPython {
		t.Errorf("edge = %+v", edges[0])
	}
}

func TestMatchEndpoints(t *testing.T) {
	ep := func(method, path string) Endpoint { return Endpoint{Method: method, Path: path} }
	tests := []struct {
		name   string
		client Endpoint
		server Endpoint
		want   MatchKind
		ok     bool
	}{
		{"exact", ep("GET", "/health"), ep("GET", "/health"), MatchExact, true},
		{"method mismatch", ep("POST", "/health"), ep("GET", "/health"), "", false},
		{"any method", ep("DELETE", "/items/7"), ep(methodAny, "/items/{id}"), MatchPattern, true},
		{"flask param", ep("GET", "/users/9"), ep("GET", "/users/<int:id>"), MatchPattern, true},
		{"prefix", ep("GET", "/files/a/b/c"), ep("GET", "/files/:name"), MatchPrefix, true},
		{"root is not a prefix", ep("GET", "/other"), ep("GET", "/:page/view"), "", false},
		{"full url", ep("GET", "https://api.example.com/v1/ping"), ep("GET", "/v1/ping"), MatchExact, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, _, ok := matchEndpoints(tt.client, tt.server)
			if kind != tt.want || ok != tt.ok {
				t.Errorf("matchEndpoints() = %q, %v; want %q, %v", kind, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestFFIDetector(t *testing.T) {
	tests := []struct {
		name      string
		lang      model.Language
		src       string
		mechanism string
		direction FFIDirection
		target    string
	}{
		{"rust export", model.LangRust, "pub extern \"C\" fn compute(x: i32) -> i32 {", "extern_c", FFIExport, "compute"},
		{"python ctypes", model.LangPython, "lib = ctypes.CDLL(\"./libcompute.so\")", "ctypes", FFIImport, "libcompute"},
		{"go cgo export", model.LangGo, "//export Add", "cgo_export", FFIExport, "Add"},
		{"java native", model.LangJava, "    private native int compute(int x);", "jni", FFIImport, "compute"},
		{"csharp pinvoke", model.LangCSharp, "[DllImport(\"user32.dll\")]", "pinvoke", FFIImport, "user32"},
		{"node addon", model.LangJavaScript, "const addon = require(\"./build/Release/addon.node\")", "native_addon", FFIImport, "addon"},
	}
	d := NewFFIDetector()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bindings := d.Detect(SourceFile{Path: "src/file", Language: tt.lang, Content: []byte(tt.src + "\n")})
			if len(bindings) != 1 {
				t.Fatalf("bindings = %d, want 1: %+v", len(bindings), bindings)
			}
			b := bindings[0]
			if b.Mechanism != tt.mechanism || b.Direction != tt.direction {
				t.Errorf("binding = %s/%s, want %s/%s", b.Mechanism, b.Direction, tt.mechanism, tt.direction)
			}
			// Imports target the library and exports target the symbol.
			e := FFIEdges(bindings)[0]
			if e.Target != tt.target {
				t.Errorf("edge = %+v, want endpoint %q", e, tt.target)
			}
			if e.Type != model.ConnFFI {
				t.Errorf("Type = %q, want ffi", e.Type)
			}
		})
	}
}

func TestFFIDetector_SkipsOtherLanguages(t *testing.T) {
	d := NewFFIDetector()
	got := d.Detect(SourceFile{Path: "x.sh", Language: model.LangShell, Content: []byte("extern \"C\"\n")})
	if len(got) != 0 {
		t.Errorf("bindings = %+v, want none", got)
	}
}
