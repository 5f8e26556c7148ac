package crosslang

import (
	"log/slog"
	"math"
	"sort"
	"strings"

	"sentinel/internal/config"
	"sentinel/internal/model"
	"sentinel/internal/slogutil"
)

// maxChains bounds spawn chain enumeration on dense process graphs.
const maxChains = 1000

var formatVocabulary = []string{"json", "protobuf", "proto", "xml", "yaml", "csv", "msgpack", "avro", "thrift", "parquet", "pickle", "bson"}

var typeVocabulary = []string{"dto", "request", "response", "message", "payload", "event", "schema", "record", "config", "model"}

// Analyzer classifies cross-language edges and derives spawn structure and
// integration metrics from them.
type Analyzer struct {
	cfg     config.CrossLanguageConfig
	catalog *Catalog
	spawns  *SpawnDetector
	ffi     *FFIDetector
	logger  *slog.Logger
}

// NewAnalyzer creates an analyzer. Spawn signatures from
// cfg.SpawnCatalogPath are added to the built-in catalog.
func NewAnalyzer(cfg config.CrossLanguageConfig, logger *slog.Logger) (*Analyzer, error) {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	if cfg.MaxSpawnDepth <= 0 {
		cfg.MaxSpawnDepth = config.DefaultConfig().CrossLanguage.MaxSpawnDepth
	}
	catalog := DefaultCatalog()
	if cfg.SpawnCatalogPath != "" {
		n, err := LoadCatalogExtensions(catalog, cfg.SpawnCatalogPath)
		if err != nil {
			return nil, err
		}
		logger.Debug("Loaded spawn catalog extensions", "path", cfg.SpawnCatalogPath, "signatures", n)
	}
	return &Analyzer{
		cfg:     cfg,
		catalog: catalog,
		spawns:  NewSpawnDetector(catalog),
		ffi:     NewFFIDetector(),
		logger:  logger,
	}, nil
}

// Catalog returns the spawn catalog in use.
func (a *Analyzer) Catalog() *Catalog {
	return a.catalog
}

// DetectEdges runs the spawn, FFI and endpoint detectors over files and
// returns the cross-language edges they find.
func (a *Analyzer) DetectEdges(files []SourceFile) []model.CrossLanguageEdge {
	var (
		spawns   []Spawn
		bindings []FFIBinding
	)
	endpoints := NewEndpointCorrelator()
	for _, f := range files {
		spawns = append(spawns, a.spawns.Detect(f)...)
		bindings = append(bindings, a.ffi.Detect(f)...)
		endpoints.Add(f)
	}
	edges := SpawnEdges(spawns)
	edges = append(edges, FFIEdges(bindings)...)
	edges = append(edges, endpoints.Edges()...)
	a.logger.Debug("Cross-language edges detected",
		"files", len(files),
		"spawns", len(spawns),
		"ffi", len(bindings),
		"endpoints", len(endpoints.Endpoints()),
		"edges", len(edges))
	return edges
}

// Analyze classifies edges and derives shared-data hints, spawn chains, the
// process tree and integration metrics. It never fails: unknown nodes and
// edge types contribute nothing.
func (a *Analyzer) Analyze(nodes []model.Symbol, edges []model.CrossLanguageEdge) *Report {
	report := &Report{Classification: classify(edges)}
	report.SharedData = sharedDataHints(nodes)

	langs := nodeLanguages(nodes, edges)
	spawnEdges := report.Classification.Indirect
	report.Spawns = spawnsFromEdges(spawnEdges)
	report.SpawnChains = a.spawnChains(spawnEdges, langs)
	report.ProcessTree = a.processTree(spawnEdges, langs)
	report.Metrics = integrationMetrics(edges)

	a.logger.Debug("Cross-language analysis complete",
		"edges", len(edges),
		"boundaries", report.Metrics.Boundaries,
		"spawnChains", len(report.SpawnChains),
		"latencyRisk", report.Metrics.LatencyRisk)
	return report
}

// AnalyzeSpawns detects spawn sites in files and builds the process-level
// view over them.
func (a *Analyzer) AnalyzeSpawns(files []SourceFile) *SpawnAnalysisResult {
	var spawns []Spawn
	for _, f := range files {
		spawns = append(spawns, a.spawns.Detect(f)...)
	}
	edges := SpawnEdges(spawns)
	langs := nodeLanguages(nil, edges)
	result := &SpawnAnalysisResult{
		Spawns:      spawns,
		Edges:       edges,
		ProcessTree: a.processTree(edges, langs),
		SpawnChains: a.spawnChains(edges, langs),
		Statistics:  spawnStatistics(spawns),
	}
	a.logger.Debug("Spawn analysis complete",
		"files", len(files),
		"spawns", len(spawns),
		"chains", len(result.SpawnChains))
	return result
}

func classify(edges []model.CrossLanguageEdge) Classification {
	var c Classification
	for _, e := range edges {
		switch e.Type {
		case model.ConnImport:
			c.Direct = append(c.Direct, e)
		case model.ConnSpawn:
			c.Indirect = append(c.Indirect, e)
		case model.ConnAPICall:
			c.API = append(c.API, e)
		case model.ConnFFI:
			c.FFI = append(c.FFI, e)
		}
	}
	return c
}

func sharedDataHints(nodes []model.Symbol) []SharedDataHint {
	var hints []SharedDataHint
	for _, n := range nodes {
		text := strings.ToLower(n.Name + " " + n.Signature + " " + n.ReturnType)
		h := SharedDataHint{Node: nodeName(n)}
		for _, f := range formatVocabulary {
			if strings.Contains(text, f) {
				h.Formats = append(h.Formats, f)
			}
		}
		// proto is implied by protobuf.
		h.Formats = dropValue(h.Formats, "proto", "protobuf")
		for _, t := range typeVocabulary {
			if strings.Contains(text, t) {
				h.Types = append(h.Types, t)
			}
		}
		if len(h.Formats) > 0 || len(h.Types) > 0 {
			hints = append(hints, h)
		}
	}
	return hints
}

func containsAll(values []string, want ...string) bool {
	for _, w := range want {
		found := false
		for _, v := range values {
			if v == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// dropValue removes drop from values when keep is present.
func dropValue(values []string, drop, keep string) []string {
	if !containsAll(values, keep) {
		return values
	}
	out := values[:0]
	for _, v := range values {
		if v != drop {
			out = append(out, v)
		}
	}
	return out
}

func nodeName(s model.Symbol) string {
	if s.QualifiedName != "" {
		return s.QualifiedName
	}
	return s.Name
}

// nodeLanguages maps node names to languages. A spawn target's language is
// guessed from its name before falling back to the edge's tag.
func nodeLanguages(nodes []model.Symbol, edges []model.CrossLanguageEdge) map[string]model.Language {
	langs := make(map[string]model.Language)
	for _, n := range nodes {
		langs[nodeName(n)] = n.Language
		if _, ok := langs[n.Name]; !ok {
			langs[n.Name] = n.Language
		}
	}
	for _, e := range edges {
		if _, ok := langs[e.Source]; !ok && e.SourceLanguage != "" {
			langs[e.Source] = e.SourceLanguage
		}
		if _, ok := langs[e.Target]; !ok {
			if e.Type == model.ConnSpawn {
				if lang, ok := GuessLanguage(e.Target); ok {
					langs[e.Target] = lang
					continue
				}
			}
			if e.TargetLanguage != "" {
				langs[e.Target] = e.TargetLanguage
			}
		}
	}
	return langs
}

func spawnsFromEdges(edges []model.CrossLanguageEdge) []model.ProcessSpawn {
	var out []model.ProcessSpawn
	for _, e := range edges {
		s := model.ProcessSpawn{
			ParentSymbol:   e.Source,
			ParentLanguage: e.SourceLanguage,
			Command:        e.Target,
			Mechanism:      mechanismOf(e.Details),
			Confidence:     model.ClampConfidence(e.Weight),
		}
		if lang, ok := GuessLanguage(e.Target); ok {
			s.ChildLanguage = lang
		} else {
			s.ChildLanguage = e.TargetLanguage
		}
		out = append(out, s)
	}
	return out
}

func mechanismOf(details string) model.SpawnMechanism {
	switch m := model.SpawnMechanism(strings.ToLower(strings.TrimSpace(details))); m {
	case model.SpawnExec, model.SpawnSpawn, model.SpawnFork, model.SpawnSystem, model.SpawnSubprocess:
		return m
	}
	return model.SpawnSpawn
}

type spawnGraph struct {
	children map[string][]string
	incoming map[string]int
	mech     map[[2]string]model.SpawnMechanism
	nodes    []string
}

func newSpawnGraph(edges []model.CrossLanguageEdge) *spawnGraph {
	g := &spawnGraph{
		children: make(map[string][]string),
		incoming: make(map[string]int),
		mech:     make(map[[2]string]model.SpawnMechanism),
	}
	seen := make(map[string]bool)
	add := func(n string) {
		if !seen[n] {
			seen[n] = true
			g.nodes = append(g.nodes, n)
		}
	}
	for _, e := range edges {
		if e.Type != model.ConnSpawn || e.Source == "" || e.Target == "" {
			continue
		}
		key := [2]string{e.Source, e.Target}
		if _, dup := g.mech[key]; dup {
			continue
		}
		g.mech[key] = mechanismOf(e.Details)
		g.children[e.Source] = append(g.children[e.Source], e.Target)
		if e.Source != e.Target {
			g.incoming[e.Target]++
		}
		add(e.Source)
		add(e.Target)
	}
	sort.Strings(g.nodes)
	for _, c := range g.children {
		sort.Strings(c)
	}
	return g
}

// roots returns nodes with no incoming spawn edge. Nodes reachable only
// through cycles are rooted at their smallest unreached member.
func (g *spawnGraph) roots() []string {
	var roots []string
	reached := make(map[string]bool)
	var mark func(n string)
	mark = func(n string) {
		if reached[n] {
			return
		}
		reached[n] = true
		for _, c := range g.children[n] {
			mark(c)
		}
	}
	for _, n := range g.nodes {
		if g.incoming[n] == 0 {
			roots = append(roots, n)
			mark(n)
		}
	}
	for _, n := range g.nodes {
		if !reached[n] {
			roots = append(roots, n)
			mark(n)
		}
	}
	return roots
}

// spawnChains enumerates maximal spawn paths from each root. A path stops
// at a leaf, at a node already on the path, or at the depth cap.
func (a *Analyzer) spawnChains(edges []model.CrossLanguageEdge, langs map[string]model.Language) []SpawnChain {
	g := newSpawnGraph(edges)
	var chains []SpawnChain
	onPath := make(map[string]bool)
	var path []string

	emit := func(cyclic, truncated bool) {
		if len(path) < 2 || len(chains) >= maxChains {
			return
		}
		c := SpawnChain{
			Nodes:     append([]string(nil), path...),
			Cyclic:    cyclic,
			Truncated: truncated,
		}
		for _, n := range c.Nodes {
			c.Languages = append(c.Languages, langs[n])
		}
		for i := 1; i < len(c.Languages); i++ {
			prev, cur := c.Languages[i-1], c.Languages[i]
			if prev != "" && cur != "" && prev != cur {
				c.CrossesLanguages = true
				break
			}
		}
		chains = append(chains, c)
	}

	var walk func(n string)
	walk = func(n string) {
		path = append(path, n)
		onPath[n] = true
		defer func() {
			path = path[:len(path)-1]
			onPath[n] = false
		}()

		children := g.children[n]
		if len(children) == 0 {
			emit(false, false)
			return
		}
		if len(path)-1 >= a.cfg.MaxSpawnDepth {
			emit(false, true)
			return
		}
		for _, c := range children {
			if len(chains) >= maxChains {
				return
			}
			if onPath[c] {
				path = append(path, c)
				emit(true, false)
				path = path[:len(path)-1]
				continue
			}
			walk(c)
		}
	}
	for _, r := range g.roots() {
		walk(r)
	}
	return chains
}

// processTree roots a tree at every node without an incoming spawn edge.
// A process already on the current branch is not expanded again.
func (a *Analyzer) processTree(edges []model.CrossLanguageEdge, langs map[string]model.Language) []*ProcessNode {
	g := newSpawnGraph(edges)
	onPath := make(map[string]bool)

	var build func(name string, mech model.SpawnMechanism, depth int) *ProcessNode
	build = func(name string, mech model.SpawnMechanism, depth int) *ProcessNode {
		node := &ProcessNode{Name: name, Language: langs[name], Mechanism: mech}
		if onPath[name] || depth >= a.cfg.MaxSpawnDepth {
			return node
		}
		onPath[name] = true
		for _, c := range g.children[name] {
			node.Children = append(node.Children, build(c, g.mech[[2]string{name, c}], depth+1))
		}
		onPath[name] = false
		return node
	}

	var tree []*ProcessNode
	for _, r := range g.roots() {
		tree = append(tree, build(r, "", 0))
	}
	return tree
}

func integrationMetrics(edges []model.CrossLanguageEdge) IntegrationMetrics {
	m := IntegrationMetrics{TotalEdges: len(edges), LatencyRisk: LatencyLow, Maintainability: 1}
	if len(edges) == 0 {
		return m
	}

	boundaries := make(map[[2]model.Language]bool)
	types := make(map[model.ConnectionType]bool)
	for _, e := range edges {
		types[e.Type] = true
		if e.Type == model.ConnAPICall {
			m.APICalls++
		}
		w := e.Weight
		if w <= 0 {
			w = 1
		}
		m.DataTransferVolume += w * transferFactor(e.Type)
		if !e.CrossesBoundary() {
			continue
		}
		m.CrossLanguageEdges++
		pair := [2]model.Language{e.SourceLanguage, e.TargetLanguage}
		if pair[0] > pair[1] {
			pair[0], pair[1] = pair[1], pair[0]
		}
		boundaries[pair] = true
	}
	m.Boundaries = len(boundaries)

	ratio := float64(m.CrossLanguageEdges) / float64(m.TotalEdges)
	m.IntegrationScore = model.ClampConfidence(0.7*ratio + 0.3*math.Min(1, float64(m.Boundaries)/10))
	m.CommunicationComplexity = float64(len(types)) / 4
	m.DataTransferVolume = math.Round(m.DataTransferVolume*100) / 100

	switch {
	case m.APICalls > 20 || m.Boundaries > 10:
		m.LatencyRisk = LatencyHigh
	case m.APICalls > 5 || m.Boundaries > 3:
		m.LatencyRisk = LatencyMedium
	}
	if m.Boundaries > 0 {
		avg := float64(m.CrossLanguageEdges) / float64(m.Boundaries)
		m.Maintainability = model.ClampConfidence(1 / avg)
	}
	return m
}

// transferFactor estimates relative payload size per connection type.
func transferFactor(t model.ConnectionType) float64 {
	switch t {
	case model.ConnAPICall:
		return 1
	case model.ConnSpawn:
		return 0.8
	case model.ConnFFI:
		return 0.5
	default:
		return 0.2
	}
}

func spawnStatistics(spawns []Spawn) SpawnStatistics {
	st := SpawnStatistics{Total: len(spawns), ByMechanism: make(map[model.SpawnMechanism]int)}
	commands := make(map[string]bool)
	langs := make(map[model.Language]bool)
	for _, s := range spawns {
		if s.IsAsync {
			st.Asynchronous++
		} else {
			st.Synchronous++
		}
		if s.Shell {
			st.Shell++
		}
		if s.ChildLanguage != "" && s.ChildLanguage != s.ParentLanguage {
			st.CrossLanguage++
		}
		if s.Command != "" {
			commands[s.Command] = true
		}
		if s.ChildLanguage != "" {
			langs[s.ChildLanguage] = true
		}
		st.ByMechanism[s.Mechanism]++
	}
	st.Commands = len(commands)
	for l := range langs {
		st.Languages = append(st.Languages, l)
	}
	sort.Slice(st.Languages, func(i, j int) bool { return st.Languages[i] < st.Languages[j] })
	return st
}
