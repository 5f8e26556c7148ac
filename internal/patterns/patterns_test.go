package patterns

import (
	"os"
	"path/filepath"
	"testing"

	"sentinel/internal/config"
	"sentinel/internal/errors"
	"sentinel/internal/model"
)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e, err := NewEngine(config.DefaultConfig().Patterns, nil, opts...)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return e
}

func definition(t *testing.T, e *Engine, name string) *Definition {
	t.Helper()
	defs := e.Definitions()
	for i := range defs {
		if defs[i].Name == name {
			return &defs[i]
		}
	}
	t.Fatalf("definition %q not loaded", name)
	return nil
}

func sym(kind model.SymbolKind, qualified, parent string) model.Symbol {
	name := qualified
	if parent != "" {
		name = qualified[len(parent)+1:]
	} else if i := lastDot(qualified); i >= 0 {
		name = qualified[i+1:]
	}
	return model.Symbol{Name: name, QualifiedName: qualified, Kind: kind, ParentScope: parent, Confidence: 0.9}
}

func lastDot(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' {
			return i
		}
	}
	return -1
}

// singletonSymbols returns a class with a static accessor, an instance field
// and a private constructor, in that order.
func singletonSymbols() []model.Symbol {
	class := sym(model.KindClass, "app.Config", "")
	accessor := sym(model.KindMethod, "app.Config.getInstance", "app.Config")
	accessor.ReturnType = "Config"
	accessor.SemanticTags = []string{"singleton", "static"}
	field := sym(model.KindField, "app.Config.instance", "app.Config")
	ctor := sym(model.KindConstructor, "app.Config.Config", "app.Config")
	ctor.Visibility = "private"
	return []model.Symbol{class, accessor, field, ctor}
}

func TestBuiltinCatalog(t *testing.T) {
	e := newTestEngine(t)
	want := []string{"singleton", "factory", "builder", "observer", "strategy", "adapter", "repository", "god_class", "error_handler"}
	if len(e.Definitions()) != len(want) {
		t.Fatalf("got %d definitions, want %d", len(e.Definitions()), len(want))
	}
	for _, name := range want {
		def := definition(t, e, name)
		if def.Anchor == "" {
			t.Errorf("%s: anchor not defaulted", name)
		}
	}
	if _, ok := definition(t, e, "singleton").Variations["java"]; !ok {
		t.Error("singleton java variation missing")
	}
}

func TestEvaluate_NoMatchingClassIsExcluded(t *testing.T) {
	def := Definition{
		Name:     "instance_holder",
		Category: "creational",
		Weights:  Weights{Symbols: 1},
		Roles: []Role{
			{Name: "singleton", Kinds: []string{"class"}, NamePattern: `(?i)instance|singleton`, MinCount: 1, MaxCount: 1},
		},
	}
	e := newTestEngine(t, WithDefinitions(def))
	symbols := []model.Symbol{
		sym(model.KindFunction, "app.helper", ""),
		sym(model.KindClass, "app.Widget", ""),
	}

	p := e.Evaluate(definition(t, e, "instance_holder"), nil, symbols, nil, model.LangJava)
	if p.Breakdown.Symbols != 0 {
		t.Errorf("symbol score = %v, want 0", p.Breakdown.Symbols)
	}
	if p.Confidence != 0 {
		t.Errorf("confidence = %v, want 0", p.Confidence)
	}
	for _, got := range e.Detect(symbols, nil, model.LangJava) {
		if got.Name == "instance_holder" {
			t.Errorf("pattern below threshold reported: %+v", got)
		}
	}
}

func TestDetect_Singleton(t *testing.T) {
	e := newTestEngine(t)
	symbols := append(singletonSymbols(), sym(model.KindClass, "app.Other", ""))

	for _, lang := range []model.Language{model.LangJava, model.LangGo} {
		got := e.Detect(symbols, nil, lang)
		if len(got) != 1 {
			t.Fatalf("%s: detected %d patterns, want 1: %+v", lang, len(got), got)
		}
		p := got[0]
		if p.Name != "singleton" || p.Anchor != "app.Config" {
			t.Errorf("%s: got %s anchored at %s", lang, p.Name, p.Anchor)
		}
		if p.Confidence != 1 {
			t.Errorf("%s: confidence = %v, want 1", lang, p.Confidence)
		}
		if p.Quality != QualityExcellent {
			t.Errorf("%s: quality = %s", lang, p.Quality)
		}
		if len(p.Roles["accessor"]) != 1 || p.Roles["accessor"][0] != "app.Config.getInstance" {
			t.Errorf("%s: accessor role = %v", lang, p.Roles["accessor"])
		}
		if len(p.Recommendations) != 0 {
			t.Errorf("%s: unexpected recommendations %v", lang, p.Recommendations)
		}
	}
}

func TestEvaluate_ConfidenceMonotonicInRoles(t *testing.T) {
	e := newTestEngine(t)
	def := definition(t, e, "singleton")
	all := singletonSymbols()
	anchor := all[0]

	prev := -1.0
	for n := 1; n <= len(all); n++ {
		p := e.Evaluate(def, &anchor, all[:n], nil, model.LangJava)
		if p.Confidence < prev {
			t.Errorf("with %d symbols confidence dropped from %v to %v", n, prev, p.Confidence)
		}
		prev = p.Confidence
	}
	if prev != 1 {
		t.Errorf("fully satisfied confidence = %v, want 1", prev)
	}

	partial := e.Evaluate(def, &anchor, all[:1], nil, model.LangJava)
	if partial.Confidence > 0.3 {
		t.Errorf("bare class confidence = %v, want at most 0.3", partial.Confidence)
	}
	if len(partial.Issues) == 0 || len(partial.Recommendations) == 0 {
		t.Error("bare class should report issues and recommendations")
	}
}

func TestDetect_Builder(t *testing.T) {
	e := newTestEngine(t)
	builder := sym(model.KindClass, "app.UserBuilder", "")
	withName := sym(model.KindMethod, "app.UserBuilder.withName", "app.UserBuilder")
	withName.ReturnType = "UserBuilder"
	withAge := sym(model.KindMethod, "app.UserBuilder.withAge", "app.UserBuilder")
	withAge.ReturnType = "UserBuilder"
	build := sym(model.KindMethod, "app.UserBuilder.build", "app.UserBuilder")
	build.ReturnType = "User"
	user := sym(model.KindClass, "app.User", "")

	got := e.Detect([]model.Symbol{builder, withName, withAge, build, user}, nil, model.LangJava)
	var found *DetectedPattern
	for i := range got {
		if got[i].Name == "builder" {
			found = &got[i]
		}
	}
	if found == nil {
		t.Fatalf("builder not detected: %+v", got)
	}
	if found.Confidence != 1 {
		t.Errorf("confidence = %v, want 1", found.Confidence)
	}
	if len(found.Roles["product"]) != 1 || found.Roles["product"][0] != "app.User" {
		t.Errorf("product role = %v", found.Roles["product"])
	}
}

func TestDetect_StrategyUsesRelationships(t *testing.T) {
	e := newTestEngine(t)
	symbols := []model.Symbol{
		sym(model.KindInterface, "app.SortStrategy", ""),
		sym(model.KindClass, "app.QuickSort", ""),
		sym(model.KindClass, "app.MergeSort", ""),
		sym(model.KindClass, "app.Sorter", ""),
	}
	rels := []model.Relationship{
		{FromName: "app.QuickSort", ToName: "app.SortStrategy", Type: model.RelImplements, Confidence: 0.9},
		{FromName: "app.MergeSort", ToName: "app.SortStrategy", Type: model.RelImplements, Confidence: 0.9},
		{FromName: "app.Sorter", ToName: "SortStrategy", Type: model.RelUses, Confidence: 0.8},
	}

	got := e.Detect(symbols, rels, model.LangGo)
	var found *DetectedPattern
	for i := range got {
		if got[i].Name == "strategy" {
			found = &got[i]
		}
	}
	if found == nil {
		t.Fatalf("strategy not detected: %+v", got)
	}
	if found.Confidence != 1 {
		t.Errorf("confidence = %v, want 1 (breakdown %+v)", found.Confidence, found.Breakdown)
	}
	if len(found.Roles["implementation"]) != 2 {
		t.Errorf("implementations = %v", found.Roles["implementation"])
	}
	if len(found.Roles["context"]) != 1 || found.Roles["context"][0] != "app.Sorter" {
		t.Errorf("context = %v", found.Roles["context"])
	}
	if found.RelationshipStrength != 0.8 {
		t.Errorf("relationship strength = %v, want 0.8", found.RelationshipStrength)
	}
}

func TestEvaluate_RelationshipNeedsBothRoles(t *testing.T) {
	e := newTestEngine(t)
	def := definition(t, e, "strategy")
	iface := sym(model.KindInterface, "app.SortStrategy", "")
	rels := []model.Relationship{
		{FromName: "app.Sorter", ToName: "app.SortStrategy", Type: model.RelUses},
	}

	p := e.Evaluate(def, &iface, []model.Symbol{iface}, rels, model.LangGo)
	if p.Breakdown.Relationships != 0 {
		t.Errorf("relationship score = %v, want 0 without a context role", p.Breakdown.Relationships)
	}
}

func TestParse_InvalidDefinitions(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"malformed yaml", "patterns: [\n"},
		{"no name", "patterns:\n  - roles: [{name: a}]\n    weights: {symbols: 1}\n"},
		{"no roles", "patterns:\n  - name: p\n    weights: {symbols: 1}\n"},
		{"zero weights", "patterns:\n  - name: p\n    roles: [{name: a}]\n"},
		{"unknown kind", "patterns:\n  - name: p\n    weights: {symbols: 1}\n    roles: [{name: a, kinds: [widget]}]\n"},
		{"bad regex", "patterns:\n  - name: p\n    weights: {symbols: 1}\n    roles: [{name: a, namePattern: '('}]\n"},
		{"forward reference", "patterns:\n  - name: p\n    weights: {symbols: 1}\n    roles: [{name: a, memberOf: b}, {name: b}]\n"},
		{"unknown relationship", "patterns:\n  - name: p\n    weights: {symbols: 1}\n    roles: [{name: a}, {name: b}]\n    relationships: [{from: a, to: b, types: [likes]}]\n"},
		{"anchor with dependency", "patterns:\n  - name: p\n    anchor: b\n    weights: {symbols: 1}\n    roles: [{name: a}, {name: b, memberOf: a}]\n"},
		{"unknown variation language", "patterns:\n  - name: p\n    weights: {symbols: 1}\n    roles: [{name: a}]\n    variations: {cobol: {}}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if !errors.IsCode(err, errors.InvalidDefinition) {
				t.Errorf("Parse() error = %v, want %s", err, errors.InvalidDefinition)
			}
		})
	}
}

func TestNewEngine_UnknownValidator(t *testing.T) {
	def := Definition{
		Name:      "custom",
		Weights:   Weights{Symbols: 1, Structure: 1},
		Roles:     []Role{{Name: "a"}},
		Structure: []StructureRule{{Validator: "does_not_exist"}},
	}
	_, err := NewEngine(config.DefaultConfig().Patterns, nil, WithDefinitions(def))
	if !errors.IsCode(err, errors.InvalidDefinition) {
		t.Fatalf("NewEngine() error = %v, want %s", err, errors.InvalidDefinition)
	}

	e := newTestEngine(t, WithDefinitions(def), WithValidator("does_not_exist", func(*Match) float64 { return 1 }))
	a := model.Symbol{Name: "A", QualifiedName: "A", Kind: model.KindClass}
	if p := e.Evaluate(definition(t, e, "custom"), &a, []model.Symbol{a}, nil, model.LangGo); p.Confidence != 1 {
		t.Errorf("confidence with custom validator = %v, want 1", p.Confidence)
	}
}

func TestNewEngine_UserCatalogOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patterns.yaml")
	data := "patterns:\n  - name: singleton\n    category: custom\n    weights: {symbols: 1}\n    roles: [{name: holder, kinds: [class]}]\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	cfg := config.DefaultConfig().Patterns
	cfg.CatalogPath = path

	e, err := NewEngine(cfg, nil)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	if len(e.Definitions()) != 9 {
		t.Errorf("got %d definitions, want 9", len(e.Definitions()))
	}
	if got := definition(t, e, "singleton").Category; got != "custom" {
		t.Errorf("singleton category = %q, want custom", got)
	}

	cfg.CatalogPath = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := NewEngine(cfg, nil); !errors.IsCode(err, errors.InvalidDefinition) {
		t.Errorf("missing catalog error = %v", err)
	}
}

func TestNamingConsistency(t *testing.T) {
	def := &Definition{Roles: []Role{{Name: "step"}}}
	named := func(names ...string) map[string][]model.Symbol {
		var syms []model.Symbol
		for _, n := range names {
			syms = append(syms, model.Symbol{Name: n})
		}
		return map[string][]model.Symbol{"step": syms}
	}

	similar := namingConsistency(def, named("withName", "withAge", "withEmail"))
	mixed := namingConsistency(def, named("withName", "qux", "Z"))
	if similar <= mixed {
		t.Errorf("similar names %v should score above mixed names %v", similar, mixed)
	}
	if got := namingConsistency(def, named("only")); got != 1 {
		t.Errorf("single member consistency = %v, want 1", got)
	}
}

func TestQualityTier(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{1, QualityExcellent},
		{0.8, QualityExcellent},
		{0.7, QualityGood},
		{0.5, QualityFair},
		{0.31, QualityWeak},
	}
	for _, tt := range tests {
		if got := QualityTier(tt.score); got != tt.want {
			t.Errorf("QualityTier(%v) = %s, want %s", tt.score, got, tt.want)
		}
	}
}
