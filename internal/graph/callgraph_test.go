package graph

import (
	"context"
	"testing"

	"sentinel/internal/errors"
	"sentinel/internal/model"
)

func fn(qualified string, line int) model.Symbol {
	return model.Symbol{
		ID:            model.SymbolID("p", model.LangGo, qualified, model.KindFunction),
		Name:          qualified,
		QualifiedName: qualified,
		Kind:          model.KindFunction,
		Language:      model.LangGo,
		FilePath:      "main.go",
		Line:          line,
		IsDefinition:  true,
		Confidence:    0.9,
	}
}

func call(from, to string) model.Relationship {
	return model.Relationship{FromName: from, ToName: to, Type: model.RelCalls, Confidence: 0.9}
}

func callGraphFixture() *Index {
	symbols := []model.Symbol{
		fn("main", 1), fn("serve", 10), fn("handle", 20), fn("parse", 30), fn("walk", 40), fn("log", 50),
	}
	rels := []model.Relationship{
		call("main", "serve"),
		call("serve", "handle"),
		call("handle", "parse"),
		call("handle", "log"),
		call("serve", "log"),
		call("parse", "walk"),
		call("walk", "walk"),
		{FromName: "handle", ToName: "Request", Type: model.RelUses, Confidence: 0.8},
	}
	return NewIndex(model.NewSnapshot(symbols, rels), DefaultEdgeWeights())
}

func TestCallGraphFor(t *testing.T) {
	x := callGraphFixture()
	cg, err := x.CallGraphFor(context.Background(), "handle", 1)
	if err != nil {
		t.Fatalf("CallGraphFor() error = %v", err)
	}
	if cg.Target.QualifiedName != "handle" {
		t.Errorf("Target = %q", cg.Target.QualifiedName)
	}
	if len(cg.Callers) != 1 || cg.Callers[0].Symbol != "serve" || cg.Callers[0].Line != 10 {
		t.Errorf("Callers = %+v, want serve", cg.Callers)
	}
	if len(cg.Callees) != 2 || cg.Callees[0].Symbol != "log" || cg.Callees[1].Symbol != "parse" {
		t.Errorf("Callees = %+v, want log and parse", cg.Callees)
	}
	if cg.Metrics.FanIn != 1 || cg.Metrics.FanOut != 2 {
		t.Errorf("fan = %d/%d, want 1/2", cg.Metrics.FanIn, cg.Metrics.FanOut)
	}
	if cg.Metrics.Recursive {
		t.Error("handle is not recursive")
	}
	if cg.Metrics.Criticality != 3.5 {
		t.Errorf("Criticality = %v, want 3.5", cg.Metrics.Criticality)
	}
	if cg.Metrics.Importance <= 0 || cg.Metrics.Importance > 1 {
		t.Errorf("Importance = %v, want within (0,1]", cg.Metrics.Importance)
	}
}

func TestCallGraphFor_Depth(t *testing.T) {
	x := callGraphFixture()
	cg, err := x.CallGraphFor(context.Background(), "parse", 3)
	if err != nil {
		t.Fatalf("CallGraphFor() error = %v", err)
	}
	want := map[string]int{"handle": 1, "serve": 2, "main": 3}
	if len(cg.Callers) != len(want) {
		t.Fatalf("Callers = %+v", cg.Callers)
	}
	for _, c := range cg.Callers {
		if want[c.Symbol] != c.Depth {
			t.Errorf("caller %s at depth %d, want %d", c.Symbol, c.Depth, want[c.Symbol])
		}
	}
	if cg.Metrics.FanIn != 1 {
		t.Errorf("FanIn = %d, want 1 (direct callers only)", cg.Metrics.FanIn)
	}
}

func TestCallGraphFor_Recursive(t *testing.T) {
	x := callGraphFixture()
	cg, err := x.CallGraphFor(context.Background(), "walk", 1)
	if err != nil {
		t.Fatalf("CallGraphFor() error = %v", err)
	}
	if !cg.Metrics.Recursive {
		t.Error("walk calls itself")
	}
	found := false
	for _, c := range cg.Callees {
		if c.Symbol == "walk" {
			found = true
		}
	}
	if !found {
		t.Errorf("Callees = %+v, want walk itself", cg.Callees)
	}
}

func TestCallGraphFor_MutualRecursion(t *testing.T) {
	symbols := []model.Symbol{fn("even", 1), fn("odd", 5)}
	rels := []model.Relationship{call("even", "odd"), call("odd", "even")}
	x := NewIndex(model.NewSnapshot(symbols, rels), DefaultEdgeWeights())
	cg, err := x.CallGraphFor(context.Background(), "even", 2)
	if err != nil {
		t.Fatalf("CallGraphFor() error = %v", err)
	}
	if !cg.Metrics.Recursive {
		t.Error("even and odd are mutually recursive")
	}
	if len(cg.Callees) != 1 {
		t.Errorf("Callees = %+v, want only odd", cg.Callees)
	}
}

func TestCallGraphFor_ByID(t *testing.T) {
	x := callGraphFixture()
	id := model.SymbolID("p", model.LangGo, "serve", model.KindFunction)
	cg, err := x.CallGraphFor(context.Background(), id, 1)
	if err != nil {
		t.Fatalf("CallGraphFor() error = %v", err)
	}
	if cg.Target.QualifiedName != "serve" {
		t.Errorf("Target = %q, want serve", cg.Target.QualifiedName)
	}
}

func TestCallGraphFor_NotFound(t *testing.T) {
	x := callGraphFixture()
	_, err := x.CallGraphFor(context.Background(), "missing", 1)
	if !errors.IsCode(err, errors.SymbolNotFound) {
		t.Errorf("error = %v, want SYMBOL_NOT_FOUND", err)
	}
}

func TestBuild_SkipsUnknownTypes(t *testing.T) {
	rels := []model.Relationship{
		call("a", "b"),
		{FromName: "a", ToName: "c", Type: "rumor"},
		{FromName: "", ToName: "c", Type: model.RelCalls},
	}
	g := Build(nil, rels, DefaultEdgeWeights())
	st := g.Stats()
	if st.TotalEdges != 1 || st.ByKind[model.RelCalls] != 1 {
		t.Errorf("Stats = %+v, want one call edge", st)
	}
	if out := g.Out("a"); len(out) != 1 || out[0].Weight != 0.9 {
		t.Errorf("Out(a) = %+v, want weight 0.9", out)
	}
}
