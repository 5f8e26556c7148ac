package confidence

import (
	"math"
	"testing"

	"sentinel/internal/model"
)

func TestQuality(t *testing.T) {
	tests := []struct {
		score float64
		want  Tier
	}{
		{1.0, TierExcellent},
		{0.95, TierExcellent},
		{0.9, TierGood},
		{0.85, TierGood},
		{0.8, TierAcceptable},
		{0.6, TierPoor},
		{0.59, TierUnacceptable},
		{0, TierUnacceptable},
	}
	for _, tt := range tests {
		if got := Quality(tt.score); got != tt.want {
			t.Errorf("Quality(%v) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestScore_Bounded(t *testing.T) {
	scorer := NewScorer(DefaultWeights())

	extremes := []Factors{
		{},
		{FileSize: 10 << 20, Complexity: 500, ParseErrors: 100, AdvancedFeatures: 100, UnresolvedTypes: 50, Rung: model.RungStreaming},
		{HasSemanticData: true, ResolvedTypes: 10, Relationships: 40, Rung: model.RungGrammar},
	}
	syms := []model.Symbol{{Confidence: 1.5}, {Confidence: -0.2}}

	for i, f := range extremes {
		m := scorer.Score(syms, f)
		for name, v := range map[string]float64{
			"overall":      m.Overall,
			"symbol":       m.SymbolDetection,
			"type":         m.TypeResolution,
			"relationship": m.RelationshipAccuracy,
			"modern":       m.ModernFeatureSupport,
			"module":       m.ModuleAnalysis,
		} {
			if v < 0 || v > 1 {
				t.Errorf("case %d: %s = %v out of [0,1]", i, name, v)
			}
		}
	}
}

func TestScore_Deterministic(t *testing.T) {
	scorer := NewScorer(DefaultWeights())
	f := Factors{FileSize: 2048, Complexity: 12, Relationships: 3, Rung: model.RungHeuristic}
	syms := []model.Symbol{{Confidence: 0.8}}

	a := scorer.Score(syms, f)
	b := scorer.Score(syms, f)
	if a != b {
		t.Errorf("Score not deterministic: %+v vs %+v", a, b)
	}
}

func TestScore_DegradesWithErrors(t *testing.T) {
	scorer := NewScorer(DefaultWeights())
	syms := []model.Symbol{{Confidence: 0.9}, {Confidence: 0.9}}

	clean := scorer.Score(syms, Factors{Relationships: 2, Rung: model.RungGrammar})
	noisy := scorer.Score(syms, Factors{Relationships: 2, ParseErrors: 4, UnresolvedTypes: 5, ResolvedTypes: 1, Rung: model.RungGrammar})

	if noisy.Overall >= clean.Overall {
		t.Errorf("errors should lower confidence: clean=%v noisy=%v", clean.Overall, noisy.Overall)
	}
}

func TestScore_WeightedSum(t *testing.T) {
	w := Weights{SymbolDetection: 1}
	scorer := NewScorer(w)
	m := scorer.Score(nil, Factors{Rung: model.RungGrammar})

	if math.Abs(m.Overall-m.SymbolDetection) > 1e-9 {
		t.Errorf("with a single weight overall should equal that component: %v vs %v", m.Overall, m.SymbolDetection)
	}
}

func TestNewScorer_ZeroWeightsUseDefaults(t *testing.T) {
	s := NewScorer(Weights{})
	if s.Weights() != DefaultWeights() {
		t.Errorf("Weights() = %+v, want defaults", s.Weights())
	}
}

func TestSymbolConfidence_ByRung(t *testing.T) {
	sym := model.Symbol{Kind: model.KindFunction, Signature: "void f()"}
	grammar := SymbolConfidence(sym, model.RungGrammar)
	heuristic := SymbolConfidence(sym, model.RungHeuristic)
	streaming := SymbolConfidence(sym, model.RungStreaming)

	if !(grammar > heuristic && heuristic > streaming) {
		t.Errorf("expected grammar > heuristic > streaming, got %v %v %v", grammar, heuristic, streaming)
	}
}
