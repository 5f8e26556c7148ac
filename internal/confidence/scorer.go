// Package confidence converts adapter output and file-level signals into a
// normalized confidence vector.
package confidence

import (
	"sentinel/internal/config"
	"sentinel/internal/model"
)

// Tier names a confidence band.
type Tier string

const (
	TierExcellent    Tier = "excellent"
	TierGood         Tier = "good"
	TierAcceptable   Tier = "acceptable"
	TierPoor         Tier = "poor"
	TierUnacceptable Tier = "unacceptable"
)

// Quality maps a score to its tier.
func Quality(score float64) Tier {
	switch {
	case score >= 0.95:
		return TierExcellent
	case score >= 0.85:
		return TierGood
	case score >= 0.75:
		return TierAcceptable
	case score >= 0.60:
		return TierPoor
	default:
		return TierUnacceptable
	}
}

// Weights are the per-component weights of the overall score.
type Weights struct {
	SymbolDetection      float64
	TypeResolution       float64
	RelationshipAccuracy float64
	ModernFeatureSupport float64
	ModuleAnalysis       float64
}

// DefaultWeights returns the standard weighting.
func DefaultWeights() Weights {
	return WeightsFromConfig(config.DefaultConfig().Confidence)
}

// WeightsFromConfig converts the config section.
func WeightsFromConfig(c config.ConfidenceConfig) Weights {
	return Weights{
		SymbolDetection:      c.SymbolDetection,
		TypeResolution:       c.TypeResolution,
		RelationshipAccuracy: c.RelationshipAccuracy,
		ModernFeatureSupport: c.ModernFeatureSupport,
		ModuleAnalysis:       c.ModuleAnalysis,
	}
}

func (w Weights) sum() float64 {
	return w.SymbolDetection + w.TypeResolution + w.RelationshipAccuracy + w.ModernFeatureSupport + w.ModuleAnalysis
}

// Factors are the file-level signals that move confidence.
type Factors struct {
	FileSize         int
	Complexity       int
	ParseErrors      int
	AdvancedFeatures int
	UnresolvedTypes  int
	ResolvedTypes    int
	Relationships    int
	HasSemanticData  bool
	Rung             model.ParserRung
}

// Scorer computes confidence vectors. It holds no mutable state and is safe
// for concurrent use.
type Scorer struct {
	weights Weights
}

// NewScorer creates a scorer. Zero weights fall back to the defaults.
func NewScorer(w Weights) *Scorer {
	if w.sum() <= 0 {
		w = DefaultWeights()
	}
	return &Scorer{weights: w}
}

// Weights returns the scorer's weights.
func (s *Scorer) Weights() Weights { return s.weights }

// Score computes the confidence vector for a parse result.
func (s *Scorer) Score(symbols []model.Symbol, f Factors) model.ConfidenceMetrics {
	m := model.ConfidenceMetrics{
		SymbolDetection:      clamp(symbolDetection(symbols, f)),
		TypeResolution:       clamp(typeResolution(f)),
		RelationshipAccuracy: clamp(relationshipAccuracy(symbols, f)),
		ModernFeatureSupport: clamp(modernFeatureSupport(f)),
		ModuleAnalysis:       clamp(moduleAnalysis(f)),
	}

	w := s.weights
	overall := m.SymbolDetection*w.SymbolDetection +
		m.TypeResolution*w.TypeResolution +
		m.RelationshipAccuracy*w.RelationshipAccuracy +
		m.ModernFeatureSupport*w.ModernFeatureSupport +
		m.ModuleAnalysis*w.ModuleAnalysis
	if total := w.sum(); total > 0 {
		overall /= total
	}
	m.Overall = clamp(overall)
	m.Quality = string(Quality(m.Overall))
	return m
}

// SymbolConfidence calibrates a single symbol's confidence for the rung that
// produced it.
func SymbolConfidence(sym model.Symbol, rung model.ParserRung) float64 {
	base := rungBase(rung)
	if sym.Signature == "" && sym.Kind.IsCallable() {
		base -= 0.05
	}
	if sym.Features.IsAdvanced() {
		base -= 0.05
	}
	if len(sym.SemanticTags) > 0 {
		base += 0.02
	}
	return clamp(base)
}

func rungBase(rung model.ParserRung) float64 {
	switch rung {
	case model.RungGrammar:
		return 0.95
	case model.RungChunked:
		return 0.85
	case model.RungHeuristic:
		return 0.75
	case model.RungStreaming:
		return 0.6
	default:
		return 0.7
	}
}

func symbolDetection(symbols []model.Symbol, f Factors) float64 {
	score := rungBase(f.Rung)
	if len(symbols) > 0 {
		total := 0.0
		for _, sym := range symbols {
			total += model.ClampConfidence(sym.Confidence)
		}
		score = (score + total/float64(len(symbols))) / 2
	}
	score -= sizePenalty(f.FileSize)
	score -= complexityPenalty(f.Complexity)
	score -= errorPenalty(f.ParseErrors)
	if f.HasSemanticData {
		score += 0.05
	}
	return floor(score)
}

func typeResolution(f Factors) float64 {
	score := 0.9
	if total := f.ResolvedTypes + f.UnresolvedTypes; total > 0 {
		score -= 0.4 * float64(f.UnresolvedTypes) / float64(total)
	}
	score -= advancedPenalty(f.AdvancedFeatures, 0.02, 0.2)
	if f.HasSemanticData {
		score += 0.05
	}
	return floor(score)
}

func relationshipAccuracy(symbols []model.Symbol, f Factors) float64 {
	score := 0.85
	switch f.Rung {
	case model.RungHeuristic:
		score = 0.75
	case model.RungStreaming:
		score = 0.5
	}
	if f.Relationships == 0 && len(symbols) > 1 && f.Rung != model.RungStreaming {
		score -= 0.1
	}
	score -= errorPenalty(f.ParseErrors)
	score -= complexityPenalty(f.Complexity)
	if f.HasSemanticData {
		score += 0.05
	}
	return floor(score)
}

func modernFeatureSupport(f Factors) float64 {
	score := 0.9
	if f.Rung == model.RungGrammar {
		score += 0.05
	}
	score -= advancedPenalty(f.AdvancedFeatures, 0.03, 0.3)
	return floor(score)
}

func moduleAnalysis(f Factors) float64 {
	score := 0.9
	if f.Rung == model.RungStreaming {
		score -= 0.2
	}
	score -= sizePenalty(f.FileSize)
	score -= errorPenalty(f.ParseErrors) / 2
	if f.HasSemanticData {
		score += 0.05
	}
	return floor(score)
}

func sizePenalty(size int) float64 {
	switch {
	case size > 1024*1024:
		return 0.1
	case size > 64*1024:
		return 0.05
	}
	return 0
}

func complexityPenalty(c int) float64 {
	switch {
	case c > 50:
		return 0.1
	case c > 20:
		return 0.05
	}
	return 0
}

func errorPenalty(errs int) float64 {
	p := 0.05 * float64(errs)
	if p > 0.3 {
		return 0.3
	}
	return p
}

func advancedPenalty(n int, each, limit float64) float64 {
	p := each * float64(n)
	if p > limit {
		return limit
	}
	return p
}

// floor keeps an adjusted component at or above zero before the bonus cap.
func floor(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

func clamp(v float64) float64 {
	return model.ClampConfidence(v)
}
