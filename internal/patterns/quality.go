package patterns

import (
	"fmt"
	"strings"

	"github.com/hbollon/go-edlib"

	"sentinel/internal/model"
)

// Quality tiers reported with a detected pattern.
const (
	QualityExcellent = "excellent"
	QualityGood      = "good"
	QualityFair      = "fair"
	QualityWeak      = "weak"
)

// maxNamingSample bounds the pairwise name comparison per role.
const maxNamingSample = 40

// QualityTier maps a confidence to a tier.
func QualityTier(confidence float64) string {
	switch {
	case confidence >= 0.8:
		return QualityExcellent
	case confidence >= 0.6:
		return QualityGood
	case confidence >= 0.45:
		return QualityFair
	}
	return QualityWeak
}

// assess fills the quality fields of p. The output depends only on the
// score and on the matched symbols and relationships.
func assess(p *DetectedPattern, def *Definition, roles map[string][]model.Symbol, unmet []string, missing []RelationshipRule) {
	p.Quality = QualityTier(p.Confidence)
	p.NamingConsistency = namingConsistency(def, roles)
	p.RelationshipStrength = relationshipStrength(p.Relationships)

	if p.NamingConsistency < 0.6 {
		p.Issues = append(p.Issues, fmt.Sprintf("names within %s roles are inconsistent", def.Name))
	}

	var recs []string
	for _, r := range unmet {
		recs = append(recs, fmt.Sprintf("introduce a %s to complete the %s", strings.ReplaceAll(r, "_", " "), def.Name))
	}
	for _, rr := range missing {
		recs = append(recs, fmt.Sprintf("connect %s to %s through %s", rr.From, rr.To, strings.Join(rr.Types, " or ")))
	}
	if len(def.Naming) > 0 && p.Breakdown.Naming < 0.5 {
		recs = append(recs, fmt.Sprintf("align names with %s conventions", def.Name))
	}
	if len(def.Structure) > 0 && p.Breakdown.Structure < 0.5 {
		recs = append(recs, fmt.Sprintf("tighten the %s structure", def.Name))
	}
	if def.Category == "anti-pattern" && p.Anchor != "" {
		recs = append(recs, fmt.Sprintf("split %s into smaller cohesive types", p.Anchor))
	}
	p.Recommendations = recs
}

// namingConsistency averages the pairwise Jaro-Winkler similarity of names
// within each role that has at least two members. Roles with fewer members
// do not count; with none, names are considered consistent.
func namingConsistency(def *Definition, roles map[string][]model.Symbol) float64 {
	var sum float64
	var n int
	for _, r := range def.Roles {
		syms := roles[r.Name]
		if len(syms) < 2 {
			continue
		}
		if len(syms) > maxNamingSample {
			syms = syms[:maxNamingSample]
		}
		var total float64
		var pairs int
		for i := 0; i < len(syms); i++ {
			for j := i + 1; j < len(syms); j++ {
				total += similarity(syms[i].Name, syms[j].Name)
				pairs++
			}
		}
		sum += total / float64(pairs)
		n++
	}
	if n == 0 {
		return 1
	}
	return sum / float64(n)
}

func similarity(a, b string) float64 {
	s, err := edlib.StringsSimilarity(strings.ToLower(a), strings.ToLower(b), edlib.JaroWinkler)
	if err != nil {
		return 0
	}
	return float64(s)
}

// relationshipStrength is the mean confidence of the matched relationships.
func relationshipStrength(rels []model.Relationship) float64 {
	if len(rels) == 0 {
		return 0
	}
	var sum float64
	for _, r := range rels {
		sum += r.Confidence
	}
	return model.ClampConfidence(sum / float64(len(rels)))
}
