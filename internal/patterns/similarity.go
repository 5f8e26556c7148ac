package patterns

import (
	"math"
	"path"
	"sort"
	"strings"
	"unicode"

	"github.com/hbollon/go-edlib"

	"sentinel/internal/model"
)

// SimilarityWeights weighs the four components of a symbol comparison.
type SimilarityWeights struct {
	Name      float64 `json:"name"`
	Signature float64 `json:"signature"`
	Structure float64 `json:"structure"`
	Context   float64 `json:"context"`
}

// DefaultSimilarityWeights returns the defaults.
func DefaultSimilarityWeights() SimilarityWeights {
	return SimilarityWeights{Name: 0.3, Signature: 0.4, Structure: 0.2, Context: 0.1}
}

// Similarity is the result of comparing two symbols. Every score is in [0,1].
type Similarity struct {
	Overall   float64 `json:"overall"`
	Name      float64 `json:"name"`
	Signature float64 `json:"signature"`
	Structure float64 `json:"structure"`
	Context   float64 `json:"context"`
}

// Duplicate is a pair of symbols similar enough to be the same code.
type Duplicate struct {
	First      model.Symbol `json:"first"`
	Second     model.Symbol `json:"second"`
	Similarity Similarity   `json:"similarity"`
}

// Comparer scores symbol pairs by name, signature, shape and location.
type Comparer struct {
	weights SimilarityWeights
}

// NewComparer creates a comparer. Zero weights fall back to the defaults.
func NewComparer(w SimilarityWeights) *Comparer {
	if w.Name+w.Signature+w.Structure+w.Context <= 0 {
		w = DefaultSimilarityWeights()
	}
	return &Comparer{weights: w}
}

// Compare scores how alike a and b are.
func (c *Comparer) Compare(a, b model.Symbol) Similarity {
	s := Similarity{
		Name:      nameSimilarity(a.Name, b.Name),
		Signature: signatureSimilarity(a, b),
		Structure: structureSimilarity(a, b),
		Context:   contextSimilarity(a.FilePath, b.FilePath),
	}
	w := c.weights
	total := w.Name + w.Signature + w.Structure + w.Context
	s.Overall = model.ClampConfidence((w.Name*s.Name + w.Signature*s.Signature +
		w.Structure*s.Structure + w.Context*s.Context) / total)
	return s
}

// FindDuplicates compares every pair of definitions of the same kind family
// and returns those scoring at least threshold, most similar first.
// Virtual symbols and pairs sharing an id are skipped.
func (c *Comparer) FindDuplicates(symbols []model.Symbol, threshold float64) []Duplicate {
	groups := make(map[string][]model.Symbol)
	for _, s := range symbols {
		if !s.IsDefinition || s.HasTag("virtual") || s.Name == "" {
			continue
		}
		family := kindFamily(s.Kind)
		if family == "" {
			continue
		}
		groups[family] = append(groups[family], s)
	}

	var out []Duplicate
	for _, group := range groups {
		for i := range group {
			for j := i + 1; j < len(group); j++ {
				a, b := group[i], group[j]
				if a.ID != "" && a.ID == b.ID {
					continue
				}
				sim := c.Compare(a, b)
				if sim.Overall < threshold {
					continue
				}
				if b.QualifiedName < a.QualifiedName {
					a, b = b, a
				}
				out = append(out, Duplicate{First: a, Second: b, Similarity: sim})
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Similarity.Overall != out[j].Similarity.Overall {
			return out[i].Similarity.Overall > out[j].Similarity.Overall
		}
		if out[i].First.QualifiedName != out[j].First.QualifiedName {
			return out[i].First.QualifiedName < out[j].First.QualifiedName
		}
		return out[i].Second.QualifiedName < out[j].Second.QualifiedName
	})
	return out
}

func kindFamily(k model.SymbolKind) string {
	switch {
	case k.IsCallable():
		return "callable"
	case k.IsType() || k == model.KindInterface:
		return "type"
	}
	return ""
}

func nameSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	if strings.EqualFold(a, b) {
		return 0.95
	}
	na, nb := normalizeName(a), normalizeName(b)
	if na == nb {
		return 0.9
	}
	edit, err := edlib.StringsSimilarity(na, nb, edlib.Levenshtein)
	if err != nil {
		edit = 0
	}
	return float64(edit)*0.6 + tokenOverlap(strings.Split(na, "_"), strings.Split(nb, "_"))*0.4
}

// normalizeName lowercases a name into snake case and drops accessor
// prefixes and implementation suffixes.
func normalizeName(name string) string {
	var b strings.Builder
	prevLower := false
	for _, r := range name {
		if unicode.IsUpper(r) && prevLower {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToLower(r))
		prevLower = unicode.IsLower(r) || unicode.IsDigit(r)
	}
	out := b.String()
	for _, p := range []string{"get_", "set_", "is_"} {
		out = strings.TrimPrefix(out, p)
	}
	for _, s := range []string{"_impl", "_internal"} {
		out = strings.TrimSuffix(out, s)
	}
	return out
}

// tokenOverlap is the Jaccard index of two token sets.
func tokenOverlap(a, b []string) float64 {
	set := make(map[string]int)
	for _, t := range a {
		if t != "" {
			set[t] |= 1
		}
	}
	for _, t := range b {
		if t != "" {
			set[t] |= 2
		}
	}
	if len(set) == 0 {
		return 0
	}
	both := 0
	for _, v := range set {
		if v == 3 {
			both++
		}
	}
	return float64(both) / float64(len(set))
}

func signatureSimilarity(a, b model.Symbol) float64 {
	if a.Signature == "" && b.Signature == "" {
		return 0.5
	}
	if a.Signature == b.Signature {
		return 1
	}
	pa, ra := splitSignature(a)
	pb, rb := splitSignature(b)
	ret := typeSimilarity(ra, rb)
	return parameterSimilarity(pa, pb)*0.7 + ret*0.3
}

// splitSignature returns the parameter list and return type of a callable.
// The parameter list is the first parenthesized group after the name, so a
// Go receiver is not mistaken for it.
func splitSignature(s model.Symbol) ([]string, string) {
	sig := s.Signature
	from := 0
	if i := strings.Index(sig, s.Name+"("); i >= 0 {
		from = i + len(s.Name)
	} else if i := strings.Index(sig, s.Name); i >= 0 {
		from = i + len(s.Name)
	}
	open := strings.IndexByte(sig[from:], '(')
	if open < 0 {
		return nil, returnType(s, "")
	}
	open += from
	depth, end := 0, -1
	for i := open; i < len(sig) && end < 0; i++ {
		switch sig[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				end = i
			}
		}
	}
	if end < 0 {
		return nil, returnType(s, "")
	}
	var params []string
	for _, p := range strings.Split(sig[open+1:end], ",") {
		if p = strings.TrimSpace(p); p != "" {
			params = append(params, p)
		}
	}
	return params, returnType(s, sig[end+1:])
}

func returnType(s model.Symbol, rest string) string {
	if s.ReturnType != "" {
		return s.ReturnType
	}
	rest = strings.TrimSpace(rest)
	if i := strings.Index(rest, "->"); i >= 0 {
		rest = rest[i+2:]
	}
	rest = strings.TrimSpace(strings.TrimRight(strings.TrimLeft(rest, ": "), "{ "))
	if rest == "" {
		return "void"
	}
	return rest
}

func parameterSimilarity(a, b []string) float64 {
	if len(a) != len(b) {
		diff := math.Abs(float64(len(a) - len(b)))
		return 0.3 / (1 + diff)
	}
	if len(a) == 0 {
		return 1
	}
	score := 0.0
	for i := range a {
		score += typeSimilarity(a[i], b[i])
	}
	return score / float64(len(a))
}

var typeAliases = [][2]string{
	{"i32", "int"}, {"i64", "long"}, {"f32", "float"}, {"f64", "double"},
	{"String", "str"}, {"Vec", "Array"}, {"HashMap", "Map"},
}

func typeSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	na, nb := stripQualifiers(a), stripQualifiers(b)
	if na == nb {
		return 0.9
	}
	if strings.Contains(na, "<") && strings.Contains(nb, "<") &&
		strings.SplitN(na, "<", 2)[0] == strings.SplitN(nb, "<", 2)[0] {
		return 0.8
	}
	for _, alias := range typeAliases {
		if (strings.Contains(na, alias[0]) && strings.Contains(nb, alias[1])) ||
			(strings.Contains(na, alias[1]) && strings.Contains(nb, alias[0])) {
			return 0.7
		}
	}
	return 0
}

func stripQualifiers(t string) string {
	t = strings.NewReplacer("&", "", "*", "", "mut ", "", "const ", "").Replace(t)
	return strings.TrimSpace(t)
}

func structureSimilarity(a, b model.Symbol) float64 {
	score, factors := 0.0, 0.0
	la, lb := float64(a.Span()), float64(b.Span())
	if a.EndLine > a.Line && b.EndLine > b.Line {
		score += math.Min(la, lb) / math.Max(la, lb)
		factors++
	}
	if a.Language == b.Language {
		score++
	}
	factors++
	if a.Confidence > 0 && b.Confidence > 0 {
		score += 1 - math.Abs(a.Confidence-b.Confidence)
		factors++
	}
	return score / factors
}

func contextSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	da, db := path.Dir(a), path.Dir(b)
	if da == db {
		return 0.8
	}
	pa, pb := strings.Split(da, "/"), strings.Split(db, "/")
	common := 0
	for common < len(pa) && common < len(pb) && pa[common] == pb[common] {
		common++
	}
	depth := len(pa)
	if len(pb) > depth {
		depth = len(pb)
	}
	return float64(common) / float64(depth) * 0.7
}
