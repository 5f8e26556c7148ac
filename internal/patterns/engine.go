package patterns

import (
	"fmt"
	"log/slog"
	"sort"

	"sentinel/internal/config"
	"sentinel/internal/errors"
	"sentinel/internal/model"
	"sentinel/internal/slogutil"
)

// Engine scores pattern definitions against a symbol set.
type Engine struct {
	defs          []Definition
	validators    map[string]Validator
	minConfidence float64
	logger        *slog.Logger
	err           error
}

// Option customizes an Engine.
type Option func(*Engine)

// WithValidator registers a structural validator under name.
func WithValidator(name string, v Validator) Option {
	return func(e *Engine) { e.validators[name] = v }
}

// WithDefinitions validates defs and overlays them onto the catalog.
func WithDefinitions(defs ...Definition) Option {
	return func(e *Engine) {
		for i := range defs {
			if err := defs[i].compile(); err != nil {
				e.err = err
				return
			}
		}
		e.defs = Merge(e.defs, defs)
	}
}

// NewEngine loads the built-in catalog, merges the user catalog named in cfg
// and checks that every referenced validator exists.
func NewEngine(cfg config.PatternsConfig, logger *slog.Logger, opts ...Option) (*Engine, error) {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	defs, err := Builtin()
	if err != nil {
		return nil, err
	}
	if cfg.CatalogPath != "" {
		extra, err := LoadFile(cfg.CatalogPath)
		if err != nil {
			return nil, err
		}
		defs = Merge(defs, extra)
		logger.Debug("Loaded pattern catalog", "path", cfg.CatalogPath, "definitions", len(extra))
	}

	e := &Engine{
		defs:          defs,
		validators:    DefaultValidators(),
		minConfidence: cfg.MinConfidence,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.err != nil {
		return nil, e.err
	}
	for i := range e.defs {
		if err := e.checkValidators(&e.defs[i]); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func (e *Engine) checkValidators(def *Definition) error {
	rules := append([]StructureRule(nil), def.Structure...)
	for _, v := range def.Variations {
		rules = append(rules, v.Structure...)
	}
	for _, r := range rules {
		if _, ok := e.validators[r.Validator]; !ok {
			return errors.Newf(errors.InvalidDefinition, "pattern %q: unknown validator %q", def.Name, r.Validator)
		}
	}
	return nil
}

// Definitions returns the loaded definitions.
func (e *Engine) Definitions() []Definition {
	return e.defs
}

// Detect evaluates every definition once per anchor candidate and returns
// the instances scoring above the confidence threshold, most confident first.
func (e *Engine) Detect(symbols []model.Symbol, rels []model.Relationship, lang model.Language) []DetectedPattern {
	var out []DetectedPattern
	for i := range e.defs {
		def := &e.defs[i]
		anchors := candidates(def.role(def.Anchor), symbols, rels, nil)
		if len(anchors) == 0 {
			if p := e.Evaluate(def, nil, symbols, rels, lang); p.Confidence > e.minConfidence {
				out = append(out, p)
			}
			continue
		}
		for j := range anchors {
			if p := e.Evaluate(def, &anchors[j], symbols, rels, lang); p.Confidence > e.minConfidence {
				out = append(out, p)
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Anchor < out[j].Anchor
	})

	e.logger.Debug("Patterns detected",
		"language", lang,
		"symbols", len(symbols),
		"relationships", len(rels),
		"patterns", len(out),
	)
	return out
}

// Evaluate scores one instance of def. anchor fills the anchor role; nil
// leaves it empty. Missing roles and relationships score zero.
func (e *Engine) Evaluate(def *Definition, anchor *model.Symbol, symbols []model.Symbol, rels []model.Relationship, lang model.Language) DetectedPattern {
	variation := def.Variations[string(lang)]
	roles := make(map[string][]model.Symbol, len(def.Roles))
	var issues, unmet []string

	var symScore float64
	for i := range def.Roles {
		r := &def.Roles[i]
		var matched []model.Symbol
		if r.Name == def.Anchor {
			if anchor != nil {
				matched = []model.Symbol{*anchor}
			}
		} else {
			matched = candidates(r, symbols, rels, roles)
		}
		if r.MaxCount > 0 && len(matched) > r.MaxCount {
			issues = append(issues, fmt.Sprintf("role %q matched %d symbols, more than the %d allowed", r.Name, len(matched), r.MaxCount))
			matched = matched[:r.MaxCount]
		}
		roles[r.Name] = matched

		switch {
		case len(matched) == 0:
			unmet = append(unmet, r.Name)
			issues = append(issues, fmt.Sprintf("no symbol fills the %q role", r.Name))
		case len(matched) < r.MinCount:
			issues = append(issues, fmt.Sprintf("role %q has %d of %d required symbols", r.Name, len(matched), r.MinCount))
		}
		symScore += min(1, float64(len(matched))/float64(r.MinCount))
	}
	symScore /= float64(len(def.Roles))

	relScore, matchedRels, missing := scoreRelationships(def.Relationships, roles, rels)
	for _, rr := range missing {
		issues = append(issues, fmt.Sprintf("expected %d %v relationship(s) from %s to %s", rr.MinCount, rr.Types, rr.From, rr.To))
	}

	naming := append(append([]NamingRule(nil), def.Naming...), variation.Naming...)
	namingScore := scoreNaming(naming, roles)

	structure := append(append([]StructureRule(nil), def.Structure...), variation.Structure...)
	structScore := e.scoreStructure(structure, &Match{
		Language:      lang,
		Roles:         roles,
		Symbols:       symbols,
		Relationships: rels,
	})

	var num, den float64
	add := func(score, weight float64, present bool) {
		if present && weight > 0 {
			num += score * weight
			den += weight
		}
	}
	w := def.Weights
	add(symScore, w.Symbols, true)
	add(relScore, w.Relationships, len(def.Relationships) > 0)
	add(namingScore, w.Naming, len(naming) > 0)
	add(structScore, w.Structure, len(structure) > 0)
	var total float64
	if den > 0 {
		total = model.ClampConfidence(num / den)
	}

	p := DetectedPattern{
		Name:          def.Name,
		Category:      def.Category,
		Language:      lang,
		Roles:         make(map[string][]string, len(roles)),
		Relationships: matchedRels,
		Confidence:    total,
		Breakdown: ScoreBreakdown{
			Symbols:       symScore,
			Relationships: relScore,
			Naming:        namingScore,
			Structure:     structScore,
		},
		Issues: issues,
	}
	if anchor != nil {
		p.Anchor = anchor.QualifiedName
	}
	for name, syms := range roles {
		names := make([]string, len(syms))
		for i, s := range syms {
			names[i] = s.QualifiedName
		}
		p.Roles[name] = names
	}
	assess(&p, def, roles, unmet, missing)
	return p
}

func (d *Definition) role(name string) *Role {
	for i := range d.Roles {
		if d.Roles[i].Name == name {
			return &d.Roles[i]
		}
	}
	return &d.Roles[0]
}

// candidates returns the symbols that satisfy every constraint of r given
// the roles matched so far.
func candidates(r *Role, symbols []model.Symbol, rels []model.Relationship, roles map[string][]model.Symbol) []model.Symbol {
	for _, dep := range []string{r.MemberOf, r.ReturnedBy} {
		if dep != "" && len(roles[dep]) == 0 {
			return nil
		}
	}
	if r.Link != nil && len(roles[r.Link.Role]) == 0 {
		return nil
	}

	var out []model.Symbol
	for _, s := range symbols {
		if !r.accepts(s) {
			continue
		}
		if r.MemberOf != "" {
			parents := roles[r.MemberOf]
			if !memberOfAny(s, parents) && !(s.ParentScope == "" && returnsAny(s, parents)) {
				continue
			}
		}
		if r.ReturnedBy != "" && !returnedByAny(s, roles[r.ReturnedBy]) {
			continue
		}
		if r.Link != nil && !linked(s, r.Link, roles[r.Link.Role], rels) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// accepts applies the symbol-local filters.
func (r *Role) accepts(s model.Symbol) bool {
	if len(r.Kinds) > 0 {
		ok := false
		for _, k := range r.Kinds {
			if model.SymbolKind(k) == s.Kind {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if r.nameRe != nil && !r.nameRe.MatchString(s.Name) {
		return false
	}
	if r.sigRe != nil && !r.sigRe.MatchString(s.Signature) {
		return false
	}
	for _, t := range r.Tags {
		if !s.HasTag(t) {
			return false
		}
	}
	return true
}

func returnedByAny(s model.Symbol, producers []model.Symbol) bool {
	for _, p := range producers {
		if returnsAny(p, []model.Symbol{s}) {
			return true
		}
	}
	return false
}

func linked(s model.Symbol, l *Link, targets []model.Symbol, rels []model.Relationship) bool {
	for _, r := range rels {
		if !typeIn(r.Type, l.Types) {
			continue
		}
		if l.Direction == "in" {
			if ownsAny(targets, r.FromName) && owns(s, r.ToName) {
				return true
			}
		} else if owns(s, r.FromName) && ownsAny(targets, r.ToName) {
			return true
		}
	}
	return false
}

func ownsAny(syms []model.Symbol, name string) bool {
	for _, s := range syms {
		if owns(s, name) {
			return true
		}
	}
	return false
}

func typeIn(t model.RelationshipType, types []string) bool {
	for _, want := range types {
		if string(t) == want {
			return true
		}
	}
	return false
}

// scoreRelationships averages min(1, found/required) over the rules. A rule
// whose endpoint roles are unmatched scores zero.
func scoreRelationships(rules []RelationshipRule, roles map[string][]model.Symbol, rels []model.Relationship) (float64, []model.Relationship, []RelationshipRule) {
	if len(rules) == 0 {
		return 0, nil, nil
	}
	var (
		total   float64
		matched []model.Relationship
		missing []RelationshipRule
		seen    = make(map[string]bool)
	)
	for _, rule := range rules {
		from, to := roles[rule.From], roles[rule.To]
		n := 0
		if len(from) > 0 && len(to) > 0 {
			for _, r := range rels {
				if !typeIn(r.Type, rule.Types) || !ownsAny(from, r.FromName) || !ownsAny(to, r.ToName) {
					continue
				}
				n++
				if k := r.Key(); !seen[k] {
					seen[k] = true
					matched = append(matched, r)
				}
			}
		}
		if n < rule.MinCount {
			missing = append(missing, rule)
		}
		total += min(1, float64(n)/float64(rule.MinCount))
	}
	return total / float64(len(rules)), matched, missing
}

// scoreNaming is the bonus-weighted fraction of role members matching each
// naming rule.
func scoreNaming(rules []NamingRule, roles map[string][]model.Symbol) float64 {
	var got, total float64
	for _, n := range rules {
		total += n.Bonus
		syms := roles[n.Role]
		if len(syms) == 0 {
			continue
		}
		hits := 0
		for _, s := range syms {
			if n.re.MatchString(s.Name) {
				hits++
			}
		}
		got += n.Bonus * float64(hits) / float64(len(syms))
	}
	if total == 0 {
		return 0
	}
	return got / total
}

func (e *Engine) scoreStructure(rules []StructureRule, m *Match) float64 {
	var got, total float64
	for _, r := range rules {
		total += r.Weight
		v, ok := e.validators[r.Validator]
		if !ok {
			continue
		}
		m.Params = r.Params
		got += r.Weight * model.ClampConfidence(v(m))
	}
	if total == 0 {
		return 0
	}
	return got / total
}
