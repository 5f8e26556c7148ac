package patterns

import (
	"regexp"
	"strings"

	"sentinel/internal/model"
)

// Match is the role assignment a structural validator inspects.
type Match struct {
	Language      model.Language
	Roles         map[string][]model.Symbol
	Symbols       []model.Symbol
	Relationships []model.Relationship
	Params        map[string]float64
}

// Role returns the symbols matched for a role.
func (m *Match) Role(name string) []model.Symbol {
	return m.Roles[name]
}

// Param returns a rule parameter or def when unset.
func (m *Match) Param(name string, def float64) float64 {
	if v, ok := m.Params[name]; ok && v > 0 {
		return v
	}
	return def
}

// Validator scores a structural property of a match in [0, 1]. Validators
// return 0 when the roles they inspect are empty.
type Validator func(m *Match) float64

// DefaultValidators returns the validators referenced by the built-in catalog.
func DefaultValidators() map[string]Validator {
	return map[string]Validator{
		"static_accessor":       staticAccessor,
		"private_constructor":   privateConstructor,
		"returns_product":       returnsProduct,
		"shared_base":           sharedBase,
		"fluent_returns":        fluentReturns,
		"subscriber_management": subscriberManagement,
		"common_interface":      commonInterface,
		"adapts_target":         adaptsTarget,
		"crud_coverage":         crudCoverage,
		"many_members":          manyMembers,
		"error_signatures":      errorSignatures,
	}
}

// staticAccessor rewards accessors callable without an instance.
func staticAccessor(m *Match) float64 {
	accessors := m.Role("accessor")
	if len(accessors) == 0 {
		return 0
	}
	var total float64
	for _, a := range accessors {
		switch {
		case a.HasTag("static") || a.ParentScope == "":
			total++
		default:
			total += 0.5
		}
	}
	return total / float64(len(accessors))
}

// privateConstructor checks that the singleton cannot be built from outside.
func privateConstructor(m *Match) float64 {
	classes := m.Role("singleton")
	if len(classes) == 0 || len(m.Role("accessor")) == 0 {
		return 0
	}
	var ctors, hidden int
	for _, s := range m.Symbols {
		if s.Kind != model.KindConstructor || !memberOfAny(s, classes) {
			continue
		}
		ctors++
		if s.Visibility == "private" || s.Visibility == "protected" {
			hidden++
		}
	}
	if ctors == 0 {
		return 0.5
	}
	return float64(hidden) / float64(ctors)
}

func returnsProduct(m *Match) float64 {
	creators, products := m.Role("creator"), m.Role("product")
	if len(creators) == 0 || len(products) == 0 {
		return 0
	}
	n := 0
	for _, c := range creators {
		if returnsAny(c, products) {
			n++
		}
	}
	return float64(n) / float64(len(creators))
}

// sharedBase rewards products that share a common supertype.
func sharedBase(m *Match) float64 {
	products := m.Role("product")
	switch len(products) {
	case 0:
		return 0
	case 1:
		return 0.5
	}
	bases := make(map[string]int)
	for _, p := range products {
		seen := make(map[string]bool)
		for _, r := range m.Relationships {
			if (r.Type == model.RelImplements || r.Type == model.RelInherits) && owns(p, r.FromName) && !seen[r.ToName] {
				seen[r.ToName] = true
				bases[r.ToName]++
			}
		}
	}
	for _, n := range bases {
		if n >= 2 {
			return 1
		}
	}
	return 0.5
}

// fluentReturns rewards builder steps that return the builder itself.
func fluentReturns(m *Match) float64 {
	steps, builders := m.Role("step"), m.Role("builder")
	if len(steps) == 0 || len(builders) == 0 {
		return 0
	}
	n := 0
	for _, s := range steps {
		rt := s.ReturnType
		if rt == "Self" || rt == "this" || rt == "self" || returnsAny(s, builders) {
			n++
		}
	}
	return float64(n) / float64(len(steps))
}

func subscriberManagement(m *Match) float64 {
	return presence(m, "subscribe", "notify")
}

func commonInterface(m *Match) float64 {
	switch n := len(m.Role("implementation")); {
	case n >= 2:
		return 1
	case n == 1:
		return 0.5
	}
	return 0
}

// adaptsTarget rewards an adapter that both fulfils a target and wraps a
// distinct adaptee.
func adaptsTarget(m *Match) float64 {
	targets, adaptees := m.Role("target"), m.Role("adaptee")
	if len(targets) == 0 && len(adaptees) == 0 {
		return 0
	}
	if len(targets) == 0 || len(adaptees) == 0 {
		return 0.5
	}
	for _, a := range adaptees {
		distinct := true
		for _, t := range targets {
			if a.QualifiedName == t.QualifiedName {
				distinct = false
				break
			}
		}
		if distinct {
			return 1
		}
	}
	return 0.5
}

func crudCoverage(m *Match) float64 {
	return presence(m, "finder", "writer", "remover")
}

// manyMembers grows with the member count against the method and field
// thresholds.
func manyMembers(m *Match) float64 {
	if len(m.Role("class")) == 0 {
		return 0
	}
	methods := float64(len(m.Role("method"))) / m.Param("methods", 20)
	fields := float64(len(m.Role("field"))) / m.Param("fields", 15)
	return (min(1, methods) + min(1, fields)) / 2
}

var reErrorSignature = regexp.MustCompile(`(?i)\b(error|err|exception|throwable|result)\b|throws`)

func errorSignatures(m *Match) float64 {
	handlers := m.Role("handler")
	if len(handlers) == 0 {
		return 0
	}
	n := 0
	for _, h := range handlers {
		if reErrorSignature.MatchString(h.Signature) || reErrorSignature.MatchString(h.ReturnType) {
			n++
		}
	}
	return float64(n) / float64(len(handlers))
}

// presence returns the fraction of the named roles that matched anything.
func presence(m *Match, roles ...string) float64 {
	n := 0
	for _, r := range roles {
		if len(m.Role(r)) > 0 {
			n++
		}
	}
	return float64(n) / float64(len(roles))
}

// owns reports whether name refers to sym or to one of its members.
func owns(sym model.Symbol, name string) bool {
	if name == "" {
		return false
	}
	if name == sym.QualifiedName || name == sym.Name {
		return true
	}
	if sym.QualifiedName == "" {
		return false
	}
	return strings.HasPrefix(name, sym.QualifiedName+".") || strings.HasPrefix(name, sym.QualifiedName+"::")
}

func memberOfAny(s model.Symbol, parents []model.Symbol) bool {
	for _, p := range parents {
		if s.ParentScope != "" && s.ParentScope == p.QualifiedName {
			return true
		}
	}
	return false
}

// returnsAny reports whether s declares a return type naming one of types.
func returnsAny(s model.Symbol, types []model.Symbol) bool {
	if s.ReturnType == "" {
		return false
	}
	for _, t := range types {
		if t.Name != "" && mentionsIdent(s.ReturnType, t.Name) {
			return true
		}
	}
	return false
}

// mentionsIdent reports whether ident appears in text as a whole identifier.
func mentionsIdent(text, ident string) bool {
	for i := 0; ; {
		j := strings.Index(text[i:], ident)
		if j < 0 {
			return false
		}
		start, end := i+j, i+j+len(ident)
		if (start == 0 || !isIdentByte(text[start-1])) && (end == len(text) || !isIdentByte(text[end])) {
			return true
		}
		i = start + 1
	}
}

func isIdentByte(b byte) bool {
	return b == '_' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}
