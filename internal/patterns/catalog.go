package patterns

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"sentinel/internal/errors"
	"sentinel/internal/model"
)

//go:embed catalog.yaml
var builtinCatalog []byte

// Builtin returns the definitions shipped with the engine.
func Builtin() ([]Definition, error) {
	return Parse(builtinCatalog)
}

// LoadFile reads additional definitions from a YAML file.
func LoadFile(path string) ([]Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.InvalidDefinition, "cannot read pattern catalog", err).WithPath(path)
	}
	defs, err := Parse(data)
	if err != nil {
		if se, ok := err.(*errors.SentinelError); ok {
			return nil, se.WithPath(path)
		}
		return nil, err
	}
	return defs, nil
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) ([]Definition, error) {
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, errors.New(errors.InvalidDefinition, "malformed pattern catalog", err)
	}
	for i := range cat.Patterns {
		if err := cat.Patterns[i].compile(); err != nil {
			return nil, err
		}
	}
	return cat.Patterns, nil
}

// Merge overlays extra definitions onto base. A definition with an existing
// name replaces the base one.
func Merge(base, extra []Definition) []Definition {
	out := append([]Definition(nil), base...)
	index := make(map[string]int, len(out))
	for i, d := range out {
		index[d.Name] = i
	}
	for _, d := range extra {
		if i, ok := index[d.Name]; ok {
			out[i] = d
			continue
		}
		index[d.Name] = len(out)
		out = append(out, d)
	}
	return out
}

func invalid(def, format string, args ...interface{}) error {
	return errors.Newf(errors.InvalidDefinition, "pattern %q: %s", def, fmt.Sprintf(format, args...))
}

// compile validates the definition and prepares its regular expressions.
func (d *Definition) compile() error {
	if d.Name == "" {
		return errors.Newf(errors.InvalidDefinition, "pattern without a name")
	}
	if len(d.Roles) == 0 {
		return invalid(d.Name, "no roles")
	}
	w := d.Weights
	if w.Symbols < 0 || w.Relationships < 0 || w.Naming < 0 || w.Structure < 0 {
		return invalid(d.Name, "negative weight")
	}
	if w.Symbols+w.Relationships+w.Naming+w.Structure == 0 {
		return invalid(d.Name, "all weights are zero")
	}

	roles := make(map[string]bool, len(d.Roles))
	for i := range d.Roles {
		r := &d.Roles[i]
		if r.Name == "" {
			return invalid(d.Name, "role %d has no name", i)
		}
		if roles[r.Name] {
			return invalid(d.Name, "duplicate role %q", r.Name)
		}
		for _, dep := range []string{r.MemberOf, r.ReturnedBy} {
			if dep != "" && !roles[dep] {
				return invalid(d.Name, "role %q refers to %q before it is declared", r.Name, dep)
			}
		}
		if r.Link != nil {
			if !roles[r.Link.Role] {
				return invalid(d.Name, "role %q links to undeclared role %q", r.Name, r.Link.Role)
			}
			if r.Link.Direction != "in" && r.Link.Direction != "out" {
				return invalid(d.Name, "role %q link direction must be in or out", r.Name)
			}
			if err := checkTypes(d.Name, r.Link.Types); err != nil {
				return err
			}
		}
		roles[r.Name] = true

		for _, k := range r.Kinds {
			if !knownKind(k) {
				return invalid(d.Name, "role %q has unknown kind %q", r.Name, k)
			}
		}
		if r.MinCount <= 0 {
			r.MinCount = 1
		}
		if r.MaxCount != 0 && r.MaxCount < r.MinCount {
			return invalid(d.Name, "role %q maxCount below minCount", r.Name)
		}
		var err error
		if r.nameRe, err = compileOptional(r.NamePattern); err != nil {
			return invalid(d.Name, "role %q namePattern: %v", r.Name, err)
		}
		if r.sigRe, err = compileOptional(r.SignaturePattern); err != nil {
			return invalid(d.Name, "role %q signaturePattern: %v", r.Name, err)
		}
	}
	if d.Anchor == "" {
		d.Anchor = d.Roles[0].Name
	} else if !roles[d.Anchor] {
		return invalid(d.Name, "anchor %q is not a role", d.Anchor)
	}
	if a := d.role(d.Anchor); a.MemberOf != "" || a.ReturnedBy != "" || a.Link != nil {
		return invalid(d.Name, "anchor %q cannot depend on other roles", d.Anchor)
	}

	for i := range d.Relationships {
		rr := &d.Relationships[i]
		if !roles[rr.From] || !roles[rr.To] {
			return invalid(d.Name, "relationship %s->%s refers to an undeclared role", rr.From, rr.To)
		}
		if err := checkTypes(d.Name, rr.Types); err != nil {
			return err
		}
		if rr.MinCount <= 0 {
			rr.MinCount = 1
		}
	}

	if err := compileNaming(d.Name, d.Naming, roles); err != nil {
		return err
	}
	if err := checkStructure(d.Name, d.Structure); err != nil {
		return err
	}
	if len(d.Variations) == 0 {
		return nil
	}
	variations := make(map[string]Variation, len(d.Variations))
	for name, v := range d.Variations {
		lang := model.ParseLanguage(name)
		if lang == model.LangUnknown {
			return invalid(d.Name, "variation for unknown language %q", name)
		}
		if err := compileNaming(d.Name, v.Naming, roles); err != nil {
			return err
		}
		if err := checkStructure(d.Name, v.Structure); err != nil {
			return err
		}
		variations[string(lang)] = v
	}
	d.Variations = variations
	return nil
}

func compileNaming(def string, rules []NamingRule, roles map[string]bool) error {
	for i := range rules {
		n := &rules[i]
		if !roles[n.Role] {
			return invalid(def, "naming rule for undeclared role %q", n.Role)
		}
		if n.Bonus <= 0 {
			n.Bonus = 1
		}
		re, err := regexp.Compile(n.Pattern)
		if err != nil {
			return invalid(def, "naming pattern for %q: %v", n.Role, err)
		}
		n.re = re
	}
	return nil
}

func checkStructure(def string, rules []StructureRule) error {
	for i := range rules {
		s := &rules[i]
		if s.Validator == "" {
			return invalid(def, "structure rule %d has no validator", i)
		}
		if s.Weight < 0 {
			return invalid(def, "validator %q has negative weight", s.Validator)
		}
		if s.Weight == 0 {
			s.Weight = 1
		}
	}
	return nil
}

func checkTypes(def string, types []string) error {
	if len(types) == 0 {
		return invalid(def, "relationship without types")
	}
	for _, t := range types {
		if !knownRelationship(t) {
			return invalid(def, "unknown relationship type %q", t)
		}
	}
	return nil
}

func compileOptional(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, nil
	}
	return regexp.Compile(pattern)
}

func knownKind(k string) bool {
	switch model.SymbolKind(k) {
	case model.KindClass, model.KindStruct, model.KindFunction, model.KindMethod,
		model.KindConstructor, model.KindField, model.KindVariable, model.KindNamespace,
		model.KindEnum, model.KindTypedef, model.KindInterface, model.KindModule:
		return true
	}
	return false
}

func knownRelationship(t string) bool {
	switch model.RelationshipType(t) {
	case model.RelCalls, model.RelInherits, model.RelImplements, model.RelIncludes,
		model.RelReadsField, model.RelWritesField, model.RelUses, model.RelImports, model.RelSpawns:
		return true
	}
	return false
}
