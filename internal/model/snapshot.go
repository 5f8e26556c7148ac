package model

import (
	"fmt"
	"sort"
)

// Snapshot is an immutable view of a project's symbols and relationships for
// one analysis pass. Analyses only read from it and may share it.
type Snapshot struct {
	symbols       []Symbol
	relationships []Relationship
	byID          map[string]int
	byName        map[string][]int
}

// NewSnapshot copies the given symbols and relationships into a snapshot.
// Relationship endpoints that do not resolve to a known symbol get a virtual
// symbol so every edge resolves.
func NewSnapshot(symbols []Symbol, relationships []Relationship) *Snapshot {
	s := &Snapshot{
		symbols:       make([]Symbol, len(symbols)),
		relationships: make([]Relationship, len(relationships)),
		byID:          make(map[string]int, len(symbols)),
		byName:        make(map[string][]int, len(symbols)),
	}
	copy(s.symbols, symbols)
	copy(s.relationships, relationships)

	for i := range s.symbols {
		s.index(i)
	}
	for i := range s.relationships {
		r := &s.relationships[i]
		r.FromID = s.resolveEndpoint(r.FromName, r.FromID)
		r.ToID = s.resolveEndpoint(r.ToName, r.ToID)
	}
	return s
}

func (s *Snapshot) index(i int) {
	sym := s.symbols[i]
	if sym.ID != "" {
		s.byID[sym.ID] = i
	}
	s.byName[sym.QualifiedName] = append(s.byName[sym.QualifiedName], i)
	if sym.Name != sym.QualifiedName {
		s.byName[sym.Name] = append(s.byName[sym.Name], i)
	}
}

func (s *Snapshot) resolveEndpoint(name, id string) string {
	if id != "" {
		if _, ok := s.byID[id]; ok {
			return id
		}
	}
	if idx, ok := s.byName[name]; ok && len(idx) > 0 {
		return s.symbols[idx[0]].ID
	}
	virtual := Symbol{
		Name:          name,
		QualifiedName: name,
		Kind:          KindFunction,
		Confidence:    0,
	}
	virtual.ID = SymbolID("virtual", LangUnknown, name, virtual.Kind)
	virtual.AddTag("virtual")
	s.symbols = append(s.symbols, virtual)
	s.index(len(s.symbols) - 1)
	return virtual.ID
}

// Symbols returns the snapshot's symbols. Callers must not modify the slice.
func (s *Snapshot) Symbols() []Symbol { return s.symbols }

// Relationships returns the snapshot's relationships. Callers must not modify the slice.
func (s *Snapshot) Relationships() []Relationship { return s.relationships }

// ByID looks up a symbol by id.
func (s *Snapshot) ByID(id string) (Symbol, bool) {
	i, ok := s.byID[id]
	if !ok {
		return Symbol{}, false
	}
	return s.symbols[i], true
}

// ByName returns symbols whose qualified or simple name matches.
func (s *Snapshot) ByName(name string) []Symbol {
	idx := s.byName[name]
	out := make([]Symbol, 0, len(idx))
	for _, i := range idx {
		out = append(out, s.symbols[i])
	}
	return out
}

// ForLanguage returns the subset of symbols and relationships of one language.
func (s *Snapshot) ForLanguage(lang Language) ([]Symbol, []Relationship) {
	var syms []Symbol
	keep := make(map[string]bool)
	for _, sym := range s.symbols {
		if sym.Language == lang {
			syms = append(syms, sym)
			keep[sym.ID] = true
		}
	}
	var rels []Relationship
	for _, r := range s.relationships {
		if keep[r.FromID] || keep[r.ToID] {
			rels = append(rels, r)
		}
	}
	return syms, rels
}

// Languages lists the distinct languages present, sorted.
func (s *Snapshot) Languages() []Language {
	seen := make(map[Language]bool)
	for _, sym := range s.symbols {
		if sym.Language != LangUnknown {
			seen[sym.Language] = true
		}
	}
	out := make([]Language, 0, len(seen))
	for l := range seen {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Validate checks the model invariants and returns every violation found.
func (s *Snapshot) Validate() []error {
	var errs []error
	type key struct {
		lang Language
		name string
		file string
	}
	seen := make(map[key]bool)
	for _, sym := range s.symbols {
		if sym.Confidence < 0 || sym.Confidence > 1 {
			errs = append(errs, fmt.Errorf("symbol %s: confidence %.3f out of range", sym.QualifiedName, sym.Confidence))
		}
		if sym.HasTag("virtual") {
			continue
		}
		k := key{sym.Language, sym.QualifiedName + "#" + string(sym.Kind), ""}
		if !sym.IsDefinition {
			k.file = sym.FilePath
		}
		if seen[k] {
			errs = append(errs, fmt.Errorf("symbol %s: duplicate qualified name for %s", sym.QualifiedName, sym.Language))
		}
		seen[k] = true
	}
	for _, r := range s.relationships {
		if r.Confidence < 0 || r.Confidence > 1 {
			errs = append(errs, fmt.Errorf("relationship %s: confidence %.3f out of range", r.Key(), r.Confidence))
		}
		if _, ok := s.byID[r.FromID]; !ok {
			errs = append(errs, fmt.Errorf("relationship %s: unresolved source", r.Key()))
		}
		if _, ok := s.byID[r.ToID]; !ok {
			errs = append(errs, fmt.Errorf("relationship %s: unresolved target", r.Key()))
		}
	}
	return errs
}
