package model

import (
	"strings"

	"github.com/google/uuid"
)

// SymbolKind classifies a Symbol.
type SymbolKind string

const (
	KindClass       SymbolKind = "class"
	KindStruct      SymbolKind = "struct"
	KindFunction    SymbolKind = "function"
	KindMethod      SymbolKind = "method"
	KindConstructor SymbolKind = "constructor"
	KindField       SymbolKind = "field"
	KindVariable    SymbolKind = "variable"
	KindNamespace   SymbolKind = "namespace"
	KindEnum        SymbolKind = "enum"
	KindTypedef     SymbolKind = "typedef"
	KindInterface   SymbolKind = "interface"
	KindModule      SymbolKind = "module"
)

// IsType reports whether the kind declares a type.
func (k SymbolKind) IsType() bool {
	switch k {
	case KindClass, KindStruct, KindEnum, KindTypedef, KindInterface:
		return true
	}
	return false
}

// IsCallable reports whether the kind can appear as the target of a call.
func (k SymbolKind) IsCallable() bool {
	switch k {
	case KindFunction, KindMethod, KindConstructor:
		return true
	}
	return false
}

// Symbol is a named code entity.
type Symbol struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	QualifiedName string           `json:"qualifiedName"`
	Kind          SymbolKind       `json:"kind"`
	Language      Language         `json:"language"`
	FilePath      string           `json:"filePath"`
	Line          int              `json:"line"`
	Column        int              `json:"column"`
	EndLine       int              `json:"endLine,omitempty"`
	EndColumn     int              `json:"endColumn,omitempty"`
	Signature     string           `json:"signature,omitempty"`
	ReturnType    string           `json:"returnType,omitempty"`
	Visibility    string           `json:"visibility,omitempty"`
	Namespace     string           `json:"namespace,omitempty"`
	ParentScope   string           `json:"parentScope,omitempty"`
	SemanticTags  []string         `json:"semanticTags,omitempty"`
	Complexity    int              `json:"complexity"`
	Confidence    float64          `json:"confidence"`
	IsDefinition  bool             `json:"isDefinition"`
	IsExported    bool             `json:"isExported"`
	IsAsync       bool             `json:"isAsync"`
	Features      LanguageFeatures `json:"languageFeatures,omitempty"`
}

// HasTag reports whether the symbol carries a semantic tag.
func (s *Symbol) HasTag(tag string) bool {
	for _, t := range s.SemanticTags {
		if t == tag {
			return true
		}
	}
	return false
}

// AddTag adds a semantic tag if not already present.
func (s *Symbol) AddTag(tag string) {
	if tag == "" || s.HasTag(tag) {
		return
	}
	s.SemanticTags = append(s.SemanticTags, tag)
}

// Span returns the number of source lines the symbol covers.
func (s *Symbol) Span() int {
	if s.EndLine < s.Line {
		return 1
	}
	return s.EndLine - s.Line + 1
}

// QualifiedJoin builds a qualified name from a scope and a name.
func QualifiedJoin(sep string, parts ...string) string {
	nonEmpty := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, sep)
}

// ScopeSeparator returns the separator used in qualified names for a language.
func ScopeSeparator(lang Language) string {
	switch lang {
	case LangCpp, LangRust:
		return "::"
	}
	return "."
}

var symbolNamespace = uuid.MustParse("6ba7b812-9dad-11d1-80b4-00c04fd430c8")

// SymbolID derives the stable id of a symbol. The id is a name-based UUID so
// re-indexing the same code yields the same ids.
func SymbolID(projectID string, lang Language, qualifiedName string, kind SymbolKind) string {
	key := projectID + "\x00" + string(lang) + "\x00" + qualifiedName + "\x00" + string(kind)
	return uuid.NewSHA1(symbolNamespace, []byte(key)).String()
}

// ClampConfidence bounds a confidence value to [0, 1].
func ClampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
