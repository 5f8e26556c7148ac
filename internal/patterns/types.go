// Package patterns detects design patterns and anti-patterns in a symbol
// graph using declarative, role-based definitions.
package patterns

import (
	"regexp"

	"sentinel/internal/model"
)

// Weights balances the four sub-scores of a definition.
type Weights struct {
	Symbols       float64 `yaml:"symbols" json:"symbols"`
	Relationships float64 `yaml:"relationships" json:"relationships"`
	Naming        float64 `yaml:"naming" json:"naming"`
	Structure     float64 `yaml:"structure" json:"structure"`
}

// Link requires a relationship between a candidate and the symbols of
// another role. Direction "out" means candidate -> role, "in" the reverse.
type Link struct {
	Role      string   `yaml:"role" json:"role"`
	Types     []string `yaml:"types" json:"types"`
	Direction string   `yaml:"direction" json:"direction"`
}

// Role is one participant of a pattern.
type Role struct {
	Name string `yaml:"name" json:"name"`

	// Kinds restricts candidates to these symbol kinds; empty allows any.
	Kinds []string `yaml:"kinds" json:"kinds,omitempty"`

	NamePattern      string `yaml:"namePattern" json:"namePattern,omitempty"`
	SignaturePattern string `yaml:"signaturePattern" json:"signaturePattern,omitempty"`

	// Tags must all be present on a candidate.
	Tags []string `yaml:"tags" json:"tags,omitempty"`

	// MemberOf requires the candidate to be declared inside, or to return,
	// a symbol of the named role.
	MemberOf string `yaml:"memberOf" json:"memberOf,omitempty"`

	// ReturnedBy requires the candidate to be the return type of a symbol
	// of the named role.
	ReturnedBy string `yaml:"returnedBy" json:"returnedBy,omitempty"`

	Link *Link `yaml:"link" json:"link,omitempty"`

	MinCount int `yaml:"minCount" json:"minCount"`
	MaxCount int `yaml:"maxCount" json:"maxCount,omitempty"`

	nameRe *regexp.Regexp
	sigRe  *regexp.Regexp
}

// RelationshipRule requires edges of the given types between two roles.
type RelationshipRule struct {
	From     string   `yaml:"from" json:"from"`
	To       string   `yaml:"to" json:"to"`
	Types    []string `yaml:"types" json:"types"`
	MinCount int      `yaml:"minCount" json:"minCount"`
}

// NamingRule rewards role members whose names follow a convention.
type NamingRule struct {
	Role    string  `yaml:"role" json:"role"`
	Pattern string  `yaml:"pattern" json:"pattern"`
	Bonus   float64 `yaml:"bonus" json:"bonus"`

	re *regexp.Regexp
}

// StructureRule applies a registered validator with a weight.
type StructureRule struct {
	Validator string             `yaml:"validator" json:"validator"`
	Weight    float64            `yaml:"weight" json:"weight"`
	Params    map[string]float64 `yaml:"params" json:"params,omitempty"`
}

// Variation adds rules for one language without touching the base definition.
type Variation struct {
	Structure []StructureRule `yaml:"structure" json:"structure,omitempty"`
	Naming    []NamingRule    `yaml:"naming" json:"naming,omitempty"`
}

// Definition declares one pattern.
type Definition struct {
	Name        string `yaml:"name" json:"name"`
	Category    string `yaml:"category" json:"category"`
	Description string `yaml:"description" json:"description,omitempty"`

	// Anchor names the role that identifies one instance of the pattern.
	// Defaults to the first role.
	Anchor string `yaml:"anchor" json:"anchor,omitempty"`

	Weights       Weights              `yaml:"weights" json:"weights"`
	Roles         []Role               `yaml:"roles" json:"roles"`
	Relationships []RelationshipRule   `yaml:"relationships" json:"relationships,omitempty"`
	Naming        []NamingRule         `yaml:"naming" json:"naming,omitempty"`
	Structure     []StructureRule      `yaml:"structure" json:"structure,omitempty"`
	Variations    map[string]Variation `yaml:"variations" json:"variations,omitempty"`
}

// Catalog is the on-disk form of a set of definitions.
type Catalog struct {
	Patterns []Definition `yaml:"patterns"`
}

// ScoreBreakdown holds the weighted sub-scores behind a confidence.
type ScoreBreakdown struct {
	Symbols       float64 `json:"symbols"`
	Relationships float64 `json:"relationships"`
	Naming        float64 `json:"naming"`
	Structure     float64 `json:"structure"`
}

// DetectedPattern is one scored pattern instance.
type DetectedPattern struct {
	Name     string         `json:"name"`
	Category string         `json:"category"`
	Language model.Language `json:"language,omitempty"`

	// Anchor is the qualified name of the symbol that identifies the instance.
	Anchor string `json:"anchor,omitempty"`

	// Roles maps each role to the qualified names of its matched symbols.
	Roles         map[string][]string  `json:"roles"`
	Relationships []model.Relationship `json:"relationships,omitempty"`

	Confidence float64        `json:"confidence"`
	Breakdown  ScoreBreakdown `json:"scoreBreakdown"`

	Quality              string   `json:"quality"`
	NamingConsistency    float64  `json:"namingConsistency"`
	RelationshipStrength float64  `json:"relationshipStrength"`
	Issues               []string `json:"issues,omitempty"`
	Recommendations      []string `json:"recommendations,omitempty"`
}
