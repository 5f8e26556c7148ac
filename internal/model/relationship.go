package model

// RelationshipType classifies a directed edge between two symbols.
type RelationshipType string

const (
	RelCalls       RelationshipType = "calls"
	RelInherits    RelationshipType = "inherits"
	RelImplements  RelationshipType = "implements"
	RelIncludes    RelationshipType = "includes"
	RelReadsField  RelationshipType = "reads_field"
	RelWritesField RelationshipType = "writes_field"
	RelUses        RelationshipType = "uses"
	RelImports     RelationshipType = "imports"
	RelSpawns      RelationshipType = "spawns"
)

// SourceContext locates the evidence for a relationship.
type SourceContext struct {
	Line    int    `json:"line"`
	Column  int    `json:"column,omitempty"`
	Snippet string `json:"snippet,omitempty"`
}

// Relationship is a directed edge between two symbols, referenced by
// qualified name and, once resolved, by id.
type Relationship struct {
	FromName   string           `json:"fromName"`
	ToName     string           `json:"toName"`
	FromID     string           `json:"fromId,omitempty"`
	ToID       string           `json:"toId,omitempty"`
	Type       RelationshipType `json:"type"`
	Confidence float64          `json:"confidence"`
	FilePath   string           `json:"filePath,omitempty"`
	Context    *SourceContext   `json:"context,omitempty"`
}

// IsSelfLoop reports whether the edge points back to its source.
func (r Relationship) IsSelfLoop() bool {
	return r.FromName == r.ToName
}

// Key identifies the relationship for deduplication.
func (r Relationship) Key() string {
	return string(r.Type) + "|" + r.FromName + "|" + r.ToName
}
