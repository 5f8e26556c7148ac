package model

// Declaration is one row of the persisted declaration index used for type
// resolution lookups.
type Declaration struct {
	Name       string     `json:"name"`
	FilePath   string     `json:"filePath"`
	Line       int        `json:"line"`
	Confidence float64    `json:"confidence"`
	Kind       SymbolKind `json:"kind"`
}

// IsTypeDeclaration reports whether the declaration can satisfy a type lookup.
func (d Declaration) IsTypeDeclaration() bool {
	return d.Kind.IsType()
}
