package model

// ParserRung records which parser of the fallback ladder produced a result.
type ParserRung string

const (
	RungGrammar   ParserRung = "grammar"
	RungChunked   ParserRung = "chunked"
	RungHeuristic ParserRung = "heuristic"
	RungStreaming ParserRung = "streaming"
)

// PatternCandidate is a pattern hint raised by an adapter while parsing. The
// pattern engine scores candidates; adapters only suggest them.
type PatternCandidate struct {
	Name       string   `json:"name"`
	Symbols    []string `json:"symbols"`
	Line       int      `json:"line"`
	Confidence float64  `json:"confidence"`
}

// ModuleInfo is the adapter output for one file.
type ModuleInfo struct {
	FilePath      string             `json:"filePath"`
	Language      Language           `json:"language"`
	ModuleName    string             `json:"moduleName,omitempty"`
	Methods       []Symbol           `json:"methods"`
	Classes       []Symbol           `json:"classes"`
	Interfaces    []Symbol           `json:"interfaces,omitempty"`
	Variables     []Symbol           `json:"variables,omitempty"`
	Namespaces    []string           `json:"namespaces,omitempty"`
	Imports       []string           `json:"imports"`
	Exports       []string           `json:"exports"`
	Relationships []Relationship     `json:"relationships"`
	Patterns      []PatternCandidate `json:"patterns,omitempty"`
	Confidence    ConfidenceMetrics  `json:"confidence"`
	ParserUsed    ParserRung         `json:"parserUsed"`
	Unresolved    []string           `json:"unresolved,omitempty"`
	Notes         []string           `json:"notes,omitempty"`
	LineCount     int                `json:"lineCount"`
	ContentHash   string             `json:"contentHash,omitempty"`
}

// Symbols returns every symbol of the module in declaration order by kind.
func (m *ModuleInfo) Symbols() []Symbol {
	out := make([]Symbol, 0, len(m.Classes)+len(m.Interfaces)+len(m.Methods)+len(m.Variables))
	out = append(out, m.Classes...)
	out = append(out, m.Interfaces...)
	out = append(out, m.Methods...)
	out = append(out, m.Variables...)
	return out
}

// AddNote records a non-fatal diagnostic.
func (m *ModuleInfo) AddNote(note string) {
	m.Notes = append(m.Notes, note)
}

// ConfidenceMetrics is the confidence vector attached to parse results.
type ConfidenceMetrics struct {
	Overall              float64 `json:"overall"`
	SymbolDetection      float64 `json:"symbolDetection"`
	TypeResolution       float64 `json:"typeResolution"`
	RelationshipAccuracy float64 `json:"relationshipAccuracy"`
	ModernFeatureSupport float64 `json:"modernFeatureSupport"`
	ModuleAnalysis       float64 `json:"moduleAnalysis"`
	Quality              string  `json:"quality"`
}
