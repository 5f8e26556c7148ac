package model

// ConnectionType classifies an edge between symbols of different languages.
type ConnectionType string

const (
	ConnAPICall ConnectionType = "api_call"
	ConnFFI     ConnectionType = "ffi"
	ConnSpawn   ConnectionType = "spawn"
	ConnImport  ConnectionType = "import"
)

// CrossLanguageEdge connects two symbols, usually of different languages.
type CrossLanguageEdge struct {
	Source         string         `json:"source"`
	Target         string         `json:"target"`
	SourceLanguage Language       `json:"sourceLanguage"`
	TargetLanguage Language       `json:"targetLanguage"`
	Type           ConnectionType `json:"type"`
	Weight         float64        `json:"weight"`
	Details        string         `json:"details,omitempty"`
}

// CrossesBoundary reports whether the edge joins two different languages.
func (e CrossLanguageEdge) CrossesBoundary() bool {
	return e.SourceLanguage != "" && e.TargetLanguage != "" && e.SourceLanguage != e.TargetLanguage
}

// SpawnMechanism is how a process is created.
type SpawnMechanism string

const (
	SpawnExec       SpawnMechanism = "exec"
	SpawnSpawn      SpawnMechanism = "spawn"
	SpawnFork       SpawnMechanism = "fork"
	SpawnSystem     SpawnMechanism = "system"
	SpawnSubprocess SpawnMechanism = "subprocess"
)

// ProcessSpawn records a process-creation call site.
type ProcessSpawn struct {
	ParentSymbol   string         `json:"parentSymbol"`
	ParentLanguage Language       `json:"parentLanguage"`
	Command        string         `json:"command"`
	Arguments      []string       `json:"arguments,omitempty"`
	ChildLanguage  Language       `json:"childLanguage,omitempty"`
	Mechanism      SpawnMechanism `json:"mechanism"`
	CapturesOutput bool           `json:"capturesOutput"`
	IsAsync        bool           `json:"isAsync"`
	FilePath       string         `json:"filePath,omitempty"`
	Line           int            `json:"line,omitempty"`
	Confidence     float64        `json:"confidence"`
}
