// Package crosslang links symbols across language boundaries: API calls,
// foreign-function bindings, imports and process spawns.
package crosslang

import (
	"sentinel/internal/model"
)

// SourceFile is one file handed to the detectors.
type SourceFile struct {
	Path     string
	Language model.Language
	Content  []byte
	Symbols  []model.Symbol
}

// Classification buckets cross-language edges by how control moves.
type Classification struct {
	// Direct edges link code at build or load time (imports).
	Direct []model.CrossLanguageEdge `json:"direct"`

	// Indirect edges cross a process boundary (spawns).
	Indirect []model.CrossLanguageEdge `json:"indirect"`

	// API edges go over the network.
	API []model.CrossLanguageEdge `json:"api"`

	// FFI edges call into another language in-process.
	FFI []model.CrossLanguageEdge `json:"ffi"`
}

// SharedDataHint flags a node that likely exchanges data with another
// language.
type SharedDataHint struct {
	Node    string   `json:"node"`
	Formats []string `json:"formats,omitempty"`
	Types   []string `json:"types,omitempty"`
}

// SpawnChain is a sequence of processes, each spawning the next.
type SpawnChain struct {
	Nodes            []string         `json:"nodes"`
	Languages        []model.Language `json:"languages"`
	CrossesLanguages bool             `json:"crossesLanguages"`
	Cyclic           bool             `json:"cyclic"`
	Truncated        bool             `json:"truncated"`
}

// Depth is the number of spawn edges in the chain.
func (c SpawnChain) Depth() int {
	return len(c.Nodes) - 1
}

// ProcessNode is one process in a spawn tree.
type ProcessNode struct {
	Name      string               `json:"name"`
	Language  model.Language       `json:"language,omitempty"`
	Mechanism model.SpawnMechanism `json:"mechanism,omitempty"`
	Children  []*ProcessNode       `json:"children,omitempty"`
}

// LatencyRisk tiers the latency exposure of the cross-language surface.
type LatencyRisk string

const (
	LatencyLow    LatencyRisk = "low"
	LatencyMedium LatencyRisk = "medium"
	LatencyHigh   LatencyRisk = "high"
)

// IntegrationMetrics summarizes how tightly languages are coupled.
type IntegrationMetrics struct {
	TotalEdges              int         `json:"totalEdges"`
	CrossLanguageEdges      int         `json:"crossLanguageEdges"`
	Boundaries              int         `json:"boundaries"`
	APICalls                int         `json:"apiCalls"`
	IntegrationScore        float64     `json:"integrationScore"`
	CommunicationComplexity float64     `json:"communicationComplexity"`
	DataTransferVolume      float64     `json:"dataTransferVolume"`
	LatencyRisk             LatencyRisk `json:"latencyRisk"`
	Maintainability         float64     `json:"maintainability"`
}

// Report is the result of analyzing a set of cross-language edges.
type Report struct {
	Classification Classification       `json:"classification"`
	SharedData     []SharedDataHint     `json:"sharedData,omitempty"`
	Spawns         []model.ProcessSpawn `json:"spawns,omitempty"`
	SpawnChains    []SpawnChain         `json:"spawnChains,omitempty"`
	ProcessTree    []*ProcessNode       `json:"processTree,omitempty"`
	Metrics        IntegrationMetrics   `json:"metrics"`
}

// TransferMethod is how data reaches a spawned process.
type TransferMethod string

const (
	TransferArgs    TransferMethod = "command_line_args"
	TransferStdin   TransferMethod = "standard_input"
	TransferEnv     TransferMethod = "environment_vars"
	TransferFiles   TransferMethod = "file_system"
	TransferPipes   TransferMethod = "pipes"
	TransferNetwork TransferMethod = "network_socket"
)

// Spawn is a detected process-creation call site.
type Spawn struct {
	model.ProcessSpawn

	// Function is the catalog entry that matched, e.g. "subprocess.run".
	Function string `json:"function"`

	// Script is the source file the command runs, when one is named.
	Script     string           `json:"script,omitempty"`
	Shell      bool             `json:"shell"`
	Env        []string         `json:"env,omitempty"`
	WorkingDir string           `json:"workingDir,omitempty"`
	Transfer   []TransferMethod `json:"transfer,omitempty"`
}

// SpawnStatistics counts detected spawns.
type SpawnStatistics struct {
	Total         int                          `json:"total"`
	Synchronous   int                          `json:"synchronous"`
	Asynchronous  int                          `json:"asynchronous"`
	Shell         int                          `json:"shell"`
	CrossLanguage int                          `json:"crossLanguage"`
	Commands      int                          `json:"uniqueCommands"`
	Languages     []model.Language             `json:"languages,omitempty"`
	ByMechanism   map[model.SpawnMechanism]int `json:"byMechanism,omitempty"`
}

// SpawnAnalysisResult is the process-level view of a project.
type SpawnAnalysisResult struct {
	Spawns      []Spawn                   `json:"spawns"`
	Edges       []model.CrossLanguageEdge `json:"edges,omitempty"`
	ProcessTree []*ProcessNode            `json:"processTree,omitempty"`
	SpawnChains []SpawnChain              `json:"spawnChains,omitempty"`
	Statistics  SpawnStatistics           `json:"statistics"`
}
