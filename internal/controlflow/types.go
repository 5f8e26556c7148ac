// Package controlflow builds per-function control-flow graphs from source
// text and derives reachability, hot paths, data flows, taint flows and
// performance bottlenecks from them.
package controlflow

import (
	"sentinel/internal/complexity"
	"sentinel/internal/model"
)

// NodeType classifies a control-flow node.
type NodeType string

const (
	NodeEntry     NodeType = "entry"
	NodeExit      NodeType = "exit"
	NodeCondition NodeType = "condition"
	NodeLoop      NodeType = "loop"
	NodeException NodeType = "exception"
	NodeBlock     NodeType = "block"
)

// EdgeType classifies a control-flow edge.
type EdgeType string

const (
	EdgeSequential EdgeType = "sequential"
	EdgeTrue       EdgeType = "true"
	EdgeFalse      EdgeType = "false"
	EdgeException  EdgeType = "exception"
	EdgeLoopBack   EdgeType = "loop_back"
	EdgeLoopExit   EdgeType = "loop_exit"
	EdgeCase       EdgeType = "case"
)

// Default branch probabilities.
const (
	ProbTrue      = 0.7
	ProbFalse     = 0.3
	ProbException = 0.05
	ProbLoopBack  = 0.8
	ProbLoopExit  = 0.2
)

// Block is one control block found in a function body.
type Block struct {
	// Kind is the keyword that opened the block (if, else, for, try, ...).
	Kind string `json:"kind"`

	// StartLine and EndLine are absolute, inclusive line numbers.
	StartLine int `json:"startLine"`
	EndLine   int `json:"endLine"`

	// Parent is the index of the enclosing block, or -1 at function level.
	Parent int `json:"parent"`

	// Condition is the header text of the block.
	Condition string `json:"condition,omitempty"`
}

// Exit is a point where control leaves the function.
type Exit struct {
	Line int `json:"line"`

	// Kind is one of return, throw, exit or end.
	Kind string `json:"kind"`
}

// Function is the extracted shape of one function body.
type Function struct {
	Name       string         `json:"name"`
	Language   model.Language `json:"language"`
	StartLine  int            `json:"startLine"`
	EndLine    int            `json:"endLine"`
	Parameters []string       `json:"parameters,omitempty"`
	Blocks     []Block        `json:"blocks"`
	Exits      []Exit         `json:"exits"`

	// Lines holds the raw source, Lines[0] being StartLine.
	Lines []string `json:"-"`
}

// Node is a vertex of a control-flow graph.
type Node struct {
	ID        string   `json:"id"`
	Type      NodeType `json:"type"`
	StartLine int      `json:"startLine"`
	EndLine   int      `json:"endLine"`

	// Code is the source attributed to this node, excluding nested blocks.
	Code string `json:"code,omitempty"`

	// LoopDepth counts the loops enclosing the node, itself included.
	LoopDepth int `json:"loopDepth"`

	// Synthetic marks the implicit fall-through exit at the end of a body.
	Synthetic bool `json:"synthetic,omitempty"`
}

// Edge is a directed, typed control-flow transition.
type Edge struct {
	From        string   `json:"from"`
	To          string   `json:"to"`
	Type        EdgeType `json:"type"`
	Probability float64  `json:"probability"`
}

// Graph is a function's control-flow graph.
type Graph struct {
	Function string `json:"function"`
	Entry    string `json:"entry"`
	Nodes    []Node `json:"nodes"`
	Edges    []Edge `json:"edges"`

	index   map[string]int
	out     map[string][]int
	lineMap map[int]string
}

// DeadNode is a node unreachable from the entry.
type DeadNode struct {
	NodeID    string   `json:"nodeId"`
	Type      NodeType `json:"type"`
	StartLine int      `json:"startLine"`
	EndLine   int      `json:"endLine"`
}

// HotPath is an entry-to-exit path with its estimated execution probability.
type HotPath struct {
	Nodes       []string `json:"nodes"`
	Probability float64  `json:"probability"`
}

// UsageKind tells whether a variable is read, written or modified in place.
type UsageKind string

const (
	UsageRead   UsageKind = "read"
	UsageWrite  UsageKind = "write"
	UsageModify UsageKind = "modify"
)

// Usage is one occurrence of a variable.
type Usage struct {
	Line   int       `json:"line"`
	NodeID string    `json:"nodeId"`
	Kind   UsageKind `json:"kind"`
}

// Variable is a parameter or local and all its usages in line order.
type Variable struct {
	Name       string  `json:"name"`
	Parameter  bool    `json:"parameter,omitempty"`
	DeclaredAt int     `json:"declaredAt"`
	Usages     []Usage `json:"usages"`
}

// DataFlow links a write of a variable to a read it can reach.
type DataFlow struct {
	Variable string `json:"variable"`
	From     Usage  `json:"from"`
	To       Usage  `json:"to"`
}

// TaintFlow links an untrusted source to a sensitive sink through a variable.
type TaintFlow struct {
	Variable  string   `json:"variable"`
	Source    Usage    `json:"source"`
	Sink      Usage    `json:"sink"`
	Path      []string `json:"path"`
	Sanitized bool     `json:"sanitized"`
}

// BottleneckKind classifies a performance concern.
type BottleneckKind string

const (
	BottleneckNestedLoop BottleneckKind = "nested_loop"
	BottleneckIO         BottleneckKind = "io"
	BottleneckSync       BottleneckKind = "synchronization"
	BottleneckMemory     BottleneckKind = "memory"
)

// Bottleneck is one performance concern attached to a node.
type Bottleneck struct {
	NodeID      string         `json:"nodeId"`
	Line        int            `json:"line"`
	Kind        BottleneckKind `json:"kind"`
	Severity    string         `json:"severity"`
	Description string         `json:"description"`
}

// Hotspot ranks a node by how much work is likely concentrated there.
type Hotspot struct {
	NodeID  string   `json:"nodeId"`
	Line    int      `json:"line"`
	Score   float64  `json:"score"`
	Reasons []string `json:"reasons,omitempty"`
}

// Optimization is a suggested change for a node.
type Optimization struct {
	NodeID     string `json:"nodeId"`
	Line       int    `json:"line"`
	Suggestion string `json:"suggestion"`
}

// Analysis is the complete control-flow report for a function.
type Analysis struct {
	Function      string             `json:"function"`
	StartLine     int                `json:"startLine"`
	EndLine       int                `json:"endLine"`
	Graph         *Graph             `json:"graph"`
	Metrics       complexity.Metrics `json:"metrics"`
	Variables     []Variable         `json:"variables,omitempty"`
	DataFlows     []DataFlow         `json:"dataFlows,omitempty"`
	TaintFlows    []TaintFlow        `json:"taintFlows,omitempty"`
	DeadCode      []DeadNode         `json:"deadCode,omitempty"`
	HotPaths      []HotPath          `json:"hotPaths,omitempty"`
	Bottlenecks   []Bottleneck       `json:"bottlenecks,omitempty"`
	Hotspots      []Hotspot          `json:"hotspots,omitempty"`
	Optimizations []Optimization     `json:"optimizations,omitempty"`
}
