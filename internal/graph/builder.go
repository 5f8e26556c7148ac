package graph

import (
	"sentinel/internal/model"
)

// EdgeWeights assigns a base weight per relationship type. A relationship's
// own confidence scales its base weight.
type EdgeWeights struct {
	Calls       float64
	Uses        float64
	Inherits    float64
	Implements  float64
	FieldAccess float64
	Includes    float64
	Imports     float64
	Spawns      float64
}

// DefaultEdgeWeights returns the defaults.
func DefaultEdgeWeights() EdgeWeights {
	return EdgeWeights{
		Calls:       1.0,
		Uses:        0.8,
		Inherits:    0.7,
		Implements:  0.7,
		FieldAccess: 0.5,
		Includes:    0.3,
		Imports:     0.3,
		Spawns:      0.6,
	}
}

func (w EdgeWeights) of(t model.RelationshipType) float64 {
	switch t {
	case model.RelCalls:
		return w.Calls
	case model.RelUses:
		return w.Uses
	case model.RelInherits:
		return w.Inherits
	case model.RelImplements:
		return w.Implements
	case model.RelReadsField, model.RelWritesField:
		return w.FieldAccess
	case model.RelIncludes:
		return w.Includes
	case model.RelImports:
		return w.Imports
	case model.RelSpawns:
		return w.Spawns
	}
	return 0
}

// Build constructs the symbol graph. Every symbol becomes a node keyed by
// qualified name; relationships become edges, creating nodes for endpoints
// that are not declared symbols. Relationships with an unknown type or a
// zero weight are skipped.
func Build(symbols []model.Symbol, rels []model.Relationship, weights EdgeWeights) *Graph {
	g := NewGraph()
	for _, s := range symbols {
		g.AddNode(nodeKey(s))
	}
	for _, r := range rels {
		if r.FromName == "" || r.ToName == "" {
			continue
		}
		base := weights.of(r.Type)
		if base <= 0 {
			continue
		}
		conf := r.Confidence
		if conf <= 0 {
			conf = 1
		}
		g.AddEdge(r.FromName, r.ToName, base*model.ClampConfidence(conf), r.Type)
	}
	return g
}

// BuildSnapshot builds the graph for every symbol and relationship in snap.
func BuildSnapshot(snap *model.Snapshot, weights EdgeWeights) *Graph {
	return Build(snap.Symbols(), snap.Relationships(), weights)
}

func nodeKey(s model.Symbol) string {
	if s.QualifiedName != "" {
		return s.QualifiedName
	}
	return s.Name
}

// Stats summarizes a graph.
type Stats struct {
	TotalNodes   int                            `json:"totalNodes"`
	TotalEdges   int                            `json:"totalEdges"`
	ByKind       map[model.RelationshipType]int `json:"byKind"`
	AvgOutDegree float64                        `json:"avgOutDegree"`
}

// Stats counts nodes and edges by kind.
func (g *Graph) Stats() Stats {
	st := Stats{
		TotalNodes: g.NumNodes(),
		TotalEdges: g.NumEdges(),
		ByKind:     make(map[model.RelationshipType]int),
	}
	for _, edges := range g.out {
		for _, e := range edges {
			st.ByKind[e.kind]++
		}
	}
	if st.TotalNodes > 0 {
		st.AvgOutDegree = float64(st.TotalEdges) / float64(st.TotalNodes)
	}
	return st
}
