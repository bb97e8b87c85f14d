package model

import (
	"gonum.org/v1/gonum/floats"
)

// Node is a validated entity in a snapshot
type Node struct {
	ID               string     `json:"id"`
	Label            string     `json:"label"`
	Type             EntityType `json:"type"`
	Weight           float64    `json:"weight"`
	NormalizedWeight float64    `json:"normalizedWeight"` // in [0,1]
}

// Edge is a validated, directed relationship between two nodes of the same snapshot
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label"`
}

// Snapshot is the immutable node and edge set produced by one network query.
// Every edge resolves to nodes within the same snapshot.
type Snapshot struct {
	nodes   []Node
	edges   []Edge
	index   map[string]int
	dropped int
}

// NewSnapshot validates raw nodes and connections into a snapshot.
// Connections whose endpoints are not in the node list are dropped; duplicate
// node ids keep their first occurrence. Missing or negative weights count as 1.
func NewSnapshot(rawNodes []RawNode, rawEdges []RawConnection) *Snapshot {
	s := &Snapshot{
		nodes: make([]Node, 0, len(rawNodes)),
		edges: make([]Edge, 0, len(rawEdges)),
		index: make(map[string]int, len(rawNodes)),
	}

	for _, rn := range rawNodes {
		if rn.ID == "" {
			continue
		}
		if _, dup := s.index[rn.ID]; dup {
			continue
		}

		weight := 1.0
		if rn.Weight != nil && *rn.Weight >= 0 {
			weight = *rn.Weight
		}
		label := rn.Label
		if label == "" {
			label = rn.ID
		}

		s.index[rn.ID] = len(s.nodes)
		s.nodes = append(s.nodes, Node{
			ID:     rn.ID,
			Label:  label,
			Type:   ParseEntityType(rn.Type),
			Weight: weight,
		})
	}

	for _, rc := range rawEdges {
		_, okSource := s.index[rc.Source]
		_, okTarget := s.index[rc.Target]
		if !okSource || !okTarget {
			s.dropped++
			continue
		}
		label := rc.Label
		if label == "" {
			label = DefaultEdgeLabel
		}
		s.edges = append(s.edges, Edge{Source: rc.Source, Target: rc.Target, Label: label})
	}

	normalizeWeights(s.nodes)
	return s
}

// FromResponse builds a snapshot from a network query response
func FromResponse(resp *NetworkResponse) *Snapshot {
	if resp == nil {
		return NewSnapshot(nil, nil)
	}
	return NewSnapshot(resp.Nodes, resp.Connections)
}

// normalizeWeights maps weights to [0,1]. With uniform weights the divisor is 1
// and every node ends up at 0.
func normalizeWeights(nodes []Node) {
	if len(nodes) == 0 {
		return
	}
	weights := make([]float64, len(nodes))
	for i, n := range nodes {
		weights[i] = n.Weight
	}
	lo, hi := floats.Min(weights), floats.Max(weights)
	span := hi - lo
	if span == 0 {
		span = 1
	}
	for i := range nodes {
		nodes[i].NormalizedWeight = (nodes[i].Weight - lo) / span
	}
}

// Nodes returns a copy of the snapshot's nodes in input order
func (s *Snapshot) Nodes() []Node {
	out := make([]Node, len(s.nodes))
	copy(out, s.nodes)
	return out
}

// Edges returns a copy of the snapshot's valid edges in input order
func (s *Snapshot) Edges() []Edge {
	out := make([]Edge, len(s.edges))
	copy(out, s.edges)
	return out
}

// Node looks up a node by id
func (s *Snapshot) Node(id string) (Node, bool) {
	i, ok := s.index[id]
	if !ok {
		return Node{}, false
	}
	return s.nodes[i], true
}

// Has returns true if the snapshot contains the node id
func (s *Snapshot) Has(id string) bool {
	_, ok := s.index[id]
	return ok
}

// NodeCount returns the number of valid nodes
func (s *Snapshot) NodeCount() int {
	return len(s.nodes)
}

// EdgeCount returns the number of valid edges
func (s *Snapshot) EdgeCount() int {
	return len(s.edges)
}

// Dropped returns how many input connections referenced absent nodes
func (s *Snapshot) Dropped() int {
	return s.dropped
}

// Empty returns true when there is nothing to lay out
func (s *Snapshot) Empty() bool {
	return len(s.nodes) == 0
}
