package layout

import (
	"sort"

	"github.com/ritzau/netview/pkg/model"
)

// Selection is the subset of a snapshot that is currently drawn
type Selection struct {
	Nodes     []model.Node `json:"nodes"` // heaviest first
	Edges     []model.Edge `json:"edges"` // both endpoints are in Nodes
	Hidden    int          `json:"hidden"`
	Truncated bool         `json:"truncated"`
}

// Visible applies top-N filtering. With showAll every node is kept; otherwise
// the TopN heaviest nodes are kept, ties broken by snapshot order. Edges are
// kept only when both endpoints survive.
func (p Policy) Visible(snap *model.Snapshot, showAll bool) Selection {
	nodes := snap.Nodes()
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].Weight > nodes[j].Weight
	})

	limit := len(nodes)
	if !showAll && p.TopN > 0 && p.TopN < limit {
		limit = p.TopN
	}

	sel := Selection{
		Nodes:     nodes[:limit],
		Hidden:    len(nodes) - limit,
		Truncated: limit < len(nodes),
	}

	keep := make(map[string]bool, limit)
	for _, n := range sel.Nodes {
		keep[n.ID] = true
	}
	for _, e := range snap.Edges() {
		if keep[e.Source] && keep[e.Target] {
			sel.Edges = append(sel.Edges, e)
		}
	}

	return sel
}

// DefaultShowAll decides the initial state of the "show all" toggle for a
// per-article network: small networks are shown whole.
func DefaultShowAll(totalEntities, topN int) bool {
	return topN <= 0 || totalEntities <= topN
}

// Snapshot returns the selection as a standalone snapshot so the engine only
// ever sees visible nodes. Weights are re-normalized over the visible set.
func (s Selection) Snapshot() *model.Snapshot {
	nodes := make([]model.RawNode, len(s.Nodes))
	for i, n := range s.Nodes {
		w := n.Weight
		nodes[i] = model.RawNode{ID: n.ID, Label: n.Label, Type: string(n.Type), Weight: &w}
	}
	conns := make([]model.RawConnection, len(s.Edges))
	for i, e := range s.Edges {
		conns[i] = model.RawConnection{Source: e.Source, Target: e.Target, Label: e.Label}
	}
	return model.NewSnapshot(nodes, conns)
}
