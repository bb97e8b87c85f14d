package graph

import (
	"sort"

	"github.com/ritzau/netview/pkg/model"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Index is an adjacency view over a snapshot, backed by a gonum directed graph.
// Parallel edges collapse into one and self-loops are left out of the index.
type Index struct {
	graph *simple.DirectedGraph
	ids   map[string]int64 // node id -> graph id
	names []string         // graph id -> node id
}

// NewIndex builds the adjacency index for a snapshot
func NewIndex(snap *model.Snapshot) *Index {
	nodes := snap.Nodes()
	idx := &Index{
		graph: simple.NewDirectedGraph(),
		ids:   make(map[string]int64, len(nodes)),
		names: make([]string, 0, len(nodes)),
	}

	for _, n := range nodes {
		id := int64(len(idx.names))
		idx.ids[n.ID] = id
		idx.names = append(idx.names, n.ID)
		idx.graph.AddNode(simple.Node(id))
	}

	for _, e := range snap.Edges() {
		from, to := idx.ids[e.Source], idx.ids[e.Target]
		if from == to || idx.graph.HasEdgeFromTo(from, to) {
			continue
		}
		idx.graph.SetEdge(idx.graph.NewEdge(idx.graph.Node(from), idx.graph.Node(to)))
	}

	return idx
}

// Len returns the number of indexed nodes
func (idx *Index) Len() int {
	return len(idx.names)
}

// Neighbors returns the ids of nodes connected to id in either direction, sorted
func (idx *Index) Neighbors(id string) []string {
	gid, ok := idx.ids[id]
	if !ok {
		return nil
	}

	seen := make(map[int64]bool)
	collect := func(it graph.Nodes) {
		for it.Next() {
			seen[it.Node().ID()] = true
		}
	}
	collect(idx.graph.From(gid))
	collect(idx.graph.To(gid))

	out := make([]string, 0, len(seen))
	for nid := range seen {
		out = append(out, idx.names[nid])
	}
	sort.Strings(out)
	return out
}

// Degree returns the number of distinct neighbours of id
func (idx *Index) Degree(id string) int {
	return len(idx.Neighbors(id))
}

// Adjacent returns true if an edge runs between a and b in either direction
func (idx *Index) Adjacent(a, b string) bool {
	ga, okA := idx.ids[a]
	gb, okB := idx.ids[b]
	if !okA || !okB {
		return false
	}
	return idx.graph.HasEdgeBetween(ga, gb)
}

// Components returns the weakly connected components, largest first.
// Members keep snapshot order so seeding stays stable for a given input.
func (idx *Index) Components() [][]string {
	raw := topo.ConnectedComponents(graph.Undirect{G: idx.graph})

	comps := make([][]string, 0, len(raw))
	for _, c := range raw {
		gids := make([]int64, 0, len(c))
		for _, n := range c {
			gids = append(gids, n.ID())
		}
		sort.Slice(gids, func(i, j int) bool { return gids[i] < gids[j] })

		members := make([]string, len(gids))
		for i, gid := range gids {
			members[i] = idx.names[gid]
		}
		comps = append(comps, members)
	}

	sort.SliceStable(comps, func(i, j int) bool {
		if len(comps[i]) != len(comps[j]) {
			return len(comps[i]) > len(comps[j])
		}
		return idx.ids[comps[i][0]] < idx.ids[comps[j][0]]
	})
	return comps
}
