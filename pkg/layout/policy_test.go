package layout

import (
	"fmt"
	"testing"

	"github.com/ritzau/netview/pkg/model"
)

func w(v float64) *float64 { return &v }

func TestRadiusMapping(t *testing.T) {
	prof := DefaultPolicy().Desktop

	if got := prof.Radius(0); got != prof.BaseRadius {
		t.Errorf("Radius(0) = %v, want %v", got, prof.BaseRadius)
	}
	if got := prof.Radius(1); got != prof.MaxRadius {
		t.Errorf("Radius(1) = %v, want %v", got, prof.MaxRadius)
	}
	if got := prof.Radius(2); got != prof.MaxRadius {
		t.Errorf("Radius should clamp above 1, got %v", got)
	}
	if got := prof.CollisionRadius(0); got != prof.BaseRadius+prof.CollisionPadding {
		t.Errorf("CollisionRadius(0) = %v", got)
	}
}

func TestProfileFor(t *testing.T) {
	policy := DefaultPolicy()

	mobile := policy.ProfileFor(400)
	desktop := policy.ProfileFor(1280)

	if mobile.Class != ClassMobile || desktop.Class != ClassDesktop {
		t.Fatalf("Unexpected classes: %s, %s", mobile.Class, desktop.Class)
	}
	if mobile.BaseRadius <= desktop.BaseRadius {
		t.Error("Mobile base radius should be larger than desktop for tap targets")
	}
	if mobile.LinkDistance >= desktop.LinkDistance {
		t.Error("Mobile link distance should be shorter than desktop")
	}
	if -mobile.ChargeStrength >= -desktop.ChargeStrength {
		t.Error("Desktop repulsion should be stronger than mobile")
	}
	if policy.ClassFor(policy.Breakpoint) != ClassDesktop {
		t.Error("Breakpoint width itself should use the desktop profile")
	}
}

func twelveNodeSnapshot() *model.Snapshot {
	var nodes []model.RawNode
	for i := 0; i < 12; i++ {
		nodes = append(nodes, model.RawNode{ID: fmt.Sprintf("n%02d", i), Weight: w(float64(12 - i))})
	}
	conns := []model.RawConnection{
		{Source: "n00", Target: "n01"},
		{Source: "n01", Target: "n04"},
		{Source: "n02", Target: "n07"},
		{Source: "n09", Target: "n11"},
		{Source: "n03", Target: "ghost"},
	}
	return model.NewSnapshot(nodes, conns)
}

func TestVisibleTopN(t *testing.T) {
	policy := DefaultPolicy()
	snap := twelveNodeSnapshot()

	sel := policy.Visible(snap, false)
	if len(sel.Nodes) != 5 {
		t.Fatalf("Expected 5 visible nodes, got %d", len(sel.Nodes))
	}
	if !sel.Truncated || sel.Hidden != 7 {
		t.Errorf("Expected 7 hidden nodes, got %d (truncated=%v)", sel.Hidden, sel.Truncated)
	}

	visible := make(map[string]bool)
	for _, n := range sel.Nodes {
		visible[n.ID] = true
	}
	for i := 0; i < 5; i++ {
		if id := fmt.Sprintf("n%02d", i); !visible[id] {
			t.Errorf("Expected %s among the heaviest nodes", id)
		}
	}

	if len(sel.Edges) != 2 {
		t.Errorf("Expected 2 edges among the top 5, got %d", len(sel.Edges))
	}
	for _, e := range sel.Edges {
		if !visible[e.Source] || !visible[e.Target] {
			t.Errorf("Edge %s->%s touches a hidden node", e.Source, e.Target)
		}
	}

	all := policy.Visible(snap, true)
	if len(all.Nodes) != 12 || len(all.Edges) != 4 || all.Truncated {
		t.Errorf("Show all: got %d nodes, %d edges, truncated=%v", len(all.Nodes), len(all.Edges), all.Truncated)
	}
}

func TestVisibleStableOnTies(t *testing.T) {
	policy := DefaultPolicy()
	policy.TopN = 2
	snap := model.NewSnapshot([]model.RawNode{{ID: "c"}, {ID: "a"}, {ID: "b"}}, nil)

	sel := policy.Visible(snap, false)
	if sel.Nodes[0].ID != "c" || sel.Nodes[1].ID != "a" {
		t.Errorf("Expected snapshot order on ties, got %s, %s", sel.Nodes[0].ID, sel.Nodes[1].ID)
	}
}

func TestSelectionSnapshot(t *testing.T) {
	sel := DefaultPolicy().Visible(twelveNodeSnapshot(), false)
	snap := sel.Snapshot()

	if snap.NodeCount() != 5 || snap.EdgeCount() != 2 {
		t.Errorf("Expected 5 nodes and 2 edges, got %d and %d", snap.NodeCount(), snap.EdgeCount())
	}
	top, _ := snap.Node("n00")
	if top.NormalizedWeight != 1 {
		t.Errorf("Expected heaviest visible node to normalize to 1, got %v", top.NormalizedWeight)
	}
}

func TestDefaultShowAll(t *testing.T) {
	if !DefaultShowAll(3, 5) {
		t.Error("Small networks should default to show all")
	}
	if DefaultShowAll(12, 5) {
		t.Error("Large networks should default to top-N")
	}
}
