package graph

import (
	"reflect"
	"testing"

	"github.com/ritzau/netview/pkg/model"
)

func buildSnapshot(ids []string, edges [][2]string) *model.Snapshot {
	nodes := make([]model.RawNode, len(ids))
	for i, id := range ids {
		nodes[i] = model.RawNode{ID: id}
	}
	conns := make([]model.RawConnection, len(edges))
	for i, e := range edges {
		conns[i] = model.RawConnection{Source: e[0], Target: e[1]}
	}
	return model.NewSnapshot(nodes, conns)
}

func TestNeighbors(t *testing.T) {
	idx := NewIndex(buildSnapshot(
		[]string{"a", "b", "c", "d"},
		[][2]string{{"a", "b"}, {"c", "a"}, {"a", "b"}, {"a", "a"}},
	))

	if idx.Len() != 4 {
		t.Errorf("Expected 4 nodes, got %d", idx.Len())
	}

	got := idx.Neighbors("a")
	want := []string{"b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Neighbors(a) = %v, want %v", got, want)
	}

	if idx.Degree("d") != 0 {
		t.Errorf("Expected isolated node to have degree 0, got %d", idx.Degree("d"))
	}
	if idx.Neighbors("missing") != nil {
		t.Error("Expected nil neighbours for unknown id")
	}
}

func TestAdjacent(t *testing.T) {
	idx := NewIndex(buildSnapshot([]string{"a", "b", "c"}, [][2]string{{"a", "b"}}))

	if !idx.Adjacent("b", "a") {
		t.Error("Expected a and b to be adjacent regardless of direction")
	}
	if idx.Adjacent("a", "c") {
		t.Error("Expected a and c not to be adjacent")
	}
	if idx.Adjacent("a", "zzz") {
		t.Error("Expected unknown node not to be adjacent")
	}
}

func TestComponents(t *testing.T) {
	idx := NewIndex(buildSnapshot(
		[]string{"x", "a", "b", "c", "d", "e"},
		[][2]string{{"a", "b"}, {"c", "b"}, {"d", "e"}},
	))

	got := idx.Components()
	want := [][]string{{"a", "b", "c"}, {"d", "e"}, {"x"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Components() = %v, want %v", got, want)
	}
}
