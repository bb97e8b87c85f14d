package model

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const focalJSON = `{
  "nodes": [
    {"id": "a", "label": "Alice", "type": "PERSON", "weight": 10},
    {"id": "b", "label": "Acme", "type": "ORG"}
  ],
  "connections": [{"source": "a", "target": "b", "label": "works at"}],
  "total_entities": 2,
  "total_relationships": 1,
  "focal_entity": "Alice",
  "mention_count": 17
}`

func TestDecodeNetwork(t *testing.T) {
	resp, err := DecodeNetwork(strings.NewReader(focalJSON))
	if err != nil {
		t.Fatalf("DecodeNetwork failed: %v", err)
	}
	if !resp.IsFocal() || resp.MentionCount != 17 {
		t.Errorf("Expected focal response, got %+v", resp)
	}
	if resp.Nodes[1].Weight != nil {
		t.Error("Expected absent weight to stay nil")
	}

	snap := FromResponse(resp)
	b, _ := snap.Node("b")
	if b.Type != EntityOrganization || b.Weight != 1 {
		t.Errorf("Unexpected node b: %+v", b)
	}

	if _, err := DecodeNetwork(strings.NewReader("{")); err == nil {
		t.Error("Expected error for truncated JSON")
	}
}

func TestReadNetworkFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "network.json")
	if err := os.WriteFile(path, []byte(focalJSON), 0o644); err != nil {
		t.Fatal(err)
	}

	resp, err := ReadNetworkFile(path)
	if err != nil {
		t.Fatalf("ReadNetworkFile failed: %v", err)
	}
	if len(resp.Nodes) != 2 || len(resp.Connections) != 1 {
		t.Errorf("Unexpected response %+v", resp)
	}

	if _, err := ReadNetworkFile(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("Expected error for a missing file")
	}
}
