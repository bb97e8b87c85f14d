package render

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/ritzau/netview/pkg/force"
	"github.com/ritzau/netview/pkg/graph"
	"github.com/ritzau/netview/pkg/interact"
	"github.com/ritzau/netview/pkg/model"
	"gonum.org/v1/gonum/spatial/r2"
)

const (
	fillOpacity      = 0.15
	strokeWidth      = 2.0
	hoverGrow        = 4.0
	hoverStrokeWidth = 3.0
	arrowLength      = 10.0
	arrowWidth       = 7.0
	arrowGap         = 2.0 // space between arrow tip and target circle
	longLabelRunes   = 12
)

// Scene is everything needed to draw one frame
type Scene struct {
	Width     float64            `json:"width"`
	Height    float64            `json:"height"`
	Transform interact.Transform `json:"transform"`
	State     force.State        `json:"state"`
	Nodes     []NodeShape        `json:"nodes"`
	Edges     []EdgeShape        `json:"edges"`
	Stats     Stats              `json:"stats"`
}

// Stats are the counts reported alongside a scene
type Stats struct {
	Nodes   int `json:"nodes"`
	Edges   int `json:"edges"`
	Hidden  int `json:"hidden"`
	Dropped int `json:"dropped"`
}

// NodeShape is a circle with a centered, possibly two-line label
type NodeShape struct {
	ID          string           `json:"id"`
	Type        model.EntityType `json:"type"`
	X           float64          `json:"x"`
	Y           float64          `json:"y"`
	R           float64          `json:"r"`
	Fill        string           `json:"fill"`
	FillOpacity float64          `json:"fillOpacity"`
	Stroke      string           `json:"stroke"`
	StrokeWidth float64          `json:"strokeWidth"`
	Lines       []string         `json:"lines"`
	Pinned      bool             `json:"pinned,omitempty"`
	Hovered     bool             `json:"hovered,omitempty"`
	Highlighted bool             `json:"highlighted,omitempty"`
}

// EdgeShape is a directed line from the source circle to just short of the
// target circle, an arrowhead pointing at the target and a midpoint label
type EdgeShape struct {
	Source      string    `json:"source"`
	Target      string    `json:"target"`
	Label       string    `json:"label"`
	X1          float64   `json:"x1"`
	Y1          float64   `json:"y1"`
	X2          float64   `json:"x2"`
	Y2          float64   `json:"y2"`
	Arrow       [3]r2.Vec `json:"arrow"` // tip first
	LabelX      float64   `json:"labelX"`
	LabelY      float64   `json:"labelY"`
	Highlighted bool      `json:"highlighted,omitempty"`
}

// Bodies is where the scene reads simulated positions from
type Bodies interface {
	Body(id string) (force.Body, bool)
}

// Frame is the input for one scene
type Frame struct {
	Width     float64
	Height    float64
	Transform interact.Transform
	State     force.State
	Nodes     []model.Node
	Edges     []model.Edge
	Bodies    Bodies
	Index     *graph.Index // optional; enables neighbour highlighting on hover
	Hovered   string
	Hidden    int
	Dropped   int
}

// Build maps simulation state to drawable shapes. Nodes without a resolved,
// finite position are skipped, and so is every edge touching them.
func Build(f Frame) Scene {
	scene := Scene{
		Width:     f.Width,
		Height:    f.Height,
		Transform: f.Transform,
		State:     f.State,
		Nodes:     make([]NodeShape, 0, len(f.Nodes)),
		Edges:     make([]EdgeShape, 0, len(f.Edges)),
	}

	neighbours := make(map[string]bool)
	if f.Hovered != "" && f.Index != nil {
		for _, id := range f.Index.Neighbors(f.Hovered) {
			neighbours[id] = true
		}
	}

	placed := make(map[string]NodeShape, len(f.Nodes))
	for _, n := range f.Nodes {
		b, ok := locate(f.Bodies, n.ID)
		if !ok {
			continue
		}
		color := TypeColor(n.Type)
		shape := NodeShape{
			ID:          n.ID,
			Type:        n.Type,
			X:           b.Pos.X,
			Y:           b.Pos.Y,
			R:           b.Radius,
			Fill:        color,
			FillOpacity: fillOpacity,
			Stroke:      color,
			StrokeWidth: strokeWidth,
			Lines:       SplitLabel(n.Label),
			Pinned:      b.Pinned,
			Highlighted: neighbours[n.ID],
		}
		if n.ID == f.Hovered {
			shape.Hovered = true
			shape.R += hoverGrow
			shape.StrokeWidth = hoverStrokeWidth
		}
		placed[n.ID] = shape
		scene.Nodes = append(scene.Nodes, shape)
	}

	for _, e := range f.Edges {
		s, okS := placed[e.Source]
		t, okT := placed[e.Target]
		if !okS || !okT {
			continue
		}
		shape, ok := edgeShape(e, s, t)
		if !ok {
			continue
		}
		shape.Highlighted = f.Hovered != "" && (e.Source == f.Hovered || e.Target == f.Hovered)
		scene.Edges = append(scene.Edges, shape)
	}

	scene.Stats = Stats{
		Nodes:   len(scene.Nodes),
		Edges:   len(scene.Edges),
		Hidden:  f.Hidden,
		Dropped: f.Dropped,
	}
	return scene
}

func locate(bodies Bodies, id string) (force.Body, bool) {
	if bodies == nil {
		return force.Body{}, false
	}
	b, ok := bodies.Body(id)
	if !ok || !finite(b.Pos.X) || !finite(b.Pos.Y) || !finite(b.Radius) {
		return force.Body{}, false
	}
	return b, true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func edgeShape(e model.Edge, s, t NodeShape) (EdgeShape, bool) {
	from := r2.Vec{X: s.X, Y: s.Y}
	to := r2.Vec{X: t.X, Y: t.Y}
	d := r2.Sub(to, from)
	dist := r2.Norm(d)
	if dist == 0 || !finite(dist) {
		return EdgeShape{}, false
	}
	u := r2.Scale(1/dist, d)
	perp := r2.Vec{X: -u.Y, Y: u.X}

	start := r2.Add(from, r2.Scale(s.R, u))
	tip := r2.Sub(to, r2.Scale(t.R+arrowGap, u))
	base := r2.Sub(tip, r2.Scale(arrowLength, u))
	mid := r2.Scale(0.5, r2.Add(from, to))

	return EdgeShape{
		Source: e.Source,
		Target: e.Target,
		Label:  e.Label,
		X1:     start.X,
		Y1:     start.Y,
		X2:     base.X,
		Y2:     base.Y,
		Arrow: [3]r2.Vec{
			tip,
			r2.Add(base, r2.Scale(arrowWidth/2, perp)),
			r2.Sub(base, r2.Scale(arrowWidth/2, perp)),
		},
		LabelX: mid.X,
		LabelY: mid.Y,
	}, true
}

// SplitLabel breaks long multi-word labels into two lines at the space
// closest to the middle. Short labels and single words stay on one line.
func SplitLabel(label string) []string {
	label = strings.TrimSpace(label)
	if utf8.RuneCountInString(label) <= longLabelRunes || !strings.Contains(label, " ") {
		return []string{label}
	}

	runes := []rune(label)
	middle := len(runes) / 2
	best := -1
	for i, r := range runes {
		if r != ' ' {
			continue
		}
		if best < 0 || abs(i-middle) < abs(best-middle) {
			best = i
		}
	}
	first := strings.TrimSpace(string(runes[:best]))
	second := strings.TrimSpace(string(runes[best+1:]))
	return []string{first, second}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
