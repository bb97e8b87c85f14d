package interact

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Scale limits for the view transform
const (
	MinScale = 0.5
	MaxScale = 3.0
)

// Transform is the pan/zoom applied to the whole drawing. A world point p
// appears on screen at p*K + (X, Y). It never touches node positions.
type Transform struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	K float64 `json:"k"`
}

// Identity is the untransformed view
func Identity() Transform {
	return Transform{K: 1}
}

// Apply maps a world point to screen space
func (t Transform) Apply(p r2.Vec) r2.Vec {
	return r2.Add(r2.Scale(t.K, p), r2.Vec{X: t.X, Y: t.Y})
}

// Invert maps a screen point back to world space
func (t Transform) Invert(p r2.Vec) r2.Vec {
	return r2.Scale(1/t.K, r2.Sub(p, r2.Vec{X: t.X, Y: t.Y}))
}

// ZoomAt scales by factor while keeping the world point under the screen
// point p fixed. The resulting scale is clamped to [MinScale, MaxScale].
func (t Transform) ZoomAt(p r2.Vec, factor float64) Transform {
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return t
	}
	world := t.Invert(p)
	k := ClampScale(t.K * factor)
	return Transform{
		X: p.X - world.X*k,
		Y: p.Y - world.Y*k,
		K: k,
	}
}

// Translate pans by a screen-space delta
func (t Transform) Translate(d r2.Vec) Transform {
	return Transform{X: t.X + d.X, Y: t.Y + d.Y, K: t.K}
}

// ClampScale restricts k to the allowed zoom range
func ClampScale(k float64) float64 {
	return math.Max(MinScale, math.Min(MaxScale, k))
}
