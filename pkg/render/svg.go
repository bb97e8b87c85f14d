package render

import (
	"fmt"
	"io"
	"math"

	svg "github.com/ajstarks/svgo"
)

const (
	edgeColor  = "#94a3b8"
	edgeActive = "#475569"
	textColor  = "#1f2937"
	lineHeight = 13
)

// WriteSVG draws a scene as a standalone SVG document
func WriteSVG(w io.Writer, scene Scene) error {
	ew := &errWriter{w: w}
	canvas := svg.New(ew)

	width, height := px(scene.Width), px(scene.Height)
	if width <= 0 || height <= 0 {
		width, height = 1, 1
	}
	canvas.Start(width, height)
	canvas.Rect(0, 0, width, height, "fill:#ffffff")

	t := scene.Transform
	canvas.Gtransform(fmt.Sprintf("translate(%.2f,%.2f) scale(%.3f)", t.X, t.Y, t.K))

	canvas.Gid("edges")
	for _, e := range scene.Edges {
		stroke := edgeColor
		if e.Highlighted {
			stroke = edgeActive
		}
		canvas.Line(px(e.X1), px(e.Y1), px(e.X2), px(e.Y2),
			fmt.Sprintf("stroke:%s;stroke-width:1.5", stroke))
		canvas.Polygon(
			[]int{px(e.Arrow[0].X), px(e.Arrow[1].X), px(e.Arrow[2].X)},
			[]int{px(e.Arrow[0].Y), px(e.Arrow[1].Y), px(e.Arrow[2].Y)},
			"fill:"+stroke)
		canvas.Text(px(e.LabelX), px(e.LabelY)-3, e.Label,
			"font-family:sans-serif;font-size:10px;text-anchor:middle;fill:#64748b")
	}
	canvas.Gend()

	canvas.Gid("nodes")
	for _, n := range scene.Nodes {
		canvas.Circle(px(n.X), px(n.Y), px(n.R),
			fmt.Sprintf("fill:%s;fill-opacity:%.2f;stroke:%s;stroke-width:%.1f", n.Fill, n.FillOpacity, n.Stroke, n.StrokeWidth))

		top := px(n.Y) - (len(n.Lines)-1)*lineHeight/2 + 4
		for i, line := range n.Lines {
			canvas.Text(px(n.X), top+i*lineHeight, line,
				fmt.Sprintf("font-family:sans-serif;font-size:11px;text-anchor:middle;fill:%s", textColor))
		}
	}
	canvas.Gend()

	canvas.Gend()
	canvas.End()
	return ew.err
}

func px(v float64) int {
	return int(math.Round(v))
}

// errWriter keeps the first write error; svgo does not report them
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return len(p), nil
	}
	if _, err := e.w.Write(p); err != nil {
		e.err = fmt.Errorf("failed to write svg: %w", err)
	}
	return len(p), nil
}
