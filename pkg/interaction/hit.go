package interaction

import (
	"math"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/matzehuels/causalcanvas/pkg/diagram"
	"github.com/matzehuels/causalcanvas/pkg/geom"
)

// Shape is the rendered outline of a node.
type Shape string

const (
	ShapeRect   Shape = "rect"
	ShapeCircle Shape = "circle"
)

// Theme describes how node labels turn into node sizes. All lengths are in
// world units.
type Theme struct {
	Shape      Shape   `toml:"shape"`
	CharWidth  float64 `toml:"char_width"`
	LineHeight float64 `toml:"line_height"`
	PadX       float64 `toml:"pad_x"`
	PadY       float64 `toml:"pad_y"`
	MinWidth   float64 `toml:"min_width"`
	MaxWidth   float64 `toml:"max_width"`
}

// DefaultTheme returns the stock rectangular theme.
func DefaultTheme() Theme {
	return Theme{
		Shape:      ShapeRect,
		CharWidth:  7,
		LineHeight: 18,
		PadX:       12,
		PadY:       8,
		MinWidth:   80,
		MaxWidth:   220,
	}
}

func (t Theme) normalized() Theme {
	d := DefaultTheme()
	if t == (Theme{}) {
		return d
	}
	if t.Shape != ShapeCircle {
		t.Shape = ShapeRect
	}
	if t.CharWidth <= 0 {
		t.CharWidth = d.CharWidth
	}
	if t.LineHeight <= 0 {
		t.LineHeight = d.LineHeight
	}
	if t.PadX < 0 {
		t.PadX = d.PadX
	}
	if t.PadY < 0 {
		t.PadY = d.PadY
	}
	if t.MinWidth <= 0 {
		t.MinWidth = d.MinWidth
	}
	if t.MaxWidth < t.MinWidth {
		t.MaxWidth = max(d.MaxWidth, t.MinWidth)
	}
	return t
}

// Size returns the width and height of a node showing label. Labels wider
// than MaxWidth wrap onto more lines; display width accounts for wide runes.
func (t Theme) Size(label string) (w, h float64) {
	t = t.normalized()
	lines := 0.0
	widest := 0.0
	inner := t.MaxWidth - 2*t.PadX
	for _, line := range strings.Split(label, "\n") {
		tw := float64(runewidth.StringWidth(line)) * t.CharWidth
		if inner > 0 && tw > inner {
			lines += math.Ceil(tw / inner)
			widest = inner
		} else {
			lines++
			widest = max(widest, tw)
		}
	}
	w = min(t.MaxWidth, max(t.MinWidth, widest+2*t.PadX))
	h = lines*t.LineHeight + 2*t.PadY
	if t.Shape == ShapeCircle {
		d := max(w, h)
		return d, d
	}
	return w, h
}

// Bounds returns the bounding rectangle of n, centered on its position.
func (t Theme) Bounds(n diagram.Node) geom.Rect {
	w, h := t.Size(n.Label)
	return geom.RectAround(n.Pos, w, h)
}

// Contains reports whether world point p is inside the rendered shape of n.
func (t Theme) Contains(n diagram.Node, p geom.Point) bool {
	t = t.normalized()
	if t.Shape == ShapeCircle {
		d, _ := t.Size(n.Label)
		return n.Pos.Dist(p) <= d/2
	}
	return t.Bounds(n).Contains(p)
}

// HitTest returns the ID of the top-most node under world point p, or "".
// Nodes are tested from last to first, matching paint order.
func HitTest(nodes []diagram.Node, p geom.Point, t Theme) string {
	for i := len(nodes) - 1; i >= 0; i-- {
		if t.Contains(nodes[i], p) {
			return nodes[i].ID
		}
	}
	return ""
}

// EdgeAnchor returns the point where a line from the center of n toward
// target leaves n's shape. Renderers use it to stop arrows at the border.
func (t Theme) EdgeAnchor(n diagram.Node, target geom.Point) geom.Point {
	t = t.normalized()
	dir := target.Sub(n.Pos)
	dist := dir.Len()
	if dist == 0 {
		return n.Pos
	}
	w, h := t.Size(n.Label)
	if t.Shape == ShapeCircle {
		return n.Pos.Add(dir.Scale(w / 2 / dist))
	}
	sx, sy := math.Inf(1), math.Inf(1)
	if dir.X != 0 {
		sx = (w / 2) / math.Abs(dir.X)
	}
	if dir.Y != 0 {
		sy = (h / 2) / math.Abs(dir.Y)
	}
	return n.Pos.Add(dir.Scale(min(sx, sy, 1)))
}
