package layout

import (
	"math"

	"github.com/matzehuels/causalcanvas/pkg/diagram"
	"github.com/matzehuels/causalcanvas/pkg/geom"
)

// Circular spaces nodes evenly by angle 2πi/n on a circle of Radius around
// Anchor, starting at angle zero (to the right of the anchor).
func Circular(nodes []diagram.Node, _ []diagram.Edge, cfg Config) []diagram.Node {
	if len(nodes) == 0 {
		return []diagram.Node{}
	}
	cfg = cfg.withDefaults()
	pos := make([]geom.Point, len(nodes))
	for i := range nodes {
		pos[i] = circleSlot(i, len(nodes), cfg)
	}
	return place(nodes, pos)
}

// Grid places nodes row-major, Columns per row, GridSpacing apart, starting
// at GridOrigin.
func Grid(nodes []diagram.Node, _ []diagram.Edge, cfg Config) []diagram.Node {
	if len(nodes) == 0 {
		return []diagram.Node{}
	}
	cfg = cfg.withDefaults()
	pos := make([]geom.Point, len(nodes))
	for i := range nodes {
		pos[i] = gridSlot(i, cfg)
	}
	return place(nodes, pos)
}

func circleSlot(i, n int, cfg Config) geom.Point {
	theta := 2 * math.Pi * float64(i) / float64(n)
	return geom.Point{
		X: cfg.Anchor.X + cfg.Radius*math.Cos(theta),
		Y: cfg.Anchor.Y + cfg.Radius*math.Sin(theta),
	}
}

func gridSlot(i int, cfg Config) geom.Point {
	col, row := i%cfg.Columns, i/cfg.Columns
	return geom.Point{
		X: cfg.GridOrigin.X + float64(col)*cfg.GridSpacing,
		Y: cfg.GridOrigin.Y + float64(row)*cfg.GridSpacing,
	}
}
