package layout

import (
	"math"
	"math/rand/v2"

	"github.com/matzehuels/causalcanvas/pkg/diagram"
	"github.com/matzehuels/causalcanvas/pkg/geom"
)

// ForceDirected relaxes node positions with a fixed number of spring
// iterations.
//
// Every pair of nodes repels with Repulsion/d² (d floored at 1) and every
// edge pulls its endpoints toward SpringLength with Hookean constant SpringK.
// Forces are recomputed from scratch each iteration and applied as
// position += force*Damping; there is no velocity.
//
// Placed nodes start from their current position. Unplaced nodes start on a
// circle of Radius around Anchor. Coincident pairs are pushed apart along a
// direction drawn from a PCG stream seeded with cfg.Seed, so the same input
// always yields the same output. After the last iteration the bounding-box
// center is moved onto Anchor.
func ForceDirected(nodes []diagram.Node, edges []diagram.Edge, cfg Config) []diagram.Node {
	n := len(nodes)
	if n == 0 {
		return []diagram.Node{}
	}
	cfg = cfg.withDefaults()

	pos := seedPositions(nodes, cfg)
	springs := indexEdges(nodes, edges)
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0xdeadbeef))
	force := make([]geom.Point, n)

	for range cfg.Iterations {
		clear(force)

		for i := range n {
			for j := i + 1; j < n; j++ {
				delta := pos[i].Sub(pos[j])
				dist := delta.Len()
				var dir geom.Point
				if dist == 0 {
					theta := rng.Float64() * 2 * math.Pi
					dir = geom.Pt(math.Cos(theta), math.Sin(theta))
				} else {
					dir = delta.Scale(1 / dist)
				}
				d := math.Max(dist, 1)
				push := dir.Scale(cfg.Repulsion / (d * d))
				force[i] = force[i].Add(push)
				force[j] = force[j].Sub(push)
			}
		}

		for _, s := range springs {
			a, b := s[0], s[1]
			delta := pos[b].Sub(pos[a])
			dist := delta.Len()
			if dist == 0 {
				continue
			}
			pull := delta.Scale(cfg.SpringK * (dist - cfg.SpringLength) / dist)
			force[a] = force[a].Add(pull)
			force[b] = force[b].Sub(pull)
		}

		for i := range pos {
			pos[i] = pos[i].Add(force[i].Scale(cfg.Damping))
		}
	}

	translate(pos, cfg.Anchor.Sub(geom.Bounds(pos).Center()))
	return place(nodes, pos)
}

// seedPositions returns the starting positions for the simulation: current
// positions for placed nodes, evenly spaced circle slots for the rest.
func seedPositions(nodes []diagram.Node, cfg Config) []geom.Point {
	pos := make([]geom.Point, len(nodes))
	var unplaced []int
	for i, nd := range nodes {
		if nd.Placed {
			pos[i] = nd.Pos
		} else {
			unplaced = append(unplaced, i)
		}
	}
	for k, i := range unplaced {
		pos[i] = circleSlot(k, len(unplaced), cfg)
	}
	return pos
}
