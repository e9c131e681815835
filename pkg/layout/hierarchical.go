package layout

import (
	"github.com/matzehuels/causalcanvas/pkg/diagram"
	"github.com/matzehuels/causalcanvas/pkg/geom"
)

// Hierarchical places nodes in horizontal layers derived from edge direction.
//
// Layers are assigned with an in-degree driven work queue:
//  1. Nodes with in-degree 0 seed layer 0. If there are none (every node sits
//     on a cycle) the first node is forced in as the only seed.
//  2. Processing a node sets each out-neighbor's layer to
//     max(current, parent+1) and decrements its remaining in-degree; a
//     neighbor is enqueued when that reaches zero.
//  3. Each node is enqueued at most once, and edges pointing back into an
//     already processed node are ignored, so the loop terminates on cycles.
//
// Nodes never reached from a seed go to a trailing layer below the rest.
// Each layer is centered horizontally at NodeSpacing intervals and layer L
// sits at y = L*LayerSpacing; finally the centroid is moved onto Anchor.
//
// The result depends only on node order and edges.
func Hierarchical(nodes []diagram.Node, edges []diagram.Edge, cfg Config) []diagram.Node {
	if len(nodes) == 0 {
		return []diagram.Node{}
	}
	cfg = cfg.withDefaults()

	layers := assignLayers(len(nodes), indexEdges(nodes, edges))

	maxLayer := 0
	for _, l := range layers {
		maxLayer = max(maxLayer, l)
	}
	rows := make([][]int, maxLayer+1)
	for i, l := range layers {
		rows[l] = append(rows[l], i)
	}

	pos := make([]geom.Point, len(nodes))
	for l, row := range rows {
		k := float64(len(row))
		for i, idx := range row {
			pos[idx] = geom.Point{
				X: (float64(i) - (k-1)/2) * cfg.NodeSpacing,
				Y: float64(l) * cfg.LayerSpacing,
			}
		}
	}
	translate(pos, cfg.Anchor.Sub(geom.Centroid(pos)))
	return place(nodes, pos)
}

// assignLayers returns a layer per node index. Unreached nodes are put one
// layer below the deepest assigned layer.
func assignLayers(n int, edges [][2]int) []int {
	adj := make([][]int, n)
	remaining := make([]int, n)
	for _, e := range edges {
		adj[e[0]] = append(adj[e[0]], e[1])
		remaining[e[1]]++
	}

	layer := make([]int, n)
	reached := make([]bool, n)
	queued := make([]bool, n)
	done := make([]bool, n)

	queue := make([]int, 0, n)
	for i := range n {
		if remaining[i] == 0 {
			queue = append(queue, i)
			queued[i], reached[i] = true, true
		}
	}
	if len(queue) == 0 {
		queue = append(queue, 0)
		queued[0], reached[0] = true, true
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		done[cur] = true

		for _, child := range adj[cur] {
			if done[child] {
				continue
			}
			layer[child] = max(layer[child], layer[cur]+1)
			reached[child] = true
			remaining[child]--
			if remaining[child] <= 0 && !queued[child] {
				queued[child] = true
				queue = append(queue, child)
			}
		}
	}

	deepest := 0
	for i := range n {
		if reached[i] {
			deepest = max(deepest, layer[i])
		}
	}
	for i := range n {
		if !reached[i] {
			layer[i] = deepest + 1
		}
	}
	return layer
}
