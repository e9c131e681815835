package layout

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/matzehuels/causalcanvas/pkg/diagram"
	"github.com/matzehuels/causalcanvas/pkg/geom"
)

// ErrUnknownAlgorithm is returned by [Apply] and [ParseAlgorithm] for an
// algorithm name that is not one of [Algorithms].
var ErrUnknownAlgorithm = errors.New("unknown layout algorithm")

// Algorithm names a layout strategy.
type Algorithm string

const (
	AlgorithmHierarchical Algorithm = "hierarchical"
	AlgorithmForce        Algorithm = "force"
	AlgorithmCircular     Algorithm = "circular"
	AlgorithmGrid         Algorithm = "grid"
)

// Algorithms returns every supported algorithm in cycling order.
func Algorithms() []Algorithm {
	return []Algorithm{AlgorithmHierarchical, AlgorithmForce, AlgorithmCircular, AlgorithmGrid}
}

// ParseAlgorithm resolves a name (case-insensitive). "force-directed" and
// "force_directed" are accepted as aliases of [AlgorithmForce].
func ParseAlgorithm(s string) (Algorithm, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "force-directed", "force_directed":
		return AlgorithmForce, nil
	}
	if a := Algorithm(name); slices.Contains(Algorithms(), a) {
		return a, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, s)
}

// Next returns the algorithm that follows a in [Algorithms], wrapping around.
func (a Algorithm) Next() Algorithm {
	all := Algorithms()
	i := slices.Index(all, a)
	return all[(i+1)%len(all)]
}

// Config holds the tunables of all four algorithms. Zero fields take the
// values from [DefaultConfig].
type Config struct {
	// Anchor is the world point hierarchical, force and circular layouts
	// are centered on.
	Anchor geom.Point

	NodeSpacing  float64 // horizontal distance between nodes in a layer
	LayerSpacing float64 // vertical distance between layers

	Iterations   int     // force-directed iteration count
	Repulsion    float64 // inverse-square repulsion constant
	SpringLength float64 // rest length of edge springs
	SpringK      float64 // spring constant
	Damping      float64 // position += force * Damping
	Seed         uint64  // separates coincident nodes deterministically

	Radius float64 // circular layout radius

	Columns     int
	GridSpacing float64
	GridOrigin  geom.Point
}

// DefaultConfig returns the stock layout parameters.
func DefaultConfig() Config {
	return Config{
		Anchor:       geom.Pt(400, 300),
		NodeSpacing:  200,
		LayerSpacing: 150,
		Iterations:   50,
		Repulsion:    50000,
		SpringLength: 200,
		SpringK:      0.1,
		Damping:      0.8,
		Radius:       250,
		Columns:      4,
		GridSpacing:  200,
		GridOrigin:   geom.Pt(100, 100),
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Anchor == (geom.Point{}) {
		c.Anchor = d.Anchor
	}
	if c.NodeSpacing <= 0 {
		c.NodeSpacing = d.NodeSpacing
	}
	if c.LayerSpacing <= 0 {
		c.LayerSpacing = d.LayerSpacing
	}
	if c.Iterations <= 0 {
		c.Iterations = d.Iterations
	}
	if c.Repulsion <= 0 {
		c.Repulsion = d.Repulsion
	}
	if c.SpringLength <= 0 {
		c.SpringLength = d.SpringLength
	}
	if c.SpringK <= 0 {
		c.SpringK = d.SpringK
	}
	if c.Damping <= 0 {
		c.Damping = d.Damping
	}
	if c.Radius <= 0 {
		c.Radius = d.Radius
	}
	if c.Columns <= 0 {
		c.Columns = d.Columns
	}
	if c.GridSpacing <= 0 {
		c.GridSpacing = d.GridSpacing
	}
	if c.GridOrigin == (geom.Point{}) {
		c.GridOrigin = d.GridOrigin
	}
	return c
}

// Func is the signature shared by all layout algorithms.
type Func func(nodes []diagram.Node, edges []diagram.Edge, cfg Config) []diagram.Node

// Lookup returns the implementation of a.
func Lookup(a Algorithm) (Func, error) {
	switch a {
	case AlgorithmHierarchical:
		return Hierarchical, nil
	case AlgorithmForce:
		return ForceDirected, nil
	case AlgorithmCircular:
		return Circular, nil
	case AlgorithmGrid:
		return Grid, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, a)
}

// Apply runs algorithm a. The input slices are not modified; the returned
// nodes are in input order with only Pos and Placed changed.
func Apply(a Algorithm, nodes []diagram.Node, edges []diagram.Edge, cfg Config) ([]diagram.Node, error) {
	fn, err := Lookup(a)
	if err != nil {
		return nil, err
	}
	return fn(nodes, edges, cfg), nil
}

// Fill assigns every unplaced node the grid slot of its index and returns
// the result. Placed nodes are left where they are.
func Fill(nodes []diagram.Node, cfg Config) []diagram.Node {
	cfg = cfg.withDefaults()
	out := slices.Clone(nodes)
	for i := range out {
		if !out[i].Placed {
			out[i].Pos = gridSlot(i, cfg)
			out[i].Placed = true
		}
	}
	return out
}

// place copies nodes with the given positions. Every node ends up placed.
func place(nodes []diagram.Node, pos []geom.Point) []diagram.Node {
	out := make([]diagram.Node, len(nodes))
	for i, n := range nodes {
		n.Pos = pos[i]
		n.Placed = true
		out[i] = n
	}
	return out
}

func translate(pos []geom.Point, by geom.Point) {
	for i := range pos {
		pos[i] = pos[i].Add(by)
	}
}

// indexEdges resolves edges to node indices, dropping self-loops and edges
// with a missing endpoint.
func indexEdges(nodes []diagram.Node, edges []diagram.Edge) [][2]int {
	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		if _, dup := index[n.ID]; !dup {
			index[n.ID] = i
		}
	}
	out := make([][2]int, 0, len(edges))
	for _, e := range edges {
		from, okF := index[e.From]
		to, okT := index[e.To]
		if !okF || !okT || from == to {
			continue
		}
		out = append(out, [2]int{from, to})
	}
	return out
}
