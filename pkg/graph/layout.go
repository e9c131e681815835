package graph

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/matzehuels/causalcanvas/pkg/diagram"
)

// =============================================================================
// Layout - Computed Positions
// =============================================================================

// Layout is the serialized result of a layout run: the algorithm used and
// the position of every node. It is what the layout cache stores and what
// the stateless layout endpoint returns.
type Layout struct {
	Algorithm string     `json:"algorithm" bson:"algorithm"`
	Width     float64    `json:"width" bson:"width"`
	Height    float64    `json:"height" bson:"height"`
	Positions []Position `json:"positions" bson:"positions"`
}

// Position is one node's computed coordinates.
type Position struct {
	ID string  `json:"id" bson:"id"`
	X  float64 `json:"x" bson:"x"`
	Y  float64 `json:"y" bson:"y"`
}

// LayoutOf records the positions of nodes. Width and Height span the node
// centers.
func LayoutOf(algorithm string, nodes []diagram.Node) Layout {
	l := Layout{Algorithm: algorithm, Positions: make([]Position, len(nodes))}
	for i, n := range nodes {
		l.Positions[i] = Position{ID: n.ID, X: n.Pos.X, Y: n.Pos.Y}
	}
	if len(nodes) > 0 {
		minX, minY := nodes[0].Pos.X, nodes[0].Pos.Y
		maxX, maxY := minX, minY
		for _, n := range nodes[1:] {
			minX, maxX = min(minX, n.Pos.X), max(maxX, n.Pos.X)
			minY, maxY = min(minY, n.Pos.Y), max(maxY, n.Pos.Y)
		}
		l.Width, l.Height = maxX-minX, maxY-minY
	}
	return l
}

// Apply copies the recorded positions onto the matching nodes of doc. Nodes
// the layout does not mention keep their coordinates.
func (l Layout) Apply(doc Document) Document {
	pos := make(map[string]Position, len(l.Positions))
	for _, p := range l.Positions {
		pos[p.ID] = p
	}
	out := doc
	out.Nodes = make([]Node, len(doc.Nodes))
	for i, n := range doc.Nodes {
		if p, ok := pos[n.ID]; ok {
			n.X, n.Y = Float(p.X), Float(p.Y)
		}
		out.Nodes[i] = n
	}
	return out
}

// =============================================================================
// Layout Serialization API
// =============================================================================

// MarshalLayout serializes a Layout to pretty-printed JSON bytes.
func MarshalLayout(l Layout) ([]byte, error) {
	return json.MarshalIndent(l, "", "  ")
}

// UnmarshalLayout deserializes JSON bytes into a Layout.
func UnmarshalLayout(data []byte) (Layout, error) {
	var l Layout
	if err := json.Unmarshal(data, &l); err != nil {
		return Layout{}, fmt.Errorf("unmarshal layout: %w", err)
	}
	if l.Algorithm == "" {
		return Layout{}, fmt.Errorf("layout must name its algorithm")
	}
	return l, nil
}

// WriteLayoutFile writes a Layout to a JSON file.
func WriteLayoutFile(l Layout, path string) error {
	data, err := MarshalLayout(l)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
