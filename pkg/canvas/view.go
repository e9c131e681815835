package canvas

import (
	"github.com/matzehuels/causalcanvas/pkg/diagram"
	"github.com/matzehuels/causalcanvas/pkg/geom"
	"github.com/matzehuels/causalcanvas/pkg/interaction"
)

// Frame is everything a host needs to draw one picture of the canvas. All
// geometry is in world space; apply Viewport to get screen coordinates.
type Frame struct {
	Viewport   geom.Viewport
	Nodes      []NodeView
	Edges      []EdgeView
	Lasso      *geom.Rect
	RubberBand *Segment
	Tooltip    *Tooltip
	Gesture    string
	EdgeMode   bool
	CanUndo    bool
	CanRedo    bool
}

// NodeView is a node at its drawn position.
type NodeView struct {
	diagram.Node
	Bounds   geom.Rect
	Selected bool
	Hovered  bool
	Pending  bool // source of an unfinished click-to-connect
	Dragging bool
	Warnings []Warning
}

// EdgeView is an edge clipped to the borders of its endpoint shapes.
type EdgeView struct {
	diagram.Edge
	From, To geom.Point
	Warnings []Warning
}

// Segment is a straight line between two world points.
type Segment struct{ From, To geom.Point }

// Tooltip is the full label of the node the pointer rested on.
type Tooltip struct {
	NodeID string
	Text   string
	At     geom.Point
}

// Frame snapshots the drawable state. Nodes being dragged appear at their
// preview positions; only edges whose endpoints both exist are included.
func (c *Canvas) Frame() Frame {
	c.mu.Lock()
	defer c.mu.Unlock()

	d := c.hist.Present()
	env := c.envLocked(d)
	preview := interaction.Preview(c.state, env)
	theme := c.opts.Theme

	byTarget := make(map[string][]Warning)
	for _, w := range c.warnings {
		byTarget[w.TargetID] = append(byTarget[w.TargetID], w)
	}

	f := Frame{
		Viewport: c.viewport,
		Nodes:    make([]NodeView, 0, len(d.Nodes)),
		Gesture:  c.state.Gesture.String(),
		EdgeMode: c.edgeMode,
		CanUndo:  c.hist.CanUndo(),
		CanRedo:  c.hist.CanRedo(),
	}

	drawn := make(map[string]diagram.Node, len(d.Nodes))
	for _, n := range d.Nodes {
		_, dragging := preview[n.ID]
		if p, ok := preview[n.ID]; ok {
			n.Pos = p
		}
		drawn[n.ID] = n
		f.Nodes = append(f.Nodes, NodeView{
			Node:     n,
			Bounds:   theme.Bounds(n),
			Selected: c.sel.Has(n.ID),
			Hovered:  c.state.Hover == n.ID,
			Pending:  c.state.PendingSource == n.ID,
			Dragging: dragging,
			Warnings: byTarget[n.ID],
		})
	}

	for _, e := range env.Edges {
		from, to := drawn[e.From], drawn[e.To]
		f.Edges = append(f.Edges, EdgeView{
			Edge:     e,
			From:     theme.EdgeAnchor(from, to.Pos),
			To:       theme.EdgeAnchor(to, from.Pos),
			Warnings: byTarget[e.Key().String()],
		})
	}

	switch g := c.state.Gesture.(type) {
	case interaction.Lassoing:
		r := g.Rect()
		f.Lasso = &r
	case interaction.DraggingEdge:
		if from, ok := drawn[g.From]; ok {
			f.RubberBand = &Segment{From: theme.EdgeAnchor(from, g.Pointer), To: g.Pointer}
		}
	}

	if n, ok := drawn[c.tooltip]; ok && c.tooltip != "" {
		b := theme.Bounds(n)
		f.Tooltip = &Tooltip{NodeID: n.ID, Text: n.Label, At: geom.Pt(b.Center().X, b.Max.Y)}
	}
	return f
}
