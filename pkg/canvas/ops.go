package canvas

import (
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/matzehuels/causalcanvas/pkg/diagram"
	"github.com/matzehuels/causalcanvas/pkg/geom"
	"github.com/matzehuels/causalcanvas/pkg/interaction"
	"github.com/matzehuels/causalcanvas/pkg/layout"
	"github.com/matzehuels/causalcanvas/pkg/selection"
)

// =============================================================================
// Modes and annotations
// =============================================================================

// SetEdgeMode switches edge-creation mode. Leaving edge mode drops a pending
// click-to-connect source and any edge drag in progress.
func (c *Canvas) SetEdgeMode(on bool) {
	c.run(func(n *notifier) {
		c.edgeMode = on
		if on {
			return
		}
		c.state.PendingSource = ""
		if _, ok := c.state.Gesture.(interaction.DraggingEdge); ok {
			c.state.Gesture = interaction.Idle{}
		}
	})
}

// SetWarnings replaces the warning badges.
func (c *Canvas) SetWarnings(ws []Warning) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.warnings = slices.Clone(ws)
}

// =============================================================================
// Selection
// =============================================================================

// SelectAll selects every live node.
func (c *Canvas) SelectAll() {
	c.run(func(n *notifier) {
		c.replaceSelectionLocked(selection.Of(c.hist.Present().NodeIDs()...), n)
	})
}

// SelectNone clears the selection.
func (c *Canvas) SelectNone() {
	c.run(func(n *notifier) { c.replaceSelectionLocked(selection.Set{}, n) })
}

// Select replaces the selection with the live nodes among ids.
func (c *Canvas) Select(ids ...string) {
	c.run(func(n *notifier) {
		d := c.hist.Present()
		c.replaceSelectionLocked(selection.Of(ids...).Prune(d.HasNode), n)
	})
}

func (c *Canvas) replaceSelectionLocked(s selection.Set, n *notifier) {
	if s.Equal(c.sel) {
		return
	}
	c.sel = s
	n.selection(s.IDs())
}

// =============================================================================
// Structural edits
// =============================================================================

// DeleteNode removes a node, every edge incident to it and its selection
// entry as a single undoable step.
func (c *Canvas) DeleteNode(id string) bool {
	var ok bool
	c.run(func(n *notifier) { ok = c.deleteLocked([]string{id}, n) })
	return ok
}

// DeleteSelected removes every selected node as a single undoable step.
func (c *Canvas) DeleteSelected() bool {
	var ok bool
	c.run(func(n *notifier) { ok = c.deleteLocked(c.sel.IDs(), n) })
	return ok
}

func (c *Canvas) deleteLocked(ids []string, n *notifier) bool {
	d := c.hist.Present()
	live := slices.DeleteFunc(slices.Clone(ids), func(id string) bool { return !d.HasNode(id) })
	if len(live) == 0 {
		return false
	}
	c.log.Debug("deleting nodes", "ids", live)
	return c.commitLocked(d.RemoveNodes(live...), true, n)
}

// AddNode creates a node with a fresh ID. A zero at places the node in its
// default slot.
func (c *Canvas) AddNode(label string, kind diagram.Kind, at *geom.Point) (diagram.Node, error) {
	node := diagram.Node{ID: uuid.NewString(), Label: label, Kind: kind}
	if at != nil {
		node.Pos, node.Placed = *at, true
	}
	var err error
	c.run(func(n *notifier) {
		var d diagram.Diagram
		d, err = c.hist.Present().AddNode(node)
		if err != nil {
			return
		}
		c.commitLocked(d, true, n)
		node, _ = c.hist.Present().Node(node.ID)
	})
	return node, err
}

// CommitEdge adds e after the same checks the gesture layer applies:
// no self-loops, no unknown endpoints and no second edge for the same pair.
func (c *Canvas) CommitEdge(e diagram.Edge) error {
	var err error
	c.run(func(n *notifier) { err = c.commitEdgeLocked(e, n) })
	return err
}

func (c *Canvas) commitEdgeLocked(e diagram.Edge, n *notifier) error {
	d := c.hist.Present()
	if e.From != e.To && d.HasEdge(e.From, e.To) {
		return fmt.Errorf("%w: %s", diagram.ErrDuplicateEdge, e.Key())
	}
	next, err := d.AddEdge(e)
	if err != nil {
		return fmt.Errorf("%w: %s", err, e.Key())
	}
	c.commitLocked(next, true, n)
	return nil
}

// ResolveEdge merges the result of an asynchronous enrichment into the edge
// identified by key. If the edge no longer exists (either endpoint or the
// edge itself was deleted meanwhile) the result is discarded and false is
// returned.
func (c *Canvas) ResolveEdge(key diagram.EdgeKey, merge func(diagram.Edge) diagram.Edge) bool {
	var ok bool
	c.run(func(n *notifier) {
		var d diagram.Diagram
		d, ok = c.hist.Present().UpdateEdge(key, merge)
		if !ok {
			c.log.Debug("discarding result for obsolete edge", "edge", key)
			return
		}
		c.commitLocked(d, true, n)
	})
	return ok
}

// AcceptSuggestion creates a new node one layer below from and connects
// from to it, in one undoable step. It is used when the user accepts an
// enrichment suggestion that names a node not yet on the canvas.
func (c *Canvas) AcceptSuggestion(from string, label string, kind diagram.Kind, rel diagram.Relation) (diagram.Node, error) {
	var (
		node diagram.Node
		err  error
	)
	c.run(func(n *notifier) {
		d := c.hist.Present()
		src, ok := d.Node(from)
		if !ok {
			err = fmt.Errorf("%w: %s", diagram.ErrUnknownSourceNode, from)
			return
		}
		cfg := c.opts.Layout
		if cfg.LayerSpacing <= 0 {
			cfg.LayerSpacing = layout.DefaultConfig().LayerSpacing
		}
		node = diagram.Node{
			ID:     uuid.NewString(),
			Label:  label,
			Kind:   kind,
			Pos:    src.Pos.Add(geom.Pt(0, cfg.LayerSpacing)),
			Placed: true,
		}
		if d, err = d.AddNode(node); err != nil {
			return
		}
		if d, err = d.AddEdge(diagram.Edge{From: from, To: node.ID, Relation: rel, Status: diagram.StatusProposed}); err != nil {
			return
		}
		c.commitLocked(d, true, n)
	})
	return node, err
}

// Nudge moves the selected nodes by a world-space delta. Consecutive nudges
// within the history throttle window collapse into one undo step.
func (c *Canvas) Nudge(delta geom.Point) {
	c.run(func(n *notifier) {
		if c.sel.Len() == 0 {
			return
		}
		d := c.hist.Present()
		pos := make(map[string]geom.Point, c.sel.Len())
		var batch []interaction.NodePosition
		for _, nd := range d.Nodes {
			if c.sel.Has(nd.ID) {
				p := nd.Pos.Add(delta)
				pos[nd.ID] = p
				batch = append(batch, interaction.NodePosition{ID: nd.ID, X: p.X, Y: p.Y})
			}
		}
		if c.commitLocked(d.MoveNodes(pos), false, n) {
			n.positions(batch)
		}
	})
}

// =============================================================================
// Layout and history
// =============================================================================

// RunLayout repositions every node with algorithm a and commits the result
// as one undoable step.
func (c *Canvas) RunLayout(a layout.Algorithm) error {
	var err error
	c.run(func(n *notifier) {
		d := c.hist.Present()
		var nodes []diagram.Node
		nodes, err = layout.Apply(a, d.Nodes, d.ValidEdges(), c.opts.Layout)
		if err != nil {
			return
		}
		c.log.Debug("layout", "algorithm", a, "nodes", len(nodes))
		if c.commitLocked(d.WithNodes(nodes), true, n) {
			batch := make([]interaction.NodePosition, len(nodes))
			for i, nd := range nodes {
				batch[i] = interaction.NodePosition{ID: nd.ID, X: nd.Pos.X, Y: nd.Pos.Y}
			}
			n.positions(batch)
		}
	})
	return err
}

// Undo steps back one history entry.
func (c *Canvas) Undo() bool { return c.step(c.hist.Undo) }

// Redo re-applies the last undone entry.
func (c *Canvas) Redo() bool { return c.step(c.hist.Redo) }

func (c *Canvas) step(fn func() bool) bool {
	var ok bool
	c.run(func(n *notifier) {
		if ok = fn(); ok {
			c.afterChangeLocked(c.hist.Present(), n)
		}
	})
	return ok
}

// CanUndo reports whether [Canvas.Undo] would do anything.
func (c *Canvas) CanUndo() bool { return c.hist.CanUndo() }

// CanRedo reports whether [Canvas.Redo] would do anything.
func (c *Canvas) CanRedo() bool { return c.hist.CanRedo() }

// =============================================================================
// Viewport
// =============================================================================

// ResetView restores unit zoom and zero pan.
func (c *Canvas) ResetView() {
	c.run(func(n *notifier) { c.setViewportLocked(geom.DefaultViewport(), n) })
}

// ZoomBy scales the zoom around a screen point.
func (c *Canvas) ZoomBy(factor float64, anchor geom.Point) {
	c.run(func(n *notifier) {
		c.setViewportLocked(c.viewport.ZoomAt(anchor, factor, c.opts.ZoomBounds), n)
	})
}

// PanBy moves the viewport by a screen-space delta.
func (c *Canvas) PanBy(delta geom.Point) {
	c.run(func(n *notifier) { c.setViewportLocked(c.viewport.PanBy(delta), n) })
}

// FitView chooses a viewport that shows every node inside a screen of the
// given size, with margin pixels of padding.
func (c *Canvas) FitView(width, height, margin float64) {
	c.run(func(n *notifier) {
		d := c.hist.Present()
		if len(d.Nodes) == 0 || width <= 2*margin || height <= 2*margin {
			c.setViewportLocked(geom.DefaultViewport(), n)
			return
		}
		var pts []geom.Point
		for _, nd := range d.Nodes {
			b := c.opts.Theme.Bounds(nd)
			pts = append(pts, b.Min, b.Max)
		}
		box := geom.Bounds(pts)
		zoom := 1.0
		if box.Width() > 0 && box.Height() > 0 {
			zoom = min((width-2*margin)/box.Width(), (height-2*margin)/box.Height())
		}
		zoom = c.opts.ZoomBounds.Clamp(zoom)
		center := box.Center()
		v := geom.Viewport{Zoom: zoom}
		v.Pan = geom.Pt(width/2, height/2).Sub(center.Scale(zoom))
		c.setViewportLocked(v, n)
	})
}
