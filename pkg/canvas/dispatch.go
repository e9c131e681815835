package canvas

import (
	"github.com/matzehuels/causalcanvas/pkg/diagram"
	"github.com/matzehuels/causalcanvas/pkg/geom"
	"github.com/matzehuels/causalcanvas/pkg/interaction"
	"github.com/matzehuels/causalcanvas/pkg/selection"
)

// Dispatch feeds one input event through the gesture reducer and applies the
// resulting effects.
func (c *Canvas) Dispatch(ev interaction.Event) {
	c.run(func(n *notifier) {
		d := c.hist.Present()
		next, effects := interaction.Reduce(c.state, ev, c.envLocked(d))
		c.state = next
		if !next.IsIdle() && next.Hover != "" {
			c.state.Hover = ""
			c.clearHoverLocked()
		}
		for _, eff := range effects {
			c.applyLocked(d, eff, n)
			d = c.hist.Present()
		}
	})
}

func (c *Canvas) envLocked(d diagram.Diagram) interaction.Env {
	return interaction.Env{
		Viewport:      c.viewport,
		ZoomBounds:    c.opts.ZoomBounds,
		Nodes:         d.Nodes,
		Edges:         d.ValidEdges(),
		Selection:     c.sel,
		EdgeMode:      c.edgeMode,
		Theme:         c.opts.Theme,
		DragThreshold: c.opts.DragThreshold,
		WheelStep:     c.opts.WheelStep,
	}
}

func (c *Canvas) applyLocked(d diagram.Diagram, eff interaction.Effect, n *notifier) {
	switch eff := eff.(type) {
	case interaction.NodesMoved:
		pos := make(map[string]geom.Point, len(eff.Positions))
		for _, p := range eff.Positions {
			pos[p.ID] = p.Point()
		}
		if c.commitLocked(d.MoveNodes(pos), true, n) {
			n.positions(eff.Positions)
		}

	case interaction.EdgeRequested:
		c.log.Debug("edge requested", "from", eff.Key.From, "to", eff.Key.To)
		if c.opts.Callbacks.EdgeRequested == nil {
			if err := c.commitEdgeLocked(diagram.Edge{From: eff.Key.From, To: eff.Key.To, Status: diagram.StatusProposed}, n); err != nil {
				c.log.Warn("edge rejected", "from", eff.Key.From, "to", eff.Key.To, "err", err)
			}
			return
		}
		n.edgeRequested(eff.Key)

	case interaction.EdgeRejected:
		c.log.Debug("edge rejected", "from", eff.Key.From, "to", eff.Key.To, "err", eff.Err)
		n.edgeRejected(eff.Key, eff.Err)

	case interaction.SelectionToggled:
		c.sel = c.sel.Toggle(eff.ID)
		n.toggled(eff.ID)
		n.selection(c.sel.IDs())

	case interaction.SelectionReplaced:
		next := selection.Of(eff.IDs...)
		if !next.Equal(c.sel) {
			c.sel = next
			n.selection(next.IDs())
		}

	case interaction.ViewportChanged:
		c.setViewportLocked(eff.Viewport, n)

	case interaction.HoverChanged:
		c.hoverLocked(eff.ID)

	case interaction.PendingSourceChanged:
		// Already reflected in c.state.
	}
}

func (c *Canvas) setViewportLocked(v geom.Viewport, n *notifier) {
	v.Zoom = c.opts.ZoomBounds.Clamp(v.Zoom)
	if v == c.viewport {
		return
	}
	c.viewport = v
	n.viewport(v)
}

// hoverLocked restarts the tooltip delay for id. Any pending timer is
// cancelled first so a stale tooltip can never appear.
func (c *Canvas) hoverLocked(id string) {
	c.clearHoverLocked()
	if id == "" {
		return
	}
	gen := c.hoverGen
	c.hoverTimer = c.opts.Scheduler.AfterFunc(c.opts.HoverDelay, func() {
		c.run(func(n *notifier) {
			if c.hoverGen != gen || c.state.Hover != id {
				return
			}
			c.tooltip = id
			n.invalidate()
		})
	})
}

func (c *Canvas) clearHoverLocked() {
	if c.hoverTimer != nil {
		c.hoverTimer.Stop()
		c.hoverTimer = nil
	}
	c.hoverGen++
	c.tooltip = ""
}
