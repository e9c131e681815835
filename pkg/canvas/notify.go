package canvas

import (
	"slices"

	"github.com/matzehuels/causalcanvas/pkg/diagram"
	"github.com/matzehuels/causalcanvas/pkg/geom"
	"github.com/matzehuels/causalcanvas/pkg/interaction"
)

// notifier queues callback invocations so they run outside the canvas lock.
type notifier struct {
	cb    Callbacks
	queue []func()
}

func (n *notifier) push(f func()) { n.queue = append(n.queue, f) }

func (n *notifier) flush() {
	for _, f := range n.queue {
		f()
	}
	n.queue = nil
}

func (n *notifier) positions(ps []interaction.NodePosition) {
	if n.cb.NodePositionsChanged != nil && len(ps) > 0 {
		ps = slices.Clone(ps)
		n.push(func() { n.cb.NodePositionsChanged(ps) })
	}
}

func (n *notifier) edgeRequested(k diagram.EdgeKey) {
	if n.cb.EdgeRequested != nil {
		n.push(func() { n.cb.EdgeRequested(k) })
	}
}

func (n *notifier) edgeRejected(k diagram.EdgeKey, err error) {
	if n.cb.EdgeRejected != nil {
		n.push(func() { n.cb.EdgeRejected(k, err) })
	}
}

func (n *notifier) toggled(id string) {
	if n.cb.SelectionToggled != nil {
		n.push(func() { n.cb.SelectionToggled(id) })
	}
}

func (n *notifier) selection(ids []string) {
	if n.cb.SelectionChanged != nil {
		n.push(func() { n.cb.SelectionChanged(ids) })
	}
}

func (n *notifier) viewport(v geom.Viewport) {
	if n.cb.ViewportChanged != nil {
		n.push(func() { n.cb.ViewportChanged(v) })
	}
}

func (n *notifier) diagram(d diagram.Diagram) {
	if n.cb.DiagramChanged != nil {
		n.push(func() { n.cb.DiagramChanged(d) })
	}
}

func (n *notifier) pruned(es []diagram.Edge) {
	if n.cb.EdgesPruned != nil {
		n.push(func() { n.cb.EdgesPruned(es) })
	}
}

func (n *notifier) invalidate() {
	if n.cb.Invalidate != nil {
		n.push(n.cb.Invalidate)
	}
}
