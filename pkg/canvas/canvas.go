package canvas

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/causalcanvas/pkg/diagram"
	"github.com/matzehuels/causalcanvas/pkg/geom"
	"github.com/matzehuels/causalcanvas/pkg/history"
	"github.com/matzehuels/causalcanvas/pkg/interaction"
	"github.com/matzehuels/causalcanvas/pkg/layout"
	"github.com/matzehuels/causalcanvas/pkg/schedule"
	"github.com/matzehuels/causalcanvas/pkg/selection"
)

// DefaultHoverDelay is how long the pointer must rest on a node before its
// tooltip shows.
const DefaultHoverDelay = 400 * time.Millisecond

// Callbacks are the outward notifications of a [Canvas]. Every field is
// optional. Callbacks run after the canvas has released its lock, so they may
// call back into the canvas.
type Callbacks struct {
	// NodePositionsChanged receives the batch of committed positions after a
	// drag, nudge or layout run.
	NodePositionsChanged func([]interaction.NodePosition)

	// EdgeRequested receives validated edge requests. The host decides
	// whether and when to call [Canvas.CommitEdge]. When nil, requests are
	// committed directly as proposed edges.
	EdgeRequested func(diagram.EdgeKey)

	// EdgeRejected receives requests that failed validation.
	EdgeRejected func(diagram.EdgeKey, error)

	SelectionToggled func(id string)
	SelectionChanged func(ids []string)
	ViewportChanged  func(geom.Viewport)

	// DiagramChanged receives the new present after every commit, undo or redo.
	DiagramChanged func(diagram.Diagram)

	// EdgesPruned receives malformed edges removed during a commit.
	EdgesPruned func([]diagram.Edge)

	// Invalidate is called when state changed outside a method call
	// (a tooltip timer fired) and the host should redraw.
	Invalidate func()
}

// Options configures a [Canvas]. Zero values select defaults.
type Options struct {
	Layout        layout.Config
	Theme         interaction.Theme
	ZoomBounds    geom.ZoomBounds
	DragThreshold float64
	WheelStep     float64
	HoverDelay    time.Duration
	Throttle      time.Duration
	HistoryLimit  int
	Scheduler     schedule.Scheduler
	Logger        *log.Logger
	Callbacks     Callbacks
}

// Warning is a critique annotation attached to a node or edge. The canvas
// only renders it as a badge.
type Warning struct {
	TargetID      string `json:"node_or_edge_id"`
	Label         string `json:"label"`
	FixSuggestion string `json:"fix_suggestion,omitempty"`
}

// Canvas owns the authoritative diagram (through the history manager), the
// viewport, the gesture state and the selection, and turns pointer events
// into committed changes.
//
// All methods are safe to call from multiple goroutines, but events are
// expected to arrive from a single host event loop.
type Canvas struct {
	mu       sync.Mutex
	opts     Options
	log      *log.Logger
	hist     *history.Manager[diagram.Diagram]
	viewport geom.Viewport
	state    interaction.State
	sel      selection.Set
	edgeMode bool
	warnings []Warning

	tooltip    string
	hoverTimer schedule.Timer
	hoverGen   uint64
}

// New returns a canvas showing d.
func New(d diagram.Diagram, opts Options) *Canvas {
	if opts.ZoomBounds == (geom.ZoomBounds{}) {
		opts.ZoomBounds = geom.DefaultZoomBounds
	}
	if opts.HoverDelay <= 0 {
		opts.HoverDelay = DefaultHoverDelay
	}
	if opts.Throttle == 0 {
		opts.Throttle = history.DefaultThrottle
	}
	if opts.Scheduler == nil {
		opts.Scheduler = schedule.Real{}
	}
	if opts.Theme == (interaction.Theme{}) {
		opts.Theme = interaction.DefaultTheme()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	c := &Canvas{
		opts:     opts,
		log:      logger,
		viewport: geom.DefaultViewport(),
		state:    interaction.NewState(),
	}
	d = c.prepare(d)
	c.hist = history.New(d,
		history.WithThrottle(opts.Throttle),
		history.WithScheduler(opts.Scheduler),
		history.WithLimit(opts.HistoryLimit),
	)
	return c
}

// Load replaces the diagram, e.g. when switching projects. History, gesture
// and pending state are discarded; the selection keeps surviving IDs.
func (c *Canvas) Load(d diagram.Diagram) {
	c.run(func(n *notifier) {
		d = c.prepare(d)
		c.hist.Reset(d)
		c.resetGestureLocked()
		c.pruneSelectionLocked(d, n)
		n.diagram(d)
	})
}

// Update records a host-supplied collection as a new undoable state, e.g.
// after the host committed an edge itself.
func (c *Canvas) Update(d diagram.Diagram) {
	c.run(func(n *notifier) { c.commitLocked(d, true, n) })
}

// State returns the current diagram. This is the "get current state" query
// used by save and export paths.
func (c *Canvas) State() diagram.Diagram {
	return c.hist.Present()
}

// Viewport returns the current viewport.
func (c *Canvas) Viewport() geom.Viewport {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewport
}

// Interaction returns the current gesture state.
func (c *Canvas) Interaction() interaction.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Selection returns the selected node IDs in sorted order.
func (c *Canvas) Selection() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sel.IDs()
}

// EdgeMode reports whether edge-creation mode is on.
func (c *Canvas) EdgeMode() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.edgeMode
}

// prepare assigns default slots to unplaced nodes.
func (c *Canvas) prepare(d diagram.Diagram) diagram.Diagram {
	return d.WithNodes(layout.Fill(d.Nodes, c.opts.Layout))
}

// commitLocked prunes malformed edges, fills default slots and records d.
func (c *Canvas) commitLocked(d diagram.Diagram, force bool, n *notifier) bool {
	d, dropped := c.prepare(d).Prune()
	if len(dropped) > 0 {
		c.log.Warn("pruned malformed edges", "count", len(dropped))
		for _, e := range dropped {
			c.log.Debug("pruned edge", "from", e.From, "to", e.To)
		}
		n.pruned(dropped)
	}
	if !c.hist.Set(d, force) {
		return false
	}
	c.afterChangeLocked(d, n)
	return true
}

// afterChangeLocked re-establishes invariants that depend on the live node
// set: no dangling selection, pending source or gesture.
func (c *Canvas) afterChangeLocked(d diagram.Diagram, n *notifier) {
	c.pruneSelectionLocked(d, n)
	if c.state.PendingSource != "" && !d.HasNode(c.state.PendingSource) {
		c.state.PendingSource = ""
	}
	switch g := c.state.Gesture.(type) {
	case interaction.DraggingNode:
		if !d.HasNode(g.ID) {
			c.state.Gesture = interaction.Idle{}
		}
	case interaction.DraggingEdge:
		if !d.HasNode(g.From) {
			c.state.Gesture = interaction.Idle{}
		}
	}
	if c.tooltip != "" && !d.HasNode(c.tooltip) {
		c.clearHoverLocked()
	}
	n.diagram(d)
}

func (c *Canvas) pruneSelectionLocked(d diagram.Diagram, n *notifier) {
	next := c.sel.Prune(d.HasNode)
	if !next.Equal(c.sel) {
		c.sel = next
		n.selection(next.IDs())
	}
}

func (c *Canvas) resetGestureLocked() {
	c.state = interaction.NewState()
	c.clearHoverLocked()
}

// run executes fn under the lock and delivers the notifications it queued
// once the lock is released.
func (c *Canvas) run(fn func(n *notifier)) {
	n := &notifier{cb: c.opts.Callbacks}
	c.mu.Lock()
	fn(n)
	c.mu.Unlock()
	n.flush()
}
