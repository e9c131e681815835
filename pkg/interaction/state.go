package interaction

import (
	"fmt"

	"github.com/matzehuels/causalcanvas/pkg/diagram"
	"github.com/matzehuels/causalcanvas/pkg/geom"
)

// Gesture is the exclusive in-progress pointer gesture. It is one of [Idle],
// [DraggingNode], [DraggingEdge], [Lassoing] or [Panning].
type Gesture interface {
	fmt.Stringer
	gesture()
}

// Idle means no gesture is in progress.
type Idle struct{}

// DraggingNode moves a node (and, if it is selected, the rest of the
// selection with it).
type DraggingNode struct {
	ID     string
	Grab   geom.Point // node position minus pointer world position at press
	Origin geom.Point // node position at press
	Pos    geom.Point // current node position
	Start  geom.Point // screen position at press
	Last   geom.Point // last screen position seen
	Travel float64    // cumulative screen-space pointer travel
	Moved  bool       // Travel has exceeded the drag threshold
}

// Delta returns the world-space offset from the press position.
func (g DraggingNode) Delta() geom.Point { return g.Pos.Sub(g.Origin) }

// DraggingEdge draws a rubber band from a source node to the pointer.
type DraggingEdge struct {
	From    string
	Pointer geom.Point // current pointer world position
	Start   geom.Point // screen position at press
	Last    geom.Point
	Travel  float64
	// Click is set when the press may instead be the first click of the
	// click-to-connect protocol (edge mode, no modifier).
	Click bool
}

// Lassoing draws a selection rectangle between two world points.
type Lassoing struct {
	Start   geom.Point
	Current geom.Point
}

// Rect returns the normalized lasso rectangle in world space.
func (g Lassoing) Rect() geom.Rect { return geom.RectFromPoints(g.Start, g.Current) }

// Panning drags the viewport.
type Panning struct {
	Start      geom.Point // screen position at press
	PanAtStart geom.Point
}

func (Idle) gesture()         {}
func (DraggingNode) gesture() {}
func (DraggingEdge) gesture() {}
func (Lassoing) gesture()     {}
func (Panning) gesture()      {}

func (Idle) String() string           { return "idle" }
func (g DraggingNode) String() string { return "dragging-node(" + g.ID + ")" }
func (g DraggingEdge) String() string { return "dragging-edge(" + g.From + ")" }
func (Lassoing) String() string       { return "lassoing" }
func (Panning) String() string        { return "panning" }

// State is the complete ephemeral interaction state. It is a plain value;
// [Reduce] never mutates it in place.
type State struct {
	Gesture Gesture
	// PendingSource is the first node of an unfinished click-to-connect.
	PendingSource string
	// Hover is the node under the pointer while idle.
	Hover string
}

// NewState returns the initial idle state.
func NewState() State { return State{Gesture: Idle{}} }

// IsIdle reports whether no gesture is active.
func (s State) IsIdle() bool {
	_, ok := s.Gesture.(Idle)
	return ok || s.Gesture == nil
}

// NodePosition is a committed position for one node.
type NodePosition struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// Point returns the position as a point.
func (p NodePosition) Point() geom.Point { return geom.Pt(p.X, p.Y) }

// Effect is an outward-facing result of a transition.
type Effect interface{ effect() }

// NodesMoved commits a batch of node positions.
type NodesMoved struct{ Positions []NodePosition }

// EdgeRequested asks the host to create an edge.
type EdgeRequested struct{ Key diagram.EdgeKey }

// EdgeRejected reports an edge request that failed validation. It is for
// logging and feedback only and must not reach the host's edge callback.
type EdgeRejected struct {
	Key diagram.EdgeKey
	Err error
}

// SelectionToggled flips one node in or out of the selection.
type SelectionToggled struct{ ID string }

// SelectionReplaced replaces the whole selection.
type SelectionReplaced struct{ IDs []string }

// ViewportChanged carries the new viewport after a pan or zoom.
type ViewportChanged struct{ Viewport geom.Viewport }

// PendingSourceChanged reports a new click-to-connect source ("" = cleared).
type PendingSourceChanged struct{ ID string }

// HoverChanged reports the node now under the pointer ("" = none).
type HoverChanged struct{ ID string }

func (NodesMoved) effect()           {}
func (EdgeRequested) effect()        {}
func (EdgeRejected) effect()         {}
func (SelectionToggled) effect()     {}
func (SelectionReplaced) effect()    {}
func (ViewportChanged) effect()      {}
func (PendingSourceChanged) effect() {}
func (HoverChanged) effect()         {}
