// Package interaction implements the pointer gesture state machine.
//
// # Reducer
//
// [Reduce] is a pure function
//
//	(State, Event, Env) -> (State, []Effect)
//
// [State] holds the exclusive [Gesture] (idle, dragging a node, dragging an
// edge, lassoing or panning), the pending click-to-connect source and the
// hovered node. [Env] is everything the transition may read but not change:
// viewport, nodes in paint order, edges, selection, edge mode, theme and
// thresholds. Effects are the outward-facing results: committed node
// positions, edge requests, selection changes and viewport changes.
//
// Ephemeral feedback (drag preview, rubber band, lasso rectangle) is read
// straight off the gesture value; see [Preview] and [Lassoing.Rect].
//
// # Click versus drag
//
// Pressing a node starts a node drag, but nothing is committed until the
// cumulative pointer travel exceeds the drag threshold (5 screen pixels by
// default). A release below the threshold toggles the node's selection
// instead.
//
// # Connecting nodes
//
// Shift-dragging from a node, or dragging from a node in edge mode, draws a
// rubber band; releasing over a different node requests an edge. In edge
// mode a click without dragging marks a pending source, and clicking a
// second node completes the request. Self-loops, duplicate pairs and unknown
// endpoints become [EdgeRejected] effects and never [EdgeRequested].
//
// # Hit-testing
//
// Node bounds are derived from the label by a [Theme]; [HitTest] walks the
// nodes from last to first so the top-most node wins.
package interaction
