// Package canvas is the stateful diagram engine behind the editor.
//
// A [Canvas] ties together the pieces that are pure on their own: the
// gesture reducer from package interaction, the undo history from package
// history, the viewport from package geom and the selection. Hosts feed it
// pointer events with [Canvas.Dispatch], draw [Canvas.Frame] snapshots and
// receive outward notifications through [Callbacks].
//
// # Commits
//
// Every change to the diagram goes through one path: default slots are
// assigned to unplaced nodes, malformed edges are pruned, the result is
// recorded in history and the selection, pending source and hover state are
// checked against the surviving node IDs. Deleting a node therefore removes
// its edges and its selection entry in the same undoable step.
//
// Drag previews never touch history. The release commits once, so a drag of
// any length undoes in one step.
//
// # Asynchronous results
//
// Enrichment runs outside the canvas. [Canvas.ResolveEdge] merges a result
// only if the edge still exists; results for edges deleted in the meantime
// are dropped.
//
// # Timers
//
// The hover tooltip and the history throttle use a [schedule.Scheduler].
// Interactive hosts pass [schedule.Posted] to run timer callbacks on their
// event loop; tests pass [schedule.Manual].
package canvas
