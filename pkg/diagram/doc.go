// Package diagram defines the node/edge collection the canvas engine edits.
//
// # Model
//
// A [Diagram] is an ordered list of [Node] values and an ordered list of
// [Edge] values. Nodes are identified by an opaque string ID; edges by their
// ordered endpoint pair ([EdgeKey]) plus their position in the list, so
// duplicate pairs are representable. Deciding whether duplicates are allowed
// is up to the caller.
//
// Node kinds, edge relations and edge statuses are plain string tags carried
// through for rendering. Nothing in the engine branches on them.
//
// # Values, not pointers
//
// All types are comparable value types and every modifying method returns a
// fresh [Diagram]. This makes snapshots for undo/redo trivially safe and lets
// [Diagram.Equal] serve as the deep-equality check used to suppress no-op
// history entries.
//
// # Integrity
//
// Edges must reference live nodes and must not be self-loops. [Diagram.AddEdge]
// enforces this on construction, [Diagram.RemoveNodes] cascades to incident
// edges, and [Diagram.Prune] strips edges that became malformed some other
// way (for example a host feeding a stale edge list).
package diagram
