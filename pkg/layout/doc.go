// Package layout computes world-space node positions for a diagram.
//
// # Algorithms
//
// Four stateless algorithms share the [Func] signature:
//
//   - [Hierarchical]: layered placement from an in-degree work queue that
//     tolerates cycles by forcing a seed instead of failing.
//   - [ForceDirected]: fixed-iteration spring relaxation (inverse-square
//     repulsion, Hookean edges, damping, no velocity).
//   - [Circular]: evenly spaced on a circle.
//   - [Grid]: row-major with a fixed column count.
//
// Use [Apply] to dispatch by [Algorithm] name. Every algorithm returns an
// empty slice for empty input, never mutates its arguments and changes only
// Pos and Placed on the returned nodes.
//
// # Default slots
//
// Nodes loaded without a position get the grid slot of their index via
// [Fill]. The slot depends only on the index, so reloading the same
// collection produces the same picture.
//
// Edges referencing unknown nodes and self-loops are ignored by every
// algorithm.
package layout
