// Package geom provides the coordinate-transform layer of the diagram engine.
//
// # Spaces
//
// Two coordinate systems are in play:
//
//   - World space: the diagram's logical coordinates, independent of pan/zoom.
//   - Screen space: pointer and render-surface pixels.
//
// A [Viewport] maps one to the other with an explicit affine [Matrix]:
//
//	screen = pan + zoom * world
//
// [ScreenToWorld] and [WorldToScreen] both go through that matrix (and its
// inverse), so they are exact inverses up to floating-point rounding.
//
// # Render surfaces
//
// Pointer coordinates reported by a host are often in device units (HiDPI
// pixels, terminal cells) rather than logical screen pixels. A [Surface]
// exposes its own device-to-screen matrix; [DeviceToWorld] and
// [WorldToDevice] compose it with the viewport matrix.
//
// # Zoom clamping
//
// Zoom is clamped to [ZoomBounds] whenever a viewport is created or mutated
// ([NewViewport], [Viewport.WithZoom], [Viewport.ZoomAt]). A zero zoom is
// therefore unreachable and the viewport matrix is always invertible.
package geom
