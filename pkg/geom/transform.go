package geom

import "math"

// Matrix is a 2D affine transform in SVG/canvas order:
//
//	| A C E |
//	| B D F |
//	| 0 0 1 |
//
// Applying it to (x, y) yields (A*x + C*y + E, B*x + D*y + F).
type Matrix struct {
	A, B, C, D, E, F float64
}

// Identity is the identity transform.
var Identity = Matrix{A: 1, D: 1}

// Translate returns a translation by (tx, ty).
func Translate(tx, ty float64) Matrix { return Matrix{A: 1, D: 1, E: tx, F: ty} }

// Scale returns a uniform scale about the origin.
func Scale(k float64) Matrix { return Matrix{A: k, D: k} }

// Mul returns m·n, the transform that applies n first and then m.
func (m Matrix) Mul(n Matrix) Matrix {
	return Matrix{
		A: m.A*n.A + m.C*n.B,
		B: m.B*n.A + m.D*n.B,
		C: m.A*n.C + m.C*n.D,
		D: m.B*n.C + m.D*n.D,
		E: m.A*n.E + m.C*n.F + m.E,
		F: m.B*n.E + m.D*n.F + m.F,
	}
}

// Apply transforms p.
func (m Matrix) Apply(p Point) Point {
	return Point{
		X: m.A*p.X + m.C*p.Y + m.E,
		Y: m.B*p.X + m.D*p.Y + m.F,
	}
}

// Det returns the determinant of the linear part.
func (m Matrix) Det() float64 { return m.A*m.D - m.B*m.C }

// Invert returns the inverse transform. ok is false if m is singular.
func (m Matrix) Invert() (inv Matrix, ok bool) {
	det := m.Det()
	if det == 0 || math.IsNaN(det) || math.IsInf(det, 0) {
		return Matrix{}, false
	}
	inv = Matrix{
		A: m.D / det,
		B: -m.B / det,
		C: -m.C / det,
		D: m.A / det,
	}
	inv.E = -(inv.A*m.E + inv.C*m.F)
	inv.F = -(inv.B*m.E + inv.D*m.F)
	return inv, true
}

// ZoomBounds is the closed interval zoom is clamped to.
type ZoomBounds struct {
	Min float64 `json:"min" toml:"min"`
	Max float64 `json:"max" toml:"max"`
}

// DefaultZoomBounds are the zoom limits used when none are configured.
var DefaultZoomBounds = ZoomBounds{Min: 0.1, Max: 3.0}

// Clamp returns z limited to the bounds. Invalid bounds (non-positive Min or
// Max < Min) fall back to [DefaultZoomBounds]; NaN becomes 1 clamped.
func (b ZoomBounds) Clamp(z float64) float64 {
	if b.Min <= 0 || b.Max < b.Min {
		b = DefaultZoomBounds
	}
	if math.IsNaN(z) {
		z = 1
	}
	return math.Max(b.Min, math.Min(b.Max, z))
}

// Viewport is the pan/zoom state shared by a canvas.
type Viewport struct {
	Pan  Point   `json:"pan"`
	Zoom float64 `json:"zoom"`
}

// NewViewport returns a viewport with the zoom clamped to bounds.
func NewViewport(pan Point, zoom float64, bounds ZoomBounds) Viewport {
	return Viewport{Pan: pan, Zoom: bounds.Clamp(zoom)}
}

// DefaultViewport is the "reset view" state: no pan, unit zoom.
func DefaultViewport() Viewport { return Viewport{Zoom: 1} }

// Matrix returns the world-to-screen transform translate(pan)·scale(zoom).
func (v Viewport) Matrix() Matrix {
	return Translate(v.Pan.X, v.Pan.Y).Mul(Scale(v.Zoom))
}

// WithZoom returns v with the zoom replaced and clamped.
func (v Viewport) WithZoom(z float64, bounds ZoomBounds) Viewport {
	v.Zoom = bounds.Clamp(z)
	return v
}

// PanBy returns v translated by a screen-space delta.
func (v Viewport) PanBy(delta Point) Viewport {
	v.Pan = v.Pan.Add(delta)
	return v
}

// ZoomAt scales the zoom by factor while keeping the world point under the
// screen anchor fixed. The resulting zoom is clamped.
func (v Viewport) ZoomAt(anchor Point, factor float64, bounds ZoomBounds) Viewport {
	next := Viewport{Pan: v.Pan, Zoom: bounds.Clamp(bounds.Clamp(v.Zoom) * factor)}
	if next.Zoom == v.Zoom {
		return v
	}
	world := ScreenToWorld(anchor, v)
	// anchor = pan' + zoom'*world
	next.Pan = anchor.Sub(world.Scale(next.Zoom))
	return next
}

// ScreenToWorld maps a screen-space point into world space under v.
func ScreenToWorld(p Point, v Viewport) Point {
	inv, ok := v.Matrix().Invert()
	if !ok {
		// Only reachable with a zero-value Viewport that bypassed clamping.
		inv, _ = v.WithZoom(v.Zoom, DefaultZoomBounds).Matrix().Invert()
	}
	return inv.Apply(p)
}

// WorldToScreen maps a world-space point into screen space under v.
func WorldToScreen(p Point, v Viewport) Point {
	return v.Matrix().Apply(p)
}

// Surface is a render target that knows how its device coordinates relate to
// logical screen coordinates.
type Surface interface {
	// DeviceMatrix maps device coordinates to screen coordinates.
	DeviceMatrix() Matrix
}

// DeviceToWorld maps a device-space point reported by s into world space.
func DeviceToWorld(s Surface, p Point, v Viewport) Point {
	return ScreenToWorld(s.DeviceMatrix().Apply(p), v)
}

// WorldToDevice maps a world-space point onto the device coordinates of s.
func WorldToDevice(s Surface, p Point, v Viewport) Point {
	inv, ok := s.DeviceMatrix().Invert()
	if !ok {
		inv = Identity
	}
	return inv.Apply(WorldToScreen(p, v))
}

// ScaledSurface is a [Surface] whose device units are a fixed multiple of
// screen units along each axis, e.g. a HiDPI canvas or a grid of terminal cells.
type ScaledSurface struct {
	SX, SY float64
}

// DeviceMatrix implements [Surface].
func (s ScaledSurface) DeviceMatrix() Matrix {
	sx, sy := s.SX, s.SY
	if sx == 0 {
		sx = 1
	}
	if sy == 0 {
		sy = 1
	}
	return Matrix{A: sx, D: sy}
}
