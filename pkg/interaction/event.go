package interaction

import "github.com/matzehuels/causalcanvas/pkg/geom"

// Button identifies a pointer button.
type Button int

const (
	ButtonLeft Button = iota
	ButtonMiddle
	ButtonRight
)

func (b Button) String() string {
	switch b {
	case ButtonLeft:
		return "left"
	case ButtonMiddle:
		return "middle"
	case ButtonRight:
		return "right"
	}
	return "unknown"
}

// Modifier is a bit set of held modifier keys.
type Modifier uint8

const (
	ModShift Modifier = 1 << iota
	ModCtrl
	ModAlt
)

// Has reports whether all bits of m2 are set in m.
func (m Modifier) Has(m2 Modifier) bool { return m&m2 == m2 }

// Event is a pointer or keyboard-derived input to [Reduce].
type Event interface{ event() }

// PointerDown is a button press at a screen position.
type PointerDown struct {
	Screen geom.Point
	Button Button
	Mods   Modifier
}

// PointerMove is a pointer motion, with or without a button held.
type PointerMove struct {
	Screen geom.Point
}

// PointerUp is a button release.
type PointerUp struct {
	Screen geom.Point
}

// Wheel zooms around Screen. Positive Delta zooms in, one unit per notch.
type Wheel struct {
	Screen geom.Point
	Delta  float64
}

// Cancel aborts the active gesture and clears any pending connect source
// (Escape, focus loss).
type Cancel struct{}

func (PointerDown) event() {}
func (PointerMove) event() {}
func (PointerUp) event()   {}
func (Wheel) event()       {}
func (Cancel) event()      {}
