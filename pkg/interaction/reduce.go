package interaction

import (
	"math"

	"github.com/matzehuels/causalcanvas/pkg/diagram"
	"github.com/matzehuels/causalcanvas/pkg/geom"
	"github.com/matzehuels/causalcanvas/pkg/selection"
)

const (
	// DefaultDragThreshold is the pointer travel, in screen pixels, that
	// turns a press into a drag.
	DefaultDragThreshold = 5.0

	// DefaultWheelStep is the zoom factor applied per wheel notch.
	DefaultWheelStep = 1.1
)

// Env is the read-only context a transition is evaluated against.
type Env struct {
	Viewport   geom.Viewport
	ZoomBounds geom.ZoomBounds

	// Nodes in paint order (last is top-most) and the current edges.
	Nodes []diagram.Node
	Edges []diagram.Edge

	Selection selection.Set
	EdgeMode  bool
	Theme     Theme

	DragThreshold float64
	WheelStep     float64
}

func (e Env) threshold() float64 {
	if e.DragThreshold <= 0 {
		return DefaultDragThreshold
	}
	return e.DragThreshold
}

func (e Env) wheelStep() float64 {
	if e.WheelStep <= 1 {
		return DefaultWheelStep
	}
	return e.WheelStep
}

func (e Env) bounds() geom.ZoomBounds {
	if e.ZoomBounds == (geom.ZoomBounds{}) {
		return geom.DefaultZoomBounds
	}
	return e.ZoomBounds
}

func (e Env) toWorld(p geom.Point) geom.Point { return geom.ScreenToWorld(p, e.Viewport) }

func (e Env) node(id string) (diagram.Node, bool) {
	for _, n := range e.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return diagram.Node{}, false
}

// Reduce applies ev to s and returns the next state with the effects the
// transition produced. It never panics on an unexpected event: anything that
// does not fit the current gesture is ignored or resolves to idle.
func Reduce(s State, ev Event, env Env) (State, []Effect) {
	if s.Gesture == nil {
		s.Gesture = Idle{}
	}
	switch ev := ev.(type) {
	case PointerDown:
		return pointerDown(s, ev, env)
	case PointerMove:
		return pointerMove(s, ev, env)
	case PointerUp:
		return pointerUp(s, ev, env)
	case Wheel:
		return wheel(s, ev, env)
	case Cancel:
		return cancel(s)
	}
	return s, nil
}

func pointerDown(s State, ev PointerDown, env Env) (State, []Effect) {
	// A press while a gesture is active means the release was lost; drop
	// the old gesture without committing it.
	s.Gesture = Idle{}

	if ev.Button == ButtonMiddle {
		s.Gesture = Panning{Start: ev.Screen, PanAtStart: env.Viewport.Pan}
		return s, nil
	}
	if ev.Button != ButtonLeft {
		return s, nil
	}

	world := env.toWorld(ev.Screen)
	hit := HitTest(env.Nodes, world, env.Theme)
	shift := ev.Mods.Has(ModShift)

	if hit == "" {
		switch {
		case shift:
			s.Gesture = Panning{Start: ev.Screen, PanAtStart: env.Viewport.Pan}
			return s, nil
		case env.EdgeMode && s.PendingSource != "":
			s.PendingSource = ""
			return s, []Effect{PendingSourceChanged{}}
		case env.EdgeMode:
			s.Gesture = Panning{Start: ev.Screen, PanAtStart: env.Viewport.Pan}
			return s, nil
		}
		s.Gesture = Lassoing{Start: world, Current: world}
		return s, nil
	}

	if env.EdgeMode && !shift && s.PendingSource != "" {
		from := s.PendingSource
		s.PendingSource = ""
		effects := []Effect{PendingSourceChanged{}}
		if from != hit {
			effects = append(effects, requestEdge(from, hit, env))
		}
		return s, effects
	}

	if shift || env.EdgeMode {
		s.Gesture = DraggingEdge{
			From:    hit,
			Pointer: world,
			Start:   ev.Screen,
			Last:    ev.Screen,
			Click:   env.EdgeMode && !shift,
		}
		return s, nil
	}

	n, _ := env.node(hit)
	s.Gesture = DraggingNode{
		ID:     hit,
		Grab:   n.Pos.Sub(world),
		Origin: n.Pos,
		Pos:    n.Pos,
		Start:  ev.Screen,
		Last:   ev.Screen,
	}
	return s, nil
}

func pointerMove(s State, ev PointerMove, env Env) (State, []Effect) {
	world := env.toWorld(ev.Screen)
	switch g := s.Gesture.(type) {
	case Idle:
		if hit := HitTest(env.Nodes, world, env.Theme); hit != s.Hover {
			s.Hover = hit
			return s, []Effect{HoverChanged{ID: hit}}
		}
	case DraggingNode:
		g.Travel += ev.Screen.Dist(g.Last)
		g.Last = ev.Screen
		g.Pos = world.Add(g.Grab)
		g.Moved = g.Moved || g.Travel > env.threshold()
		s.Gesture = g
	case DraggingEdge:
		g.Travel += ev.Screen.Dist(g.Last)
		g.Last = ev.Screen
		g.Pointer = world
		s.Gesture = g
	case Lassoing:
		g.Current = world
		s.Gesture = g
	case Panning:
		v := env.Viewport
		v.Pan = g.PanAtStart.Add(ev.Screen.Sub(g.Start))
		if v != env.Viewport {
			return s, []Effect{ViewportChanged{Viewport: v}}
		}
	}
	return s, nil
}

func pointerUp(s State, ev PointerUp, env Env) (State, []Effect) {
	world := env.toWorld(ev.Screen)
	var effects []Effect

	switch g := s.Gesture.(type) {
	case Idle:
		return s, nil
	case DraggingNode:
		g.Travel += ev.Screen.Dist(g.Last)
		g.Pos = world.Add(g.Grab)
		g.Moved = g.Moved || g.Travel > env.threshold()
		if g.Moved {
			effects = append(effects, NodesMoved{Positions: DragPositions(g, env)})
		} else {
			effects = append(effects, SelectionToggled{ID: g.ID})
		}
	case DraggingEdge:
		g.Travel += ev.Screen.Dist(g.Last)
		target := HitTest(env.Nodes, world, env.Theme)
		switch {
		case target != "" && target != g.From:
			effects = append(effects, requestEdge(g.From, target, env))
		case target == g.From && g.Click && g.Travel <= env.threshold():
			s.PendingSource = g.From
			effects = append(effects, PendingSourceChanged{ID: g.From})
		}
	case Lassoing:
		rect := geom.RectFromPoints(g.Start, world)
		ids := make([]string, 0)
		for _, n := range env.Nodes {
			if rect.Contains(n.Pos) {
				ids = append(ids, n.ID)
			}
		}
		effects = append(effects, SelectionReplaced{IDs: ids})
	case Panning:
		v := env.Viewport
		v.Pan = g.PanAtStart.Add(ev.Screen.Sub(g.Start))
		if v != env.Viewport {
			effects = append(effects, ViewportChanged{Viewport: v})
		}
	}
	s.Gesture = Idle{}
	return s, effects
}

func wheel(s State, ev Wheel, env Env) (State, []Effect) {
	if ev.Delta == 0 || math.IsNaN(ev.Delta) {
		return s, nil
	}
	factor := math.Pow(env.wheelStep(), ev.Delta)
	v := env.Viewport.ZoomAt(ev.Screen, factor, env.bounds())
	if v == env.Viewport {
		return s, nil
	}
	return s, []Effect{ViewportChanged{Viewport: v}}
}

func cancel(s State) (State, []Effect) {
	s.Gesture = Idle{}
	if s.PendingSource != "" {
		s.PendingSource = ""
		return s, []Effect{PendingSourceChanged{}}
	}
	return s, nil
}

// requestEdge builds the outgoing edge request, or a rejection for
// self-loops, duplicates and unknown endpoints.
func requestEdge(from, to string, env Env) Effect {
	key := diagram.EdgeKey{From: from, To: to}
	if from == to {
		return EdgeRejected{Key: key, Err: diagram.ErrSelfLoop}
	}
	if _, ok := env.node(from); !ok {
		return EdgeRejected{Key: key, Err: diagram.ErrUnknownSourceNode}
	}
	if _, ok := env.node(to); !ok {
		return EdgeRejected{Key: key, Err: diagram.ErrUnknownTargetNode}
	}
	for _, e := range env.Edges {
		if e.From == from && e.To == to {
			return EdgeRejected{Key: key, Err: diagram.ErrDuplicateEdge}
		}
	}
	return EdgeRequested{Key: key}
}

// DragPositions returns the positions g would commit: the dragged node, plus
// every other selected node shifted by the same delta when the dragged node
// is part of the selection. Order follows env.Nodes.
func DragPositions(g DraggingNode, env Env) []NodePosition {
	delta := g.Delta()
	group := env.Selection.Has(g.ID)
	var out []NodePosition
	for _, n := range env.Nodes {
		switch {
		case n.ID == g.ID:
			out = append(out, NodePosition{ID: n.ID, X: g.Pos.X, Y: g.Pos.Y})
		case group && env.Selection.Has(n.ID):
			p := n.Pos.Add(delta)
			out = append(out, NodePosition{ID: n.ID, X: p.X, Y: p.Y})
		}
	}
	return out
}

// Preview returns the positions to draw instead of the committed ones while
// a node drag is in progress, or nil.
func Preview(s State, env Env) map[string]geom.Point {
	g, ok := s.Gesture.(DraggingNode)
	if !ok || !g.Moved {
		return nil
	}
	out := make(map[string]geom.Point)
	for _, p := range DragPositions(g, env) {
		out[p.ID] = p.Point()
	}
	return out
}
