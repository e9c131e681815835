package canvas

import (
	"errors"
	"io"
	"reflect"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/causalcanvas/pkg/diagram"
	"github.com/matzehuels/causalcanvas/pkg/geom"
	"github.com/matzehuels/causalcanvas/pkg/interaction"
	"github.com/matzehuels/causalcanvas/pkg/layout"
	"github.com/matzehuels/causalcanvas/pkg/schedule"
)

// chain is a -> b -> c laid out on a row 200 units apart.
func chain() diagram.Diagram {
	return diagram.New(
		[]diagram.Node{
			{ID: "a", Label: "Exercise", Pos: geom.Pt(0, 0), Placed: true},
			{ID: "b", Label: "Blood flow", Pos: geom.Pt(200, 0), Placed: true},
			{ID: "c", Label: "Memory", Pos: geom.Pt(400, 0), Placed: true},
		},
		[]diagram.Edge{
			{From: "a", To: "b", Relation: diagram.RelationCauses},
			{From: "b", To: "c", Relation: diagram.RelationCauses},
		},
	)
}

type recorder struct {
	requested []diagram.EdgeKey
	rejected  []diagram.EdgeKey
	moved     [][]interaction.NodePosition
	selection [][]string
	pruned    int
	redraws   int
}

func (r *recorder) callbacks() Callbacks {
	return Callbacks{
		NodePositionsChanged: func(ps []interaction.NodePosition) { r.moved = append(r.moved, ps) },
		EdgeRequested:        func(k diagram.EdgeKey) { r.requested = append(r.requested, k) },
		EdgeRejected:         func(k diagram.EdgeKey, _ error) { r.rejected = append(r.rejected, k) },
		SelectionChanged:     func(ids []string) { r.selection = append(r.selection, ids) },
		EdgesPruned:          func(es []diagram.Edge) { r.pruned += len(es) },
		Invalidate:           func() { r.redraws++ },
	}
}

func newCanvas(d diagram.Diagram, cb Callbacks) (*Canvas, *schedule.Manual) {
	clock := schedule.NewManual()
	return New(d, Options{
		Scheduler: clock,
		Logger:    log.New(io.Discard),
		Callbacks: cb,
	}), clock
}

func press(x, y float64) interaction.PointerDown {
	return interaction.PointerDown{Screen: geom.Pt(x, y)}
}
func shiftPress(x, y float64) interaction.PointerDown {
	return interaction.PointerDown{Screen: geom.Pt(x, y), Mods: interaction.ModShift}
}
func drag(x, y float64) interaction.PointerMove { return interaction.PointerMove{Screen: geom.Pt(x, y)} }
func release(x, y float64) interaction.PointerUp {
	return interaction.PointerUp{Screen: geom.Pt(x, y)}
}

func dispatch(c *Canvas, events ...interaction.Event) {
	for _, ev := range events {
		c.Dispatch(ev)
	}
}

func TestDeleteCascades(t *testing.T) {
	c, _ := newCanvas(chain(), Callbacks{})
	c.Select("b", "c")

	if !c.DeleteNode("b") {
		t.Fatal("DeleteNode(b) = false, want true")
	}
	d := c.State()
	if d.HasNode("b") {
		t.Error("node b survived deletion")
	}
	if len(d.Edges) != 0 {
		t.Errorf("edges = %v, want none", d.Edges)
	}
	if got := c.Selection(); !reflect.DeepEqual(got, []string{"c"}) {
		t.Errorf("Selection() = %v, want [c]", got)
	}

	if !c.Undo() {
		t.Fatal("Undo() = false, want true")
	}
	if got := c.State(); !got.Equal(chain()) {
		t.Errorf("Undo() restored %+v, want original chain", got)
	}
}

func TestDeleteSelectedIsOneStep(t *testing.T) {
	c, _ := newCanvas(chain(), Callbacks{})
	c.SelectAll()
	if !c.DeleteSelected() {
		t.Fatal("DeleteSelected() = false, want true")
	}
	if !c.State().IsEmpty() {
		t.Errorf("State() = %+v, want empty", c.State())
	}
	if len(c.Selection()) != 0 {
		t.Errorf("Selection() = %v, want empty", c.Selection())
	}
	c.Undo()
	if c.CanUndo() {
		t.Error("CanUndo() = true, want a single undo step")
	}
	if got := len(c.State().Nodes); got != 3 {
		t.Errorf("nodes after undo = %d, want 3", got)
	}
}

func TestSelfLoopNeverRequested(t *testing.T) {
	var rec recorder
	c, _ := newCanvas(chain(), rec.callbacks())

	// Shift-drag from a back onto a.
	dispatch(c, shiftPress(0, 0), drag(30, 0), release(2, 0))

	// Edge mode: click a, then click a again.
	c.SetEdgeMode(true)
	dispatch(c, press(0, 0), release(0, 0), press(0, 0), release(0, 0))

	if len(rec.requested) != 0 {
		t.Errorf("EdgeRequested called with %v, want never", rec.requested)
	}
	if err := c.CommitEdge(diagram.Edge{From: "a", To: "a"}); !errors.Is(err, diagram.ErrSelfLoop) {
		t.Errorf("CommitEdge(a->a) = %v, want ErrSelfLoop", err)
	}
	if got := c.Interaction().PendingSource; got != "" {
		t.Errorf("PendingSource = %q, want cleared", got)
	}
}

func TestShiftDragRequestsEdge(t *testing.T) {
	var rec recorder
	c, _ := newCanvas(chain(), rec.callbacks())
	dispatch(c, shiftPress(0, 0), drag(200, 0), release(400, 0))

	want := []diagram.EdgeKey{{From: "a", To: "c"}}
	if !reflect.DeepEqual(rec.requested, want) {
		t.Errorf("requested = %v, want %v", rec.requested, want)
	}
	if c.State().HasEdge("a", "c") {
		t.Error("edge committed before the host accepted it")
	}
	if err := c.CommitEdge(diagram.Edge{From: "a", To: "c", Relation: diagram.RelationSupports}); err != nil {
		t.Fatalf("CommitEdge() = %v", err)
	}
	if err := c.CommitEdge(diagram.Edge{From: "a", To: "c"}); !errors.Is(err, diagram.ErrDuplicateEdge) {
		t.Errorf("second CommitEdge() = %v, want ErrDuplicateEdge", err)
	}
}

func TestDuplicateRequestRejected(t *testing.T) {
	var rec recorder
	c, _ := newCanvas(chain(), rec.callbacks())
	dispatch(c, shiftPress(0, 0), release(200, 0))

	if len(rec.requested) != 0 {
		t.Errorf("requested = %v, want none", rec.requested)
	}
	want := []diagram.EdgeKey{{From: "a", To: "b"}}
	if !reflect.DeepEqual(rec.rejected, want) {
		t.Errorf("rejected = %v, want %v", rec.rejected, want)
	}
}

func TestClickToConnectAutoCommits(t *testing.T) {
	c, _ := newCanvas(chain(), Callbacks{})
	c.SetEdgeMode(true)

	dispatch(c, press(400, 0), release(400, 0))
	if got := c.Interaction().PendingSource; got != "c" {
		t.Fatalf("PendingSource = %q, want c", got)
	}
	dispatch(c, press(0, 0), release(0, 0))

	d := c.State()
	i := d.EdgeIndex(diagram.EdgeKey{From: "c", To: "a"})
	if i < 0 {
		t.Fatal("edge c->a not committed")
	}
	if got := d.Edges[i].Status; got != diagram.StatusProposed {
		t.Errorf("Status = %q, want %q", got, diagram.StatusProposed)
	}
}

func TestLeavingEdgeModeClearsPending(t *testing.T) {
	c, _ := newCanvas(chain(), Callbacks{})
	c.SetEdgeMode(true)
	dispatch(c, press(0, 0), release(0, 0))
	c.SetEdgeMode(false)
	if got := c.Interaction().PendingSource; got != "" {
		t.Errorf("PendingSource = %q, want cleared", got)
	}
}

func TestResolveAfterDeleteIsDiscarded(t *testing.T) {
	c, _ := newCanvas(chain(), Callbacks{})
	key := diagram.EdgeKey{From: "a", To: "b"}

	c.DeleteNode("b")
	ok := c.ResolveEdge(key, func(e diagram.Edge) diagram.Edge {
		e.Rationale = "late"
		return e
	})
	if ok {
		t.Error("ResolveEdge() = true for a deleted endpoint, want false")
	}
	if c.State().HasEdge("a", "b") {
		t.Error("ResolveEdge() resurrected a deleted edge")
	}
}

func TestResolveMergesRationale(t *testing.T) {
	c, _ := newCanvas(chain(), Callbacks{})
	key := diagram.EdgeKey{From: "a", To: "b"}
	ok := c.ResolveEdge(key, func(e diagram.Edge) diagram.Edge {
		e.Rationale = "more oxygen reaches the hippocampus"
		e.Confidence = 0.8
		e.From = "c"
		return e
	})
	if !ok {
		t.Fatal("ResolveEdge() = false, want true")
	}
	d := c.State()
	e := d.Edges[d.EdgeIndex(key)]
	if e.Rationale == "" || e.Confidence != 0.8 {
		t.Errorf("edge = %+v, want merged rationale and confidence", e)
	}
}

func TestDragCommitsOnce(t *testing.T) {
	var rec recorder
	c, _ := newCanvas(chain(), rec.callbacks())
	dispatch(c, press(0, 0))
	for x := 10.0; x <= 100; x += 10 {
		dispatch(c, drag(x, 50))
	}

	f := c.Frame()
	if !f.Nodes[0].Dragging || !f.Nodes[0].Pos.Near(geom.Pt(100, 50), 1e-9) {
		t.Errorf("preview node = %+v, want dragging at (100,50)", f.Nodes[0])
	}
	if got, _ := c.State().Node("a"); got.Pos != geom.Pt(0, 0) {
		t.Errorf("committed position during drag = %v, want (0,0)", got.Pos)
	}

	dispatch(c, release(100, 50))
	if got, _ := c.State().Node("a"); got.Pos != geom.Pt(100, 50) {
		t.Errorf("position after release = %v, want (100,50)", got.Pos)
	}
	if len(rec.moved) != 1 {
		t.Errorf("NodePositionsChanged called %d times, want 1", len(rec.moved))
	}

	c.Undo()
	if got, _ := c.State().Node("a"); got.Pos != geom.Pt(0, 0) {
		t.Errorf("position after undo = %v, want (0,0)", got.Pos)
	}
	if c.CanUndo() {
		t.Error("CanUndo() = true, want the drag to be a single step")
	}
}

func TestGroupDrag(t *testing.T) {
	c, _ := newCanvas(chain(), Callbacks{})
	c.Select("a", "c")
	dispatch(c, press(0, 0), drag(0, 60), release(0, 100))

	d := c.State()
	for id, want := range map[string]geom.Point{"a": geom.Pt(0, 100), "b": geom.Pt(200, 0), "c": geom.Pt(400, 100)} {
		if got, _ := d.Node(id); got.Pos != want {
			t.Errorf("%s at %v, want %v", id, got.Pos, want)
		}
	}
}

func TestClickTogglesSelection(t *testing.T) {
	var rec recorder
	c, _ := newCanvas(chain(), rec.callbacks())
	dispatch(c, press(200, 0), drag(202, 1), release(202, 1))
	if got := c.Selection(); !reflect.DeepEqual(got, []string{"b"}) {
		t.Errorf("Selection() = %v, want [b]", got)
	}
	if c.CanUndo() {
		t.Error("a click created a history entry")
	}
}

func TestLassoFrame(t *testing.T) {
	c, _ := newCanvas(chain(), Callbacks{})
	dispatch(c, press(-100, -100), drag(250, 100))

	f := c.Frame()
	if f.Lasso == nil {
		t.Fatal("Frame().Lasso = nil during lasso")
	}
	if *f.Lasso != geom.RectFromPoints(geom.Pt(-100, -100), geom.Pt(250, 100)) {
		t.Errorf("Frame().Lasso = %v", *f.Lasso)
	}

	dispatch(c, release(250, 100))
	if got := c.Selection(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Selection() = %v, want [a b]", got)
	}
	if c.Frame().Lasso != nil {
		t.Error("Frame().Lasso still set after release")
	}
}

func TestTooltipDelay(t *testing.T) {
	var rec recorder
	c, clock := newCanvas(chain(), rec.callbacks())

	dispatch(c, drag(0, 0))
	clock.Advance(DefaultHoverDelay - time.Millisecond)
	if c.Frame().Tooltip != nil {
		t.Fatal("tooltip shown before the delay elapsed")
	}
	clock.Advance(time.Millisecond)
	tip := c.Frame().Tooltip
	if tip == nil || tip.NodeID != "a" || tip.Text != "Exercise" {
		t.Fatalf("Frame().Tooltip = %+v, want node a", tip)
	}
	if rec.redraws != 1 {
		t.Errorf("Invalidate called %d times, want 1", rec.redraws)
	}

	dispatch(c, drag(100, 100))
	if c.Frame().Tooltip != nil {
		t.Error("tooltip still shown after leaving the node")
	}
}

func TestTooltipCancelledByLeaving(t *testing.T) {
	c, clock := newCanvas(chain(), Callbacks{})
	dispatch(c, drag(0, 0))
	clock.Advance(DefaultHoverDelay / 2)
	dispatch(c, drag(100, 100))
	clock.Advance(DefaultHoverDelay)
	if c.Frame().Tooltip != nil {
		t.Error("tooltip shown for a node the pointer left")
	}
	if clock.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", clock.Pending())
	}
}

func TestTooltipDroppedWithNode(t *testing.T) {
	c, clock := newCanvas(chain(), Callbacks{})
	dispatch(c, drag(0, 0))
	clock.Advance(DefaultHoverDelay)
	c.DeleteNode("a")
	if c.Frame().Tooltip != nil {
		t.Error("tooltip survived its node")
	}
}

func TestRunLayout(t *testing.T) {
	var rec recorder
	c, _ := newCanvas(chain(), rec.callbacks())
	if err := c.RunLayout(layout.AlgorithmHierarchical); err != nil {
		t.Fatalf("RunLayout() = %v", err)
	}
	want := map[string]geom.Point{"a": geom.Pt(400, 150), "b": geom.Pt(400, 300), "c": geom.Pt(400, 450)}
	for id, p := range want {
		if got, _ := c.State().Node(id); !got.Pos.Near(p, 1e-9) {
			t.Errorf("%s at %v, want %v", id, got.Pos, p)
		}
	}
	if len(rec.moved) != 1 || len(rec.moved[0]) != 3 {
		t.Errorf("NodePositionsChanged = %v, want one batch of 3", rec.moved)
	}
	if err := c.RunLayout("spiral"); !errors.Is(err, layout.ErrUnknownAlgorithm) {
		t.Errorf("RunLayout(spiral) = %v, want ErrUnknownAlgorithm", err)
	}
}

func TestNudgeBurstIsOneStep(t *testing.T) {
	c, clock := newCanvas(chain(), Callbacks{})
	c.Select("a")
	for range 5 {
		c.Nudge(geom.Pt(10, 0))
		clock.Advance(50 * time.Millisecond)
	}
	clock.Advance(time.Second)

	if got, _ := c.State().Node("a"); got.Pos != geom.Pt(50, 0) {
		t.Errorf("position = %v, want (50,0)", got.Pos)
	}
	c.Undo()
	if got, _ := c.State().Node("a"); got.Pos != geom.Pt(0, 0) {
		t.Errorf("position after undo = %v, want (0,0)", got.Pos)
	}
}

func TestLoadPrunesMalformedEdges(t *testing.T) {
	var rec recorder
	c, _ := newCanvas(diagram.Diagram{}, rec.callbacks())
	d := chain()
	d.Edges = append(d.Edges, diagram.Edge{From: "a", To: "ghost"})
	c.Update(d)

	if rec.pruned != 1 {
		t.Errorf("pruned = %d, want 1", rec.pruned)
	}
	if got := len(c.State().Edges); got != 2 {
		t.Errorf("edges = %d, want 2", got)
	}
}

func TestUnplacedNodesGetSlots(t *testing.T) {
	c, _ := newCanvas(diagram.New([]diagram.Node{{ID: "x"}, {ID: "y"}}, nil), Callbacks{})
	for _, n := range c.State().Nodes {
		if !n.Placed {
			t.Errorf("node %s not placed", n.ID)
		}
	}
	x, _ := c.State().Node("x")
	y, _ := c.State().Node("y")
	if x.Pos == y.Pos {
		t.Errorf("x and y share position %v", x.Pos)
	}
}

func TestAcceptSuggestion(t *testing.T) {
	c, _ := newCanvas(chain(), Callbacks{})
	n, err := c.AcceptSuggestion("c", "Sleep quality", diagram.KindVariable, diagram.RelationModerates)
	if err != nil {
		t.Fatalf("AcceptSuggestion() = %v", err)
	}
	d := c.State()
	if !d.HasEdge("c", n.ID) {
		t.Error("suggested edge missing")
	}
	if got, _ := d.Node(n.ID); got.Pos != geom.Pt(400, 150) {
		t.Errorf("suggested node at %v, want (400,150)", got.Pos)
	}
	c.Undo()
	if c.State().HasNode(n.ID) {
		t.Error("Undo() kept the suggested node")
	}
	if _, err := c.AcceptSuggestion("ghost", "x", diagram.KindClaim, diagram.RelationCauses); !errors.Is(err, diagram.ErrUnknownSourceNode) {
		t.Errorf("AcceptSuggestion(ghost) = %v, want ErrUnknownSourceNode", err)
	}
}

func TestWheelZoomKeepsAnchor(t *testing.T) {
	c, _ := newCanvas(chain(), Callbacks{})
	anchor := geom.Pt(120, 80)
	before := geom.ScreenToWorld(anchor, c.Viewport())
	c.Dispatch(interaction.Wheel{Screen: anchor, Delta: 3})
	after := geom.ScreenToWorld(anchor, c.Viewport())
	if !before.Near(after, 1e-9) {
		t.Errorf("anchor moved from %v to %v", before, after)
	}
	for range 100 {
		c.Dispatch(interaction.Wheel{Screen: anchor, Delta: 1})
	}
	if got := c.Viewport().Zoom; got != geom.DefaultZoomBounds.Max {
		t.Errorf("Zoom = %v, want clamped to %v", got, geom.DefaultZoomBounds.Max)
	}
}

func TestWarningsInFrame(t *testing.T) {
	c, _ := newCanvas(chain(), Callbacks{})
	c.SetWarnings([]Warning{
		{TargetID: "b", Label: "Unsupported claim"},
		{TargetID: "a->b", Label: "Possible confounder"},
	})
	f := c.Frame()
	if len(f.Nodes[1].Warnings) != 1 {
		t.Errorf("node b warnings = %v, want 1", f.Nodes[1].Warnings)
	}
	if len(f.Edges[0].Warnings) != 1 {
		t.Errorf("edge a->b warnings = %v, want 1", f.Edges[0].Warnings)
	}
}
