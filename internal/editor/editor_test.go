package editor

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/causalcanvas/pkg/diagram"
	"github.com/matzehuels/causalcanvas/pkg/geom"
	"github.com/matzehuels/causalcanvas/pkg/graph"
	"github.com/matzehuels/causalcanvas/pkg/layout"
	"github.com/matzehuels/causalcanvas/pkg/schedule"
	"github.com/matzehuels/causalcanvas/pkg/store"
)

// With the default 8x12 cells and an untouched viewport, node a sits in
// cell (12,5), b in (37,5) and c in (12,13).
func testDocument() graph.Document {
	return graph.Document{
		Project: graph.Project{ID: "p1", Title: "Study"},
		Nodes: []graph.Node{
			{ID: "a", Text: "Exercise", Type: "VARIABLE", X: graph.Float(100), Y: graph.Float(60)},
			{ID: "b", Text: "Blood flow", Type: "VARIABLE", X: graph.Float(300), Y: graph.Float(60)},
			{ID: "c", Text: "Memory", Type: "CLAIM", X: graph.Float(100), Y: graph.Float(160)},
		},
		Edges: []graph.Edge{
			{FromID: "a", ToID: "b", Relation: "CAUSES", Status: "ACCEPTED"},
		},
	}
}

func newModel(t *testing.T, opts Options) *Model {
	t.Helper()
	if opts.Document.Nodes == nil {
		opts.Document = testDocument()
		opts.Project = opts.Document.Project
	}
	if opts.Canvas.Scheduler == nil {
		opts.Canvas.Scheduler = schedule.NewManual()
	}
	opts.Logger = log.New(io.Discard)
	m, err := New(opts)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return m
}

func mouse(x, y int, a tea.MouseAction, b tea.MouseButton) tea.MouseMsg {
	return tea.MouseMsg{X: x, Y: y, Action: a, Button: b}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(m *Model, msgs ...tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	for _, msg := range msgs {
		_, cmd = m.Update(msg)
	}
	return cmd
}

func typeText(m *Model, s string) {
	for _, r := range s {
		send(m, key(string(r)))
	}
}

func pos(t *testing.T, m *Model, id string) geom.Point {
	t.Helper()
	n, ok := m.Canvas().State().Node(id)
	if !ok {
		t.Fatalf("node %s missing", id)
	}
	return n.Pos
}

func TestNewRejectsUnknownAlgorithm(t *testing.T) {
	_, err := New(Options{Algorithm: "spiral", Logger: log.New(io.Discard)})
	if err == nil {
		t.Fatal("New() error = nil, want unknown algorithm")
	}
}

func TestMouseDragMovesNode(t *testing.T) {
	m := newModel(t, Options{})

	send(m,
		mouse(12, 5, tea.MouseActionPress, tea.MouseButtonLeft),
		mouse(17, 5, tea.MouseActionMotion, tea.MouseButtonLeft),
		mouse(22, 5, tea.MouseActionMotion, tea.MouseButtonLeft),
		mouse(22, 5, tea.MouseActionRelease, tea.MouseButtonNone),
	)

	if got, want := pos(t, m, "a"), geom.Pt(180, 60); got != want {
		t.Errorf("pos(a) = %v, want %v", got, want)
	}
	if !m.Modified() {
		t.Error("Modified() = false after a drag")
	}

	send(m, key("u"))
	if got, want := pos(t, m, "a"), geom.Pt(100, 60); got != want {
		t.Errorf("pos(a) after undo = %v, want %v", got, want)
	}
	send(m, key("r"))
	if got, want := pos(t, m, "a"), geom.Pt(180, 60); got != want {
		t.Errorf("pos(a) after redo = %v, want %v", got, want)
	}
}

func TestClickSelectsNode(t *testing.T) {
	m := newModel(t, Options{})
	send(m,
		mouse(37, 5, tea.MouseActionPress, tea.MouseButtonLeft),
		mouse(37, 5, tea.MouseActionRelease, tea.MouseButtonNone),
	)
	if got := m.Canvas().Selection(); len(got) != 1 || got[0] != "b" {
		t.Errorf("Selection() = %v, want [b]", got)
	}
}

func TestStatusBarPressIgnored(t *testing.T) {
	m := newModel(t, Options{})
	m.width, m.height = 80, 10
	if _, ok := m.pointerEvent(mouse(5, 9, tea.MouseActionPress, tea.MouseButtonLeft)); ok {
		t.Error("press on the status bar produced an event")
	}
	if _, ok := m.pointerEvent(mouse(5, 9, tea.MouseActionRelease, tea.MouseButtonNone)); !ok {
		t.Error("release on the status bar was dropped")
	}
}

func TestWheelZooms(t *testing.T) {
	m := newModel(t, Options{})
	send(m, mouse(12, 5, tea.MouseActionPress, tea.MouseButtonWheelUp))
	if z := m.Canvas().Viewport().Zoom; z <= 1 {
		t.Errorf("Zoom = %v after wheel up, want > 1", z)
	}
}

func TestEdgeModeClickToConnect(t *testing.T) {
	m := newModel(t, Options{})
	send(m, key("e"))
	if !m.Canvas().EdgeMode() {
		t.Fatal("EdgeMode() = false after e")
	}

	send(m,
		mouse(12, 5, tea.MouseActionPress, tea.MouseButtonLeft),
		mouse(12, 5, tea.MouseActionRelease, tea.MouseButtonNone),
		mouse(12, 13, tea.MouseActionPress, tea.MouseButtonLeft),
		mouse(12, 13, tea.MouseActionRelease, tea.MouseButtonNone),
	)

	d := m.Canvas().State()
	i := d.EdgeIndex(diagram.EdgeKey{From: "a", To: "c"})
	if i < 0 {
		t.Fatal("edge a->c not committed")
	}
	if got := d.Edges[i].Status; got != diagram.StatusProposed {
		t.Errorf("Status = %q, want %q", got, diagram.StatusProposed)
	}
	if got := d.Edges[i].Relation; got != diagram.RelationSupports {
		t.Errorf("Relation = %q, want %q", got, diagram.RelationSupports)
	}
}

func TestSelectAndDelete(t *testing.T) {
	m := newModel(t, Options{})
	send(m, key("a"))
	if got := len(m.Canvas().Selection()); got != 3 {
		t.Fatalf("len(Selection()) = %d, want 3", got)
	}
	send(m, key("A"))
	if got := len(m.Canvas().Selection()); got != 0 {
		t.Fatalf("len(Selection()) = %d after A, want 0", got)
	}

	m.Canvas().Select("a")
	send(m, key("x"))
	d := m.Canvas().State()
	if d.HasNode("a") || len(d.Edges) != 0 {
		t.Errorf("State() = %+v, want a and its edge removed", d)
	}
}

func TestCycleLayout(t *testing.T) {
	m := newModel(t, Options{})
	send(m, key("l"))
	if m.algorithm != layout.AlgorithmForce {
		t.Errorf("algorithm = %s, want %s", m.algorithm, layout.AlgorithmForce)
	}
	if !m.Canvas().CanUndo() {
		t.Error("layout run did not create a history entry")
	}
}

func TestAddNodePrompt(t *testing.T) {
	m := newModel(t, Options{})
	send(m, key("n"))
	if m.prompt == nil {
		t.Fatal("prompt not opened")
	}
	typeText(m, "Sleep")
	send(m, key("tab"), key("enter"))

	if m.prompt != nil {
		t.Error("prompt still open after enter")
	}
	d := m.Canvas().State()
	if len(d.Nodes) != 4 {
		t.Fatalf("len(Nodes) = %d, want 4", len(d.Nodes))
	}
	n := d.Nodes[3]
	if n.Label != "Sleep" || n.Kind != diagram.KindClaim {
		t.Errorf("new node = %+v, want Sleep/CLAIM", n)
	}
	if sel := m.Canvas().Selection(); len(sel) != 1 || sel[0] != n.ID {
		t.Errorf("Selection() = %v, want the new node", sel)
	}
}

func TestPromptEscapeCancels(t *testing.T) {
	m := newModel(t, Options{})
	send(m, key("n"))
	typeText(m, "Noise")
	send(m, key("esc"))
	if got := len(m.Canvas().State().Nodes); got != 3 {
		t.Errorf("len(Nodes) = %d, want 3", got)
	}
}

func TestChildNode(t *testing.T) {
	m := newModel(t, Options{})
	send(m, key("c"))
	if m.prompt != nil {
		t.Fatal("child prompt opened without a selection")
	}

	m.Canvas().Select("c")
	send(m, key("c"))
	typeText(m, "Recall")
	send(m, key("enter"))

	d := m.Canvas().State()
	child := d.Nodes[len(d.Nodes)-1]
	if child.Label != "Recall" {
		t.Fatalf("last node = %+v, want Recall", child)
	}
	if !d.HasEdge("c", child.ID) {
		t.Error("edge from c to the child is missing")
	}
	parent, _ := d.Node("c")
	if child.Pos.Y <= parent.Pos.Y {
		t.Errorf("child at %v, want below parent at %v", child.Pos, parent.Pos)
	}
}

func TestSuggestEdges(t *testing.T) {
	m := newModel(t, Options{})
	send(m, key("g"))
	// a->b exists, so a->c and b->c are the only new pairs.
	if got := len(m.Canvas().State().Edges); got != 3 {
		t.Errorf("len(Edges) = %d, want 3", got)
	}
}

func TestNudgeWithArrow(t *testing.T) {
	m := newModel(t, Options{})
	m.Canvas().Select("a")
	send(m, key("right"))
	if got, want := pos(t, m, "a"), geom.Pt(110, 60); got != want {
		t.Errorf("pos(a) = %v, want %v", got, want)
	}
}

func TestArrowPansWithoutSelection(t *testing.T) {
	m := newModel(t, Options{})
	send(m, key("right"))
	if got := m.Canvas().Viewport().Pan; got.X >= 0 {
		t.Errorf("Pan = %v, want a leftward pan", got)
	}
}

func TestSaveToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	m := newModel(t, Options{Path: path})
	m.Canvas().Select("a")
	send(m, key("right"))

	cmd := send(m, key("s"))
	if cmd == nil {
		t.Fatal("s returned no command")
	}
	send(m, cmd())

	if m.Modified() {
		t.Error("Modified() = true after save")
	}
	doc, err := graph.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if len(doc.Nodes) != 3 || *doc.Nodes[0].X != 110 {
		t.Errorf("saved nodes = %+v, want a at x=110", doc.Nodes)
	}
}

func TestSaveToStore(t *testing.T) {
	ctx := context.Background()
	st, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	p, err := st.Create(ctx, "Study")
	if err != nil {
		t.Fatal(err)
	}

	doc := testDocument()
	doc.Project = p
	m := newModel(t, Options{Project: p, Document: doc, Store: st})
	send(m, key("g"))
	send(m, send(m, key("s"))())

	got, err := st.Load(ctx, p.ID)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(got.Edges) != 3 {
		t.Errorf("stored edges = %d, want 3", len(got.Edges))
	}
}

func TestSaveWithoutTarget(t *testing.T) {
	m := newModel(t, Options{})
	send(m, send(m, key("s"))())
	if msg, failed := m.statusLine(); !failed || !strings.Contains(msg, "save failed") {
		t.Errorf("status = %q (failed=%v), want a save failure", msg, failed)
	}
}

func TestExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.dot")
	m := newModel(t, Options{ExportPath: path})
	send(m, send(m, key("w"))())
	if msg, failed := m.statusLine(); failed {
		t.Fatalf("export failed: %s", msg)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if !strings.HasPrefix(string(data), "digraph") {
		t.Errorf("export = %.40q, want a DOT digraph", data)
	}
}

func TestTooltipPostedIntoLoop(t *testing.T) {
	msgs := make(chan tea.Msg, 16)
	opts := Options{Document: testDocument()}
	opts.Canvas.HoverDelay = time.Millisecond
	opts.Logger = log.New(io.Discard)
	m, err := New(opts)
	if err != nil {
		t.Fatal(err)
	}
	m.SetSender(func(msg tea.Msg) { msgs <- msg })

	send(m, mouse(12, 5, tea.MouseActionMotion, tea.MouseButtonNone))
	select {
	case msg := <-msgs:
		send(m, msg)
	case <-time.After(2 * time.Second):
		t.Fatal("hover callback never posted")
	}

	tip := m.Canvas().Frame().Tooltip
	if tip == nil || tip.NodeID != "a" {
		t.Fatalf("Frame().Tooltip = %+v, want node a", tip)
	}
}

func TestView(t *testing.T) {
	m := newModel(t, Options{})
	if got := m.View(); got != "" {
		t.Errorf("View() before sizing = %q, want empty", got)
	}

	send(m, tea.WindowSizeMsg{Width: 80, Height: 24})
	v := m.View()
	for _, want := range []string{"Exercise", "Blood flow", "Memory", "Study", "hierarchical", "3 nodes 1 edges"} {
		if !strings.Contains(v, want) {
			t.Errorf("View() missing %q", want)
		}
	}
	if got := strings.Count(v, "\n"); got != 23 {
		t.Errorf("View() has %d line breaks, want 23", got)
	}

	send(m, key("?"))
	if !strings.Contains(m.View(), "next layout") {
		t.Error("help overlay not shown")
	}
}

func TestGridLine(t *testing.T) {
	g := newGrid(5, 3)
	g.line(0, 0, 4, 2, '*', stylePlain)
	if g.at(0, 0) != '*' || g.at(4, 2) != '*' {
		t.Errorf("endpoints not drawn:\n%s", g)
	}
	g.text(0, 1, "日本語", 4, stylePlain)
	if g.at(0, 1) != '日' || g.at(1, 1) != 0 {
		t.Errorf("wide rune not laid out over two cells:\n%s", g)
	}
	g.set(-1, 9, 'x', stylePlain)
}
