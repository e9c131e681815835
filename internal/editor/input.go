package editor

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/causalcanvas/pkg/diagram"
	"github.com/matzehuels/causalcanvas/pkg/enrich"
	"github.com/matzehuels/causalcanvas/pkg/geom"
	"github.com/matzehuels/causalcanvas/pkg/interaction"
)

const (
	nudgeStep    = 10   // world units per arrow key
	panCells     = 4    // cells per arrow key with nothing selected
	keyZoomStep  = 1.25 // zoom factor per +/- key
	suggestLimit = 3
)

// =============================================================================
// Mouse
// =============================================================================

// toScreen maps the center of a terminal cell to screen pixels.
func (m *Model) toScreen(x, y int) geom.Point {
	return m.surface.DeviceMatrix().Apply(geom.Pt(float64(x)+0.5, float64(y)+0.5))
}

// pointerEvent translates a terminal mouse event. Presses on the status bar
// are ignored; releases always pass so a gesture can end there.
func (m *Model) pointerEvent(msg tea.MouseMsg) (interaction.Event, bool) {
	p := m.toScreen(msg.X, msg.Y)

	switch msg.Action {
	case tea.MouseActionMotion:
		return interaction.PointerMove{Screen: p}, true
	case tea.MouseActionRelease:
		return interaction.PointerUp{Screen: p}, true
	case tea.MouseActionPress:
	default:
		return nil, false
	}

	switch msg.Button {
	case tea.MouseButtonWheelUp:
		return interaction.Wheel{Screen: p, Delta: 1}, true
	case tea.MouseButtonWheelDown:
		return interaction.Wheel{Screen: p, Delta: -1}, true
	}
	if m.height > 0 && msg.Y >= m.canvasRows() {
		return nil, false
	}

	var mods interaction.Modifier
	if msg.Shift {
		mods |= interaction.ModShift
	}
	if msg.Ctrl {
		mods |= interaction.ModCtrl
	}
	if msg.Alt {
		mods |= interaction.ModAlt
	}

	switch msg.Button {
	case tea.MouseButtonLeft:
		return interaction.PointerDown{Screen: p, Button: interaction.ButtonLeft, Mods: mods}, true
	case tea.MouseButtonMiddle:
		return interaction.PointerDown{Screen: p, Button: interaction.ButtonMiddle, Mods: mods}, true
	case tea.MouseButtonRight:
		return interaction.PointerDown{Screen: p, Button: interaction.ButtonRight, Mods: mods}, true
	}
	return nil, false
}

// =============================================================================
// Keys
// =============================================================================

type binding struct {
	keys string
	help string
}

var bindings = []binding{
	{"u", "undo"},
	{"r", "redo"},
	{"l", "next layout"},
	{"e", "edge mode"},
	{"a/A", "select all/none"},
	{"x", "delete selected"},
	{"n", "new node"},
	{"c", "child of selected"},
	{"g", "suggest edges"},
	{"arrows", "nudge or pan"},
	{"+/-", "zoom"},
	{"0/f", "reset/fit view"},
	{"s", "save"},
	{"w", "export svg"},
	{"?", "help"},
	{"q", "quit"},
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	c := m.canvas
	switch msg.String() {
	case "q", "ctrl+c":
		return tea.Quit
	case "esc":
		c.Dispatch(interaction.Cancel{})
	case "u", "ctrl+z":
		if !c.Undo() {
			m.setStatus(false, "nothing to undo")
		}
	case "r", "ctrl+y":
		if !c.Redo() {
			m.setStatus(false, "nothing to redo")
		}
	case "l":
		m.algorithm = m.algorithm.Next()
		m.runLayout()
	case "L":
		m.runLayout()
	case "e":
		on := !c.EdgeMode()
		c.SetEdgeMode(on)
		if on {
			m.setStatus(false, "edge mode: click a source, then a target")
		} else {
			m.setStatus(false, "edge mode off")
		}
	case "a", "ctrl+a":
		c.SelectAll()
	case "A":
		c.SelectNone()
	case "x", "delete", "backspace":
		if c.DeleteSelected() {
			m.setStatus(false, "deleted")
		}
	case "n":
		m.prompt = newPrompt("new node", m.addNode)
	case "c":
		sel := c.Selection()
		if len(sel) != 1 {
			m.setStatus(true, "select exactly one node first")
			break
		}
		from := sel[0]
		m.prompt = newPrompt("child node", func(label string, kind diagram.Kind) {
			m.addChild(from, label, kind)
		})
	case "g":
		m.suggestEdges()
	case "up":
		m.arrow(geom.Pt(0, -1))
	case "down":
		m.arrow(geom.Pt(0, 1))
	case "left":
		m.arrow(geom.Pt(-1, 0))
	case "right":
		m.arrow(geom.Pt(1, 0))
	case "+", "=":
		c.ZoomBy(keyZoomStep, m.center())
	case "-", "_":
		c.ZoomBy(1/keyZoomStep, m.center())
	case "0":
		c.ResetView()
	case "f":
		m.fit()
	case "s":
		m.setStatus(false, "saving...")
		return m.saveCmd()
	case "w":
		return m.exportCmd()
	case "?":
		m.help = !m.help
	}
	return nil
}

func (m *Model) runLayout() {
	if err := m.canvas.RunLayout(m.algorithm); err != nil {
		m.setStatus(true, "layout failed: %v", err)
		return
	}
	m.setStatus(false, "layout: %s", m.algorithm)
}

// arrow nudges the selection, or pans when nothing is selected.
func (m *Model) arrow(dir geom.Point) {
	if len(m.canvas.Selection()) > 0 {
		m.canvas.Nudge(dir.Scale(nudgeStep))
		return
	}
	step := geom.Pt(dir.X*panCells*m.opts.CellWidth, dir.Y*panCells*m.opts.CellHeight)
	m.canvas.PanBy(step.Scale(-1))
}

// center is the middle of the drawable area in screen pixels.
func (m *Model) center() geom.Point {
	return geom.Pt(float64(m.width)*m.opts.CellWidth/2, float64(m.canvasRows())*m.opts.CellHeight/2)
}

func (m *Model) addNode(label string, kind diagram.Kind) {
	at := geom.ScreenToWorld(m.center(), m.canvas.Viewport())
	n, err := m.canvas.AddNode(label, kind, &at)
	if err != nil {
		m.setStatus(true, "add node: %v", err)
		return
	}
	m.canvas.Select(n.ID)
}

func (m *Model) addChild(from, label string, kind diagram.Kind) {
	d := m.canvas.State()
	src, _ := d.Node(from)
	rel := enrich.SuggestRelation(src.Label, label)
	n, err := m.canvas.AcceptSuggestion(from, label, kind, rel)
	if err != nil {
		m.setStatus(true, "add child: %v", err)
		return
	}
	m.canvas.Select(n.ID)
}

// suggestEdges commits a few heuristic proposals between unconnected nodes.
func (m *Model) suggestEdges() {
	added := 0
	for _, e := range enrich.Suggest(m.canvas.State().Nodes, 32) {
		if added == suggestLimit {
			break
		}
		if m.canvas.CommitEdge(e) == nil {
			added++
		}
	}
	m.setStatus(false, "%d suggested edges", added)
}

// =============================================================================
// Prompt
// =============================================================================

var kinds = []diagram.Kind{
	diagram.KindVariable,
	diagram.KindClaim,
	diagram.KindThesis,
	diagram.KindAssumption,
	diagram.KindEvidence,
}

// prompt is a one-line label input. Tab cycles the node kind.
type prompt struct {
	title  string
	text   []rune
	kind   int
	submit func(label string, kind diagram.Kind)
}

func newPrompt(title string, submit func(string, diagram.Kind)) *prompt {
	return &prompt{title: title, submit: submit}
}

func (p *prompt) Kind() diagram.Kind { return kinds[p.kind] }

func (m *Model) promptKey(msg tea.KeyMsg) tea.Cmd {
	p := m.prompt
	switch msg.Type {
	case tea.KeyEsc, tea.KeyCtrlC:
		m.prompt = nil
	case tea.KeyEnter:
		label := strings.TrimSpace(string(p.text))
		m.prompt = nil
		if label != "" {
			p.submit(label, p.Kind())
		}
	case tea.KeyTab:
		p.kind = (p.kind + 1) % len(kinds)
	case tea.KeyBackspace:
		if len(p.text) > 0 {
			p.text = p.text[:len(p.text)-1]
		}
	case tea.KeySpace:
		p.text = append(p.text, ' ')
	case tea.KeyRunes:
		p.text = append(p.text, msg.Runes...)
	}
	return nil
}
