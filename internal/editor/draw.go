package editor

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/matzehuels/causalcanvas/pkg/canvas"
	"github.com/matzehuels/causalcanvas/pkg/diagram"
	"github.com/matzehuels/causalcanvas/pkg/geom"
)

// =============================================================================
// Styles
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")
	colorGreen  = lipgloss.Color("35")
	colorYellow = lipgloss.Color("220")
	colorRed    = lipgloss.Color("167")
	colorBlue   = lipgloss.Color("75")
	colorWhite  = lipgloss.Color("255")
	colorGray   = lipgloss.Color("245")
	colorDim    = lipgloss.Color("240")
)

type style uint8

const (
	stylePlain style = iota
	styleNode
	styleThesis
	styleSelected
	stylePending
	styleHover
	styleEdge
	styleEdgeProposed
	styleEdgeRejected
	styleEdgeContradicts
	styleLasso
	styleRubber
	styleWarning
	styleTooltip
)

var styles = [...]lipgloss.Style{
	stylePlain:           lipgloss.NewStyle(),
	styleNode:            lipgloss.NewStyle().Foreground(colorWhite),
	styleThesis:          lipgloss.NewStyle().Foreground(colorWhite).Bold(true),
	styleSelected:        lipgloss.NewStyle().Foreground(colorCyan).Bold(true),
	stylePending:         lipgloss.NewStyle().Foreground(colorGreen).Bold(true),
	styleHover:           lipgloss.NewStyle().Foreground(colorBlue),
	styleEdge:            lipgloss.NewStyle().Foreground(colorGray),
	styleEdgeProposed:    lipgloss.NewStyle().Foreground(colorDim),
	styleEdgeRejected:    lipgloss.NewStyle().Foreground(colorDim).Faint(true),
	styleEdgeContradicts: lipgloss.NewStyle().Foreground(colorRed),
	styleLasso:           lipgloss.NewStyle().Foreground(colorCyan),
	styleRubber:          lipgloss.NewStyle().Foreground(colorGreen),
	styleWarning:         lipgloss.NewStyle().Foreground(colorYellow).Bold(true),
	styleTooltip:         lipgloss.NewStyle().Foreground(colorWhite).Background(colorDim),
}

var (
	statusStyle  = lipgloss.NewStyle().Foreground(colorGray)
	statusError  = lipgloss.NewStyle().Foreground(colorRed)
	statusMode   = lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
	helpKeyStyle = lipgloss.NewStyle().Foreground(colorCyan).Width(8)
	helpBox      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorDim).Padding(0, 1)
	promptStyle  = lipgloss.NewStyle().Foreground(colorWhite).Background(colorDim).Padding(0, 1)
)

// =============================================================================
// Cell grid
// =============================================================================

type cell struct {
	r     rune // 0 marks the right half of a wide rune
	style style
}

type grid struct {
	w, h  int
	cells []cell
}

func newGrid(w, h int) *grid {
	g := &grid{w: max(w, 0), h: max(h, 0)}
	g.cells = make([]cell, g.w*g.h)
	for i := range g.cells {
		g.cells[i] = cell{r: ' '}
	}
	return g
}

func (g *grid) set(x, y int, r rune, s style) {
	if x < 0 || y < 0 || x >= g.w || y >= g.h {
		return
	}
	g.cells[y*g.w+x] = cell{r: r, style: s}
}

func (g *grid) at(x, y int) rune {
	if x < 0 || y < 0 || x >= g.w || y >= g.h {
		return 0
	}
	return g.cells[y*g.w+x].r
}

// text writes s from x, clipped to limit columns.
func (g *grid) text(x, y int, s string, limit int, st style) {
	s = runewidth.Truncate(s, limit, "…")
	for _, r := range s {
		w := runewidth.RuneWidth(r)
		if w == 0 {
			continue
		}
		g.set(x, y, r, st)
		if w == 2 {
			g.set(x+1, y, 0, st)
		}
		x += w
	}
}

func (g *grid) hline(x0, x1, y int, r rune, s style) {
	for x := x0; x <= x1; x++ {
		g.set(x, y, r, s)
	}
}

func (g *grid) vline(x, y0, y1 int, r rune, s style) {
	for y := y0; y <= y1; y++ {
		g.set(x, y, r, s)
	}
}

// line draws a straight segment with Bresenham's algorithm.
func (g *grid) line(x0, y0, x1, y1 int, r rune, s style) {
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := sign(x1-x0), sign(y1-y0)
	e := dx + dy
	for {
		g.set(x0, y0, r, s)
		if x0 == x1 && y0 == y1 {
			return
		}
		if e2 := 2 * e; e2 >= dy {
			e += dy
			x0 += sx
		} else {
			e += dx
			y0 += sy
		}
	}
}

func (g *grid) String() string {
	var b strings.Builder
	for y := 0; y < g.h; y++ {
		if y > 0 {
			b.WriteByte('\n')
		}
		row := g.cells[y*g.w : (y+1)*g.w]
		for i := 0; i < len(row); {
			j := i
			var run strings.Builder
			for ; j < len(row) && row[j].style == row[i].style; j++ {
				if row[j].r != 0 {
					run.WriteRune(row[j].r)
				}
			}
			if row[i].style == stylePlain {
				b.WriteString(run.String())
			} else {
				b.WriteString(styles[row[i].style].Render(run.String()))
			}
			i = j
		}
	}
	return b.String()
}

// =============================================================================
// Frame drawing
// =============================================================================

// cellOf maps a world point to the terminal cell that contains it.
func (m *Model) cellOf(p geom.Point, v geom.Viewport) (int, int) {
	d := geom.WorldToDevice(m.surface, p, v)
	return int(math.Floor(d.X)), int(math.Floor(d.Y))
}

func (m *Model) cellRect(r geom.Rect, v geom.Viewport) (x0, y0, x1, y1 int) {
	x0, y0 = m.cellOf(r.Min, v)
	x1, y1 = m.cellOf(r.Max, v)
	return x0, y0, max(x1, x0+2), max(y1, y0+2)
}

// draw paints f onto a w×h grid: edges first, nodes over them, overlays last.
func (m *Model) draw(f canvas.Frame, w, h int) *grid {
	g := newGrid(w, h)
	v := f.Viewport

	for _, e := range f.Edges {
		m.drawEdge(g, e, v)
	}
	for _, n := range f.Nodes {
		m.drawNode(g, n, v)
	}
	for _, e := range f.Edges {
		m.drawArrowHead(g, e, v)
	}
	if f.Lasso != nil {
		x0, y0, x1, y1 := m.cellRect(*f.Lasso, v)
		g.hline(x0, x1, y0, '┄', styleLasso)
		g.hline(x0, x1, y1, '┄', styleLasso)
		g.vline(x0, y0, y1, '┆', styleLasso)
		g.vline(x1, y0, y1, '┆', styleLasso)
	}
	if f.RubberBand != nil {
		x0, y0 := m.cellOf(f.RubberBand.From, v)
		x1, y1 := m.cellOf(f.RubberBand.To, v)
		g.line(x0, y0, x1, y1, '*', styleRubber)
	}
	if f.Tooltip != nil {
		x, y := m.cellOf(f.Tooltip.At, v)
		label := " " + f.Tooltip.Text + " "
		g.text(x-runewidth.StringWidth(label)/2, y+1, label, w, styleTooltip)
	}
	return g
}

func edgeStyle(e canvas.EdgeView) (style, rune) {
	switch {
	case e.Status == diagram.StatusRejected:
		return styleEdgeRejected, 0
	case e.Relation == diagram.RelationContradicts:
		return styleEdgeContradicts, '·'
	case e.Status == diagram.StatusProposed:
		return styleEdgeProposed, '∙'
	}
	return styleEdge, '·'
}

func (m *Model) drawEdge(g *grid, e canvas.EdgeView, v geom.Viewport) {
	s, r := edgeStyle(e)
	x0, y0 := m.cellOf(e.From, v)
	x1, y1 := m.cellOf(e.To, v)
	if r != 0 {
		g.line(x0, y0, x1, y1, r, s)
	}
	if len(e.Warnings) > 0 {
		g.set((x0+x1)/2, (y0+y1)/2, '!', styleWarning)
	}
}

// drawArrowHead puts the head in the cell just outside the target border,
// after nodes are drawn so the border cannot cover it.
func (m *Model) drawArrowHead(g *grid, e canvas.EdgeView, v geom.Viewport) {
	s, _ := edgeStyle(e)
	x0, y0 := m.cellOf(e.From, v)
	x1, y1 := m.cellOf(e.To, v)
	dx, dy := x1-x0, y1-y0
	if abs(dx) >= 2*abs(dy) {
		head := '▶'
		if dx < 0 {
			head = '◀'
		}
		g.set(x1-sign(dx), y1, head, s)
		return
	}
	head := '▼'
	if dy < 0 {
		head = '▲'
	}
	g.set(x1, y1-sign(dy), head, s)
}

func (m *Model) drawNode(g *grid, n canvas.NodeView, v geom.Viewport) {
	s := styleNode
	switch {
	case n.Pending:
		s = stylePending
	case n.Selected:
		s = styleSelected
	case n.Hovered:
		s = styleHover
	case n.Kind == diagram.KindThesis:
		s = styleThesis
	}

	x0, y0, x1, y1 := m.cellRect(n.Bounds, v)
	h, vert := '─', '│'
	tl, tr, bl, br := '╭', '╮', '╰', '╯'
	if n.Selected || n.Kind == diagram.KindThesis {
		h, vert = '━', '┃'
		tl, tr, bl, br = '┏', '┓', '┗', '┛'
	}
	for y := y0 + 1; y < y1; y++ {
		g.hline(x0+1, x1-1, y, ' ', s)
	}
	g.hline(x0+1, x1-1, y0, h, s)
	g.hline(x0+1, x1-1, y1, h, s)
	g.vline(x0, y0+1, y1-1, vert, s)
	g.vline(x1, y0+1, y1-1, vert, s)
	g.set(x0, y0, tl, s)
	g.set(x1, y0, tr, s)
	g.set(x0, y1, bl, s)
	g.set(x1, y1, br, s)

	inner := x1 - x0 - 1
	label := runewidth.Truncate(n.Label, inner, "…")
	lx := x0 + 1 + (inner-runewidth.StringWidth(label))/2
	g.text(lx, (y0+y1)/2, label, inner, s)

	if len(n.Warnings) > 0 {
		g.set(x1, y0, '!', styleWarning)
	}
}

// =============================================================================
// View
// =============================================================================

func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	f := m.canvas.Frame()
	body := m.draw(f, m.width, m.canvasRows()).String()
	if m.help {
		body = lipgloss.Place(m.width, m.canvasRows(), lipgloss.Center, lipgloss.Center, m.helpView())
	}
	if m.prompt != nil {
		body = lipgloss.Place(m.width, m.canvasRows(), lipgloss.Center, lipgloss.Center, m.promptView())
	}
	return body + "\n" + m.statusView(f)
}

func (m *Model) statusView(f canvas.Frame) string {
	var parts []string
	if f.EdgeMode {
		parts = append(parts, statusMode.Render("EDGE"))
	}
	title := m.opts.Project.Title
	if m.Modified() {
		title += "*"
	}
	parts = append(parts,
		statusStyle.Render(title),
		statusStyle.Render(string(m.algorithm)),
		statusStyle.Render(fmt.Sprintf("%d%%", int(math.Round(f.Viewport.Zoom*100)))),
		statusStyle.Render(fmt.Sprintf("%d nodes %d edges", len(f.Nodes), len(f.Edges))),
	)
	if f.Gesture != "idle" {
		parts = append(parts, statusStyle.Render(f.Gesture))
	}
	if msg, failed := m.statusLine(); msg != "" {
		if failed {
			parts = append(parts, statusError.Render(msg))
		} else {
			parts = append(parts, statusStyle.Render(msg))
		}
	}
	line := strings.Join(parts, statusStyle.Render(" · "))
	return lipgloss.NewStyle().MaxWidth(m.width).Render(line)
}

func (m *Model) helpView() string {
	var b strings.Builder
	for i, k := range bindings {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(helpKeyStyle.Render(k.keys) + statusStyle.Render(k.help))
	}
	b.WriteString("\n\n" + statusStyle.Render("click: select · drag: move · drag empty: lasso"))
	b.WriteString("\n" + statusStyle.Render("shift+drag node: connect · shift+drag empty or middle: pan"))
	return helpBox.Render(b.String())
}

func (m *Model) promptView() string {
	p := m.prompt
	return promptStyle.Render(fmt.Sprintf("%s [%s] > %s_", p.title, p.Kind(), string(p.text)))
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func sign(x int) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}
