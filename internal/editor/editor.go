// Package editor is a terminal host for the causal-graph canvas.
//
// It runs the canvas inside a bubbletea program: mouse events become
// pointer events in screen pixels, keys trigger undo, layouts, selection and
// structural edits, and every frame is drawn onto a grid of character cells.
// Delayed canvas callbacks (hover tooltips, history throttling) are posted
// back into the bubbletea event loop so the canvas is only ever driven from
// one goroutine.
package editor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/causalcanvas/pkg/canvas"
	"github.com/matzehuels/causalcanvas/pkg/diagram"
	"github.com/matzehuels/causalcanvas/pkg/enrich"
	"github.com/matzehuels/causalcanvas/pkg/geom"
	"github.com/matzehuels/causalcanvas/pkg/graph"
	"github.com/matzehuels/causalcanvas/pkg/layout"
	"github.com/matzehuels/causalcanvas/pkg/schedule"
	"github.com/matzehuels/causalcanvas/pkg/store"
)

const (
	// DefaultCellWidth and DefaultCellHeight are the assumed size of one
	// terminal cell in screen pixels.
	DefaultCellWidth  = 8
	DefaultCellHeight = 12

	fitMargin = 24
)

// Options configures an editor session.
type Options struct {
	Project  graph.Project
	Document graph.Document

	// Store receives saves when set. Otherwise the document is written to
	// Path.
	Store store.Store
	Path  string

	// ExportPath is where the SVG export key writes to.
	ExportPath string

	// Enricher fills in rationales for new edges. Nil leaves them bare.
	Enricher enrich.Enricher

	Algorithm layout.Algorithm
	Canvas    canvas.Options
	Warnings  []canvas.Warning

	CellWidth, CellHeight float64

	Logger *log.Logger
}

// Model is the bubbletea model of an editor session.
type Model struct {
	canvas   *canvas.Canvas
	resolver *enrich.Resolver
	opts     Options
	log      *log.Logger
	surface  geom.ScaledSurface

	width, height int
	fitted        bool
	algorithm     layout.Algorithm
	help          bool
	prompt        *prompt

	// send delivers messages from other goroutines into the program.
	send func(tea.Msg)

	dirty  atomic.Bool
	mu     sync.Mutex
	status string
	failed bool
}

// Messages produced outside Update.
type (
	// runMsg carries a delayed canvas callback into the event loop.
	runMsg struct{ f func() }

	// refreshMsg asks for a redraw after background work touched the canvas.
	refreshMsg struct{}

	savedMsg struct {
		result store.SaveResult
		err    error
	}

	exportedMsg struct {
		path string
		err  error
	}
)

// New builds a model. Until [Model.SetSender] is called, messages from
// timers and background work are dropped.
func New(opts Options) (*Model, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	if opts.CellWidth <= 0 {
		opts.CellWidth = DefaultCellWidth
	}
	if opts.CellHeight <= 0 {
		opts.CellHeight = DefaultCellHeight
	}
	if opts.Algorithm == "" {
		opts.Algorithm = layout.AlgorithmHierarchical
	}
	a, err := layout.ParseAlgorithm(string(opts.Algorithm))
	if err != nil {
		return nil, err
	}
	opts.Algorithm = a
	if opts.Project.Title == "" {
		opts.Project.Title = opts.Document.Project.Title
	}

	d, rep := graph.ToDiagram(opts.Document)
	for _, p := range rep.Problems {
		logger.Warn("skipped document entry", "problem", p)
	}

	m := &Model{
		opts:      opts,
		log:       logger,
		surface:   geom.ScaledSurface{SX: opts.CellWidth, SY: opts.CellHeight},
		algorithm: opts.Algorithm,
		send:      func(tea.Msg) {},
	}

	copts := opts.Canvas
	copts.Logger = logger
	if copts.Scheduler == nil {
		copts.Scheduler = schedule.Posted{Post: func(f func()) { m.send(runMsg{f}) }}
	}
	copts.Callbacks = m.callbacks()

	m.canvas = canvas.New(d, copts)
	m.resolver = &enrich.Resolver{
		Canvas:   m.canvas,
		Enricher: opts.Enricher,
		Logger:   logger,
		Go: func(f func()) {
			go func() {
				f()
				m.send(refreshMsg{})
			}()
		},
	}
	m.canvas.SetWarnings(opts.Warnings)
	return m, nil
}

// SetSender installs the function used to post messages into the program,
// normally [tea.Program.Send].
func (m *Model) SetSender(send func(tea.Msg)) { m.send = send }

// Canvas returns the underlying canvas.
func (m *Model) Canvas() *canvas.Canvas { return m.canvas }

// Modified reports whether the diagram changed since the last save.
func (m *Model) Modified() bool { return m.dirty.Load() }

func (m *Model) callbacks() canvas.Callbacks {
	return canvas.Callbacks{
		DiagramChanged: func(diagram.Diagram) { m.dirty.Store(true) },
		EdgeRequested:  func(k diagram.EdgeKey) { m.resolver.EdgeRequested(k) },
		EdgeRejected: func(k diagram.EdgeKey, err error) {
			m.setStatus(true, "cannot connect %s: %v", k, err)
		},
		EdgesPruned: func(es []diagram.Edge) {
			m.setStatus(true, "dropped %d malformed edges", len(es))
		},
		SelectionChanged: func(ids []string) {
			if len(ids) > 0 {
				m.setStatus(false, "%d selected", len(ids))
			}
		},
	}
}

func (m *Model) setStatus(failed bool, format string, args ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = fmt.Sprintf(format, args...)
	m.failed = failed
}

func (m *Model) statusLine() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status, m.failed
}

// Document returns the current diagram as a document of the session's
// project.
func (m *Model) Document() graph.Document {
	return graph.FromDiagram(m.opts.Project, m.canvas.State())
}

// =============================================================================
// bubbletea
// =============================================================================

func (m *Model) Init() tea.Cmd { return nil }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		if !m.fitted {
			m.fitted = true
			m.fit()
		}

	case tea.MouseMsg:
		if m.prompt == nil {
			if ev, ok := m.pointerEvent(msg); ok {
				m.canvas.Dispatch(ev)
			}
		}

	case tea.KeyMsg:
		if m.prompt != nil {
			return m, m.promptKey(msg)
		}
		return m, m.handleKey(msg)

	case runMsg:
		msg.f()

	case refreshMsg:

	case savedMsg:
		if msg.err != nil {
			m.setStatus(true, "save failed: %v", msg.err)
			break
		}
		m.dirty.Store(false)
		m.setStatus(false, "saved %d nodes, %d edges", msg.result.Nodes, msg.result.Edges)

	case exportedMsg:
		if msg.err != nil {
			m.setStatus(true, "export failed: %v", msg.err)
			break
		}
		m.setStatus(false, "exported %s", msg.path)
	}
	return m, nil
}

// fit frames every node inside the drawable area.
func (m *Model) fit() {
	w := float64(m.width) * m.opts.CellWidth
	h := float64(m.canvasRows()) * m.opts.CellHeight
	m.canvas.FitView(w, h, fitMargin)
}

// canvasRows is the number of terminal rows the diagram may use; the last
// row holds the status bar.
func (m *Model) canvasRows() int {
	if m.height <= 1 {
		return 0
	}
	return m.height - 1
}

// =============================================================================
// Commands
// =============================================================================

func (m *Model) saveCmd() tea.Cmd {
	doc := m.Document()
	st, id, path := m.opts.Store, m.opts.Project.ID, m.opts.Path
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if st != nil {
			res, err := st.Save(ctx, id, doc)
			return savedMsg{result: res, err: err}
		}
		if path == "" {
			return savedMsg{err: fmt.Errorf("no store and no output path")}
		}
		err := graph.WriteFile(doc, path)
		return savedMsg{result: store.SaveResult{OK: err == nil, ProjectID: id, Nodes: len(doc.Nodes), Edges: len(doc.Edges)}, err: err}
	}
}

func (m *Model) exportCmd() tea.Cmd {
	d := m.canvas.State()
	p, path := m.opts.Project, m.opts.ExportPath
	theme := m.opts.Canvas.Theme
	return func() tea.Msg {
		if path == "" {
			return exportedMsg{err: fmt.Errorf("no export path")}
		}
		return exportedMsg{path: path, err: exportDiagram(p, d, theme, path)}
	}
}
