package editor

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/causalcanvas/pkg/diagram"
	"github.com/matzehuels/causalcanvas/pkg/graph"
	"github.com/matzehuels/causalcanvas/pkg/interaction"
	"github.com/matzehuels/causalcanvas/pkg/pipeline"
)

// Run starts an interactive session on the terminal and blocks until the
// user quits or ctx is cancelled. It returns the final document.
func Run(ctx context.Context, opts Options) (graph.Document, error) {
	m, err := New(opts)
	if err != nil {
		return graph.Document{}, err
	}

	p := tea.NewProgram(m,
		tea.WithContext(ctx),
		tea.WithAltScreen(),
		tea.WithMouseAllMotion(),
	)
	m.SetSender(p.Send)

	if _, err := p.Run(); err != nil {
		return m.Document(), err
	}
	return m.Document(), nil
}

// exportDiagram renders d to path. The format follows the file extension and
// defaults to SVG.
func exportDiagram(p graph.Project, d diagram.Diagram, theme interaction.Theme, path string) error {
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if pipeline.ValidateFormat(format) != nil {
		format = pipeline.FormatSVG
	}
	out, err := pipeline.Render(p, d, pipeline.Options{Formats: []string{format}, Theme: theme})
	if err != nil {
		return err
	}
	return os.WriteFile(path, out[format], 0o644)
}
