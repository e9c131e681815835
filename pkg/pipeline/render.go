package pipeline

import (
	"fmt"

	"github.com/matzehuels/causalcanvas/pkg/diagram"
	"github.com/matzehuels/causalcanvas/pkg/graph"
	"github.com/matzehuels/causalcanvas/pkg/render/nodelink"
)

// Render generates output artifacts in the requested formats from the
// positions in d.
func Render(p graph.Project, d diagram.Diagram, opts Options) (map[string][]byte, error) {
	dot := nodelink.ToDOT(d, nodelink.Options{Theme: opts.Theme, Detailed: opts.Detailed})
	artifacts := make(map[string][]byte, len(opts.Formats))

	for _, format := range opts.Formats {
		var data []byte
		var err error

		switch format {
		case FormatSVG:
			data, err = nodelink.RenderSVG(dot)
		case FormatPNG:
			data, err = nodelink.RenderPNG(dot)
		case FormatDOT:
			data = []byte(dot)
		case FormatJSON:
			data, err = graph.Marshal(graph.FromDiagram(p, d))
		default:
			return nil, ValidateFormat(format)
		}

		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}
	return artifacts, nil
}
