package pipeline

import (
	"github.com/matzehuels/causalcanvas/pkg/diagram"
	"github.com/matzehuels/causalcanvas/pkg/graph"
	"github.com/matzehuels/causalcanvas/pkg/layout"
)

// GenerateLayout runs algorithm a over the usable part of doc. Skipped
// entries are reported, never fatal.
func GenerateLayout(doc graph.Document, a layout.Algorithm, cfg layout.Config) (graph.Layout, graph.Report, error) {
	d, rep := graph.ToDiagram(doc)
	nodes, err := layout.Apply(a, d.Nodes, d.ValidEdges(), cfg)
	if err != nil {
		return graph.Layout{}, rep, err
	}
	return graph.LayoutOf(string(a), nodes), rep, nil
}

// placed converts doc and assigns default slots to nodes without
// coordinates, so every node has somewhere to be drawn.
func placed(doc graph.Document, cfg layout.Config) (diagram.Diagram, graph.Report) {
	d, rep := graph.ToDiagram(doc)
	return d.WithNodes(layout.Fill(d.Nodes, cfg)), rep
}

// structureHash identifies the parts of doc a layout depends on. The project
// metadata is excluded so the same diagram saved under two titles shares a
// cache entry.
func structureHash(doc graph.Document) string {
	doc.Project = graph.Project{}
	data, _ := graph.Marshal(doc)
	return hash(data)
}
