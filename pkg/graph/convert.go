package graph

import (
	"fmt"
	"strings"

	"github.com/matzehuels/causalcanvas/pkg/diagram"
	"github.com/matzehuels/causalcanvas/pkg/errors"
	"github.com/matzehuels/causalcanvas/pkg/geom"
)

// Report lists the entries [ToDiagram] dropped. Import is permissive: a bad
// entry is skipped and reported rather than failing the whole document.
type Report struct {
	SkippedNodes int
	SkippedEdges int
	Problems     []string
}

// OK reports whether nothing was dropped.
func (r Report) OK() bool { return len(r.Problems) == 0 }

func (r *Report) node(i int, format string, args ...any) {
	r.SkippedNodes++
	r.Problems = append(r.Problems, fmt.Sprintf("node %d: ", i)+fmt.Sprintf(format, args...))
}

func (r *Report) edge(i int, format string, args ...any) {
	r.SkippedEdges++
	r.Problems = append(r.Problems, fmt.Sprintf("edge %d: ", i)+fmt.Sprintf(format, args...))
}

// =============================================================================
// Document ↔ Diagram Conversion
// =============================================================================

// ToDiagram converts a document into the engine's data model.
//
// Nodes without an ID or with a repeated ID are skipped. Edges without both
// endpoints, with an unknown endpoint, looping onto their source or
// repeating an earlier edge with the same relation are skipped. Parallel
// edges with different relations are kept. Missing types default to
// [DefaultNodeType] and [DefaultRelation]; edges without a status are
// treated as accepted.
func ToDiagram(doc Document) (diagram.Diagram, Report) {
	var (
		rep   Report
		nodes = make([]diagram.Node, 0, len(doc.Nodes))
		seen  = make(map[string]bool, len(doc.Nodes))
	)
	for i, n := range doc.Nodes {
		id := strings.TrimSpace(n.ID)
		switch {
		case id == "":
			rep.node(i, "missing id")
			continue
		case seen[id]:
			rep.node(i, "duplicate id %q", id)
			continue
		}
		seen[id] = true
		node := diagram.Node{
			ID:    id,
			Label: n.Text,
			Kind:  diagram.Kind(firstNonEmpty(n.Type, DefaultNodeType)),
		}
		if n.Placed() {
			node.Pos, node.Placed = geom.Pt(*n.X, *n.Y), true
		}
		nodes = append(nodes, node)
	}

	edges := make([]diagram.Edge, 0, len(doc.Edges))
	type triple struct {
		key      diagram.EdgeKey
		relation diagram.Relation
	}
	seenEdges := make(map[triple]bool, len(doc.Edges))
	for i, e := range doc.Edges {
		key := diagram.EdgeKey{From: strings.TrimSpace(e.FromID), To: strings.TrimSpace(e.ToID)}
		rel := diagram.Relation(firstNonEmpty(e.Relation, DefaultRelation))
		switch {
		case key.From == "" || key.To == "":
			rep.edge(i, "missing endpoint")
			continue
		case !seen[key.From] || !seen[key.To]:
			rep.edge(i, "unknown endpoint in %s", key)
			continue
		case key.From == key.To:
			rep.edge(i, "self-loop on %q", key.From)
			continue
		case seenEdges[triple{key, rel}]:
			rep.edge(i, "duplicate %s %s", key, rel)
			continue
		}
		seenEdges[triple{key, rel}] = true
		edge := diagram.Edge{
			From:     key.From,
			To:       key.To,
			Relation: rel,
			Status:   diagram.Status(firstNonEmpty(e.Status, string(diagram.StatusAccepted))),
		}
		if e.Rationale != nil {
			edge.Rationale = *e.Rationale
		}
		if e.Confidence != nil {
			edge.Confidence = *e.Confidence
		}
		edges = append(edges, edge)
	}
	return diagram.New(nodes, edges), rep
}

// FromDiagram converts the engine's data model into a document for p.
// Node and edge order is preserved.
func FromDiagram(p Project, d diagram.Diagram) Document {
	doc := Document{
		Project: p,
		Nodes:   make([]Node, len(d.Nodes)),
		Edges:   make([]Edge, len(d.Edges)),
	}
	for i, n := range d.Nodes {
		out := Node{ID: n.ID, Text: n.Label, Type: string(n.Kind)}
		if n.Placed {
			out.X, out.Y = Float(n.Pos.X), Float(n.Pos.Y)
		}
		doc.Nodes[i] = out
	}
	for i, e := range d.Edges {
		out := Edge{
			FromID:    e.From,
			ToID:      e.To,
			Relation:  string(e.Relation),
			Status:    string(e.Status),
			Rationale: String(e.Rationale),
		}
		if e.Confidence != 0 {
			out.Confidence = Float(e.Confidence)
		}
		doc.Edges[i] = out
	}
	return doc
}

// Validate is the strict counterpart of [ToDiagram]: it returns an
// [errors.ErrCodeInvalidDocument] error listing every problem instead of
// skipping entries. Labels and the title are checked as well.
func Validate(doc Document) error {
	_, rep := ToDiagram(doc)
	problems := rep.Problems
	if err := errors.ValidateTitle(doc.Project.Title); err != nil {
		problems = append(problems, "project: "+errors.UserMessage(err))
	}
	for i, n := range doc.Nodes {
		if n.ID == "" {
			continue
		}
		if err := errors.ValidateNodeID(n.ID); err != nil {
			problems = append(problems, fmt.Sprintf("node %d: %s", i, errors.UserMessage(err)))
		}
		if err := errors.ValidateLabel(n.Text); err != nil {
			problems = append(problems, fmt.Sprintf("node %d: %s", i, errors.UserMessage(err)))
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return errors.New(errors.ErrCodeInvalidDocument, "%d problem(s):\n  %s",
		len(problems), strings.Join(problems, "\n  "))
}
