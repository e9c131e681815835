package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/causalcanvas/pkg/diagram"
	"github.com/matzehuels/causalcanvas/pkg/interaction"
)

// pointsPerUnit converts world units to Graphviz points. World units are
// screen pixels at zoom 1, which Graphviz treats as 72 per inch.
const pointsPerUnit = 1.0

// Options configures node-link diagram rendering.
type Options struct {
	// Theme sizes the node boxes. The zero value selects
	// [interaction.DefaultTheme].
	Theme interaction.Theme

	// Detailed labels edges with their relation and confidence.
	Detailed bool
}

var kindFill = map[diagram.Kind]string{
	diagram.KindThesis:     "#fde68a",
	diagram.KindClaim:      "#ffffff",
	diagram.KindVariable:   "#dbeafe",
	diagram.KindAssumption: "#ede9fe",
	diagram.KindEvidence:   "#dcfce7",
}

// ToDOT converts a diagram to Graphviz DOT with every node pinned at its
// world position. Y grows downward in world space and upward in Graphviz,
// so it is negated. Edges with a missing endpoint are skipped.
func ToDOT(d diagram.Diagram, opts Options) string {
	theme := opts.Theme
	if theme == (interaction.Theme{}) {
		theme = interaction.DefaultTheme()
	}
	shape := "box"
	if theme.Shape == interaction.ShapeCircle {
		shape = "circle"
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  layout=neato;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  splines=true;\n")
	buf.WriteString("  overlap=true;\n")
	buf.WriteString("  outputorder=edgesfirst;\n")
	fmt.Fprintf(&buf, "  node [shape=%s, style=\"rounded,filled\", fixedsize=true, fontsize=11, fontname=\"Helvetica\"];\n", shape)
	buf.WriteString("  edge [arrowsize=0.7, fontsize=9, fontname=\"Helvetica\"];\n")
	buf.WriteString("\n")

	for _, n := range d.Nodes {
		w, h := theme.Size(n.Label)
		attrs := []string{
			fmt.Sprintf("label=%q", n.Label),
			fmt.Sprintf("pos=\"%s,%s!\"", num(n.Pos.X*pointsPerUnit), num(-n.Pos.Y*pointsPerUnit)),
			fmt.Sprintf("width=%s", num(w*pointsPerUnit/72)),
			fmt.Sprintf("height=%s", num(h*pointsPerUnit/72)),
			fmt.Sprintf("fillcolor=%q", fill(n.Kind)),
		}
		if n.Kind == diagram.KindThesis {
			attrs = append(attrs, "penwidth=2")
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range d.ValidEdges() {
		attrs := edgeAttrs(e, opts.Detailed)
		if len(attrs) == 0 {
			fmt.Fprintf(&buf, "  %q -> %q;\n", e.From, e.To)
			continue
		}
		fmt.Fprintf(&buf, "  %q -> %q [%s];\n", e.From, e.To, strings.Join(attrs, ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fill(k diagram.Kind) string {
	if c, ok := kindFill[k]; ok {
		return c
	}
	return kindFill[diagram.KindClaim]
}

func edgeAttrs(e diagram.Edge, detailed bool) []string {
	var attrs []string
	switch e.Status {
	case diagram.StatusProposed:
		attrs = append(attrs, "style=dashed")
	case diagram.StatusRejected:
		attrs = append(attrs, "style=dotted", "color=grey")
	}
	if e.Relation == diagram.RelationContradicts {
		attrs = append(attrs, "color=\"#dc2626\"", "arrowhead=tee")
	}
	if detailed {
		label := string(e.Relation)
		if e.Confidence > 0 {
			label += fmt.Sprintf(" (%.2f)", e.Confidence)
		}
		if label != "" {
			attrs = append(attrs, fmt.Sprintf("label=%q", label))
		}
		if e.Rationale != "" {
			attrs = append(attrs, fmt.Sprintf("tooltip=%q", e.Rationale))
		}
	}
	return attrs
}

func num(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

// RenderSVG lays out a DOT graph with neato, honoring pinned positions, and
// renders it to SVG.
func RenderSVG(dot string) ([]byte, error) {
	data, err := render(dot, graphviz.SVG)
	if err != nil {
		return nil, err
	}
	return normalizeViewBox(data), nil
}

// RenderPNG renders a DOT graph to PNG.
func RenderPNG(dot string) ([]byte, error) {
	return render(dot, graphviz.PNG)
}

func render(dot string, format graphviz.Format) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(graphviz.NEATO)

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render %s: %w", format, err)
	}
	return buf.Bytes(), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces the Graphviz root element with one that scales
// cleanly when embedded.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}
