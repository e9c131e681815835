// Package nodelink exports a diagram as a static node-link picture.
//
// The canvas owns positions, so unlike a typical Graphviz pipeline nothing
// is laid out here: [ToDOT] pins every node at its world coordinates and
// neato only routes the edges.
//
//	dot := nodelink.ToDOT(d, nodelink.Options{Detailed: true})
//	svg, err := nodelink.RenderSVG(dot)
//
// Node fill follows the node kind. Proposed edges are dashed, rejected
// edges dotted and grey, and contradicting edges red with a tee head.
//
// Rendering runs in-process through [github.com/goccy/go-graphviz].
package nodelink
