// Package render groups the static exporters of a diagram.
//
// The interactive canvas draws itself through its host; exporters produce
// files from the committed positions instead. The [nodelink] subpackage
// emits Graphviz DOT with pinned node positions and renders it to SVG or
// PNG.
//
// [nodelink]: github.com/matzehuels/causalcanvas/pkg/render/nodelink
package render
