// Package graph defines the wire format for causal diagrams.
//
// A [Document] is what the editor saves, the HTTP API exchanges and the
// project store persists:
//
//	{
//	  "project": {"id": "3f2b...", "title": "Exercise and memory"},
//	  "nodes": [
//	    {"id": "a", "text": "Exercise", "type": "VARIABLE", "x": 400, "y": 150},
//	    {"id": "b", "text": "Memory", "type": "VARIABLE", "x": null, "y": null}
//	  ],
//	  "edges": [
//	    {"from_id": "a", "to_id": "b", "relation": "CAUSES",
//	     "rationale": "more oxygen reaches the hippocampus", "confidence": 0.7}
//	  ]
//	}
//
// Decoding is lenient about the spellings older clients used: "name" or
// "label" for a node's text, "kind" for its type, "from"/"to" for edge
// endpoints and "type" for an edge's relation. IDs may be strings or
// numbers. These fallbacks are resolved here so nothing past this package
// sees them.
//
// # Conversion
//
// [ToDiagram] turns a document into a [diagram.Diagram], skipping entries it
// cannot use and describing them in a [Report]. [FromDiagram] goes the other
// way. [Validate] applies the same checks strictly for the CLI's validate
// command.
//
// # Layouts
//
// [Layout] is a computed set of positions, used as the cache value of the
// layout pipeline and the response of the stateless layout endpoint.
package graph
