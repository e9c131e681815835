package graph

import (
	"bytes"
	"encoding/json"
)

// =============================================================================
// Constants
// =============================================================================

// DefaultTitle is used when a project is created or imported without one.
const (
	DefaultTitle  = "Untitled Project"
	ImportedTitle = "Imported Project"
)

// Defaults applied to nodes and edges that omit them.
const (
	DefaultNodeType = "CLAIM"
	DefaultRelation = "SUPPORTS"
)

// =============================================================================
// Document - Project Export Format
// =============================================================================

// Document is the project export format: project metadata plus the node and
// edge lists. It is the payload of save, load, export and import.
type Document struct {
	Project Project `json:"project" bson:"project"`
	Nodes   []Node  `json:"nodes" bson:"nodes"`
	Edges   []Edge  `json:"edges" bson:"edges"`
}

// Project identifies a saved diagram.
type Project struct {
	ID    string `json:"id" bson:"id"`
	Title string `json:"title" bson:"title"`
}

// UnmarshalJSON accepts numeric project IDs.
func (p *Project) UnmarshalJSON(data []byte) error {
	var w struct {
		ID    flexString `json:"id"`
		Title string     `json:"title"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*p = Project{ID: string(w.ID), Title: w.Title}
	return nil
}

// =============================================================================
// Node
// =============================================================================

// Node is the wire form of a diagram node. X and Y are nil for nodes that
// were never placed.
type Node struct {
	ID   string   `json:"id" bson:"id"`
	Text string   `json:"text" bson:"text"`
	Type string   `json:"type" bson:"type"`
	X    *float64 `json:"x" bson:"x,omitempty"`
	Y    *float64 `json:"y" bson:"y,omitempty"`
}

// Placed reports whether both coordinates are present.
func (n Node) Placed() bool { return n.X != nil && n.Y != nil }

// UnmarshalJSON accepts the legacy spellings older clients wrote: "name" or
// "label" for text, "kind" for type, and numeric IDs. Coordinates that are
// not numbers are treated as absent.
func (n *Node) UnmarshalJSON(data []byte) error {
	var w struct {
		ID    flexString      `json:"id"`
		Text  *string         `json:"text"`
		Name  *string         `json:"name"`
		Label *string         `json:"label"`
		Type  string          `json:"type"`
		Kind  string          `json:"kind"`
		X     json.RawMessage `json:"x"`
		Y     json.RawMessage `json:"y"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*n = Node{
		ID:   string(w.ID),
		Text: firstString(w.Text, w.Name, w.Label),
		Type: firstNonEmpty(w.Type, w.Kind),
		X:    number(w.X),
		Y:    number(w.Y),
	}
	return nil
}

// =============================================================================
// Edge
// =============================================================================

// Edge is the wire form of a diagram edge.
type Edge struct {
	FromID     string   `json:"from_id" bson:"from_id"`
	ToID       string   `json:"to_id" bson:"to_id"`
	Relation   string   `json:"relation" bson:"relation"`
	Status     string   `json:"status,omitempty" bson:"status,omitempty"`
	Rationale  *string  `json:"rationale" bson:"rationale,omitempty"`
	Confidence *float64 `json:"confidence" bson:"confidence,omitempty"`
}

// UnmarshalJSON accepts "from"/"to" for the endpoints and "type" for the
// relation.
func (e *Edge) UnmarshalJSON(data []byte) error {
	var w struct {
		FromID     flexString      `json:"from_id"`
		ToID       flexString      `json:"to_id"`
		From       flexString      `json:"from"`
		To         flexString      `json:"to"`
		Relation   string          `json:"relation"`
		Type       string          `json:"type"`
		Status     string          `json:"status"`
		Rationale  *string         `json:"rationale"`
		Confidence json.RawMessage `json:"confidence"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*e = Edge{
		FromID:     firstNonEmpty(string(w.FromID), string(w.From)),
		ToID:       firstNonEmpty(string(w.ToID), string(w.To)),
		Relation:   firstNonEmpty(w.Relation, w.Type),
		Status:     w.Status,
		Rationale:  w.Rationale,
		Confidence: number(w.Confidence),
	}
	return nil
}

// =============================================================================
// Internal Helpers
// =============================================================================

// flexString decodes a JSON string or number into its textual form.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return err
	}
	*s = flexString(num.String())
	return nil
}

func number(raw json.RawMessage) *float64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil
	}
	return &f
}

func firstString(ps ...*string) string {
	for _, p := range ps {
		if p != nil {
			return *p
		}
	}
	return ""
}

func firstNonEmpty(vs ...string) string {
	for _, v := range vs {
		if v != "" {
			return v
		}
	}
	return ""
}

// Float returns a pointer to f, for building documents by hand.
func Float(f float64) *float64 { return &f }

// String returns a pointer to s, or nil for the empty string.
func String(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
