package diagram

import (
	"errors"
	"slices"

	"github.com/matzehuels/causalcanvas/pkg/geom"
)

var (
	// ErrInvalidNodeID is returned by [Diagram.AddNode] when the node ID is empty.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrDuplicateNodeID is returned by [Diagram.AddNode] when a node with the
	// same ID already exists.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrUnknownSourceNode is returned by [Diagram.AddEdge] when the From node
	// does not exist.
	ErrUnknownSourceNode = errors.New("unknown source node")

	// ErrUnknownTargetNode is returned by [Diagram.AddEdge] when the To node
	// does not exist.
	ErrUnknownTargetNode = errors.New("unknown target node")

	// ErrSelfLoop is returned when an edge would connect a node to itself.
	ErrSelfLoop = errors.New("edge endpoints must differ")

	// ErrDuplicateEdge is returned by callers that enforce at most one edge per
	// ordered pair. The diagram itself allows duplicates.
	ErrDuplicateEdge = errors.New("duplicate edge")
)

// Kind is the variant tag of a node. It only affects theming.
type Kind string

const (
	KindThesis     Kind = "THESIS"
	KindClaim      Kind = "CLAIM"
	KindVariable   Kind = "VARIABLE"
	KindAssumption Kind = "ASSUMPTION"
	KindEvidence   Kind = "EVIDENCE"
)

// Relation is the relationship tag of an edge.
type Relation string

const (
	RelationCauses      Relation = "CAUSES"
	RelationModerates   Relation = "MODERATES"
	RelationMediates    Relation = "MEDIATES"
	RelationSupports    Relation = "SUPPORTS"
	RelationContradicts Relation = "CONTRADICTS"
	RelationDefines     Relation = "DEFINES"
)

// Status is the lifecycle tag of an edge.
type Status string

const (
	StatusProposed Status = "PROPOSED"
	StatusAccepted Status = "ACCEPTED"
	StatusRejected Status = "REJECTED"
)

// Node is a vertex of the diagram. Pos is the world-space center of the node.
// Placed is false for nodes that arrived without an explicit position; such
// nodes get a default slot (see layout.Fill) before they are first rendered.
type Node struct {
	ID     string
	Label  string
	Kind   Kind
	Pos    geom.Point
	Placed bool
}

// EdgeKey identifies an edge by its ordered endpoints.
type EdgeKey struct {
	From string
	To   string
}

func (k EdgeKey) String() string { return k.From + "->" + k.To }

// Edge is a directed connection between two nodes. Relation, Status, Rationale
// and Confidence are opaque payload carried for rendering and export.
type Edge struct {
	From       string
	To         string
	Relation   Relation
	Status     Status
	Rationale  string
	Confidence float64
}

// Key returns the ordered endpoint pair of e.
func (e Edge) Key() EdgeKey { return EdgeKey{From: e.From, To: e.To} }

// Diagram is an ordered node and edge collection. Methods never mutate the
// receiver's slices in place; every modifying method returns a new Diagram
// that shares nothing writable with the old one, so a Diagram value can be
// kept as a history snapshot.
//
// The zero value is an empty diagram.
type Diagram struct {
	Nodes []Node
	Edges []Edge
}

// New returns a diagram holding copies of nodes and edges.
func New(nodes []Node, edges []Edge) Diagram {
	return Diagram{Nodes: slices.Clone(nodes), Edges: slices.Clone(edges)}
}

// Clone returns a deep copy of d.
func (d Diagram) Clone() Diagram { return New(d.Nodes, d.Edges) }

// Equal reports whether d and o hold the same nodes and edges in the same order.
func (d Diagram) Equal(o Diagram) bool {
	return slices.Equal(d.Nodes, o.Nodes) && slices.Equal(d.Edges, o.Edges)
}

// IsEmpty reports whether d has no nodes and no edges.
func (d Diagram) IsEmpty() bool { return len(d.Nodes) == 0 && len(d.Edges) == 0 }

// IndexOf returns the index of node id, or -1.
func (d Diagram) IndexOf(id string) int {
	return slices.IndexFunc(d.Nodes, func(n Node) bool { return n.ID == id })
}

// Node returns the node with the given ID.
func (d Diagram) Node(id string) (Node, bool) {
	if i := d.IndexOf(id); i >= 0 {
		return d.Nodes[i], true
	}
	return Node{}, false
}

// HasNode reports whether a node with the given ID exists.
func (d Diagram) HasNode(id string) bool { return d.IndexOf(id) >= 0 }

// HasEdge reports whether at least one edge from→to exists.
func (d Diagram) HasEdge(from, to string) bool {
	return slices.ContainsFunc(d.Edges, func(e Edge) bool { return e.From == from && e.To == to })
}

// EdgeIndex returns the index of the first edge matching k, or -1.
func (d Diagram) EdgeIndex(k EdgeKey) int {
	return slices.IndexFunc(d.Edges, func(e Edge) bool { return e.Key() == k })
}

// NodeIDs returns the IDs of all nodes in order.
func (d Diagram) NodeIDs() []string {
	ids := make([]string, len(d.Nodes))
	for i, n := range d.Nodes {
		ids[i] = n.ID
	}
	return ids
}

// AddNode returns d with n appended.
// Returns ErrInvalidNodeID if the ID is empty or ErrDuplicateNodeID if it is
// already in use.
func (d Diagram) AddNode(n Node) (Diagram, error) {
	if n.ID == "" {
		return d, ErrInvalidNodeID
	}
	if d.HasNode(n.ID) {
		return d, ErrDuplicateNodeID
	}
	out := d.Clone()
	out.Nodes = append(out.Nodes, n)
	return out, nil
}

// AddEdge returns d with e appended.
// Returns ErrSelfLoop, ErrUnknownSourceNode or ErrUnknownTargetNode.
// Multiple edges between the same nodes are allowed; duplicate suppression is
// left to the caller.
func (d Diagram) AddEdge(e Edge) (Diagram, error) {
	if e.From == e.To {
		return d, ErrSelfLoop
	}
	if !d.HasNode(e.From) {
		return d, ErrUnknownSourceNode
	}
	if !d.HasNode(e.To) {
		return d, ErrUnknownTargetNode
	}
	out := d.Clone()
	out.Edges = append(out.Edges, e)
	return out, nil
}

// RemoveNodes returns d without the given nodes and without every edge
// incident to any of them.
func (d Diagram) RemoveNodes(ids ...string) Diagram {
	gone := make(map[string]bool, len(ids))
	for _, id := range ids {
		gone[id] = true
	}
	out := d.Clone()
	out.Nodes = slices.DeleteFunc(out.Nodes, func(n Node) bool { return gone[n.ID] })
	out.Edges = slices.DeleteFunc(out.Edges, func(e Edge) bool { return gone[e.From] || gone[e.To] })
	return out
}

// RemoveEdge returns d without the edges matching k. Unknown keys are ignored.
func (d Diagram) RemoveEdge(k EdgeKey) Diagram {
	out := d.Clone()
	out.Edges = slices.DeleteFunc(out.Edges, func(e Edge) bool { return e.Key() == k })
	return out
}

// UpdateEdge returns d with fn applied to the first edge matching k, and
// whether such an edge existed. fn must not change the endpoints.
func (d Diagram) UpdateEdge(k EdgeKey, fn func(Edge) Edge) (Diagram, bool) {
	i := d.EdgeIndex(k)
	if i < 0 {
		return d, false
	}
	out := d.Clone()
	e := fn(out.Edges[i])
	e.From, e.To = k.From, k.To
	out.Edges[i] = e
	return out, true
}

// MoveNodes returns d with the positions in pos applied. Moved nodes become
// placed; unknown IDs are ignored.
func (d Diagram) MoveNodes(pos map[string]geom.Point) Diagram {
	out := d.Clone()
	for i, n := range out.Nodes {
		if p, ok := pos[n.ID]; ok {
			out.Nodes[i].Pos = p
			out.Nodes[i].Placed = true
		}
	}
	return out
}

// WithNodes returns d with its node slice replaced by a copy of nodes.
func (d Diagram) WithNodes(nodes []Node) Diagram {
	return Diagram{Nodes: slices.Clone(nodes), Edges: slices.Clone(d.Edges)}
}

// ValidEdges returns the edges whose endpoints are both live nodes.
func (d Diagram) ValidEdges() []Edge {
	live := d.idSet()
	out := make([]Edge, 0, len(d.Edges))
	for _, e := range d.Edges {
		if live[e.From] && live[e.To] && e.From != e.To {
			out = append(out, e)
		}
	}
	return out
}

// Prune returns d without malformed edges (dangling endpoints or self-loops)
// together with the edges that were dropped.
func (d Diagram) Prune() (Diagram, []Edge) {
	live := d.idSet()
	var dropped []Edge
	out := d.Clone()
	out.Edges = slices.DeleteFunc(out.Edges, func(e Edge) bool {
		bad := !live[e.From] || !live[e.To] || e.From == e.To
		if bad {
			dropped = append(dropped, e)
		}
		return bad
	})
	return out, dropped
}

// Children returns the adjacency list of valid edges, keyed by source ID.
// Targets appear in edge order, duplicates included.
func (d Diagram) Children() map[string][]string {
	adj := make(map[string][]string, len(d.Nodes))
	for _, e := range d.ValidEdges() {
		adj[e.From] = append(adj[e.From], e.To)
	}
	return adj
}

// InDegrees returns the number of valid incoming edges per node.
// Every node has an entry.
func (d Diagram) InDegrees() map[string]int {
	deg := make(map[string]int, len(d.Nodes))
	for _, n := range d.Nodes {
		deg[n.ID] = 0
	}
	for _, e := range d.ValidEdges() {
		deg[e.To]++
	}
	return deg
}

func (d Diagram) idSet() map[string]bool {
	live := make(map[string]bool, len(d.Nodes))
	for _, n := range d.Nodes {
		live[n.ID] = true
	}
	return live
}
