// Package store persists projects: a title plus the node and edge lists of
// one diagram.
//
// Two backends implement [Store]:
//   - [FileStore]: one JSON file per project, for the CLI and the editor
//   - [MongoStore]: a MongoDB collection, for the HTTP server
//
// Saving is permissive in the same way import is: entries the engine cannot
// use are dropped and reported in [SaveResult] rather than failing the save.
// The canvas never talks to a store; hosts load a document, hand its
// diagram to the canvas and save what DiagramChanged reports.
package store

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/matzehuels/causalcanvas/pkg/errors"
	"github.com/matzehuels/causalcanvas/pkg/graph"
)

// Store is the interface for project storage backends.
type Store interface {
	// List returns every project, most recently updated first.
	List(ctx context.Context) ([]Summary, error)

	// Create adds an empty project. An empty title becomes
	// [graph.DefaultTitle].
	Create(ctx context.Context, title string) (graph.Project, error)

	// Load returns the project's document.
	Load(ctx context.Context, id string) (graph.Document, error)

	// Save replaces the project's nodes and edges with those of doc. The
	// project ID and title of doc are ignored.
	Save(ctx context.Context, id string, doc graph.Document) (SaveResult, error)

	// Rename changes the title. An empty title keeps the old one.
	Rename(ctx context.Context, id, title string) (graph.Project, error)

	// Delete removes the project and its contents.
	Delete(ctx context.Context, id string) error

	// Import stores doc as a new project with a fresh ID. Its title
	// defaults to [graph.ImportedTitle].
	Import(ctx context.Context, doc graph.Document) (graph.Project, error)

	Close() error
}

// Summary is a list entry.
type Summary struct {
	ID        string    `json:"id" bson:"_id"`
	Title     string    `json:"title" bson:"title"`
	Nodes     int       `json:"nodes" bson:"node_count"`
	Edges     int       `json:"edges" bson:"edge_count"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// SaveResult reports what a save kept and dropped.
type SaveResult struct {
	OK        bool         `json:"ok"`
	ProjectID string       `json:"project_id"`
	Nodes     int          `json:"nodes"`
	Edges     int          `json:"edges"`
	Report    graph.Report `json:"-"`
}

// record is the stored form of a project.
type record struct {
	ID        string       `json:"id" bson:"_id"`
	Title     string       `json:"title" bson:"title"`
	Nodes     []graph.Node `json:"nodes" bson:"nodes"`
	Edges     []graph.Edge `json:"edges" bson:"edges"`
	NodeCount int          `json:"-" bson:"node_count"`
	EdgeCount int          `json:"-" bson:"edge_count"`
	CreatedAt time.Time    `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time    `json:"updated_at" bson:"updated_at"`
}

func newRecord(title string, now time.Time) record {
	return record{
		ID:        uuid.NewString(),
		Title:     title,
		Nodes:     []graph.Node{},
		Edges:     []graph.Edge{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (r record) document() graph.Document {
	nodes, edges := r.Nodes, r.Edges
	if nodes == nil {
		nodes = []graph.Node{}
	}
	if edges == nil {
		edges = []graph.Edge{}
	}
	return graph.Document{Project: r.project(), Nodes: nodes, Edges: edges}
}

func (r record) project() graph.Project { return graph.Project{ID: r.ID, Title: r.Title} }

func (r record) summary() Summary {
	return Summary{ID: r.ID, Title: r.Title, Nodes: len(r.Nodes), Edges: len(r.Edges), UpdatedAt: r.UpdatedAt}
}

// setContents replaces the node and edge lists with the cleaned contents of
// doc.
func (r *record) setContents(doc graph.Document, now time.Time) graph.Report {
	d, rep := graph.ToDiagram(doc)
	clean := graph.FromDiagram(r.project(), d)
	r.Nodes, r.Edges = clean.Nodes, clean.Edges
	r.NodeCount, r.EdgeCount = len(r.Nodes), len(r.Edges)
	r.UpdatedAt = now
	return rep
}

func (r record) saveResult(rep graph.Report) SaveResult {
	return SaveResult{OK: true, ProjectID: r.ID, Nodes: len(r.Nodes), Edges: len(r.Edges), Report: rep}
}

func trimTitle(title string) string { return strings.TrimSpace(title) }

func titleOr(title, fallback string) (string, error) {
	title = trimTitle(title)
	if title == "" {
		return fallback, nil
	}
	if err := apperrors.ValidateTitle(title); err != nil {
		return "", err
	}
	return title, nil
}

func notFound(id string) error {
	return apperrors.New(apperrors.ErrCodeProjectNotFound, "project %s not found", id)
}

// Open returns the store for a configured backend: "file" (rooted at dir)
// or "mongo" (at uri, in database).
func Open(ctx context.Context, backend, dir, uri, database string) (Store, error) {
	switch backend {
	case "", "file":
		return NewFileStore(dir)
	case "mongo", "mongodb":
		return NewMongoStore(ctx, MongoConfig{URI: uri, Database: database})
	}
	return nil, apperrors.New(apperrors.ErrCodeUnsupported, "unknown store backend %q", backend)
}
