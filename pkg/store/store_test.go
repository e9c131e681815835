package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/matzehuels/causalcanvas/pkg/errors"
	"github.com/matzehuels/causalcanvas/pkg/graph"
)

func newFileStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	return s
}

func sampleDoc() graph.Document {
	return graph.Document{
		Project: graph.Project{ID: "ignored", Title: "Exercise study"},
		Nodes: []graph.Node{
			{ID: "a", Text: "Exercise", Type: "THESIS", X: graph.Float(0), Y: graph.Float(0)},
			{ID: "b", Text: "Memory"},
			{ID: "", Text: "no id"},
		},
		Edges: []graph.Edge{
			{FromID: "a", ToID: "b"},
			{FromID: "a", ToID: ""},
			{FromID: "a", ToID: "zzz"},
		},
	}
}

func TestCreateAndLoad(t *testing.T) {
	ctx := context.Background()
	s := newFileStore(t)

	p, err := s.Create(ctx, "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if p.Title != graph.DefaultTitle {
		t.Errorf("Create().Title = %q, want %q", p.Title, graph.DefaultTitle)
	}
	if err := apperrors.ValidateProjectID(p.ID); err != nil {
		t.Errorf("Create().ID = %q: %v", p.ID, err)
	}

	doc, err := s.Load(ctx, p.ID)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if doc.Project != p || doc.Nodes == nil || doc.Edges == nil || len(doc.Nodes) != 0 {
		t.Errorf("Load() = %+v, want empty project %+v", doc, p)
	}
}

func TestSaveIsPermissive(t *testing.T) {
	ctx := context.Background()
	s := newFileStore(t)
	p, _ := s.Create(ctx, "Study")

	res, err := s.Save(ctx, p.ID, sampleDoc())
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !res.OK || res.ProjectID != p.ID || res.Nodes != 2 || res.Edges != 1 {
		t.Errorf("Save() = %+v, want ok with 2 nodes and 1 edge", res)
	}
	if res.Report.SkippedNodes != 1 || res.Report.SkippedEdges != 2 {
		t.Errorf("Save().Report = %+v", res.Report)
	}

	doc, _ := s.Load(ctx, p.ID)
	if doc.Project.Title != "Study" {
		t.Errorf("title = %q, save must not rename", doc.Project.Title)
	}
	if got := doc.Nodes[1].Type; got != graph.DefaultNodeType {
		t.Errorf("node type = %q, want %q", got, graph.DefaultNodeType)
	}
	if got := doc.Edges[0].Relation; got != graph.DefaultRelation {
		t.Errorf("edge relation = %q, want %q", got, graph.DefaultRelation)
	}
	if doc.Nodes[0].X == nil || doc.Nodes[1].X != nil {
		t.Errorf("placement not preserved: %+v", doc.Nodes)
	}
}

func TestSaveKeepsParallelRelations(t *testing.T) {
	ctx := context.Background()
	s := newFileStore(t)
	p, _ := s.Create(ctx, "Study")

	doc := graph.Document{
		Nodes: []graph.Node{{ID: "a", Text: "Exercise"}, {ID: "b", Text: "Memory"}},
		Edges: []graph.Edge{
			{FromID: "a", ToID: "b", Relation: "SUPPORTS"},
			{FromID: "a", ToID: "b", Relation: "DEFINES"},
		},
	}
	res, err := s.Save(ctx, p.ID, doc)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !res.OK || res.Edges != 2 {
		t.Errorf("Save() = %+v, want ok with 2 edges", res)
	}

	got, err := s.Load(ctx, p.ID)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got.Edges) != 2 {
		t.Fatalf("Load() edges = %d, want 2", len(got.Edges))
	}
	if got.Edges[0].Relation != "SUPPORTS" || got.Edges[1].Relation != "DEFINES" {
		t.Errorf("Load() relations = %q, %q, want SUPPORTS, DEFINES", got.Edges[0].Relation, got.Edges[1].Relation)
	}
}

func TestRename(t *testing.T) {
	ctx := context.Background()
	s := newFileStore(t)
	p, _ := s.Create(ctx, "Old")

	got, err := s.Rename(ctx, p.ID, "  New  ")
	if err != nil || got.Title != "New" {
		t.Fatalf("Rename() = %+v, %v, want New", got, err)
	}
	got, err = s.Rename(ctx, p.ID, "")
	if err != nil || got.Title != "New" {
		t.Errorf("Rename(empty) = %+v, %v, want title kept", got, err)
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s := newFileStore(t)
	p, _ := s.Create(ctx, "")

	if err := s.Delete(ctx, p.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.Load(ctx, p.ID); !apperrors.Is(err, apperrors.ErrCodeProjectNotFound) {
		t.Errorf("Load() after Delete = %v, want PROJECT_NOT_FOUND", err)
	}
	if err := s.Delete(ctx, p.ID); !apperrors.Is(err, apperrors.ErrCodeProjectNotFound) {
		t.Errorf("second Delete() = %v, want PROJECT_NOT_FOUND", err)
	}
}

func TestNotFound(t *testing.T) {
	ctx := context.Background()
	s := newFileStore(t)

	for _, id := range []string{"missing", "../etc/passwd", ""} {
		if _, err := s.Load(ctx, id); !apperrors.Is(err, apperrors.ErrCodeProjectNotFound) {
			t.Errorf("Load(%q) = %v, want PROJECT_NOT_FOUND", id, err)
		}
		if _, err := s.Save(ctx, id, graph.Document{}); !apperrors.Is(err, apperrors.ErrCodeProjectNotFound) {
			t.Errorf("Save(%q) = %v, want PROJECT_NOT_FOUND", id, err)
		}
	}
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	s := newFileStore(t)

	p, err := s.Import(ctx, sampleDoc())
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if p.ID == "ignored" || p.Title != "Exercise study" {
		t.Errorf("Import() = %+v, want fresh id and kept title", p)
	}
	doc, _ := s.Load(ctx, p.ID)
	if len(doc.Nodes) != 2 || len(doc.Edges) != 1 {
		t.Errorf("imported %d nodes, %d edges, want 2, 1", len(doc.Nodes), len(doc.Edges))
	}

	p, _ = s.Import(ctx, graph.Document{})
	if p.Title != graph.ImportedTitle {
		t.Errorf("Import(untitled).Title = %q, want %q", p.Title, graph.ImportedTitle)
	}
}

func TestListOrder(t *testing.T) {
	ctx := context.Background()
	s := newFileStore(t)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { now = now.Add(time.Minute); return now }

	a, _ := s.Create(ctx, "A")
	b, _ := s.Create(ctx, "B")
	if _, err := s.Save(ctx, a.ID, sampleDoc()); err != nil {
		t.Fatal(err)
	}

	// Stray files are ignored.
	_ = os.WriteFile(filepath.Join(s.Path(), "junk.json"), []byte("{"), 0o600)
	_ = os.WriteFile(filepath.Join(s.Path(), "notes.txt"), []byte("x"), 0o600)

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("List() = %d entries, want 2", len(list))
	}
	if list[0].ID != a.ID || list[1].ID != b.ID {
		t.Errorf("List() order = %s, %s, want most recently updated first", list[0].Title, list[1].Title)
	}
	if list[0].Nodes != 2 || list[0].Edges != 1 {
		t.Errorf("List()[0] counts = %d, %d", list[0].Nodes, list[0].Edges)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, "file", t.TempDir(), "", "")
	if err != nil {
		t.Fatalf("Open(file) error = %v", err)
	}
	if _, ok := s.(*FileStore); !ok {
		t.Errorf("Open(file) = %T", s)
	}
	if _, err := Open(ctx, "sqlite", "", "", ""); !apperrors.Is(err, apperrors.ErrCodeUnsupported) {
		t.Errorf("Open(sqlite) = %v, want UNSUPPORTED", err)
	}
}

func TestMongoStore(t *testing.T) {
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set")
	}
	ctx := context.Background()
	s, err := NewMongoStore(ctx, MongoConfig{URI: uri, Database: "causalcanvas_test", Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("NewMongoStore() error = %v", err)
	}
	defer s.Close()

	p, err := s.Create(ctx, "Mongo")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	defer s.Delete(ctx, p.ID)

	if res, err := s.Save(ctx, p.ID, sampleDoc()); err != nil || res.Nodes != 2 {
		t.Errorf("Save() = %+v, %v", res, err)
	}
	if got, err := s.Rename(ctx, p.ID, "Renamed"); err != nil || got.Title != "Renamed" {
		t.Errorf("Rename() = %+v, %v", got, err)
	}
	doc, err := s.Load(ctx, p.ID)
	if err != nil || len(doc.Edges) != 1 {
		t.Errorf("Load() = %+v, %v", doc, err)
	}
	if _, err := s.Load(ctx, "missing"); !apperrors.Is(err, apperrors.ErrCodeProjectNotFound) {
		t.Errorf("Load(missing) = %v", err)
	}
}
