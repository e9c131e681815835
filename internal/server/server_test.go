package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/causalcanvas/pkg/cache"
	"github.com/matzehuels/causalcanvas/pkg/enrich"
	apperrors "github.com/matzehuels/causalcanvas/pkg/errors"
	"github.com/matzehuels/causalcanvas/pkg/graph"
	"github.com/matzehuels/causalcanvas/pkg/observability"
	"github.com/matzehuels/causalcanvas/pkg/pipeline"
	"github.com/matzehuels/causalcanvas/pkg/store"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(newTestHandler(t))
	t.Cleanup(ts.Close)
	return ts
}

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	st, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	logger := log.New(io.Discard)
	s, err := New(Config{
		Store:  st,
		Runner: pipeline.NewRunner(cache.NewNullCache(), nil, logger),
		Logger: logger,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s.Handler()
}

func sampleDocument() graph.Document {
	return graph.Document{
		Project: graph.Project{ID: "sample", Title: "Sleep study"},
		Nodes: []graph.Node{
			{ID: "a", Text: "Sleep", Type: "VARIABLE"},
			{ID: "b", Text: "Memory", Type: "CLAIM"},
			{ID: "c", Text: "Mood"},
		},
		Edges: []graph.Edge{
			{FromID: "a", ToID: "b", Relation: "SUPPORTS", Status: "ACCEPTED"},
			{FromID: "a", ToID: "c"},
		},
	}
}

func do(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, r)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func wantStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("%s %s status = %d, want %d (body %s)",
			resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, want, body)
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("New() without store succeeded")
	}
	st, _ := store.NewFileStore(t.TempDir())
	if _, err := New(Config{Store: st}); err == nil {
		t.Error("New() without runner succeeded")
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	resp := do(t, http.MethodGet, ts.URL+"/healthz", nil)
	wantStatus(t, resp, http.StatusOK)
	if got := decode[healthResponse](t, resp); got.Status != "ok" || got.Build.Version == "" {
		t.Errorf("healthz = %+v", got)
	}
}

func TestProjectLifecycle(t *testing.T) {
	ts := newTestServer(t)

	resp := do(t, http.MethodGet, ts.URL+"/projects", nil)
	wantStatus(t, resp, http.StatusOK)
	if list := decode[[]store.Summary](t, resp); len(list) != 0 {
		t.Fatalf("initial list = %v, want empty", list)
	}

	resp = do(t, http.MethodPost, ts.URL+"/projects", map[string]string{"title": "Coffee"})
	wantStatus(t, resp, http.StatusCreated)
	p := decode[graph.Project](t, resp)
	if p.ID == "" || p.Title != "Coffee" {
		t.Fatalf("created = %+v", p)
	}
	base := ts.URL + "/projects/" + p.ID

	resp = do(t, http.MethodPatch, base, map[string]string{"title": "Caffeine"})
	wantStatus(t, resp, http.StatusOK)
	if got := decode[graph.Project](t, resp); got.Title != "Caffeine" {
		t.Errorf("renamed title = %q", got.Title)
	}

	resp = do(t, http.MethodPost, base+"/save", sampleDocument())
	wantStatus(t, resp, http.StatusOK)
	saved := decode[saveResponse](t, resp)
	if !saved.OK || saved.ProjectID != p.ID || saved.Nodes != 3 || saved.Edges != 2 {
		t.Errorf("save = %+v", saved)
	}

	resp = do(t, http.MethodGet, base, nil)
	wantStatus(t, resp, http.StatusOK)
	doc := decode[graph.Document](t, resp)
	if doc.Project.ID != p.ID || doc.Project.Title != "Caffeine" {
		t.Errorf("loaded project = %+v", doc.Project)
	}
	if len(doc.Nodes) != 3 || len(doc.Edges) != 2 {
		t.Errorf("loaded %d nodes %d edges, want 3 and 2", len(doc.Nodes), len(doc.Edges))
	}

	resp = do(t, http.MethodGet, base+"/export", nil)
	wantStatus(t, resp, http.StatusOK)
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "Caffeine.json") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	resp = do(t, http.MethodGet, ts.URL+"/projects", nil)
	if list := decode[[]store.Summary](t, resp); len(list) != 1 || list[0].Nodes != 3 {
		t.Errorf("list = %+v", list)
	}

	resp = do(t, http.MethodDelete, base, nil)
	wantStatus(t, resp, http.StatusNoContent)
	resp = do(t, http.MethodGet, base, nil)
	wantStatus(t, resp, http.StatusNotFound)
}

func TestCreateWithoutBody(t *testing.T) {
	ts := newTestServer(t)
	resp := do(t, http.MethodPost, ts.URL+"/projects", nil)
	wantStatus(t, resp, http.StatusCreated)
	if p := decode[graph.Project](t, resp); p.Title != graph.DefaultTitle {
		t.Errorf("title = %q, want %q", p.Title, graph.DefaultTitle)
	}
}

func TestImport(t *testing.T) {
	ts := newTestServer(t)
	resp := do(t, http.MethodPost, ts.URL+"/projects/import", sampleDocument())
	wantStatus(t, resp, http.StatusCreated)
	p := decode[graph.Project](t, resp)
	if p.ID == "sample" {
		t.Error("import kept the document's project ID")
	}

	resp = do(t, http.MethodPost, ts.URL+"/projects/import", "{not json")
	wantStatus(t, resp, http.StatusBadRequest)
	if e := decode[errorResponse](t, resp); e.Error != "INVALID_DOCUMENT" {
		t.Errorf("error code = %q", e.Error)
	}
}

func TestSaveReportsSkipped(t *testing.T) {
	ts := newTestServer(t)
	p := decode[graph.Project](t, do(t, http.MethodPost, ts.URL+"/projects", nil))

	doc := sampleDocument()
	doc.Edges = append(doc.Edges, graph.Edge{FromID: "a", ToID: "missing"})
	resp := do(t, http.MethodPost, ts.URL+"/projects/"+p.ID+"/save", doc)
	wantStatus(t, resp, http.StatusOK)
	saved := decode[saveResponse](t, resp)
	if saved.Edges != 2 || len(saved.Skipped) != 1 {
		t.Errorf("save = %+v, want 2 edges and 1 skipped", saved)
	}
}

func TestUnknownProject(t *testing.T) {
	ts := newTestServer(t)
	for _, path := range []string{"/projects/nope", "/projects/nope/export", "/projects/nope/render.svg"} {
		resp := do(t, http.MethodGet, ts.URL+path, nil)
		wantStatus(t, resp, http.StatusNotFound)
	}
}

func TestLayoutProject(t *testing.T) {
	ts := newTestServer(t)
	p := decode[graph.Project](t, do(t, http.MethodPost, ts.URL+"/projects/import", sampleDocument()))
	base := ts.URL + "/projects/" + p.ID

	resp := do(t, http.MethodPost, base+"/layout?algorithm=grid", nil)
	wantStatus(t, resp, http.StatusOK)
	got := decode[layoutResponse](t, resp)
	if got.Layout.Algorithm != "grid" || len(got.Layout.Positions) != 3 {
		t.Errorf("layout = %+v", got.Layout)
	}

	doc := decode[graph.Document](t, do(t, http.MethodGet, base, nil))
	for _, n := range doc.Nodes {
		if n.X == nil || n.Y == nil {
			t.Errorf("node %s has no stored position after layout", n.ID)
		}
	}

	resp = do(t, http.MethodPost, base+"/layout?algorithm=spiral", nil)
	wantStatus(t, resp, http.StatusBadRequest)
	if e := decode[errorResponse](t, resp); e.Error != "INVALID_ALGORITHM" {
		t.Errorf("error code = %q", e.Error)
	}
}

func TestLayoutDocument(t *testing.T) {
	ts := newTestServer(t)
	resp := do(t, http.MethodPost, ts.URL+"/layout", sampleDocument())
	wantStatus(t, resp, http.StatusOK)
	got := decode[layoutResponse](t, resp)
	if got.Layout.Algorithm != "hierarchical" {
		t.Errorf("default algorithm = %q", got.Layout.Algorithm)
	}
	for _, n := range got.Document.Nodes {
		if n.X == nil || n.Y == nil {
			t.Errorf("node %s unplaced", n.ID)
		}
	}

	resp = do(t, http.MethodGet, ts.URL+"/projects", nil)
	if list := decode[[]store.Summary](t, resp); len(list) != 0 {
		t.Errorf("stateless layout stored a project: %v", list)
	}
}

func TestRenderProject(t *testing.T) {
	ts := newTestServer(t)
	p := decode[graph.Project](t, do(t, http.MethodPost, ts.URL+"/projects/import", sampleDocument()))

	resp := do(t, http.MethodGet, ts.URL+"/projects/"+p.ID+"/render.svg?detailed=true", nil)
	wantStatus(t, resp, http.StatusOK)
	if ct := resp.Header.Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("Content-Type = %q", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	if !bytes.Contains(body, []byte("<svg")) || !bytes.Contains(body, []byte("Memory")) {
		t.Errorf("render body is not an svg with labels: %.80s", body)
	}
}

func TestRationale(t *testing.T) {
	ts := newTestServer(t)

	resp := do(t, http.MethodPost, ts.URL+"/edge/rationale", map[string]string{"a_name": "Sleep", "b_name": "Memory"})
	wantStatus(t, resp, http.StatusOK)
	card := decode[enrich.Card](t, resp)
	if len(card.Mechanisms) == 0 || card.Mechanisms[0] != enrich.FallbackCard().Mechanisms[0] {
		t.Errorf("card = %+v", card)
	}

	resp = do(t, http.MethodPost, ts.URL+"/edge/rationale", map[string]string{"a_name": "Sleep"})
	wantStatus(t, resp, http.StatusBadRequest)
}

func TestRationaleThroughClient(t *testing.T) {
	ts := newTestServer(t)
	c := enrich.NewClient(enrich.ClientConfig{Endpoint: ts.URL})
	card, err := c.Rationale(t.Context(), "Sleep", "Memory")
	if err != nil {
		t.Fatalf("Rationale() error = %v", err)
	}
	if card.IsEmpty() {
		t.Error("Rationale() returned an empty card")
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{"INVALID_EDGE", http.StatusBadRequest},
		{"PROJECT_NOT_FOUND", http.StatusNotFound},
		{"TIMEOUT", http.StatusGatewayTimeout},
		{"NETWORK_ERROR", http.StatusBadGateway},
		{"TOO_LARGE", http.StatusRequestEntityTooLarge},
		{"STORAGE_ERROR", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := fmt.Errorf("handler: %w", apperrors.New(apperrors.Code(tt.code), "failed"))
			if got := statusFor(err); got != tt.want {
				t.Errorf("statusFor(%s) = %d, want %d", tt.code, got, tt.want)
			}
		})
	}
}

func TestStatusForBodyLimit(t *testing.T) {
	mbe := &http.MaxBytesError{Limit: maxBodyBytes}
	err := apperrors.Wrap(apperrors.ErrCodeInvalidDocument, fmt.Errorf("decode: %w", mbe), "load request")
	if got := statusFor(err); got != http.StatusRequestEntityTooLarge {
		t.Errorf("statusFor(wrapped MaxBytesError) = %d, want %d", got, http.StatusRequestEntityTooLarge)
	}
}

func TestOversizedBody(t *testing.T) {
	h := newTestHandler(t)
	huge := `{"project":{"title":"` + strings.Repeat("x", maxBodyBytes+1) + `"}}`

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/layout"},
		{http.MethodPost, "/projects/import"},
		{http.MethodPost, "/projects"},
		{http.MethodPost, "/edge/rationale"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(huge))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != http.StatusRequestEntityTooLarge {
				t.Fatalf("%s %s status = %d, want %d (body %s)",
					tt.method, tt.path, rec.Code, http.StatusRequestEntityTooLarge, rec.Body)
			}
			var e errorResponse
			if err := json.NewDecoder(rec.Body).Decode(&e); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if e.Error != string(apperrors.ErrCodeTooLarge) {
				t.Errorf("error = %q, want %q", e.Error, apperrors.ErrCodeTooLarge)
			}
		})
	}
}

func TestCacheStats(t *testing.T) {
	st, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache() error = %v", err)
	}
	logger := log.New(io.Discard)
	stats := observability.NewCacheStats()
	observability.SetCacheHooks(stats)
	defer observability.Reset()

	s, err := New(Config{
		Store:  st,
		Runner: pipeline.NewRunner(fc, nil, logger),
		Stats:  stats,
		Logger: logger,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp := do(t, http.MethodGet, ts.URL+"/cache/stats", nil)
	wantStatus(t, resp, http.StatusOK)
	if rep := decode[observability.CacheReport](t, resp); rep.Requests != 0 {
		t.Errorf("fresh stats = %+v, want zero", rep)
	}

	for range 2 {
		wantStatus(t, do(t, http.MethodPost, ts.URL+"/layout?algorithm=grid", sampleDocument()), http.StatusOK)
	}

	rep := decode[observability.CacheReport](t, do(t, http.MethodGet, ts.URL+"/cache/stats", nil))
	if rep.Requests != 2 || rep.Hits != 1 || rep.Misses != 1 || rep.HitRate != 50 {
		t.Errorf("stats = %+v, want 1 hit and 1 miss", rep)
	}
	if l := rep.ByType["layout"]; l.Sets != 1 || l.Bytes == 0 {
		t.Errorf("layout counts = %+v, want one write", l)
	}
}
