package server

import (
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/causalcanvas/pkg/buildinfo"
	apperrors "github.com/matzehuels/causalcanvas/pkg/errors"
	"github.com/matzehuels/causalcanvas/pkg/graph"
	"github.com/matzehuels/causalcanvas/pkg/pipeline"
	"github.com/matzehuels/causalcanvas/pkg/store"
)

// =============================================================================
// Request and Response Types
// =============================================================================

type titleRequest struct {
	Title string `json:"title"`
}

type saveResponse struct {
	store.SaveResult
	Skipped []string `json:"skipped,omitempty"`
}

type layoutResponse struct {
	Layout   graph.Layout   `json:"layout"`
	Cached   bool           `json:"cached"`
	Document graph.Document `json:"document"`
	Skipped  []string       `json:"skipped,omitempty"`
}

type rationaleRequest struct {
	AName string `json:"a_name"`
	BName string `json:"b_name"`
}

// =============================================================================
// Health
// =============================================================================

type healthResponse struct {
	Status string         `json:"status"`
	Build  buildinfo.Info `json:"build"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, healthResponse{Status: "ok", Build: buildinfo.Get()})
}

// =============================================================================
// Projects
// =============================================================================

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.List(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if list == nil {
		list = []store.Summary{}
	}
	respondJSON(w, http.StatusOK, list)
}

func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	var req titleRequest
	if err := decodeOptionalJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := apperrors.ValidateTitle(req.Title); err != nil {
		s.respondError(w, r, err)
		return
	}
	p, err := s.store.Create(r.Context(), req.Title)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.log.Info("created project", "id", p.ID, "title", p.Title)
	respondJSON(w, http.StatusCreated, p)
}

func (s *Server) importProject(w http.ResponseWriter, r *http.Request) {
	doc, err := s.readDocument(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	p, err := s.store.Import(r.Context(), doc)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.log.Info("imported project", "id", p.ID, "nodes", len(doc.Nodes), "edges", len(doc.Edges))
	respondJSON(w, http.StatusCreated, p)
}

func (s *Server) getProject(w http.ResponseWriter, r *http.Request) {
	doc, err := s.store.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, doc)
}

func (s *Server) renameProject(w http.ResponseWriter, r *http.Request) {
	var req titleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := apperrors.ValidateTitle(req.Title); err != nil {
		s.respondError(w, r, err)
		return
	}
	p, err := s.store.Rename(r.Context(), chi.URLParam(r, "id"), req.Title)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (s *Server) deleteProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.Delete(r.Context(), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.log.Info("deleted project", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) saveProject(w http.ResponseWriter, r *http.Request) {
	doc, err := s.readDocument(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	res, err := s.store.Save(r.Context(), chi.URLParam(r, "id"), doc)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	for _, p := range res.Report.Problems {
		s.log.Warn("save skipped entry", "project", res.ProjectID, "problem", p)
	}
	respondJSON(w, http.StatusOK, saveResponse{SaveResult: res, Skipped: res.Report.Problems})
}

func (s *Server) exportProject(w http.ResponseWriter, r *http.Request) {
	doc, err := s.store.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportName(doc.Project)))
	if err := graph.Write(doc, w); err != nil {
		s.log.Error("export failed", "project", doc.Project.ID, "err", err)
	}
}

// =============================================================================
// Layout and Render
// =============================================================================

func (s *Server) layoutProject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	doc, err := s.store.Load(ctx, id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	resp, err := s.runLayout(r, doc)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if _, err := s.store.Save(ctx, id, resp.Document); err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) layoutDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.readDocument(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	resp, err := s.runLayout(r, doc)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// runLayout lays out doc with the algorithm named by the "algorithm" query
// parameter, or the server default. "refresh=true" bypasses the cache.
func (s *Server) runLayout(r *http.Request, doc graph.Document) (layoutResponse, error) {
	q := r.URL.Query()
	algo := q.Get("algorithm")
	if algo == "" {
		algo = string(s.algo)
	}
	refresh, _ := strconv.ParseBool(q.Get("refresh"))
	opts := pipeline.Options{Algorithm: algo, Layout: s.layout, Refresh: refresh}

	l, hit, err := s.runner.LayoutWithCacheInfo(r.Context(), doc, opts)
	if err != nil {
		return layoutResponse{}, err
	}
	_, rep := graph.ToDiagram(doc)
	return layoutResponse{
		Layout:   l,
		Cached:   hit,
		Document: l.Apply(doc),
		Skipped:  rep.Problems,
	}, nil
}

func (s *Server) renderProject(w http.ResponseWriter, r *http.Request) {
	doc, err := s.store.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	detailed, _ := strconv.ParseBool(r.URL.Query().Get("detailed"))
	res, err := s.runner.Execute(r.Context(), doc, pipeline.Options{
		Formats:  []string{pipeline.FormatSVG},
		Detailed: detailed,
		Layout:   s.layout,
		Theme:    s.theme,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	w.Write(res.Artifacts[pipeline.FormatSVG])
}

// =============================================================================
// Enrichment
// =============================================================================

func (s *Server) rationale(w http.ResponseWriter, r *http.Request) {
	var req rationaleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	req.AName, req.BName = strings.TrimSpace(req.AName), strings.TrimSpace(req.BName)
	if req.AName == "" || req.BName == "" {
		s.respondError(w, r, apperrors.New(apperrors.ErrCodeInvalidInput, "a_name and b_name are required"))
		return
	}
	card, err := s.enricher.Rationale(r.Context(), req.AName, req.BName)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, card.Clean())
}

// =============================================================================
// Cache
// =============================================================================

func (s *Server) cacheStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.stats.Snapshot())
}

// =============================================================================
// Helpers
// =============================================================================

func (s *Server) readDocument(w http.ResponseWriter, r *http.Request) (graph.Document, error) {
	doc, err := pipeline.Load(r.Context(), http.MaxBytesReader(w, r.Body, maxBodyBytes), "request")
	if err != nil {
		return doc, tooLarge(err)
	}
	return doc, nil
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// exportName turns a project title into a download file name.
func exportName(p graph.Project) string {
	name := strings.Trim(unsafeName.ReplaceAllString(p.Title, "_"), "_")
	if name == "" {
		name = "project_" + p.ID
	}
	return name + ".json"
}
