// Package server exposes projects, layouts and renders over HTTP.
//
// The API mirrors what a browser front end of the editor needs: project
// CRUD backed by a [store.Store], save and import in the project document
// format, server-side layout and SVG render through a [pipeline.Runner], and
// a rationale endpoint compatible with [enrich.Client].
//
// # Routes
//
//	GET    /healthz
//	GET    /projects
//	POST   /projects
//	POST   /projects/import
//	GET    /projects/{id}
//	PATCH  /projects/{id}
//	DELETE /projects/{id}
//	POST   /projects/{id}/save
//	GET    /projects/{id}/export
//	POST   /projects/{id}/layout?algorithm=
//	GET    /projects/{id}/render.svg
//	POST   /layout?algorithm=
//	POST   /edge/rationale
//	GET    /cache/stats
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/causalcanvas/pkg/enrich"
	"github.com/matzehuels/causalcanvas/pkg/interaction"
	"github.com/matzehuels/causalcanvas/pkg/layout"
	"github.com/matzehuels/causalcanvas/pkg/observability"
	"github.com/matzehuels/causalcanvas/pkg/pipeline"
	"github.com/matzehuels/causalcanvas/pkg/store"
)

const (
	// maxBodyBytes caps request bodies.
	maxBodyBytes = 8 << 20

	shutdownTimeout = 10 * time.Second
)

// Config holds the collaborators of a [Server].
type Config struct {
	Store    store.Store
	Runner   *pipeline.Runner
	Enricher enrich.Enricher

	// Algorithm is used when a layout request names none.
	Algorithm layout.Algorithm
	Layout    layout.Config
	Theme     interaction.Theme

	// Stats backs GET /cache/stats. The caller registers it with
	// [observability.SetCacheHooks]; nil reports zeros.
	Stats *observability.CacheStats

	Logger *log.Logger
}

// Server handles HTTP requests.
type Server struct {
	store    store.Store
	runner   *pipeline.Runner
	enricher enrich.Enricher
	algo     layout.Algorithm
	layout   layout.Config
	theme    interaction.Theme
	stats    *observability.CacheStats
	log      *log.Logger
}

// New returns a server for cfg. Store and Runner are required.
func New(cfg Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, errors.New("server: store is required")
	}
	if cfg.Runner == nil {
		return nil, errors.New("server: runner is required")
	}
	if cfg.Enricher == nil {
		cfg.Enricher = enrich.Heuristic{}
	}
	if cfg.Algorithm == "" {
		cfg.Algorithm = layout.AlgorithmHierarchical
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	return &Server{
		store:    cfg.Store,
		runner:   cfg.Runner,
		enricher: cfg.Enricher,
		algo:     cfg.Algorithm,
		layout:   cfg.Layout,
		theme:    cfg.Theme,
		stats:    cfg.Stats,
		log:      cfg.Logger,
	}, nil
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger(s.log))

	r.Get("/healthz", s.health)

	r.Route("/projects", func(r chi.Router) {
		r.Get("/", s.listProjects)
		r.Post("/", s.createProject)
		r.Post("/import", s.importProject)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getProject)
			r.Patch("/", s.renameProject)
			r.Delete("/", s.deleteProject)
			r.Post("/save", s.saveProject)
			r.Get("/export", s.exportProject)
			r.Post("/layout", s.layoutProject)
			r.Get("/render.svg", s.renderProject)
		})
	})

	r.Post("/layout", s.layoutDocument)
	r.Post("/edge/rationale", s.rationale)
	r.Get("/cache/stats", s.cacheStats)
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// requestLogger logs one line per request.
func requestLogger(l *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			l.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start).Round(time.Microsecond),
				"request_id", chimiddleware.GetReqID(r.Context()),
			)
		})
	}
}
