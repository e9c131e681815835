package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/causalcanvas/pkg/cache"
	"github.com/matzehuels/causalcanvas/pkg/graph"
	"github.com/matzehuels/causalcanvas/pkg/observability"
)

const layoutKeyType = "layout"

var hash = cache.Hash

// Runner encapsulates pipeline execution with caching.
//
// The Runner is stateless except for the cache and logger. Multiple
// goroutines can safely use the same Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
	TTL    time.Duration
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Keyer: keyer, Logger: logger, TTL: DefaultLayoutTTL}
}

// Execute lays out doc (when opts.Algorithm is set) and renders every
// requested format.
func (r *Runner) Execute(ctx context.Context, doc graph.Document, opts Options) (*Result, error) {
	opts.SetDefaults()
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	result := &Result{Document: doc}

	if opts.Algorithm != "" {
		start := time.Now()
		l, hit, err := r.LayoutWithCacheInfo(ctx, doc, opts)
		if err != nil {
			return nil, fmt.Errorf("layout: %w", err)
		}
		result.Layout = l
		result.Document = l.Apply(doc)
		result.Stats.LayoutTime = time.Since(start)
		result.CacheInfo.LayoutHit = hit

		r.Logger.Info("computed layout",
			"algorithm", l.Algorithm,
			"nodes", len(l.Positions),
			"cached", hit,
			"duration", result.Stats.LayoutTime)
	}

	d, rep := placed(result.Document, opts.Layout)
	result.Report = rep
	result.Stats.NodeCount = len(d.Nodes)
	result.Stats.EdgeCount = len(d.Edges)
	for _, p := range rep.Problems {
		r.Logger.Warn("skipped entry", "problem", p)
	}

	hooks := observability.Pipeline()
	start := time.Now()
	for _, f := range opts.Formats {
		hooks.OnRenderStart(ctx, f)
	}
	artifacts, err := Render(doc.Project, d, opts)
	result.Stats.RenderTime = time.Since(start)
	for _, f := range opts.Formats {
		hooks.OnRenderComplete(ctx, f, result.Stats.RenderTime, err)
	}
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"duration", result.Stats.RenderTime)
	return result, nil
}

// LayoutWithCacheInfo computes a layout with caching and reports whether
// it came from the cache.
func (r *Runner) LayoutWithCacheInfo(ctx context.Context, doc graph.Document, opts Options) (graph.Layout, bool, error) {
	a, err := opts.algorithm()
	if err != nil {
		return graph.Layout{}, false, err
	}
	if a == "" {
		return graph.Layout{}, false, fmt.Errorf("no layout algorithm given")
	}

	cacheHooks := observability.Cache()
	cacheKey := r.Keyer.LayoutKey(structureHash(doc), opts.LayoutKeyOpts(a))

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			if cached, err := graph.UnmarshalLayout(data); err == nil {
				cacheHooks.OnCacheHit(ctx, layoutKeyType)
				return cached, true, nil
			}
		} else if err != nil {
			r.Logger.Warn("cache read failed", "err", err)
		}
		cacheHooks.OnCacheMiss(ctx, layoutKeyType)
	}

	hooks := observability.Pipeline()
	hooks.OnLayoutStart(ctx, string(a), len(doc.Nodes))
	start := time.Now()
	l, _, err := GenerateLayout(doc, a, opts.Layout)
	hooks.OnLayoutComplete(ctx, string(a), time.Since(start), err)
	if err != nil {
		return graph.Layout{}, false, err
	}

	if data, err := graph.MarshalLayout(l); err == nil {
		if err := r.Cache.Set(ctx, cacheKey, data, r.TTL); err != nil {
			r.Logger.Warn("cache write failed", "err", err)
		} else {
			cacheHooks.OnCacheSet(ctx, layoutKeyType, len(data))
		}
	}
	return l, false, nil
}

// Layout is a convenience wrapper that calls LayoutWithCacheInfo and
// discards the cache hit info.
func (r *Runner) Layout(ctx context.Context, doc graph.Document, opts Options) (graph.Layout, error) {
	l, _, err := r.LayoutWithCacheInfo(ctx, doc, opts)
	return l, err
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
