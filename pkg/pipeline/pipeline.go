// Package pipeline runs the batch side of the editor: load a document,
// optionally re-layout it, and export it.
//
// The CLI, the HTTP server and the terminal editor's export key all go
// through this package so layout caching and output formats behave the same
// everywhere.
//
// # Stages
//
//  1. Load: read and decode a project document ([Load], [LoadFile])
//  2. Layout: run one of the layout algorithms; results are cached under a
//     hash of the document structure and the layout parameters
//  3. Render: produce SVG, PNG, DOT or JSON from the positions
//
// # Usage
//
//	runner := pipeline.NewRunner(c, nil, logger)
//	result, err := runner.Execute(ctx, doc, pipeline.Options{
//	    Algorithm: "hierarchical",
//	    Formats:   []string{"svg"},
//	})
//	svg := result.Artifacts["svg"]
package pipeline

import (
	"io"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/causalcanvas/pkg/cache"
	apperrors "github.com/matzehuels/causalcanvas/pkg/errors"
	"github.com/matzehuels/causalcanvas/pkg/graph"
	"github.com/matzehuels/causalcanvas/pkg/interaction"
	"github.com/matzehuels/causalcanvas/pkg/layout"
)

// =============================================================================
// Default Values
// =============================================================================

// DefaultLayoutTTL is how long a computed layout stays cached.
const DefaultLayoutTTL = 7 * 24 * time.Hour

// Format constants for output formats.
const (
	FormatSVG  = "svg"
	FormatPNG  = "png"
	FormatDOT  = "dot"
	FormatJSON = "json"
)

// ValidFormats lists the supported output formats.
var ValidFormats = []string{FormatSVG, FormatPNG, FormatDOT, FormatJSON}

// =============================================================================
// Options
// =============================================================================

// Options configures a pipeline run.
type Options struct {
	// Algorithm selects the layout. Empty keeps the document's positions
	// and only places nodes that have none.
	Algorithm string `json:"algorithm,omitempty"`

	// Layout holds the algorithm tunables. Zero fields take defaults.
	Layout layout.Config `json:"-"`

	Formats  []string `json:"formats,omitempty"`
	Detailed bool     `json:"detailed,omitempty"` // label edges in renders
	Refresh  bool     `json:"refresh,omitempty"`  // bypass the layout cache

	Theme  interaction.Theme `json:"-"`
	Logger *log.Logger       `json:"-"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Document is the input with computed positions applied.
	Document graph.Document

	// Layout holds the computed positions. Empty when no algorithm ran.
	Layout graph.Layout

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Report lists the document entries that were skipped.
	Report graph.Report

	Stats     Stats
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	NodeCount  int
	EdgeCount  int
	LayoutTime time.Duration
	RenderTime time.Duration
}

// CacheInfo tracks which stages hit the cache.
type CacheInfo struct {
	LayoutHit bool
}

// =============================================================================
// Validation
// =============================================================================

// ValidateFormat checks that a format is supported.
func ValidateFormat(format string) error {
	if !slices.Contains(ValidFormats, format) {
		return apperrors.New(apperrors.ErrCodeInvalidFormat,
			"invalid format: %q (must be one of: svg, png, dot, json)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are supported.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// algorithm resolves o.Algorithm. The zero Algorithm means "keep".
func (o *Options) algorithm() (layout.Algorithm, error) {
	if o.Algorithm == "" {
		return "", nil
	}
	a, err := layout.ParseAlgorithm(o.Algorithm)
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrCodeInvalidAlgorithm, err, "layout")
	}
	return a, nil
}

// SetDefaults fills in the formats and logger.
func (o *Options) SetDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// Validate checks the algorithm and formats.
func (o *Options) Validate() error {
	if _, err := o.algorithm(); err != nil {
		return err
	}
	return ValidateFormats(o.Formats)
}

// LayoutKeyOpts returns cache key options for layout computation.
func (o *Options) LayoutKeyOpts(a layout.Algorithm) cache.LayoutKeyOpts {
	return cache.LayoutKeyOpts{
		Algorithm:    string(a),
		NodeSpacing:  o.Layout.NodeSpacing,
		LayerSpacing: o.Layout.LayerSpacing,
		Iterations:   o.Layout.Iterations,
		Seed:         o.Layout.Seed,
	}
}
