// Package cache provides the byte-level caches behind layout results and
// edge enrichment responses.
//
// Three backends implement [Cache]:
//   - [FileCache]: JSON files under the user cache directory, for the CLI
//     and the terminal editor
//   - [RedisCache]: a shared Redis instance, for the HTTP server
//   - [NullCache]: caching disabled
//
// Keys are built by a [Keyer] so every caller hashes the same inputs the
// same way:
//
//	k := cache.NewDefaultKeyer()
//	key := k.LayoutKey(cache.Hash(docJSON), cache.LayoutKeyOpts{Algorithm: "force"})
//	data, hit, err := c.Get(ctx, key)
package cache

import (
	"context"
	"time"
)

// Cache is a byte-level key/value cache with per-entry expiry.
//
// Get reports a miss as (nil, false, nil); only backend failures are errors.
// A ttl of zero stores the entry without expiry.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Clearer is implemented by caches that can drop every entry they own.
type Clearer interface {
	Clear(ctx context.Context) (int, error)
}

// Keyer builds cache keys.
type Keyer interface {
	// HTTPKey identifies a cached HTTP response body.
	HTTPKey(namespace, key string) string
	// LayoutKey identifies a layout result for a document content hash.
	LayoutKey(docHash string, opts LayoutKeyOpts) string
	// RationaleKey identifies an enrichment result for an edge between two
	// labels.
	RationaleKey(fromLabel, toLabel string) string
}

// LayoutKeyOpts are the layout inputs besides the document itself.
type LayoutKeyOpts struct {
	Algorithm    string  `json:"algorithm"`
	NodeSpacing  float64 `json:"node_spacing,omitempty"`
	LayerSpacing float64 `json:"layer_spacing,omitempty"`
	Iterations   int     `json:"iterations,omitempty"`
	Seed         uint64  `json:"seed,omitempty"`
}

// DefaultKeyer hashes key inputs with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

func (DefaultKeyer) HTTPKey(namespace, key string) string {
	return "http:" + namespace + ":" + key
}

func (DefaultKeyer) LayoutKey(docHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", docHash, opts)
}

func (DefaultKeyer) RationaleKey(fromLabel, toLabel string) string {
	return hashKey("rationale", fromLabel, toLabel)
}
