// Package config loads the causalcanvas TOML configuration.
//
// The file lives at $XDG_CONFIG_HOME/causalcanvas/config.toml (or
// ~/.config/causalcanvas/config.toml). A missing file is not an error; every
// section falls back to [Default].
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/causalcanvas/pkg/canvas"
	"github.com/matzehuels/causalcanvas/pkg/geom"
	"github.com/matzehuels/causalcanvas/pkg/history"
	"github.com/matzehuels/causalcanvas/pkg/interaction"
	"github.com/matzehuels/causalcanvas/pkg/layout"
)

const appName = "causalcanvas"

// Config holds every configurable section.
type Config struct {
	Viewport    ViewportConfig    `toml:"viewport"`
	Interaction InteractionConfig `toml:"interaction"`
	History     HistoryConfig     `toml:"history"`
	Layout      LayoutConfig      `toml:"layout"`
	Theme       interaction.Theme `toml:"theme"`
	Store       StoreConfig       `toml:"store"`
	Cache       CacheConfig       `toml:"cache"`
	Enrich      EnrichConfig      `toml:"enrich"`
}

// ViewportConfig bounds the zoom factor.
type ViewportConfig struct {
	ZoomMin float64 `toml:"zoom_min"`
	ZoomMax float64 `toml:"zoom_max"`
}

// InteractionConfig tunes gesture recognition.
type InteractionConfig struct {
	DragThreshold float64  `toml:"drag_threshold"` // screen pixels
	WheelStep     float64  `toml:"wheel_step"`     // zoom factor per wheel notch
	HoverDelay    Duration `toml:"hover_delay"`
}

// HistoryConfig controls undo grouping.
type HistoryConfig struct {
	Throttle Duration `toml:"throttle"`
	Limit    int      `toml:"limit"` // 0 means unlimited
}

// LayoutConfig selects the default algorithm and its spacing.
type LayoutConfig struct {
	Algorithm    string  `toml:"algorithm"`
	NodeSpacing  float64 `toml:"node_spacing"`
	LayerSpacing float64 `toml:"layer_spacing"`
	Iterations   int     `toml:"iterations"`
	Seed         uint64  `toml:"seed"`
	Radius       float64 `toml:"radius"`
	Columns      int     `toml:"columns"`
	GridSpacing  float64 `toml:"grid_spacing"`
}

// StoreConfig selects the project store backend.
type StoreConfig struct {
	Backend  string `toml:"backend"` // "file" or "mongo"
	Dir      string `toml:"dir"`
	MongoURI string `toml:"mongo_uri"`
	Database string `toml:"database"`
}

// CacheConfig selects the layout and enrichment cache backend.
type CacheConfig struct {
	Backend   string   `toml:"backend"` // "file", "redis" or "none"
	Dir       string   `toml:"dir"`
	RedisAddr string   `toml:"redis_addr"`
	TTL       Duration `toml:"ttl"`
}

// EnrichConfig points at a remote rationale service. An empty endpoint
// selects the built-in heuristic.
type EnrichConfig struct {
	Endpoint string   `toml:"endpoint"`
	Timeout  Duration `toml:"timeout"`
	Retries  int      `toml:"retries"`
}

// Duration is a time.Duration written as a string ("500ms") in TOML.
type Duration struct{ time.Duration }

// D wraps d.
func D(d time.Duration) Duration { return Duration{d} }

func (d Duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", b, err)
	}
	d.Duration = v
	return nil
}

// Default returns the default configuration.
func Default() *Config {
	lc := layout.DefaultConfig()
	return &Config{
		Viewport: ViewportConfig{
			ZoomMin: geom.DefaultZoomBounds.Min,
			ZoomMax: geom.DefaultZoomBounds.Max,
		},
		Interaction: InteractionConfig{
			DragThreshold: interaction.DefaultDragThreshold,
			WheelStep:     interaction.DefaultWheelStep,
			HoverDelay:    D(canvas.DefaultHoverDelay),
		},
		History: HistoryConfig{Throttle: D(history.DefaultThrottle)},
		Layout: LayoutConfig{
			Algorithm:    string(layout.AlgorithmHierarchical),
			NodeSpacing:  lc.NodeSpacing,
			LayerSpacing: lc.LayerSpacing,
			Iterations:   lc.Iterations,
			Radius:       lc.Radius,
			Columns:      lc.Columns,
			GridSpacing:  lc.GridSpacing,
		},
		Theme: interaction.DefaultTheme(),
		Store: StoreConfig{
			Backend:  "file",
			Dir:      filepath.Join(DataDir(), "projects"),
			Database: appName,
		},
		Cache: CacheConfig{
			Backend: "file",
			Dir:     CacheDir(),
			TTL:     D(24 * time.Hour),
		},
		Enrich: EnrichConfig{Timeout: D(30 * time.Second), Retries: 3},
	}
}

// Dir returns the config directory, honoring XDG_CONFIG_HOME.
func Dir() string {
	return xdg("XDG_CONFIG_HOME", ".config")
}

// DataDir returns the data directory, honoring XDG_DATA_HOME.
func DataDir() string {
	return xdg("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

// CacheDir returns the cache directory, honoring XDG_CACHE_HOME.
func CacheDir() string {
	return xdg("XDG_CACHE_HOME", ".cache")
}

func xdg(env, fallback string) string {
	dir := os.Getenv(env)
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, fallback)
	}
	return filepath.Join(dir, appName)
}

// Path returns the default config file path.
func Path() string {
	return filepath.Join(Dir(), "config.toml")
}

// Load reads path (or [Path] when empty) over the defaults. A missing file
// yields the defaults; a malformed one is an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = Path()
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path (or [Path] when empty).
func Save(cfg *Config, path string) error {
	if path == "" {
		path = Path()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

// EnsureExists writes the defaults to path unless a file is already there.
func EnsureExists(path string) (created bool, err error) {
	if path == "" {
		path = Path()
	}
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	return true, Save(Default(), path)
}

// ZoomBounds returns the configured zoom range.
func (c *Config) ZoomBounds() geom.ZoomBounds {
	return geom.ZoomBounds{Min: c.Viewport.ZoomMin, Max: c.Viewport.ZoomMax}
}

// LayoutParams converts the layout section. Unset fields keep the layout
// package defaults.
func (c *Config) LayoutParams() layout.Config {
	lc := layout.DefaultConfig()
	l := c.Layout
	if l.NodeSpacing > 0 {
		lc.NodeSpacing = l.NodeSpacing
	}
	if l.LayerSpacing > 0 {
		lc.LayerSpacing = l.LayerSpacing
	}
	if l.Iterations > 0 {
		lc.Iterations = l.Iterations
	}
	if l.Radius > 0 {
		lc.Radius = l.Radius
	}
	if l.Columns > 0 {
		lc.Columns = l.Columns
	}
	if l.GridSpacing > 0 {
		lc.GridSpacing = l.GridSpacing
	}
	lc.Seed = l.Seed
	return lc
}

// Algorithm returns the configured default layout algorithm.
func (c *Config) Algorithm() (layout.Algorithm, error) {
	return layout.ParseAlgorithm(c.Layout.Algorithm)
}

// CanvasOptions converts the engine sections into canvas options. Callbacks,
// scheduler and logger are left for the host to fill in.
func (c *Config) CanvasOptions() canvas.Options {
	throttle := c.History.Throttle.Duration
	if throttle == 0 {
		throttle = -1
	}
	return canvas.Options{
		Layout:        c.LayoutParams(),
		Theme:         c.Theme,
		ZoomBounds:    c.ZoomBounds(),
		DragThreshold: c.Interaction.DragThreshold,
		WheelStep:     c.Interaction.WheelStep,
		HoverDelay:    c.Interaction.HoverDelay.Duration,
		Throttle:      throttle,
		HistoryLimit:  c.History.Limit,
	}
}
