// Package cli implements the causalcanvas command-line interface.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/causalcanvas/pkg/buildinfo"
	"github.com/matzehuels/causalcanvas/pkg/cache"
	"github.com/matzehuels/causalcanvas/pkg/canvas"
	"github.com/matzehuels/causalcanvas/pkg/config"
	"github.com/matzehuels/causalcanvas/pkg/enrich"
	"github.com/matzehuels/causalcanvas/pkg/pipeline"
	"github.com/matzehuels/causalcanvas/pkg/store"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "causalcanvas"

	cacheBackendRedis = "redis"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// ConfigPath overrides the default config file location.
	ConfigPath string
	cfg        *config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Causalcanvas edits and lays out causal graphs",
		Long: `Causalcanvas is an interactive node-link editor for causal graphs.

It lays out project documents, renders them to SVG, PNG or DOT, opens them in
a mouse-driven terminal editor, and serves projects over HTTP.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.ConfigPath, "config", "", "config file (default: "+config.Path()+")")

	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.validateCommand())
	root.AddCommand(c.editCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Config
// =============================================================================

// config loads the config file once per process.
func (c *CLI) config() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.Load(c.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	c.cfg = cfg
	return cfg, nil
}

// canvasOptions returns the configured canvas options with the CLI logger.
func (c *CLI) canvasOptions(cfg *config.Config) canvas.Options {
	opts := cfg.CanvasOptions()
	opts.Logger = c.Logger
	return opts
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	ch, err := c.newCache(ctx, cfg, noCache)
	if err != nil {
		return nil, err
	}
	r := pipeline.NewRunner(ch, nil, c.Logger)
	if ttl := cfg.Cache.TTL.Duration; ttl > 0 {
		r.TTL = ttl
	}
	return r, nil
}

// newCache opens the configured cache backend. An unreachable Redis falls
// back to no caching.
func (c *CLI) newCache(ctx context.Context, cfg *config.Config, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	dir := cfg.Cache.Dir
	if dir == "" {
		dir = config.CacheDir()
	}
	ch, err := cache.Open(ctx, cfg.Cache.Backend, dir, cfg.Cache.RedisAddr)
	if err != nil && cfg.Cache.Backend == cacheBackendRedis {
		c.Logger.Warn("redis cache unavailable, caching disabled", "err", err)
		return cache.NewNullCache(), nil
	}
	return ch, err
}

// =============================================================================
// Collaborators
// =============================================================================

func (c *CLI) openStore(ctx context.Context) (store.Store, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	s := cfg.Store
	st, err := store.Open(ctx, s.Backend, s.Dir, s.MongoURI, s.Database)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", s.Backend, err)
	}
	return st, nil
}

// newEnricher returns the remote rationale client when an endpoint is
// configured, backed by the heuristic when it fails. ch caches cards.
func (c *CLI) newEnricher(cfg *config.Config, ch cache.Cache) enrich.Enricher {
	e := cfg.Enrich
	if e.Endpoint == "" {
		return enrich.Heuristic{}
	}
	client := enrich.NewClient(enrich.ClientConfig{
		Endpoint: e.Endpoint,
		Timeout:  e.Timeout.Duration,
		Retries:  e.Retries,
		Cache:    ch,
		Logger:   c.Logger,
	})
	return enrich.Fallback{Primary: client, Logger: c.Logger}
}

// readWarnings loads critique warnings from a JSON array file.
func readWarnings(path string) ([]canvas.Warning, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var ws []canvas.Warning
	if err := json.Unmarshal(data, &ws); err != nil {
		return nil, fmt.Errorf("parse warnings %s: %w", path, err)
	}
	return ws, nil
}

// =============================================================================
// Options Helpers
// =============================================================================

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.FormatSVG}
	}
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
