package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/causalcanvas/internal/server"
	"github.com/matzehuels/causalcanvas/pkg/observability"
)

const defaultAddr = "127.0.0.1:8080"

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve projects, layouts and renders over HTTP",
		Long: `Serve projects, layouts and renders over HTTP.

Projects come from the configured store (file or mongo). Layouts are cached
in the configured cache (file, redis or none). The rationale endpoint uses
the configured enrichment service, or the built-in heuristic.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), addr, noCache)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", defaultAddr, "listen address")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable layout caching")
	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr string, noCache bool) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	algo, err := cfg.Algorithm()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	st, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	stats := observability.NewCacheStats()
	observability.SetCacheHooks(stats)
	defer observability.Reset()

	srv, err := server.New(server.Config{
		Store:     st,
		Runner:    runner,
		Enricher:  c.newEnricher(cfg, runner.Cache),
		Algorithm: algo,
		Layout:    cfg.LayoutParams(),
		Theme:     cfg.Theme,
		Stats:     stats,
		Logger:    c.Logger,
	})
	if err != nil {
		return err
	}

	printInfo("Serving on %s", StyleLink.Render("http://"+addr))
	printKeyValue("Store", cfg.Store.Backend)
	printKeyValue("Cache", cfg.Cache.Backend)
	return srv.ListenAndServe(ctx, addr)
}
