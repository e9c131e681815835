package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/causalcanvas/pkg/graph"
	"github.com/matzehuels/causalcanvas/pkg/layout"
	"github.com/matzehuels/causalcanvas/pkg/pipeline"
)

type layoutOpts struct {
	algorithm  string
	output     string
	noCache    bool
	refresh    bool
	layoutOnly bool
}

// layoutCommand creates the layout command.
func (c *CLI) layoutCommand() *cobra.Command {
	var opts layoutOpts

	cmd := &cobra.Command{
		Use:   "layout [project.json]",
		Short: "Compute node positions for a project document",
		Long: `Compute node positions for a project document.

The input is a project export ({project, nodes, edges}). The output is the
same document with x and y filled in, or with --layout-only just the list of
positions. Use "-" to read from stdin.

Algorithms: ` + algorithmList() + `. Results are cached by the
document's structure, so moving nodes by hand does not invalidate them.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLayout(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.algorithm, "algorithm", "a", "", "layout algorithm (default from config)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: <input>.layout.json)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "recompute even when cached")
	cmd.Flags().BoolVar(&opts.layoutOnly, "layout-only", false, "write only the computed positions")

	return cmd
}

func (c *CLI) runLayout(ctx context.Context, input string, opts layoutOpts) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	if opts.algorithm == "" {
		opts.algorithm = cfg.Layout.Algorithm
	}

	doc, err := pipeline.LoadFile(ctx, input)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := newSpinner(ctx, fmt.Sprintf("Computing %s layout...", opts.algorithm))
	spinner.Start()

	l, cacheHit, err := runner.LayoutWithCacheInfo(ctx, doc, pipeline.Options{
		Algorithm: opts.algorithm,
		Layout:    cfg.LayoutParams(),
		Refresh:   opts.refresh,
	})
	if err != nil {
		spinner.StopWithError("Layout failed")
		return fmt.Errorf("compute layout: %w", err)
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	outputPath := opts.output
	if outputPath == "" {
		outputPath = derivedPath(input, ".layout.json")
	}

	if opts.layoutOnly {
		err = graph.WriteLayoutFile(l, outputPath)
	} else {
		err = graph.WriteFile(l.Apply(doc), outputPath)
	}
	if err != nil {
		return fmt.Errorf("write output %s: %w", outputPath, err)
	}

	printSuccess("Layout complete")
	printFile(outputPath)
	printStats(len(doc.Nodes), len(doc.Edges), cacheHit)
	printNewline()
	printNextStep("Render", appName+" render "+outputPath)
	return nil
}

// derivedPath replaces the extension of input with suffix. Stdin input
// derives from "canvas".
func derivedPath(input, suffix string) string {
	if input == "-" {
		input = "canvas"
	}
	return strings.TrimSuffix(input, filepath.Ext(input)) + suffix
}

func algorithmList() string {
	algos := layout.Algorithms()
	names := make([]string, len(algos))
	for i, a := range algos {
		names[i] = string(a)
	}
	return strings.Join(names, ", ")
}
