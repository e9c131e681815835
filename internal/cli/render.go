package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/causalcanvas/pkg/pipeline"
)

// renderOpts holds the flags of the render command.
type renderOpts struct {
	output    string
	formats   []string
	algorithm string // empty keeps the document's positions
	detailed  bool   // label edges with relation and status
	noCache   bool
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var formatsStr string
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render [project.json]",
		Short: "Render a project document to SVG, PNG, DOT or JSON",
		Long: `Render a project document to SVG, PNG, DOT or JSON.

Nodes keep their stored positions; nodes without one get a default grid slot.
Pass --algorithm to lay the document out first. With a single format,
"-o -" writes to stdout.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.formats = parseFormats(formatsStr)
			if err := pipeline.ValidateFormats(opts.formats); err != nil {
				return err
			}
			return c.runRender(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), png, dot, json (comma-separated)")
	cmd.Flags().StringVarP(&opts.algorithm, "algorithm", "a", "", "lay out before rendering: "+algorithmList())
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "label edges with relation and status")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable layout caching")

	return cmd
}

func (c *CLI) runRender(ctx context.Context, input string, opts renderOpts) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	prog := newProgress(c.Logger)

	doc, err := pipeline.LoadFile(ctx, input)
	if err != nil {
		return err
	}
	c.Logger.Debugf("Loaded %s: %d nodes, %d edges", input, len(doc.Nodes), len(doc.Edges))

	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	result, err := runner.Execute(ctx, doc, pipeline.Options{
		Algorithm: opts.algorithm,
		Layout:    cfg.LayoutParams(),
		Formats:   opts.formats,
		Detailed:  opts.detailed,
		Theme:     cfg.Theme,
		Logger:    c.Logger,
	})
	if err != nil {
		return err
	}
	for _, p := range result.Report.Problems {
		printWarning("skipped %s", p)
	}

	if len(opts.formats) == 1 && opts.output == "-" {
		_, err := os.Stdout.Write(result.Artifacts[opts.formats[0]])
		return err
	}

	base := basePath(opts.output, input)
	for _, format := range opts.formats {
		path := base + "." + format
		if len(opts.formats) == 1 && opts.output != "" {
			path = opts.output
		}
		if err := writeOutput(path, result.Artifacts[format]); err != nil {
			return err
		}
		printFile(path)
	}
	printStats(result.Stats.NodeCount, result.Stats.EdgeCount, result.CacheInfo.LayoutHit)
	prog.done("Rendered " + strings.Join(opts.formats, ", "))
	return nil
}

// basePath derives the base output path. A known format extension on
// output is stripped; with no output the input's extension is.
func basePath(output, input string) string {
	if output == "" {
		return derivedPath(input, "")
	}
	ext := filepath.Ext(output)
	if slices.Contains(pipeline.ValidFormats, strings.TrimPrefix(ext, ".")) {
		return strings.TrimSuffix(output, ext)
	}
	return output
}

func writeOutput(path string, data []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
