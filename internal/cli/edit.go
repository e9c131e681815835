package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/causalcanvas/internal/editor"
	"github.com/matzehuels/causalcanvas/pkg/graph"
	"github.com/matzehuels/causalcanvas/pkg/layout"
	"github.com/matzehuels/causalcanvas/pkg/pipeline"
	"github.com/matzehuels/causalcanvas/pkg/store"
)

type editOpts struct {
	project   string
	title     string
	algorithm string
	warnings  string
	export    string
	logFile   string
}

// editCommand creates the edit command.
func (c *CLI) editCommand() *cobra.Command {
	var opts editOpts

	cmd := &cobra.Command{
		Use:   "edit [project.json]",
		Short: "Open a project in the terminal editor",
		Long: `Open a project in the mouse-driven terminal editor.

With a file argument, "s" saves back to that file. With --project the
project is loaded from and saved to the configured store. With neither, a new
project is created in the store.

Drag nodes to move them, shift+drag from a node (or use "e" for edge mode) to
connect, drag on empty space to lasso. Press "?" inside the editor for all
keys.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			if path != "" && opts.project != "" {
				return errors.New("give either a file or --project, not both")
			}
			return c.runEdit(cmd.Context(), path, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.project, "project", "p", "", "project id in the configured store")
	cmd.Flags().StringVar(&opts.title, "title", "", "title for a new project")
	cmd.Flags().StringVarP(&opts.algorithm, "algorithm", "a", "", "initial layout algorithm for \"l\" (default from config)")
	cmd.Flags().StringVar(&opts.warnings, "warnings", "", "JSON file of critique warnings to show as badges")
	cmd.Flags().StringVar(&opts.export, "export", "", "export path for \"w\" (default: <project>.svg)")
	cmd.Flags().StringVar(&opts.logFile, "log-file", "", "write editor logs to this file")

	return cmd
}

func (c *CLI) runEdit(ctx context.Context, path string, opts editOpts) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	if opts.algorithm == "" {
		opts.algorithm = cfg.Layout.Algorithm
	}
	algo, err := layout.ParseAlgorithm(opts.algorithm)
	if err != nil {
		return err
	}
	warnings, err := readWarnings(opts.warnings)
	if err != nil {
		return err
	}

	logger, closeLog, err := c.editorLogger(opts.logFile)
	if err != nil {
		return err
	}
	defer closeLog()

	ch, err := c.newCache(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer ch.Close()

	eopts := editor.Options{
		Path:       path,
		ExportPath: opts.export,
		Enricher:   c.newEnricher(cfg, ch),
		Algorithm:  algo,
		Canvas:     c.canvasOptions(cfg),
		Warnings:   warnings,
		Logger:     logger,
	}
	eopts.Canvas.Logger = logger

	if path != "" {
		doc, err := loadOrNew(ctx, path, opts.title)
		if err != nil {
			return err
		}
		eopts.Document = doc
		eopts.Project = doc.Project
	} else {
		st, err := c.openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		doc, err := openProject(ctx, st, opts)
		if err != nil {
			return err
		}
		eopts.Store = st
		eopts.Document = doc
		eopts.Project = doc.Project
	}
	if eopts.ExportPath == "" {
		eopts.ExportPath = derivedPath(exportBase(path, eopts.Project), ".svg")
	}

	final, err := editor.Run(ctx, eopts)
	if err != nil {
		return fmt.Errorf("editor: %w", err)
	}
	printSuccess("Closed %s", final.Project.Title)
	printStats(len(final.Nodes), len(final.Edges), false)
	return nil
}

// loadOrNew reads path, or starts an empty document when it does not exist
// yet.
func loadOrNew(ctx context.Context, path, title string) (graph.Document, error) {
	doc, err := pipeline.LoadFile(ctx, path)
	if err == nil {
		return doc, nil
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		return graph.Document{}, err
	}
	if title == "" {
		title = graph.DefaultTitle
	}
	return graph.Document{
		Project: graph.Project{Title: title},
		Nodes:   []graph.Node{},
		Edges:   []graph.Edge{},
	}, nil
}

func openProject(ctx context.Context, st store.Store, opts editOpts) (graph.Document, error) {
	if opts.project != "" {
		return st.Load(ctx, opts.project)
	}
	p, err := st.Create(ctx, opts.title)
	if err != nil {
		return graph.Document{}, err
	}
	printInfo("Created project %s", StyleHighlight.Render(p.ID))
	return st.Load(ctx, p.ID)
}

func exportBase(path string, p graph.Project) string {
	if path != "" {
		return path
	}
	return p.ID
}

// editorLogger returns a logger that does not write to the terminal the
// editor draws on.
func (c *CLI) editorLogger(path string) (*log.Logger, func(), error) {
	if path == "" {
		return newLogger(io.Discard, c.Logger.GetLevel()), func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return newLogger(f, c.Logger.GetLevel()), func() { f.Close() }, nil
}
