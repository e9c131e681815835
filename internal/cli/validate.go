package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/causalcanvas/pkg/graph"
	"github.com/matzehuels/causalcanvas/pkg/pipeline"
)

// validateCommand creates the validate command.
func (c *CLI) validateCommand() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate [project.json]",
		Short: "Check a project document for entries the editor would skip",
		Long: `Check a project document for entries the editor would skip.

Nodes without an id, duplicate ids, edges with a missing endpoint and
self-loops are reported. Without --strict they are only warnings, matching
how saves and imports treat them.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runValidate(cmd.Context(), args[0], strict)
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "fail when any entry would be skipped")
	return cmd
}

func (c *CLI) runValidate(ctx context.Context, input string, strict bool) error {
	doc, err := pipeline.LoadFile(ctx, input)
	if err != nil {
		return err
	}
	d, rep := graph.ToDiagram(doc)

	printKeyValue("Project", doc.Project.Title)
	printKeyValue("Nodes", fmt.Sprintf("%d of %d kept", len(d.Nodes), len(doc.Nodes)))
	printKeyValue("Edges", fmt.Sprintf("%d of %d kept", len(d.Edges), len(doc.Edges)))
	for _, p := range rep.Problems {
		printWarning("%s", p)
	}

	if rep.OK() {
		printSuccess("Document is valid")
		return nil
	}
	if strict {
		return fmt.Errorf("%s: %d entries would be skipped", input, len(rep.Problems))
	}
	printInfo("%d entries would be skipped", len(rep.Problems))
	return nil
}
