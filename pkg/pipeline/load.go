package pipeline

import (
	"context"
	"io"
	"os"
	"time"

	apperrors "github.com/matzehuels/causalcanvas/pkg/errors"
	"github.com/matzehuels/causalcanvas/pkg/graph"
	"github.com/matzehuels/causalcanvas/pkg/observability"
)

// Load decodes a document from r. source names it in hook events.
func Load(ctx context.Context, r io.Reader, source string) (graph.Document, error) {
	hooks := observability.Pipeline()
	hooks.OnLoadStart(ctx, source)
	start := time.Now()

	doc, err := graph.Read(r)
	if err != nil {
		err = apperrors.Wrap(apperrors.ErrCodeInvalidDocument, err, "load %s", source)
	}
	hooks.OnLoadComplete(ctx, source, len(doc.Nodes), len(doc.Edges), time.Since(start), err)
	return doc, err
}

// LoadFile reads a document from path, or from stdin when path is "-".
func LoadFile(ctx context.Context, path string) (graph.Document, error) {
	if path == "-" {
		return Load(ctx, os.Stdin, "stdin")
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return graph.Document{}, apperrors.Wrap(apperrors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return graph.Document{}, apperrors.Wrap(apperrors.ErrCodeInvalidPath, err, "open %s", path)
	}
	defer f.Close()
	return Load(ctx, f, path)
}
