package enrich

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/causalcanvas/pkg/canvas"
	"github.com/matzehuels/causalcanvas/pkg/diagram"
)

// Resolver turns edge requests from a canvas into proposed edges and fills
// in their rationale asynchronously. Install [Resolver.EdgeRequested] as
// the canvas's EdgeRequested callback.
type Resolver struct {
	Canvas   *canvas.Canvas
	Enricher Enricher
	Timeout  time.Duration
	Logger   *log.Logger

	// Go runs background work. The default starts a goroutine.
	Go func(func())
}

// EdgeRequested commits key as a PROPOSED edge with a guessed relation and
// starts enrichment for it.
func (r *Resolver) EdgeRequested(key diagram.EdgeKey) {
	d := r.Canvas.State()
	from, _ := d.Node(key.From)
	to, _ := d.Node(key.To)

	err := r.Canvas.CommitEdge(diagram.Edge{
		From:     key.From,
		To:       key.To,
		Relation: SuggestRelation(from.Label, to.Label),
		Status:   diagram.StatusProposed,
	})
	if err != nil {
		r.logger().Warn("edge rejected", "edge", key, "err", err)
		return
	}
	if r.Enricher == nil {
		return
	}

	run := r.Go
	if run == nil {
		run = func(f func()) { go f() }
	}
	run(func() { r.enrich(key, from.Label, to.Label) })
}

func (r *Resolver) enrich(key diagram.EdgeKey, from, to string) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	card, err := r.Enricher.Rationale(ctx, from, to)
	if err != nil {
		r.logger().Warn("enrichment failed", "edge", key, "err", err)
		return
	}
	if !r.Canvas.ResolveEdge(key, card.Merge) {
		r.logger().Debug("edge gone before enrichment finished", "edge", key)
	}
}

func (r *Resolver) logger() *log.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return log.Default()
}
