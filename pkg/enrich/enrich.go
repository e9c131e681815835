// Package enrich annotates proposed edges with a rationale card: plausible
// mechanisms, assumptions, likely confounders and the kinds of evidence
// that would bear on the claim A → B.
//
// Enrichment is asynchronous. A [Resolver] commits a requested edge as
// PROPOSED right away, asks an [Enricher] for a card in the background and
// merges the answer through canvas.ResolveEdge. If the edge was deleted in
// the meantime the answer is dropped.
//
// [Client] calls a remote service; [Heuristic] produces the canned card the
// service falls back to and needs no network. [Fallback] combines the two.
package enrich

import (
	"context"
	"strings"

	"github.com/matzehuels/causalcanvas/pkg/diagram"
)

// MaxItems caps every list of a card.
const MaxItems = 8

// Card is the rationale for a proposed edge.
type Card struct {
	Mechanisms         []string `json:"mechanisms"`
	Assumptions        []string `json:"assumptions"`
	LikelyConfounders  []string `json:"likely_confounders"`
	PriorEvidenceTypes []string `json:"prior_evidence_types"`
}

// Enricher produces a card for an edge between two labels.
type Enricher interface {
	Rationale(ctx context.Context, from, to string) (Card, error)
}

// IsEmpty reports whether every list is empty.
func (c Card) IsEmpty() bool {
	return len(c.Mechanisms)+len(c.Assumptions)+len(c.LikelyConfounders)+len(c.PriorEvidenceTypes) == 0
}

// Clean drops blank entries, trims the rest and caps each list at
// [MaxItems].
func (c Card) Clean() Card {
	return Card{
		Mechanisms:         clean(c.Mechanisms),
		Assumptions:        clean(c.Assumptions),
		LikelyConfounders:  clean(c.LikelyConfounders),
		PriorEvidenceTypes: clean(c.PriorEvidenceTypes),
	}
}

func clean(items []string) []string {
	out := []string{}
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
		if len(out) == MaxItems {
			break
		}
	}
	return out
}

// Summary renders the card as the one-paragraph rationale stored on an
// edge.
func (c Card) Summary() string {
	var parts []string
	add := func(name string, items []string) {
		if len(items) > 0 {
			parts = append(parts, name+": "+strings.Join(items, ", "))
		}
	}
	add("mechanisms", c.Mechanisms)
	add("assumptions", c.Assumptions)
	add("confounders", c.LikelyConfounders)
	add("evidence", c.PriorEvidenceTypes)
	return strings.Join(parts, "; ")
}

// Merge returns an edge update that stores the card's summary as the
// rationale. A rationale the user already wrote is kept.
func (c Card) Merge(e diagram.Edge) diagram.Edge {
	if e.Rationale == "" {
		e.Rationale = c.Summary()
	}
	return e
}
