package enrich

import (
	"context"
	"strings"

	"github.com/matzehuels/causalcanvas/pkg/diagram"
)

// Heuristic answers without a model: every edge gets the same generic
// card.
type Heuristic struct{}

// FallbackCard is the card returned when no better answer is available.
func FallbackCard() Card {
	return Card{
		Mechanisms:         []string{"plausible pathway"},
		Assumptions:        []string{"ceteris paribus"},
		LikelyConfounders:  []string{"baseline differences"},
		PriorEvidenceTypes: []string{"observational", "experimental"},
	}
}

func (Heuristic) Rationale(ctx context.Context, from, to string) (Card, error) {
	return FallbackCard(), nil
}

var negationCues = []string{
	"not", "no", "never", "cannot", "can't", "won't", "n't",
	"however", "but", "contradict", "versus", "oppose",
}

// SuggestRelation guesses the relation between two labels: CONTRADICTS when
// either mentions a negation or contrast, SUPPORTS otherwise. Cues match
// as substrings, so "note" counts as "not".
func SuggestRelation(from, to string) diagram.Relation {
	text := strings.ToLower(from + " " + to)
	for _, w := range negationCues {
		if strings.Contains(text, w) {
			return diagram.RelationContradicts
		}
	}
	return diagram.RelationSupports
}

// Suggest proposes up to limit edges between the nodes, pairing them in
// order. Every suggestion is PROPOSED.
func Suggest(nodes []diagram.Node, limit int) []diagram.Edge {
	limit = max(1, min(32, limit))
	var out []diagram.Edge
	for i := range nodes {
		for j := i + 1; j < len(nodes); j++ {
			if len(out) == limit {
				return out
			}
			a, b := nodes[i], nodes[j]
			out = append(out, diagram.Edge{
				From:     a.ID,
				To:       b.ID,
				Relation: SuggestRelation(a.Label, b.Label),
				Status:   diagram.StatusProposed,
			})
		}
	}
	return out
}
