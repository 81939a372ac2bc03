package diagnosis

import (
	"github.com/mahavihara/tutor/internal/ability"
	"github.com/mahavihara/tutor/internal/graph"
)

// TraceRootCause finds the weakest concept in the failed concept's ancestor
// closure (the failed concept included). Ties at the minimum mastery prefer
// the concept closest to the failure by prerequisite hops, favoring
// actionable nearby gaps over distant ones. When the failed concept itself
// is weakest there is no deeper prerequisite gap and it is its own root
// cause.
//
// Confidence is the normalized gap below the mastery threshold:
// clamp((0.6 - mastery)/0.6, 0, 1).
func TraceRootCause(g *graph.Graph, mastery map[string]float64, failedConceptID string) (string, float64) {
	rootCause := failedConceptID
	lowest := ability.Of(mastery, failedConceptID)
	bestHops := 0

	for ancestor := range g.AllAncestors(failedConceptID) {
		score := ability.Of(mastery, ancestor)
		hops := g.HopsBetween(failedConceptID, ancestor)
		switch {
		case score < lowest:
			rootCause, lowest, bestHops = ancestor, score, hops
		case score == lowest && hops >= 0 && hops < bestHops:
			rootCause, bestHops = ancestor, hops
		case score == lowest && hops == bestHops && ancestor < rootCause:
			// Hop ties resolve by id so the trace is deterministic.
			rootCause = ancestor
		}
	}

	confidence := ability.Clamp((graph.MasteryThreshold-lowest)/graph.MasteryThreshold, 0, 1)
	return rootCause, confidence
}
