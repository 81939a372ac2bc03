// Package quiz implements the adaptive tester: the question bank index and
// the single-attempt state machine that walks easy -> medium -> hard and
// scores the result.
package quiz

import (
	"fmt"
	"math"
	"sort"

	"github.com/mahavihara/tutor/internal/catalog"
)

// Bank is an immutable question index by (concept, tier). Safe for
// concurrent reads.
type Bank struct {
	byConceptTier map[string]map[catalog.Tier][]catalog.Question
	byID          map[string]catalog.Question
}

// NewBank indexes the catalog's questions. Within a tier questions are kept
// sorted by id so selection tie-breaks are deterministic.
func NewBank(cat *catalog.Catalog) *Bank {
	b := &Bank{
		byConceptTier: make(map[string]map[catalog.Tier][]catalog.Question),
		byID:          make(map[string]catalog.Question, len(cat.Questions)),
	}
	for _, q := range cat.Questions {
		tiers, ok := b.byConceptTier[q.ConceptID]
		if !ok {
			tiers = make(map[catalog.Tier][]catalog.Question)
			b.byConceptTier[q.ConceptID] = tiers
		}
		tiers[q.Tier] = append(tiers[q.Tier], q)
		b.byID[q.ID] = q
	}
	for _, tiers := range b.byConceptTier {
		for tier := range tiers {
			qs := tiers[tier]
			sort.Slice(qs, func(i, j int) bool { return qs[i].ID < qs[j].ID })
		}
	}
	return b
}

// Question returns a question by id.
func (b *Bank) Question(id string) (catalog.Question, bool) {
	q, ok := b.byID[id]
	return q, ok
}

// Tier returns the bank questions for a concept and tier, sorted by id.
func (b *Bank) Tier(conceptID string, tier catalog.Tier) []catalog.Question {
	return b.byConceptTier[conceptID][tier]
}

// Pick selects one question from a tier using the maximum-information proxy:
// the unseen question whose empirical difficulty is closest to the ability
// estimate, ties broken by lowest id (the slice is already id-sorted). When
// every tier question has been seen, the full tier is reconsidered so a
// retry attempt can still run.
func (b *Bank) Pick(conceptID string, tier catalog.Tier, abilityEstimate float64, seen map[string]bool) (catalog.Question, error) {
	all := b.Tier(conceptID, tier)
	if len(all) == 0 {
		return catalog.Question{}, fmt.Errorf("no %s questions for concept %q", tier, conceptID)
	}

	pool := all[:0:0]
	for _, q := range all {
		if !seen[q.ID] {
			pool = append(pool, q)
		}
	}
	if len(pool) == 0 {
		pool = all
	}

	best := pool[0]
	bestGap := math.Abs(pool[0].Difficulty - abilityEstimate)
	for _, q := range pool[1:] {
		if gap := math.Abs(q.Difficulty - abilityEstimate); gap < bestGap {
			best, bestGap = q, gap
		}
	}
	return best, nil
}

// PracticeSet returns up to n questions for a concept, lowest tiers first,
// excluding the given ids. Used by the prescription builder's Practice phase.
func (b *Bank) PracticeSet(conceptID string, n int, exclude map[string]bool) []string {
	var out []string
	for _, tier := range catalog.Tiers {
		for _, q := range b.Tier(conceptID, tier) {
			if exclude[q.ID] {
				continue
			}
			out = append(out, q.ID)
			if len(out) == n {
				return out
			}
		}
	}
	return out
}
