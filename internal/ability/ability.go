// Package ability maintains the per-concept mastery estimate. The update
// rule is a bounded increment, not a full IRT fit: quiz evidence moves
// mastery proportionally to how far the result sits from a coin flip.
package ability

import "math"

const (
	// DefaultMastery is the neutral starting score for an unseen concept.
	DefaultMastery = 0.3

	// Alpha is the learning rate. Chosen so one perfect 3/3 quiz lifts the
	// 0.3 default to the 0.6 mastery threshold (0.3 + 0.6*0.5 = 0.6), and
	// one 0/3 quiz bottoms out at the clamp instead of going negative.
	Alpha = 0.6

	// EvidenceIncrement is the nudge applied when an external signal scores
	// a QA turn as demonstrating understanding.
	EvidenceIncrement = 0.05

	// QuizLength is the fixed number of questions per quiz attempt.
	QuizLength = 3
)

// Update applies quiz evidence to a mastery score:
//
//	new = clamp(old + Alpha*(correct/3 - 0.5), 0, 1)
//
// A 3/3 adds 0.3, a 0/3 subtracts 0.3, a 2/3 adds 0.1.
func Update(old float64, correct int) float64 {
	return Clamp(old+Alpha*(float64(correct)/QuizLength-0.5), 0, 1)
}

// Nudge applies the small positive QA-evidence increment.
func Nudge(old float64) float64 {
	return Clamp(old+EvidenceIncrement, 0, 1)
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// ProbabilityCorrect is the logistic response model on the [0,1] scale:
// when ability equals difficulty the expected success rate is 0.5. The CAT
// selector uses proximity of difficulty to ability directly; this helper
// exists for event payloads and diagnostics.
func ProbabilityCorrect(ability, difficulty float64) float64 {
	// Spread the unit interval across roughly [-3, 3] logits.
	return 1.0 / (1.0 + math.Exp(-6*(ability-difficulty)))
}

// Of returns the mastery for a concept from a score map, defaulting unseen
// concepts to DefaultMastery.
func Of(mastery map[string]float64, conceptID string) float64 {
	if score, ok := mastery[conceptID]; ok {
		return score
	}
	return DefaultMastery
}
