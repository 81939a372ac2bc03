// Package prescribe turns a diagnosis into a phased remediation plan: watch
// the best resource for the root cause, practice targeted problems, then
// verify with a fresh quiz on the originally failed concept.
package prescribe

import (
	"fmt"

	"github.com/mahavihara/tutor/internal/ability"
	"github.com/mahavihara/tutor/internal/diagnosis"
	"github.com/mahavihara/tutor/internal/graph"
	"github.com/mahavihara/tutor/internal/quiz"
	"github.com/mahavihara/tutor/internal/search"
)

// Action names a prescription phase.
type Action string

const (
	ActionWatch    Action = "watch"
	ActionPractice Action = "practice"
	ActionVerify   Action = "verify"
)

// phaseMinutes is the fixed duration estimate per action type.
var phaseMinutes = map[Action]int{
	ActionWatch:    5,
	ActionPractice: 10,
	ActionVerify:   2,
}

// Phase is one step of the plan. Resource may be nil when no candidate was
// available; QuestionIDs apply to Practice and Verify.
type Phase struct {
	Action          Action            `json:"action"`
	ConceptID       string            `json:"concept_id"`
	Resource        *search.Candidate `json:"resource,omitempty"`
	QuestionIDs     []string          `json:"question_ids,omitempty"`
	DurationMinutes int               `json:"duration_minutes"`
	Gate            string            `json:"gate"` // human-readable completion criterion
}

// Prescription is the full plan for one failure event. Phases are strictly
// ordered; phase k cannot complete before phase k-1.
type Prescription struct {
	Diagnosis    diagnosis.Diagnosis `json:"diagnosis"`
	Phases       []Phase             `json:"phases"`
	TotalMinutes int                 `json:"total_minutes"`
	LearningPath []string            `json:"learning_path,omitempty"` // weak ancestors, ordinal order
	Completed    []bool              `json:"completed"`
}

// CompletePhase marks phase k done. Completing out of order is rejected.
func (p *Prescription) CompletePhase(k int) error {
	if k < 0 || k >= len(p.Phases) {
		return fmt.Errorf("phase %d out of range", k)
	}
	if k > 0 && !p.Completed[k-1] {
		return fmt.Errorf("phase %d cannot complete before phase %d", k, k-1)
	}
	p.Completed[k] = true
	return nil
}

// NextPhase returns the index of the first incomplete phase, or -1 when the
// whole plan is done.
func (p *Prescription) NextPhase() int {
	for i, done := range p.Completed {
		if !done {
			return i
		}
	}
	return -1
}

// Builder assembles prescriptions from the static catalogs.
type Builder struct {
	graph   *graph.Graph
	bank    *quiz.Bank
	quality func(source string) float64 // static source trust table
}

// NewBuilder creates a prescription builder. quality resolves a source name
// to its trust score (catalog.SourceQuality).
func NewBuilder(g *graph.Graph, bank *quiz.Bank, quality func(source string) float64) *Builder {
	return &Builder{graph: g, bank: bank, quality: quality}
}

// difficultySlack widens the Watch resource filter slightly above the target
// concept's base difficulty.
const difficultySlack = 0.1

// Build produces the three-phase plan. candidates come from the search
// collaborator for the root-cause concept; seenQuestionIDs are the failed
// quiz's questions, excluded from Practice and avoided by Verify.
func (b *Builder) Build(
	diag diagnosis.Diagnosis,
	candidates []search.Candidate,
	mastery map[string]float64,
	seenQuestionIDs map[string]bool,
) (*Prescription, error) {
	target, ok := b.graph.Concept(diag.RootCauseConceptID)
	if !ok {
		return nil, fmt.Errorf("unknown root-cause concept %q", diag.RootCauseConceptID)
	}

	watch := Phase{
		Action:          ActionWatch,
		ConceptID:       target.ID,
		Resource:        b.pickResource(candidates, target.BaseDifficulty),
		DurationMinutes: phaseMinutes[ActionWatch],
		Gate:            "watched the recommended resource",
	}
	// Anchor the video at the misconception when the resource itself has no
	// timestamp of its own.
	if watch.Resource != nil && watch.Resource.Timestamp == "" && diag.Misconception != nil {
		watch.Resource.Timestamp = diag.Misconception.Anchor
	}

	practice := Phase{
		Action:          ActionPractice,
		ConceptID:       target.ID,
		QuestionIDs:     b.bank.PracticeSet(target.ID, ability.QuizLength, seenQuestionIDs),
		DurationMinutes: phaseMinutes[ActionPractice],
		Gate:            "worked the practice problems",
	}

	verifyAttempt, err := quiz.Start(b.bank, diag.FailedConceptID, ability.Of(mastery, diag.FailedConceptID), seenQuestionIDs)
	if err != nil {
		return nil, fmt.Errorf("selecting verification quiz: %w", err)
	}
	verify := Phase{
		Action:          ActionVerify,
		ConceptID:       diag.FailedConceptID,
		QuestionIDs:     verifyAttempt.QuestionIDs,
		DurationMinutes: phaseMinutes[ActionVerify],
		Gate:            fmt.Sprintf("answer at least %d of %d correctly", quiz.PassThreshold, ability.QuizLength),
	}

	phases := []Phase{watch, practice, verify}
	total := 0
	for _, ph := range phases {
		total += ph.DurationMinutes
	}

	return &Prescription{
		Diagnosis:    diag,
		Phases:       phases,
		TotalMinutes: total,
		LearningPath: b.learningPath(diag.FailedConceptID, mastery),
		Completed:    make([]bool, len(phases)),
	}, nil
}

// pickResource applies the selection policy: highest quality candidate whose
// difficulty tag is at most base+slack; if none qualifies, highest quality
// overall. Candidates arrive quality-sorted from the searcher but the policy
// does not rely on that.
func (b *Builder) pickResource(candidates []search.Candidate, baseDifficulty float64) *search.Candidate {
	pick := func(filtered bool) *search.Candidate {
		var best *search.Candidate
		bestQuality := -1.0
		for i := range candidates {
			c := &candidates[i]
			if filtered && c.Difficulty > baseDifficulty+difficultySlack {
				continue
			}
			if q := b.quality(c.Source); q > bestQuality {
				best, bestQuality = c, q
			}
		}
		return best
	}
	if best := pick(true); best != nil {
		out := *best
		return &out
	}
	if best := pick(false); best != nil {
		out := *best
		return &out
	}
	return nil
}

// learningPath lists every weak concept on the way to the failed one, in
// ordinal order, for UI display.
func (b *Builder) learningPath(failedConceptID string, mastery map[string]float64) []string {
	weak := make(map[string]bool)
	for id := range b.graph.AllAncestors(failedConceptID) {
		if ability.Of(mastery, id) < graph.MasteryThreshold {
			weak[id] = true
		}
	}
	if ability.Of(mastery, failedConceptID) < graph.MasteryThreshold {
		weak[failedConceptID] = true
	}

	var path []string
	for _, id := range b.graph.Concepts() {
		if weak[id] {
			path = append(path, id)
		}
	}
	return path
}
