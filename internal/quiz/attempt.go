package quiz

import (
	"fmt"

	"github.com/mahavihara/tutor/internal/catalog"
)

// State is the attempt state machine position.
type State string

const (
	StateNotStarted   State = "not_started"
	StateAskingEasy   State = "asking_easy"
	StateAskingMedium State = "asking_medium"
	StateAskingHard   State = "asking_hard"
	StateScored       State = "scored"
)

// PassThreshold is the number of correct answers required to pass.
const PassThreshold = 2

// Answer records one answered question within an attempt.
type Answer struct {
	QuestionID string `json:"question_id"`
	Chosen     string `json:"chosen"`
	Correct    string `json:"correct"`
	IsCorrect  bool   `json:"is_correct"`
}

// Attempt is a single quiz run over one concept: exactly three questions in
// strictly non-decreasing difficulty order (easy, medium, hard). The value
// is plain data so it serializes into session state unchanged.
type Attempt struct {
	ConceptID   string   `json:"concept_id"`
	QuestionIDs []string `json:"question_ids"` // easy, medium, hard
	Answers     []Answer `json:"answers"`
	State       State    `json:"state"`
}

// InsufficientBankError reports a content-catalog gap: a tier with too few
// questions to sustain quizzing on a concept. It is a configuration-level
// failure, not retried.
type InsufficientBankError struct {
	ConceptID string
	Tier      catalog.Tier
	Have      int
	Need      int
}

func (e *InsufficientBankError) Error() string {
	return fmt.Sprintf("question bank for %q has %d %s questions, need %d",
		e.ConceptID, e.Have, e.Tier, e.Need)
}

// minTierQuestions is the bank depth each tier must carry before a quiz may
// start, so retry and verification attempts have unseen questions to draw.
const minTierQuestions = 3

// Start selects the three questions for a fresh attempt. Selection per tier
// uses the maximum-information proxy in Bank.Pick, preferring questions not
// in seen. Fails fast with *InsufficientBankError when a tier is too thin;
// nothing is mutated in that case.
func Start(bank *Bank, conceptID string, abilityEstimate float64, seen map[string]bool) (*Attempt, error) {
	for _, tier := range catalog.Tiers {
		if have := len(bank.Tier(conceptID, tier)); have < minTierQuestions {
			return nil, &InsufficientBankError{
				ConceptID: conceptID,
				Tier:      tier,
				Have:      have,
				Need:      minTierQuestions,
			}
		}
	}

	attempt := &Attempt{
		ConceptID: conceptID,
		State:     StateAskingEasy,
	}
	picked := make(map[string]bool, len(seen))
	for id := range seen {
		picked[id] = true
	}
	for _, tier := range catalog.Tiers {
		q, err := bank.Pick(conceptID, tier, abilityEstimate, picked)
		if err != nil {
			return nil, err
		}
		attempt.QuestionIDs = append(attempt.QuestionIDs, q.ID)
		picked[q.ID] = true
	}
	return attempt, nil
}

// CurrentQuestionID returns the id of the question awaiting an answer, or ""
// once the attempt is scored.
func (a *Attempt) CurrentQuestionID() string {
	if len(a.Answers) >= len(a.QuestionIDs) {
		return ""
	}
	return a.QuestionIDs[len(a.Answers)]
}

// CurrentIndex returns the zero-based position of the pending question.
func (a *Attempt) CurrentIndex() int {
	return len(a.Answers)
}

// Done reports whether all three questions have been answered.
func (a *Attempt) Done() bool {
	return a.State == StateScored
}

// Record applies an answer to the pending question and advances the state
// machine. chosen must already be validated against the option set.
func (a *Attempt) Record(q catalog.Question, chosen string) error {
	if a.Done() {
		return fmt.Errorf("attempt already scored")
	}
	if q.ID != a.CurrentQuestionID() {
		return fmt.Errorf("answer for %q but current question is %q", q.ID, a.CurrentQuestionID())
	}

	a.Answers = append(a.Answers, Answer{
		QuestionID: q.ID,
		Chosen:     chosen,
		Correct:    q.Answer,
		IsCorrect:  chosen == q.Answer,
	})

	switch len(a.Answers) {
	case 1:
		a.State = StateAskingMedium
	case 2:
		a.State = StateAskingHard
	default:
		a.State = StateScored
	}
	return nil
}

// Score reports the attempt result. Pass iff correct count >= 2; the two
// outcomes are exhaustive and mutually exclusive.
func (a *Attempt) Score() (passed bool, correct int) {
	for _, ans := range a.Answers {
		if ans.IsCorrect {
			correct++
		}
	}
	return correct >= PassThreshold, correct
}

// WrongAnswers returns the answers that missed, in presentation order. The
// orchestrator retains these for diagnosis after a failed attempt and drops
// them on a pass.
func (a *Attempt) WrongAnswers() []Answer {
	var wrong []Answer
	for _, ans := range a.Answers {
		if !ans.IsCorrect {
			wrong = append(wrong, ans)
		}
	}
	return wrong
}

// SeenIDs returns the attempt's question ids as a set.
func (a *Attempt) SeenIDs() map[string]bool {
	seen := make(map[string]bool, len(a.QuestionIDs))
	for _, id := range a.QuestionIDs {
		seen[id] = true
	}
	return seen
}
