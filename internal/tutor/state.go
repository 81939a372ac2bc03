// Package tutor is the session orchestrator: it owns session state, drives
// the lesson/qa/quiz/evaluate/prescription phase machine, and invokes the
// other engine components. All external collaborators (text generation,
// resource search, persistence, analytics) enter through interfaces.
package tutor

import (
	"time"

	"github.com/mahavihara/tutor/internal/catalog"
	"github.com/mahavihara/tutor/internal/diagnosis"
	"github.com/mahavihara/tutor/internal/prescribe"
	"github.com/mahavihara/tutor/internal/quiz"
)

// Phase is the orchestrator's position in the tutoring loop.
type Phase string

const (
	PhaseLesson       Phase = "lesson"
	PhaseQA           Phase = "qa"
	PhaseQuiz         Phase = "quiz"
	PhaseEvaluate     Phase = "evaluate" // transient: resolved within the scoring turn
	PhasePrescription Phase = "prescription"
	PhaseComplete     Phase = "complete"
)

// SessionState is the complete mutable state of one tutoring session. Owned
// exclusively by the orchestrator; serialized as JSON into the session
// store between turns.
type SessionState struct {
	ID            string                     `json:"id"`
	Phase         Phase                      `json:"phase"`
	ConceptID     string                     `json:"concept_id"`
	Mastery       map[string]float64         `json:"mastery"`
	Quiz          *quiz.Attempt              `json:"quiz,omitempty"`
	Seen          []string                   `json:"seen,omitempty"` // question ids shown this session
	LastWrong     []quiz.Answer              `json:"last_wrong,omitempty"`
	Diagnosis     *diagnosis.Diagnosis       `json:"diagnosis,omitempty"`
	Prescription  *prescribe.Prescription    `json:"prescription,omitempty"`
	TeachingTurns int                        `json:"teaching_turns"`
	CreatedAt     time.Time                  `json:"created_at"`
	UpdatedAt     time.Time                  `json:"updated_at"`
}

// seenSet returns the shown-question ids as a set.
func (s *SessionState) seenSet() map[string]bool {
	seen := make(map[string]bool, len(s.Seen))
	for _, id := range s.Seen {
		seen[id] = true
	}
	return seen
}

// markSeen records question ids as shown, keeping the list deduplicated.
func (s *SessionState) markSeen(ids ...string) {
	seen := s.seenSet()
	for _, id := range ids {
		if !seen[id] {
			s.Seen = append(s.Seen, id)
			seen[id] = true
		}
	}
}

// SessionSnapshot is the static view returned by StartSession.
type SessionSnapshot struct {
	SessionID      string             `json:"session_id"`
	Phase          Phase              `json:"phase"`
	Mastery        map[string]float64 `json:"mastery"`
	CurrentConcept string             `json:"current_concept"`
	Messages       []string           `json:"messages,omitempty"`
}

// TurnResult is the engine's structured decision for one chat turn. Prose in
// Messages is rendered by the text-generation collaborator; everything else
// is computed by the core and is authoritative.
type TurnResult struct {
	SessionID      string                  `json:"session_id"`
	Phase          Phase                   `json:"phase"`
	Mastery        map[string]float64      `json:"mastery"`
	CurrentConcept string                  `json:"current_concept"`
	Messages       []string                `json:"messages,omitempty"`
	Question       *catalog.Question       `json:"question,omitempty"` // pending quiz question
	QuestionIndex  int                     `json:"question_index,omitempty"`
	Diagnosis      *diagnosis.Diagnosis    `json:"diagnosis,omitempty"`
	Prescription   *prescribe.Prescription `json:"prescription,omitempty"`
	QuizPassed     *bool                   `json:"quiz_passed,omitempty"`
	CanAdvance     bool                    `json:"can_advance"`
	NextConcept    string                  `json:"next_concept,omitempty"`
	JustMastered   bool                    `json:"just_mastered"`
	GateWarnings   []string                `json:"gate_warnings,omitempty"` // advisory, never blocking
}

// DecisionKind names the engine decision a renderer turns into prose.
type DecisionKind string

const (
	DecisionLesson       DecisionKind = "lesson"
	DecisionSocratic     DecisionKind = "socratic"
	DecisionQuizQuestion DecisionKind = "quiz_question"
	DecisionFeedback     DecisionKind = "feedback"
	DecisionDiagnosis    DecisionKind = "diagnosis"
	DecisionCelebration  DecisionKind = "celebration"
	DecisionComplete     DecisionKind = "complete"
)

// Decision is the structured input to the text-generation collaborator. The
// engine never produces prose itself.
type Decision struct {
	Kind          DecisionKind
	SessionID     string
	Concept       catalog.Concept
	StudentInput  string
	Question      *catalog.Question
	QuestionIndex int
	LastAnswer    *quiz.Answer
	Diagnosis     *diagnosis.Diagnosis
	Prescription  *prescribe.Prescription
	JustMastered  bool
}
