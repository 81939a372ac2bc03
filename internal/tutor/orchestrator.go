package tutor

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mahavihara/tutor/internal/ability"
	"github.com/mahavihara/tutor/internal/catalog"
	"github.com/mahavihara/tutor/internal/diagnosis"
	"github.com/mahavihara/tutor/internal/graph"
	"github.com/mahavihara/tutor/internal/prescribe"
	"github.com/mahavihara/tutor/internal/quiz"
	"github.com/mahavihara/tutor/internal/search"
)

// Renderer turns an engine decision into prose for the student. The
// orchestrator treats rendering as best-effort: a failed render drops the
// message but never fails the turn.
type Renderer interface {
	Render(ctx context.Context, d Decision) (string, error)
}

// Config holds orchestrator dependencies.
type Config struct {
	Catalog  *catalog.Catalog
	Store    SessionStore   // default: in-memory
	Events   EventLogger    // default: nop
	Renderer Renderer       // optional; nil disables prose
	Searcher search.Searcher // default: curated catalog resources
}

// Orchestrator drives tutoring sessions. All state transitions follow the
// compute-then-commit rule: a turn mutates a private copy of session state
// and persists it only after every decision in the turn succeeded.
type Orchestrator struct {
	cat        *catalog.Catalog
	graph      *graph.Graph
	bank       *quiz.Bank
	store      SessionStore
	events     EventLogger
	renderer   Renderer
	searcher   search.Searcher
	classifier *diagnosis.Classifier
	builder    *prescribe.Builder

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// New creates an orchestrator over a loaded catalog.
func New(cfg Config) *Orchestrator {
	store := cfg.Store
	if store == nil {
		store = NewMemoryStore()
	}
	events := cfg.Events
	if events == nil {
		events = NopEventLogger{}
	}
	searcher := cfg.Searcher
	if searcher == nil {
		searcher = search.NewCurated(cfg.Catalog)
	}
	g := graph.New(cfg.Catalog)
	bank := quiz.NewBank(cfg.Catalog)
	return &Orchestrator{
		cat:        cfg.Catalog,
		graph:      g,
		bank:       bank,
		store:      store,
		events:     events,
		renderer:   cfg.Renderer,
		searcher:   searcher,
		classifier: diagnosis.NewClassifier(cfg.Catalog),
		builder:    prescribe.NewBuilder(g, bank, cfg.Catalog.SourceQuality),
	}
}

// Graph exposes the prerequisite graph for read-only collaborators.
func (o *Orchestrator) Graph() *graph.Graph { return o.graph }

// lockSession serializes turns per session id. Distinct sessions proceed
// concurrently.
func (o *Orchestrator) lockSession(id string) func() {
	o.locksMu.Lock()
	if o.locks == nil {
		o.locks = make(map[string]*sync.Mutex)
	}
	l, ok := o.locks[id]
	if !ok {
		l = &sync.Mutex{}
		o.locks[id] = l
	}
	o.locksMu.Unlock()
	l.Lock()
	return l.Unlock
}

func newSessionID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand failure is unrecoverable for id generation
		panic(fmt.Sprintf("reading random session id: %v", err))
	}
	return hex.EncodeToString(b[:])
}

// cloneState deep-copies session state through its JSON form, so a failed
// turn cannot leave partial mutations behind.
func cloneState(s *SessionState) (*SessionState, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("cloning session %q: %w", s.ID, err)
	}
	var out SessionState
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("cloning session %q: %w", s.ID, err)
	}
	return &out, nil
}

// StartSession resumes an existing session or creates a new one. When
// existingID is unknown (or empty) a fresh session starts at the curriculum
// root with default mastery everywhere.
func (o *Orchestrator) StartSession(ctx context.Context, existingID string) (*SessionSnapshot, error) {
	id := existingID
	if id == "" {
		id = newSessionID()
	}
	unlock := o.lockSession(id)
	defer unlock()

	if existingID != "" {
		state, err := o.store.Get(ctx, existingID)
		if err == nil {
			return o.snapshot(state), nil
		}
		if !isUnknownSession(err) {
			return nil, err
		}
	}

	now := time.Now().UTC()
	state := &SessionState{
		ID:        id,
		Phase:     PhaseLesson,
		ConceptID: o.graph.First(),
		Mastery:   map[string]float64{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := o.store.Put(ctx, state); err != nil {
		return nil, err
	}
	o.logEvent(Event{
		SessionID: id,
		EventType: EventSessionStarted,
		Data:      map[string]any{"concept_id": state.ConceptID},
	})

	snap := o.snapshot(state)
	if concept, ok := o.graph.Concept(state.ConceptID); ok {
		if prose := o.renderProse(ctx, Decision{Kind: DecisionLesson, SessionID: id, Concept: concept}); prose != "" {
			snap.Messages = append(snap.Messages, prose)
		}
	}
	return snap, nil
}

func (o *Orchestrator) snapshot(state *SessionState) *SessionSnapshot {
	return &SessionSnapshot{
		SessionID:      state.ID,
		Phase:          state.Phase,
		Mastery:        copyMastery(state.Mastery),
		CurrentConcept: state.ConceptID,
	}
}

// Advance processes one student turn. On any error the stored state is
// untouched and the student may retry.
func (o *Orchestrator) Advance(ctx context.Context, sessionID, input string) (*TurnResult, error) {
	unlock := o.lockSession(sessionID)
	defer unlock()

	stored, err := o.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	work, err := cloneState(stored)
	if err != nil {
		return nil, err
	}

	result, err := o.step(ctx, work, input)
	if err != nil {
		return nil, err
	}

	work.UpdatedAt = time.Now().UTC()
	if err := o.store.Put(ctx, work); err != nil {
		return nil, err
	}
	return result, nil
}

// GraphState renders the session's knowledge graph. Read-only: calling it
// never changes stored state.
func (o *Orchestrator) GraphState(ctx context.Context, sessionID string) (graph.State, error) {
	state, err := o.store.Get(ctx, sessionID)
	if err != nil {
		return graph.State{}, err
	}
	return o.graph.Render(state.Mastery, ability.DefaultMastery), nil
}

// DeleteSession removes a session permanently.
func (o *Orchestrator) DeleteSession(ctx context.Context, sessionID string) error {
	unlock := o.lockSession(sessionID)
	defer unlock()
	return o.store.Delete(ctx, sessionID)
}

// ApplyEvidence nudges mastery for a concept on out-of-band positive
// evidence, such as a strong answer during discussion. Returns the updated
// mastery value.
func (o *Orchestrator) ApplyEvidence(ctx context.Context, sessionID, conceptID string) (float64, error) {
	unlock := o.lockSession(sessionID)
	defer unlock()

	stored, err := o.store.Get(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	if err := o.graph.Validate(conceptID); err != nil {
		return 0, validationErrorf("unknown concept %q", conceptID)
	}
	work, err := cloneState(stored)
	if err != nil {
		return 0, err
	}

	old := ability.Of(work.Mastery, conceptID)
	updated := ability.Nudge(old)
	if work.Mastery == nil {
		work.Mastery = map[string]float64{}
	}
	work.Mastery[conceptID] = updated
	work.UpdatedAt = time.Now().UTC()
	if err := o.store.Put(ctx, work); err != nil {
		return 0, err
	}
	o.logEvent(Event{
		SessionID: sessionID,
		EventType: EventEvidenceApplied,
		Data:      map[string]any{"concept_id": conceptID, "mastery": updated},
	})
	return updated, nil
}

// step performs all decision-making for a turn against the working copy.
func (o *Orchestrator) step(ctx context.Context, work *SessionState, input string) (*TurnResult, error) {
	res := &TurnResult{SessionID: work.ID}

	if work.Phase == PhaseQuiz {
		if err := o.stepQuiz(ctx, work, input, res); err != nil {
			return nil, err
		}
		o.finishTurn(work, res)
		return res, nil
	}

	in, target := parseIntent(input)
	var err error
	switch {
	case in == intentGoto:
		err = o.stepGoto(ctx, work, target, res)
	case in == intentQuiz || in == intentVerify:
		err = o.startQuiz(ctx, work, res)
	case in == intentContinue && work.Phase == PhasePrescription:
		// decline remediation, back to the lesson on the same concept
		work.Phase = PhaseLesson
		o.renderLesson(ctx, work, res)
	case in == intentContinue:
		err = o.stepContinue(ctx, work, res)
	case in == intentDone:
		err = o.stepDone(ctx, work, res)
	default:
		o.stepDiscussion(ctx, work, input, res)
	}
	if err != nil {
		return nil, err
	}
	o.finishTurn(work, res)
	return res, nil
}

// stepDiscussion handles free-form teaching turns.
func (o *Orchestrator) stepDiscussion(ctx context.Context, work *SessionState, input string, res *TurnResult) {
	switch work.Phase {
	case PhaseComplete:
		concept, _ := o.graph.Concept(work.ConceptID)
		o.render(ctx, res, Decision{Kind: DecisionComplete, Concept: concept})
		return
	case PhaseLesson:
		work.Phase = PhaseQA
	}
	work.TeachingTurns++

	conceptID := work.ConceptID
	if work.Phase == PhasePrescription && work.Diagnosis != nil {
		conceptID = work.Diagnosis.RootCauseConceptID
	}
	concept, _ := o.graph.Concept(conceptID)
	o.render(ctx, res, Decision{
		Kind:         DecisionSocratic,
		Concept:      concept,
		StudentInput: input,
		Diagnosis:    work.Diagnosis,
	})
}

// stepGoto jumps the session to an arbitrary concept. Prerequisite gating is
// advisory: the jump always succeeds, with warnings for unmastered
// prerequisites.
func (o *Orchestrator) stepGoto(ctx context.Context, work *SessionState, target string, res *TurnResult) error {
	if err := o.graph.Validate(target); err != nil {
		return validationErrorf("unknown concept %q", target)
	}
	res.GateWarnings = o.gateWarnings(target, work.Mastery)
	if len(res.GateWarnings) > 0 {
		o.logEvent(Event{
			SessionID: work.ID,
			EventType: EventConceptSkipped,
			Data:      map[string]any{"from": work.ConceptID, "to": target},
		})
	}
	work.ConceptID = target
	work.Phase = PhaseLesson
	work.Quiz = nil
	o.renderLesson(ctx, work, res)
	return nil
}

// stepContinue moves to the ordinal successor concept.
func (o *Orchestrator) stepContinue(ctx context.Context, work *SessionState, res *TurnResult) error {
	next := o.graph.NextConcept(work.ConceptID)
	if next == "" {
		return validationErrorf("%q is the last concept in the curriculum", work.ConceptID)
	}
	if ability.Of(work.Mastery, work.ConceptID) < graph.MasteryThreshold {
		res.GateWarnings = append(res.GateWarnings,
			fmt.Sprintf("moving on from %q before reaching mastery", work.ConceptID))
	}
	res.GateWarnings = append(res.GateWarnings, o.gateWarnings(next, work.Mastery)...)
	if len(res.GateWarnings) > 0 {
		o.logEvent(Event{
			SessionID: work.ID,
			EventType: EventConceptSkipped,
			Data:      map[string]any{"from": work.ConceptID, "to": next},
		})
	}
	work.ConceptID = next
	work.Phase = PhaseLesson
	work.Quiz = nil
	res.NextConcept = next
	o.renderLesson(ctx, work, res)
	return nil
}

// stepDone marks the next prescription phase complete. The verification
// phase can only complete by passing its quiz.
func (o *Orchestrator) stepDone(ctx context.Context, work *SessionState, res *TurnResult) error {
	if work.Prescription == nil {
		return validationErrorf("no active prescription to mark done")
	}
	k := work.Prescription.NextPhase()
	if k < 0 {
		return validationErrorf("the prescription is already complete")
	}
	if work.Prescription.Phases[k].Action == prescribe.ActionVerify {
		return validationErrorf("the remaining step is the verification quiz; say %q to start it", "verify")
	}
	if err := work.Prescription.CompletePhase(k); err != nil {
		return validationErrorf("%v", err)
	}
	res.Prescription = work.Prescription
	concept, _ := o.graph.Concept(work.ConceptID)
	o.render(ctx, res, Decision{
		Kind:         DecisionSocratic,
		Concept:      concept,
		Diagnosis:    work.Diagnosis,
		Prescription: work.Prescription,
	})
	return nil
}

// startQuiz selects three questions and enters the quiz phase. A thin bank
// tier fails the whole turn before any state changes.
func (o *Orchestrator) startQuiz(ctx context.Context, work *SessionState, res *TurnResult) error {
	conceptID := work.ConceptID
	if work.Phase == PhasePrescription && work.Diagnosis != nil {
		conceptID = work.Diagnosis.FailedConceptID
	}
	estimate := ability.Of(work.Mastery, conceptID)
	attempt, err := quiz.Start(o.bank, conceptID, estimate, work.seenSet())
	if err != nil {
		return err
	}
	work.Quiz = attempt
	work.Phase = PhaseQuiz
	work.markSeen(attempt.QuestionIDs...)
	return o.askCurrent(ctx, work, res)
}

// askCurrent surfaces the pending quiz question.
func (o *Orchestrator) askCurrent(ctx context.Context, work *SessionState, res *TurnResult) error {
	qid := work.Quiz.CurrentQuestionID()
	q, ok := o.bank.Question(qid)
	if !ok {
		return fmt.Errorf("quiz references unknown question %q", qid)
	}
	res.Question = &q
	res.QuestionIndex = work.Quiz.CurrentIndex()
	concept, _ := o.graph.Concept(work.Quiz.ConceptID)
	o.render(ctx, res, Decision{
		Kind:          DecisionQuizQuestion,
		Concept:       concept,
		Question:      &q,
		QuestionIndex: res.QuestionIndex,
	})
	return nil
}

// stepQuiz records an answer and, on the third, scores the attempt and
// routes to celebration or diagnosis.
func (o *Orchestrator) stepQuiz(ctx context.Context, work *SessionState, input string, res *TurnResult) error {
	attempt := work.Quiz
	if attempt == nil {
		return fmt.Errorf("session %q in quiz phase without an attempt", work.ID)
	}
	qid := attempt.CurrentQuestionID()
	q, ok := o.bank.Question(qid)
	if !ok {
		return fmt.Errorf("quiz references unknown question %q", qid)
	}
	chosen := normalizeAnswer(input)
	if !q.HasOption(chosen) {
		return validationErrorf("%q is not an option; answer with one of the letters shown", input)
	}
	if err := attempt.Record(q, chosen); err != nil {
		return err
	}
	answer := attempt.Answers[len(attempt.Answers)-1]
	o.logEvent(Event{
		SessionID: work.ID,
		EventType: EventAnswerSubmitted,
		Data: map[string]any{
			"question_id": q.ID,
			"chosen":      chosen,
			"correct":     answer.IsCorrect,
		},
	})
	concept, _ := o.graph.Concept(attempt.ConceptID)
	o.render(ctx, res, Decision{
		Kind:       DecisionFeedback,
		Concept:    concept,
		Question:   &q,
		LastAnswer: &answer,
	})

	if !attempt.Done() {
		return o.askCurrent(ctx, work, res)
	}
	return o.scoreQuiz(ctx, work, res)
}

func (o *Orchestrator) scoreQuiz(ctx context.Context, work *SessionState, res *TurnResult) error {
	attempt := work.Quiz
	passed, correct := attempt.Score()
	res.QuizPassed = &passed

	conceptID := attempt.ConceptID
	old := ability.Of(work.Mastery, conceptID)
	updated := ability.Update(old, correct)
	if work.Mastery == nil {
		work.Mastery = map[string]float64{}
	}
	work.Mastery[conceptID] = updated
	res.JustMastered = old < graph.MasteryThreshold && updated >= graph.MasteryThreshold

	o.logEvent(Event{
		SessionID: work.ID,
		EventType: EventQuizScored,
		Data:      map[string]any{"concept_id": conceptID, "passed": passed, "correct": correct},
	})
	o.logEvent(Event{
		SessionID: work.ID,
		EventType: EventMasteryUpdated,
		Data:      map[string]any{"concept_id": conceptID, "from": old, "to": updated},
	})

	work.Quiz = nil
	concept, _ := o.graph.Concept(conceptID)

	if passed {
		work.LastWrong = nil
		work.Diagnosis = nil
		work.Prescription = nil
		o.render(ctx, res, Decision{
			Kind:         DecisionCelebration,
			Concept:      concept,
			JustMastered: res.JustMastered,
		})
		if updated < graph.MasteryThreshold {
			// passed but not yet at threshold: stay and reinforce
			work.Phase = PhaseLesson
			return nil
		}
		next := o.graph.NextConcept(conceptID)
		if next == "" {
			work.Phase = PhaseComplete
			o.render(ctx, res, Decision{Kind: DecisionComplete, Concept: concept})
			return nil
		}
		work.ConceptID = next
		work.Phase = PhaseLesson
		res.NextConcept = next
		o.renderLesson(ctx, work, res)
		return nil
	}

	work.LastWrong = attempt.WrongAnswers()
	root, confidence := diagnosis.TraceRootCause(o.graph, work.Mastery, conceptID)
	var misconception *catalog.MisconceptionRecord
	if records := o.classifier.ClassifyBatch(work.LastWrong); len(records) > 0 {
		misconception = &records[0]
	}
	diag := diagnosis.Diagnosis{
		FailedConceptID:    conceptID,
		RootCauseConceptID: root,
		Misconception:      misconception,
		Confidence:         confidence,
	}
	work.Diagnosis = &diag

	rootConcept, _ := o.graph.Concept(root)
	candidates, err := o.searcher.Search(ctx, root, rootConcept.BaseDifficulty)
	if err != nil {
		slog.Warn("resource search failed", "concept_id", root, "error", err)
		candidates = nil
	}
	prescription, err := o.builder.Build(diag, candidates, work.Mastery, attempt.SeenIDs())
	if err != nil {
		return fmt.Errorf("building prescription: %w", err)
	}
	work.Prescription = prescription
	work.Phase = PhasePrescription
	res.Diagnosis = &diag
	res.Prescription = prescription

	o.logEvent(Event{
		SessionID: work.ID,
		EventType: EventPrescriptionIssued,
		Data: map[string]any{
			"failed_concept":     conceptID,
			"root_cause_concept": root,
			"confidence":         confidence,
			"total_minutes":      prescription.TotalMinutes,
		},
	})
	o.render(ctx, res, Decision{
		Kind:         DecisionDiagnosis,
		Concept:      concept,
		Diagnosis:    &diag,
		Prescription: prescription,
	})
	return nil
}

func (o *Orchestrator) renderLesson(ctx context.Context, work *SessionState, res *TurnResult) {
	concept, _ := o.graph.Concept(work.ConceptID)
	o.render(ctx, res, Decision{Kind: DecisionLesson, Concept: concept})
}

// gateWarnings lists the target's unmastered ancestors in ordinal order.
func (o *Orchestrator) gateWarnings(target string, mastery map[string]float64) []string {
	_, missing := o.graph.IsGated(target, mastery, ability.DefaultMastery)
	if len(missing) == 0 {
		return nil
	}
	warnings := make([]string, 0, len(missing))
	for _, id := range missing {
		warnings = append(warnings, fmt.Sprintf(
			"prerequisite %q is below mastery (%.2f < %.2f)",
			id, ability.Of(mastery, id), graph.MasteryThreshold))
	}
	return warnings
}

// finishTurn stamps the invariant trailer fields on the result.
func (o *Orchestrator) finishTurn(work *SessionState, res *TurnResult) {
	res.Phase = work.Phase
	res.Mastery = copyMastery(work.Mastery)
	res.CurrentConcept = work.ConceptID
	res.CanAdvance = ability.Of(work.Mastery, work.ConceptID) >= graph.MasteryThreshold
}

func (o *Orchestrator) render(ctx context.Context, res *TurnResult, d Decision) {
	d.SessionID = res.SessionID
	if prose := o.renderProse(ctx, d); prose != "" {
		res.Messages = append(res.Messages, prose)
	}
}

func (o *Orchestrator) renderProse(ctx context.Context, d Decision) string {
	if o.renderer == nil {
		return ""
	}
	prose, err := o.renderer.Render(ctx, d)
	if err != nil {
		slog.Warn("decision render failed", "kind", d.Kind, "error", err)
		return ""
	}
	return prose
}

func (o *Orchestrator) logEvent(event Event) {
	if err := o.events.LogEvent(event); err != nil {
		slog.Warn("event logging failed", "type", event.EventType, "error", err)
	}
}

func copyMastery(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func isUnknownSession(err error) bool {
	return errors.Is(err, ErrUnknownSession)
}
