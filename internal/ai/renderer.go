package ai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mahavihara/tutor/internal/catalog"
	"github.com/mahavihara/tutor/internal/tutor"
)

// kindTask maps engine decisions to prompt tasks.
func kindTask(kind tutor.DecisionKind) TaskType {
	switch kind {
	case tutor.DecisionLesson:
		return TaskLesson
	case tutor.DecisionSocratic:
		return TaskSocratic
	case tutor.DecisionQuizQuestion:
		return TaskQuizQuestion
	case tutor.DecisionFeedback:
		return TaskFeedback
	case tutor.DecisionDiagnosis:
		return TaskDiagnosis
	case tutor.DecisionCelebration:
		return TaskCelebration
	default:
		return TaskCompletion
	}
}

// TemplateRenderer produces deterministic prose straight from decision data.
// It is the offline renderer and the fallback when providers are down or a
// session is out of token budget.
type TemplateRenderer struct{}

func (TemplateRenderer) Render(_ context.Context, d tutor.Decision) (string, error) {
	var b strings.Builder
	switch d.Kind {
	case tutor.DecisionLesson:
		fmt.Fprintf(&b, "Let's work on %s.", d.Concept.Name)
		if d.Concept.Lesson != "" {
			b.WriteString("\n\n")
			b.WriteString(d.Concept.Lesson)
		}
		b.WriteString("\n\nAsk me anything, or say \"quiz me\" when you're ready.")
	case tutor.DecisionSocratic:
		fmt.Fprintf(&b, "Good question. Think about how that relates to %s: what happens in the simplest case you can construct?", d.Concept.Name)
	case tutor.DecisionQuizQuestion:
		fmt.Fprintf(&b, "Question %d of 3 (%s):\n%s", d.QuestionIndex+1, d.Question.Tier, d.Question.Text)
		for i, opt := range d.Question.Options {
			fmt.Fprintf(&b, "\n%s) %s", catalog.OptionKey(i), opt)
		}
	case tutor.DecisionFeedback:
		if d.LastAnswer.IsCorrect {
			b.WriteString("Correct!")
		} else {
			fmt.Fprintf(&b, "Not quite. The answer is %s.", d.LastAnswer.Correct)
		}
		if d.Question != nil && d.Question.Explanation != "" {
			b.WriteString(" ")
			b.WriteString(d.Question.Explanation)
		}
	case tutor.DecisionDiagnosis:
		if d.Diagnosis != nil {
			if d.Diagnosis.RootCauseConceptID != d.Diagnosis.FailedConceptID {
				fmt.Fprintf(&b, "The trouble seems to start earlier, at %s.", d.Diagnosis.RootCauseConceptID)
			} else {
				fmt.Fprintf(&b, "Let's shore up %s before moving on.", d.Diagnosis.FailedConceptID)
			}
			if d.Diagnosis.Misconception != nil {
				fmt.Fprintf(&b, " It looks like a common mix-up: %s", d.Diagnosis.Misconception.Description)
			}
		}
		if d.Prescription != nil {
			b.WriteString("\n\nHere's the plan:")
			for i, phase := range d.Prescription.Phases {
				fmt.Fprintf(&b, "\n%d. %s %s (%d min)", i+1, phase.Action, phase.ConceptID, phase.DurationMinutes)
				if phase.Resource != nil {
					fmt.Fprintf(&b, " - %s (%s)", phase.Resource.Title, phase.Resource.URL)
				}
			}
			fmt.Fprintf(&b, "\nAbout %d minutes total. Say \"done\" after each step, then \"verify\" for the check quiz.", d.Prescription.TotalMinutes)
		}
	case tutor.DecisionCelebration:
		if d.JustMastered {
			fmt.Fprintf(&b, "Excellent, you've mastered %s!", d.Concept.Name)
		} else {
			fmt.Fprintf(&b, "Nice work on %s. A little more practice and you'll have it down.", d.Concept.Name)
		}
	case tutor.DecisionComplete:
		b.WriteString("That's the whole curriculum. Well done! Say \"goto <concept>\" any time to revisit a topic.")
	}
	return b.String(), nil
}

// PromptRenderer renders decisions through the AI router, degrading to
// template prose when no provider answers or the session's token budget is
// spent. It always returns usable text.
type PromptRenderer struct {
	router   *Router
	budget   BudgetChecker
	fallback TemplateRenderer
}

// NewPromptRenderer creates a renderer over the given router. budget may be
// nil for unlimited usage.
func NewPromptRenderer(router *Router, budget BudgetChecker) *PromptRenderer {
	return &PromptRenderer{router: router, budget: budget}
}

func (r *PromptRenderer) Render(ctx context.Context, d tutor.Decision) (string, error) {
	plain, _ := r.fallback.Render(ctx, d)
	if r.router == nil || !r.router.HasProvider() {
		return plain, nil
	}
	if r.budget != nil {
		ok, err := r.budget.Check(d.SessionID)
		if err != nil {
			slog.Warn("budget check failed", "session_id", d.SessionID, "error", err)
		} else if !ok {
			slog.Info("token budget exhausted, using template prose", "session_id", d.SessionID)
			return plain, nil
		}
	}

	resp, err := r.router.Complete(ctx, CompletionRequest{
		Messages: []Message{
			{Role: "system", Content: systemPrompt(d)},
			{Role: "user", Content: userPrompt(d, plain)},
		},
		Task:      kindTask(d.Kind),
		MaxTokens: 512,
	})
	if err != nil {
		slog.Warn("AI render failed, using template prose", "kind", d.Kind, "error", err)
		return plain, nil
	}
	if r.budget != nil {
		if err := r.budget.Record(d.SessionID, resp.TotalTokens()); err != nil {
			slog.Warn("budget record failed", "session_id", d.SessionID, "error", err)
		}
	}
	content := strings.TrimSpace(resp.Content)
	if content == "" {
		return plain, nil
	}
	return content, nil
}

func systemPrompt(d tutor.Decision) string {
	var b strings.Builder
	b.WriteString("You are a patient math tutor. Keep responses under 150 words, warm and concrete. ")
	switch d.Kind {
	case tutor.DecisionLesson:
		b.WriteString("Introduce the concept with one vivid example, then invite questions.")
	case tutor.DecisionSocratic:
		b.WriteString("Do not give the answer directly; respond with a guiding question that nudges the student one step forward.")
	case tutor.DecisionQuizQuestion:
		b.WriteString("Present the question and its options exactly as given, without revealing the answer.")
	case tutor.DecisionFeedback:
		b.WriteString("React to the student's answer. If wrong, explain the error using the provided explanation.")
	case tutor.DecisionDiagnosis:
		b.WriteString("Deliver the diagnosis gently and walk through the remediation plan step by step. Keep every URL intact.")
	case tutor.DecisionCelebration:
		b.WriteString("Celebrate briefly and point ahead.")
	default:
		b.WriteString("Congratulate the student on finishing the curriculum.")
	}
	return b.String()
}

func userPrompt(d tutor.Decision, plain string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Concept: %s (%s)\n", d.Concept.Name, d.Concept.ID)
	if d.StudentInput != "" {
		fmt.Fprintf(&b, "Student said: %s\n", d.StudentInput)
	}
	b.WriteString("Engine decision, to rephrase in your own voice without changing any facts, options, or URLs:\n")
	b.WriteString(plain)
	return b.String()
}
