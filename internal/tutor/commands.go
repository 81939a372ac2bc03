package tutor

import "strings"

// Student intents parsed from free text. Matching is case-insensitive and
// keyed on whole phrases so ordinary discussion ("I will continue studying
// matrices later") does not trip a transition.
var (
	quizTriggers = []string{
		"quiz me", "test me", "quiz", "test", "practice", "ready",
		"i'm ready", "im ready",
	}
	continueTriggers = []string{
		"continue", "next", "move on", "proceed", "skip",
	}
	verifyTriggers = []string{
		"verify", "verify me", "check me", "retry quiz",
	}
	doneTriggers = []string{
		"done", "finished", "completed that",
	}
)

type intent int

const (
	intentNone intent = iota
	intentQuiz
	intentContinue
	intentVerify
	intentDone
	intentGoto
)

// parseIntent classifies one turn of student input. Goto returns the target
// concept id as the second value.
func parseIntent(input string) (intent, string) {
	text := strings.ToLower(strings.TrimSpace(input))
	if text == "" {
		return intentNone, ""
	}
	if target, ok := strings.CutPrefix(text, "goto "); ok {
		return intentGoto, strings.TrimSpace(target)
	}
	if matchesTrigger(text, verifyTriggers) {
		return intentVerify, ""
	}
	if matchesTrigger(text, quizTriggers) {
		return intentQuiz, ""
	}
	if matchesTrigger(text, continueTriggers) {
		return intentContinue, ""
	}
	if matchesTrigger(text, doneTriggers) {
		return intentDone, ""
	}
	return intentNone, ""
}

func matchesTrigger(text string, triggers []string) bool {
	for _, t := range triggers {
		if text == t {
			return true
		}
	}
	return false
}

// normalizeAnswer extracts an option key from quiz input. It accepts bare
// keys ("a", "B") and keys with trailing punctuation ("c)", "d."); anything
// else is returned unchanged upper-cased so option validation rejects it.
func normalizeAnswer(input string) string {
	text := strings.ToUpper(strings.TrimSpace(input))
	text = strings.TrimRight(text, ".):")
	return text
}
