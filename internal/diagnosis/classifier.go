// Package diagnosis explains failure: the misconception classifier maps a
// chosen wrong answer to a catalogued pattern, and the root-cause tracer
// walks the prerequisite graph to the weakest ancestor.
package diagnosis

import (
	"github.com/mahavihara/tutor/internal/catalog"
	"github.com/mahavihara/tutor/internal/quiz"
)

// Diagnosis is the engine's explanation for a failed quiz.
type Diagnosis struct {
	FailedConceptID    string                        `json:"failed_concept_id"`
	RootCauseConceptID string                        `json:"root_cause_concept_id"`
	Misconception      *catalog.MisconceptionRecord  `json:"misconception,omitempty"`
	Confidence         float64                       `json:"confidence"`
}

// Classifier resolves (question id, chosen answer) pairs to misconception
// records via the static catalog tables. Pure lookup, no inference.
type Classifier struct {
	cat *catalog.Catalog
}

// NewClassifier builds a classifier over the loaded catalog.
func NewClassifier(cat *catalog.Catalog) *Classifier {
	return &Classifier{cat: cat}
}

// Classify returns the catalogued misconception behind choosing `chosen` on
// a question, or nil when the wrong answer has no known pattern.
func (c *Classifier) Classify(questionID, chosen string) *catalog.MisconceptionRecord {
	q, ok := c.cat.Question(questionID)
	if !ok {
		return nil
	}
	pattern, ok := q.Misconceptions[chosen]
	if !ok {
		return nil
	}
	record, ok := c.cat.Misconception(pattern)
	if !ok {
		return nil
	}
	return &record
}

// ClassifyBatch analyzes a failed quiz's wrong answers. Results are deduped
// by pattern id and ordered most-frequent first, ties broken by first
// occurrence, so the head of the slice is the most critical misconception.
func (c *Classifier) ClassifyBatch(wrong []quiz.Answer) []catalog.MisconceptionRecord {
	type tally struct {
		record catalog.MisconceptionRecord
		count  int
		first  int
	}
	counts := make(map[string]*tally)
	var order []string

	for i, ans := range wrong {
		record := c.Classify(ans.QuestionID, ans.Chosen)
		if record == nil {
			continue
		}
		t, ok := counts[record.PatternID]
		if !ok {
			t = &tally{record: *record, first: i}
			counts[record.PatternID] = t
			order = append(order, record.PatternID)
		}
		t.count++
	}

	// Stable selection sort over the small result set: highest count wins,
	// earliest first occurrence breaks ties.
	out := make([]catalog.MisconceptionRecord, 0, len(order))
	used := make(map[string]bool, len(order))
	for range order {
		var best *tally
		for _, id := range order {
			if used[id] {
				continue
			}
			t := counts[id]
			if best == nil || t.count > best.count || (t.count == best.count && t.first < best.first) {
				best = t
			}
		}
		used[best.record.PatternID] = true
		out = append(out, best.record)
	}
	return out
}
