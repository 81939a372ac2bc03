// Package catalog loads the immutable content catalogs: concepts, question
// banks, misconception patterns and curated resources. Catalogs are loaded
// once at startup and never mutated afterwards.
package catalog

import "fmt"

// Tier is a question difficulty tier.
type Tier string

const (
	TierEasy   Tier = "easy"
	TierMedium Tier = "medium"
	TierHard   Tier = "hard"
)

// Tiers lists all tiers in quiz presentation order.
var Tiers = []Tier{TierEasy, TierMedium, TierHard}

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	return t == TierEasy || t == TierMedium || t == TierHard
}

// Concept is a single teachable unit in the prerequisite DAG.
type Concept struct {
	ID             string   `yaml:"id" json:"id"`
	Name           string   `yaml:"name" json:"name"`
	Ordinal        int      `yaml:"ordinal" json:"ordinal"`
	Prerequisites  []string `yaml:"prerequisites" json:"prerequisites"`
	BaseDifficulty float64  `yaml:"base_difficulty" json:"base_difficulty"`
	Lesson         string   `yaml:"lesson" json:"lesson,omitempty"`
}

// Question is a multiple-choice bank question. Option keys are "A", "B", ...
// in declaration order.
type Question struct {
	ID             string            `yaml:"id" json:"id"`
	ConceptID      string            `yaml:"concept" json:"concept"`
	Tier           Tier              `yaml:"tier" json:"tier"`
	Text           string            `yaml:"text" json:"text"`
	Options        []string          `yaml:"options" json:"options"`
	Answer         string            `yaml:"answer" json:"answer"`
	Difficulty     float64           `yaml:"difficulty" json:"difficulty"`
	Explanation    string            `yaml:"explanation" json:"explanation,omitempty"`
	Misconceptions map[string]string `yaml:"misconceptions" json:"misconceptions,omitempty"`
}

// OptionKey returns the answer key for option index i ("A" for 0).
func OptionKey(i int) string {
	return string(rune('A' + i))
}

// HasOption reports whether key is within the question's option set.
func (q Question) HasOption(key string) bool {
	for i := range q.Options {
		if OptionKey(i) == key {
			return true
		}
	}
	return false
}

// MisconceptionRecord is a catalogued wrong-reasoning pattern.
type MisconceptionRecord struct {
	PatternID        string `yaml:"pattern" json:"pattern"`
	ConceptID        string `yaml:"concept" json:"concept"`
	Description      string `yaml:"description" json:"description"`
	Severity         string `yaml:"severity" json:"severity"`
	RemediationFocus string `yaml:"remediation_focus" json:"remediation_focus"`
	Anchor           string `yaml:"anchor" json:"anchor,omitempty"` // video timestamp, e.g. "4:32"
}

// Resource is a pre-vetted external learning resource.
type Resource struct {
	ID              string  `yaml:"id" json:"id"`
	ConceptID       string  `yaml:"concept" json:"concept"`
	Title           string  `yaml:"title" json:"title"`
	URL             string  `yaml:"url" json:"url"`
	Source          string  `yaml:"source" json:"source"`
	Difficulty      float64 `yaml:"difficulty" json:"difficulty"`
	DurationMinutes int     `yaml:"duration_minutes" json:"duration_minutes"`
	Timestamp       string  `yaml:"timestamp" json:"timestamp,omitempty"`
}

// Catalog is the full immutable content set. Concepts are sorted by ordinal.
type Catalog struct {
	Concepts       []Concept
	Questions      []Question
	Misconceptions []MisconceptionRecord
	Resources      []Resource
	Sources        map[string]float64 // source name -> trust/quality score

	conceptByID  map[string]Concept
	questionByID map[string]Question
	patternByID  map[string]MisconceptionRecord
}

// Concept returns a concept by id.
func (c *Catalog) Concept(id string) (Concept, bool) {
	con, ok := c.conceptByID[id]
	return con, ok
}

// Question returns a question by id.
func (c *Catalog) Question(id string) (Question, bool) {
	q, ok := c.questionByID[id]
	return q, ok
}

// Misconception returns a misconception record by pattern id.
func (c *Catalog) Misconception(pattern string) (MisconceptionRecord, bool) {
	m, ok := c.patternByID[pattern]
	return m, ok
}

// ResourcesFor returns all curated resources for a concept.
func (c *Catalog) ResourcesFor(conceptID string) []Resource {
	var out []Resource
	for _, r := range c.Resources {
		if r.ConceptID == conceptID {
			out = append(out, r)
		}
	}
	return out
}

// SourceQuality returns the trust score for a source name, or the fallback
// score for unknown sources.
func (c *Catalog) SourceQuality(source string) float64 {
	if score, ok := c.Sources[source]; ok {
		return score
	}
	return unknownSourceQuality
}

const unknownSourceQuality = 0.5

// defaultSources carries trust scores for well-known content sources. Catalog
// files may override or extend these.
var defaultSources = map[string]float64{
	"3Blue1Brown":  0.99,
	"Khan Academy": 0.95,
	"MIT":          0.92,
	"Brilliant":    0.90,
	"Wolfram":      0.85,
	"YouTube":      0.70,
	"Web":          0.50,
}

// IntegrityError reports a structural defect in the loaded catalogs: a
// prerequisite cycle, a dangling reference, or an out-of-range value. It is
// fatal at startup.
type IntegrityError struct {
	Reason string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("catalog integrity: %s", e.Reason)
}

func integrityErrorf(format string, args ...any) error {
	return &IntegrityError{Reason: fmt.Sprintf(format, args...)}
}
