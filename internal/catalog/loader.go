package catalog

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads every catalog file under rootDir and returns the validated
// catalog. File naming follows suffix conventions:
//
//	*.concepts.yaml        concept definitions
//	*.questions.yaml       question banks
//	*.misconceptions.yaml  misconception patterns
//	*.resources.yaml       curated resources and source trust scores
//	*.questions.xlsx       question banks authored as spreadsheets
//
// Any integrity defect (cycle, dangling reference, out-of-range value)
// returns an *IntegrityError and the process should refuse to serve.
func Load(rootDir string) (*Catalog, error) {
	cat := &Catalog{
		Sources: make(map[string]float64),
	}
	for name, score := range defaultSources {
		cat.Sources[name] = score
	}

	err := filepath.Walk(rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		switch {
		case strings.HasSuffix(path, ".concepts.yaml"):
			return cat.loadConceptFile(path)
		case strings.HasSuffix(path, ".questions.yaml"):
			return cat.loadQuestionFile(path)
		case strings.HasSuffix(path, ".misconceptions.yaml"):
			return cat.loadMisconceptionFile(path)
		case strings.HasSuffix(path, ".resources.yaml"):
			return cat.loadResourceFile(path)
		case strings.HasSuffix(path, ".questions.xlsx"):
			return cat.loadQuestionWorkbook(path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading catalogs from %s: %w", rootDir, err)
	}

	if err := cat.finalize(); err != nil {
		return nil, err
	}

	slog.Info("catalog loaded",
		"concepts", len(cat.Concepts),
		"questions", len(cat.Questions),
		"misconceptions", len(cat.Misconceptions),
		"resources", len(cat.Resources),
	)
	return cat, nil
}

// New builds a catalog from in-memory entries. Used by tests and embedded
// defaults; applies the same validation as Load.
func New(concepts []Concept, questions []Question, misconceptions []MisconceptionRecord, resources []Resource) (*Catalog, error) {
	cat := &Catalog{
		Concepts:       concepts,
		Questions:      questions,
		Misconceptions: misconceptions,
		Resources:      resources,
		Sources:        make(map[string]float64),
	}
	for name, score := range defaultSources {
		cat.Sources[name] = score
	}
	if err := cat.finalize(); err != nil {
		return nil, err
	}
	return cat, nil
}

func (c *Catalog) loadConceptFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := validateConceptDocument(data); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	var doc struct {
		Concepts []Concept `yaml:"concepts"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	c.Concepts = append(c.Concepts, doc.Concepts...)
	return nil
}

func (c *Catalog) loadQuestionFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var doc struct {
		Questions []Question `yaml:"questions"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	c.Questions = append(c.Questions, doc.Questions...)
	return nil
}

func (c *Catalog) loadMisconceptionFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var doc struct {
		Misconceptions []MisconceptionRecord `yaml:"misconceptions"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	c.Misconceptions = append(c.Misconceptions, doc.Misconceptions...)
	return nil
}

func (c *Catalog) loadResourceFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var doc struct {
		Resources []Resource         `yaml:"resources"`
		Sources   map[string]float64 `yaml:"sources"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	c.Resources = append(c.Resources, doc.Resources...)
	for name, score := range doc.Sources {
		c.Sources[name] = score
	}
	return nil
}

// finalize indexes the catalogs and runs the integrity checks from the error
// taxonomy: GraphIntegrityError-class defects are fatal at load time.
func (c *Catalog) finalize() error {
	sort.SliceStable(c.Concepts, func(i, j int) bool {
		return c.Concepts[i].Ordinal < c.Concepts[j].Ordinal
	})

	c.conceptByID = make(map[string]Concept, len(c.Concepts))
	for _, con := range c.Concepts {
		if con.ID == "" {
			return integrityErrorf("concept with empty id")
		}
		if _, dup := c.conceptByID[con.ID]; dup {
			return integrityErrorf("duplicate concept id %q", con.ID)
		}
		if con.BaseDifficulty < 0 || con.BaseDifficulty > 1 {
			return integrityErrorf("concept %q base difficulty %v outside [0,1]", con.ID, con.BaseDifficulty)
		}
		c.conceptByID[con.ID] = con
	}

	for i, con := range c.Concepts {
		for _, pre := range con.Prerequisites {
			if _, ok := c.conceptByID[pre]; !ok {
				return integrityErrorf("concept %q has unknown prerequisite %q", con.ID, pre)
			}
		}
		if i > 0 && len(con.Prerequisites) == 0 {
			return integrityErrorf("non-root concept %q has no prerequisites", con.ID)
		}
	}
	if err := c.checkAcyclic(); err != nil {
		return err
	}

	c.questionByID = make(map[string]Question, len(c.Questions))
	c.patternByID = make(map[string]MisconceptionRecord, len(c.Misconceptions))

	for _, m := range c.Misconceptions {
		if _, dup := c.patternByID[m.PatternID]; dup {
			return integrityErrorf("duplicate misconception pattern %q", m.PatternID)
		}
		if _, ok := c.conceptByID[m.ConceptID]; !ok {
			return integrityErrorf("misconception %q references unknown concept %q", m.PatternID, m.ConceptID)
		}
		c.patternByID[m.PatternID] = m
	}

	for _, q := range c.Questions {
		if _, dup := c.questionByID[q.ID]; dup {
			return integrityErrorf("duplicate question id %q", q.ID)
		}
		if _, ok := c.conceptByID[q.ConceptID]; !ok {
			return integrityErrorf("question %q references unknown concept %q", q.ID, q.ConceptID)
		}
		if !q.Tier.Valid() {
			return integrityErrorf("question %q has unknown tier %q", q.ID, q.Tier)
		}
		if !q.HasOption(q.Answer) {
			return integrityErrorf("question %q answer %q not in option set", q.ID, q.Answer)
		}
		if q.Difficulty < 0 || q.Difficulty > 1 {
			return integrityErrorf("question %q difficulty %v outside [0,1]", q.ID, q.Difficulty)
		}
		for key, pattern := range q.Misconceptions {
			if !q.HasOption(key) {
				return integrityErrorf("question %q tags unknown option %q", q.ID, key)
			}
			if key == q.Answer {
				return integrityErrorf("question %q tags the correct option %q with a misconception", q.ID, key)
			}
			if _, ok := c.patternByID[pattern]; !ok {
				return integrityErrorf("question %q references unknown misconception %q", q.ID, pattern)
			}
		}
	}

	for _, r := range c.Resources {
		if _, ok := c.conceptByID[r.ConceptID]; !ok {
			return integrityErrorf("resource %q references unknown concept %q", r.ID, r.ConceptID)
		}
	}
	return nil
}

// checkAcyclic runs a three-color DFS over prerequisite edges.
func (c *Catalog) checkAcyclic() error {
	const (
		white = 0
		grey  = 1
		black = 2
	)
	color := make(map[string]int, len(c.Concepts))

	var visit func(id string) error
	visit = func(id string) error {
		color[id] = grey
		for _, pre := range c.conceptByID[id].Prerequisites {
			switch color[pre] {
			case grey:
				return integrityErrorf("prerequisite cycle through %q and %q", id, pre)
			case white:
				if err := visit(pre); err != nil {
					return err
				}
			}
		}
		color[id] = black
		return nil
	}

	for _, con := range c.Concepts {
		if color[con.ID] == white {
			if err := visit(con.ID); err != nil {
				return err
			}
		}
	}
	return nil
}
