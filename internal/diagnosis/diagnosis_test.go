package diagnosis_test

import (
	"math"
	"testing"

	"github.com/mahavihara/tutor/internal/catalog"
	"github.com/mahavihara/tutor/internal/diagnosis"
	"github.com/mahavihara/tutor/internal/graph"
	"github.com/mahavihara/tutor/internal/quiz"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New([]catalog.Concept{
		{ID: "vectors", Ordinal: 1, BaseDifficulty: 0.2},
		{ID: "matrix_ops", Ordinal: 2, Prerequisites: []string{"vectors"}, BaseDifficulty: 0.35},
		{ID: "determinants", Ordinal: 3, Prerequisites: []string{"matrix_ops"}, BaseDifficulty: 0.5},
		{ID: "inverse_matrix", Ordinal: 4, Prerequisites: []string{"determinants"}, BaseDifficulty: 0.65},
		{ID: "eigenvalues", Ordinal: 5, Prerequisites: []string{"inverse_matrix"}, BaseDifficulty: 0.8},
	}, []catalog.Question{
		{
			ID: "eig-m-1", ConceptID: "eigenvalues", Tier: catalog.TierMedium,
			Text: "q", Options: []string{"w", "x", "y", "z"}, Answer: "A", Difficulty: 0.5,
			Misconceptions: map[string]string{"B": "det_equals_eigenvalue", "C": "sign_flip"},
		},
		{
			ID: "eig-h-1", ConceptID: "eigenvalues", Tier: catalog.TierHard,
			Text: "q", Options: []string{"w", "x", "y", "z"}, Answer: "A", Difficulty: 0.8,
			Misconceptions: map[string]string{"D": "det_equals_eigenvalue"},
		},
	}, []catalog.MisconceptionRecord{
		{PatternID: "det_equals_eigenvalue", ConceptID: "eigenvalues", Description: "confuses determinant with eigenvalues", Severity: "high"},
		{PatternID: "sign_flip", ConceptID: "eigenvalues", Description: "drops the sign in the characteristic polynomial", Severity: "low"},
	}, nil)
	if err != nil {
		t.Fatalf("building catalog: %v", err)
	}
	return cat
}

func TestClassify(t *testing.T) {
	c := diagnosis.NewClassifier(testCatalog(t))

	record := c.Classify("eig-m-1", "B")
	if record == nil || record.PatternID != "det_equals_eigenvalue" {
		t.Fatalf("Classify() = %v, want det_equals_eigenvalue", record)
	}

	// Wrong answers without a catalogued pattern, and unknown questions,
	// classify to nothing rather than erroring.
	if got := c.Classify("eig-m-1", "D"); got != nil {
		t.Errorf("Classify(untagged option) = %v, want nil", got)
	}
	if got := c.Classify("ghost", "B"); got != nil {
		t.Errorf("Classify(unknown question) = %v, want nil", got)
	}
}

func TestClassifyBatch(t *testing.T) {
	c := diagnosis.NewClassifier(testCatalog(t))

	wrong := []quiz.Answer{
		{QuestionID: "eig-m-1", Chosen: "C"}, // sign_flip, first seen
		{QuestionID: "eig-m-1", Chosen: "B"}, // det_equals_eigenvalue
		{QuestionID: "eig-h-1", Chosen: "D"}, // det_equals_eigenvalue again
	}
	got := c.ClassifyBatch(wrong)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2 deduped patterns", len(got))
	}
	if got[0].PatternID != "det_equals_eigenvalue" {
		t.Errorf("head = %q, want most frequent pattern first", got[0].PatternID)
	}
	if got[1].PatternID != "sign_flip" {
		t.Errorf("tail = %q, want sign_flip", got[1].PatternID)
	}
}

func TestClassifyBatch_TiesByFirstOccurrence(t *testing.T) {
	c := diagnosis.NewClassifier(testCatalog(t))

	wrong := []quiz.Answer{
		{QuestionID: "eig-m-1", Chosen: "C"}, // sign_flip
		{QuestionID: "eig-m-1", Chosen: "B"}, // det_equals_eigenvalue
	}
	got := c.ClassifyBatch(wrong)
	if len(got) != 2 || got[0].PatternID != "sign_flip" {
		t.Errorf("ClassifyBatch() = %v, want sign_flip first on equal counts", got)
	}
}

func TestTraceRootCause(t *testing.T) {
	g := graph.New(testCatalog(t))

	tests := []struct {
		name           string
		mastery        map[string]float64
		failed         string
		wantRoot       string
		wantConfidence float64
	}{
		{
			name: "weak ancestor is the root cause",
			mastery: map[string]float64{
				"vectors": 0.8, "matrix_ops": 0.7, "determinants": 0.65,
				"inverse_matrix": 0.25, "eigenvalues": 0.35,
			},
			failed:         "eigenvalues",
			wantRoot:       "inverse_matrix",
			wantConfidence: (0.6 - 0.25) / 0.6,
		},
		{
			name: "failed concept is its own root cause when weakest",
			mastery: map[string]float64{
				"vectors": 0.9, "matrix_ops": 0.8, "determinants": 0.7,
				"inverse_matrix": 0.65, "eigenvalues": 0.3,
			},
			failed:         "eigenvalues",
			wantRoot:       "eigenvalues",
			wantConfidence: 0.5,
		},
		{
			name:           "unseen ancestors use the default score",
			mastery:        map[string]float64{"eigenvalues": 0.35},
			failed:         "eigenvalues",
			wantRoot:       "inverse_matrix", // all ancestors tie at 0.3, nearest wins
			wantConfidence: 0.5,
		},
		{
			name:           "confidence clamps at one for zero mastery",
			mastery:        map[string]float64{"vectors": 0.0, "matrix_ops": 0.5},
			failed:         "matrix_ops",
			wantRoot:       "vectors",
			wantConfidence: 1.0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, confidence := diagnosis.TraceRootCause(g, tt.mastery, tt.failed)
			if root != tt.wantRoot {
				t.Errorf("root = %q, want %q", root, tt.wantRoot)
			}
			if math.Abs(confidence-tt.wantConfidence) > 1e-9 {
				t.Errorf("confidence = %v, want %v", confidence, tt.wantConfidence)
			}
		})
	}
}
