package ability_test

import (
	"math"
	"testing"

	"github.com/mahavihara/tutor/internal/ability"
)

const eps = 1e-9

func TestUpdate(t *testing.T) {
	tests := []struct {
		name    string
		old     float64
		correct int
		want    float64
	}{
		{"perfect quiz reaches threshold from default", 0.3, 3, 0.6},
		{"two of three is a small gain", 0.3, 2, 0.4},
		{"one of three is a small loss", 0.3, 1, 0.2},
		{"zero of three clamps at floor", 0.2, 0, 0.0},
		{"gain clamps at ceiling", 0.9, 3, 1.0},
		{"mid-range loss", 0.5, 0, 0.2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ability.Update(tt.old, tt.correct); math.Abs(got-tt.want) > eps {
				t.Errorf("Update(%v, %d) = %v, want %v", tt.old, tt.correct, got, tt.want)
			}
		})
	}
}

func TestNudge(t *testing.T) {
	if got := ability.Nudge(0.3); math.Abs(got-0.35) > eps {
		t.Errorf("Nudge(0.3) = %v, want 0.35", got)
	}
	if got := ability.Nudge(0.98); got != 1.0 {
		t.Errorf("Nudge(0.98) = %v, want clamp at 1.0", got)
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		v, lo, hi, want float64
	}{
		{0.5, 0, 1, 0.5},
		{-0.2, 0, 1, 0},
		{1.3, 0, 1, 1},
	}
	for _, tt := range tests {
		if got := ability.Clamp(tt.v, tt.lo, tt.hi); got != tt.want {
			t.Errorf("Clamp(%v, %v, %v) = %v, want %v", tt.v, tt.lo, tt.hi, got, tt.want)
		}
	}
}

func TestProbabilityCorrect(t *testing.T) {
	if got := ability.ProbabilityCorrect(0.5, 0.5); math.Abs(got-0.5) > eps {
		t.Errorf("matched ability and difficulty: got %v, want 0.5", got)
	}
	if got := ability.ProbabilityCorrect(0.9, 0.1); got <= 0.9 {
		t.Errorf("easy question for a strong student: got %v, want > 0.9", got)
	}
	if got := ability.ProbabilityCorrect(0.1, 0.9); got >= 0.1 {
		t.Errorf("hard question for a weak student: got %v, want < 0.1", got)
	}
}

func TestOf(t *testing.T) {
	mastery := map[string]float64{"vectors": 0.7}
	if got := ability.Of(mastery, "vectors"); got != 0.7 {
		t.Errorf("Of(known) = %v, want 0.7", got)
	}
	if got := ability.Of(mastery, "eigenvalues"); got != ability.DefaultMastery {
		t.Errorf("Of(unseen) = %v, want default %v", got, ability.DefaultMastery)
	}
	if got := ability.Of(nil, "vectors"); got != ability.DefaultMastery {
		t.Errorf("Of(nil map) = %v, want default", got)
	}
}
