package discussion

import (
	"testing"
	"time"

	"github.com/ashureev/speakup-gd/internal/domain"
)

func TestComputePhase(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	d := 10 * time.Minute

	tests := []struct {
		name  string
		now   time.Time
		start time.Time
		want  domain.Phase
	}{
		{"not begun", start.Add(time.Hour), time.Time{}, domain.PhasePrep},
		{"just begun", start, start, domain.PhaseActive},
		{"before window", start.Add(7*time.Minute + 59*time.Second), start, domain.PhaseActive},
		{"window opens at two minutes", start.Add(8 * time.Minute), start, domain.PhaseConcluding},
		{"past the end", start.Add(11 * time.Minute), start, domain.PhaseConcluding},
	}
	for _, tt := range tests {
		if got := ComputePhase(tt.now, tt.start, d); got != tt.want {
			t.Errorf("%s: expected %s, got %s", tt.name, tt.want, got)
		}
	}
}

func TestRemainingFloorsAtZero(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	if got := remaining(start.Add(time.Hour), start, time.Minute); got != 0 {
		t.Fatalf("expected 0 remaining, got %v", got)
	}
	if got := remaining(start, time.Time{}, time.Minute); got != time.Minute {
		t.Fatalf("expected full duration in prep, got %v", got)
	}
}

func TestConclusionCue(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"I would like to conclude by saying it depends.", "In conclusion, hybrid wins.", "To sum up, we agree.", "I'd like to conclude now"} {
		if !IsConclusionCue(s) {
			t.Errorf("expected cue in %q", s)
		}
	}
	for _, s := range []string{"That conclusion is premature.", "We should include everyone."} {
		if IsConclusionCue(s) {
			t.Errorf("unexpected cue in %q", s)
		}
	}
}
