package discussion

import (
	"time"

	"github.com/ashureev/speakup-gd/internal/domain"
)

const (
	// ConclusionWindow is how much remaining time opens the concluding phase.
	ConclusionWindow = 2 * time.Minute
	// TimeWarningWindow is how much remaining time makes bots nudge towards a conclusion.
	TimeWarningWindow = time.Minute
)

// ComputePhase derives the phase from the clock alone. A zero start means the
// discussion has not begun. The ended phase is never computed here; it is set
// explicitly when the discussion is concluded or evaluated.
func ComputePhase(now, start time.Time, duration time.Duration) domain.Phase {
	if start.IsZero() {
		return domain.PhasePrep
	}
	if remaining(now, start, duration) <= ConclusionWindow {
		return domain.PhaseConcluding
	}
	return domain.PhaseActive
}

func remaining(now, start time.Time, duration time.Duration) time.Duration {
	if start.IsZero() {
		return duration
	}
	return max(duration-now.Sub(start), 0)
}
