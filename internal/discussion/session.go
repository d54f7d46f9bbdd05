// Package discussion runs timed group discussions between a human user and AI participants.
package discussion

import (
	"time"

	"github.com/ashureev/speakup-gd/internal/domain"
)

// Session is the conversational state of one discussion.
// It is only touched by the goroutine holding the session's registry slot.
type Session struct {
	ID           string
	UserID       string
	UserName     string
	Topic        string
	Difficulty   domain.Difficulty
	Participants []domain.Participant

	Transcript      []domain.Utterance
	TurnCounts      map[string]int
	NextSpeakerHint string
	LastSpeaker     string
	PauseCount      int

	CreatedAt time.Time
	StartTime time.Time // zero while in prep
	Duration  time.Duration
	EndedAt   time.Time

	// Active turns false once, when the final evaluation is stored in Result.
	Active bool
	Result *domain.Evaluation

	concluded    bool
	lastActivity time.Time
}

func newSession(id, userID, userName, topic string, difficulty domain.Difficulty, participants []domain.Participant, duration time.Duration, now time.Time) *Session {
	counts := make(map[string]int, len(participants)+1)
	counts[domain.HumanID] = 0
	for _, p := range participants {
		counts[p.ID] = 0
	}
	return &Session{
		ID:           id,
		UserID:       userID,
		UserName:     userName,
		Topic:        topic,
		Difficulty:   difficulty,
		Participants: participants,
		TurnCounts:   counts,
		CreatedAt:    now,
		Duration:     duration,
		Active:       true,
		lastActivity: now,
	}
}

// record appends an utterance and keeps the turn bookkeeping in step with the transcript.
func (s *Session) record(u domain.Utterance) {
	s.Transcript = append(s.Transcript, u)
	s.TurnCounts[u.SpeakerID]++
	s.LastSpeaker = u.SpeakerID
}

// begin starts the clock on the first activity.
func (s *Session) begin(now time.Time) {
	if s.StartTime.IsZero() {
		s.StartTime = now
	}
}

// Phase reports the current phase.
func (s *Session) Phase(now time.Time) domain.Phase {
	if s.concluded || !s.Active {
		return domain.PhaseEnded
	}
	return ComputePhase(now, s.StartTime, s.Duration)
}

// Remaining is the time left on the clock.
func (s *Session) Remaining(now time.Time) time.Duration {
	return remaining(now, s.StartTime, s.Duration)
}

// Elapsed is the time since the clock started, or zero in prep.
func (s *Session) Elapsed(now time.Time) time.Duration {
	if s.StartTime.IsZero() {
		return 0
	}
	end := now
	if !s.EndedAt.IsZero() {
		end = s.EndedAt
	}
	return max(end.Sub(s.StartTime), 0)
}

// recent returns a copy of the last n utterances.
func (s *Session) recent(n int) []domain.Utterance {
	start := max(len(s.Transcript)-n, 0)
	out := make([]domain.Utterance, len(s.Transcript)-start)
	copy(out, s.Transcript[start:])
	return out
}

func (s *Session) turnCounts() map[string]int {
	out := make(map[string]int, len(s.TurnCounts))
	for k, v := range s.TurnCounts {
		out[k] = v
	}
	return out
}

func (s *Session) participant(id string) (domain.Participant, bool) {
	for _, p := range s.Participants {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Participant{}, false
}

func (s *Session) isKnown(id string) bool {
	if id == domain.HumanID {
		return true
	}
	_, ok := s.participant(id)
	return ok
}

func (s *Session) displayName() string {
	if s.UserName != "" {
		return s.UserName
	}
	return domain.HumanID
}
