package discussion

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/ashureev/speakup-gd/internal/domain"
)

// Rand is the source of randomness for tie-breaks and chain lengths.
type Rand interface {
	IntN(n int) int
}

type lockedRand struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRand returns a goroutine-safe seeded source. Seed 0 picks a time-based seed.
func NewRand(seed int64) Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &lockedRand{rng: rand.New(rand.NewPCG(uint64(seed), uint64(seed)>>1|1))}
}

func (r *lockedRand) IntN(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.IntN(n)
}

// Scheduler picks the next speaker.
type Scheduler struct {
	rng Rand
}

// NewScheduler creates a scheduler using rng for tie-breaks.
func NewScheduler(rng Rand) *Scheduler {
	return &Scheduler{rng: rng}
}

// Next returns the next speaker id. A pending hint wins and is consumed. Otherwise
// the least-heard bot that did not just speak is chosen, ties broken at random.
// The user is only ever returned through the hint.
func (sc *Scheduler) Next(s *Session) string {
	if hint := s.NextSpeakerHint; hint != "" {
		s.NextSpeakerHint = ""
		if s.isKnown(hint) {
			return hint
		}
	}

	candidates := make([]string, 0, len(s.Participants))
	for _, p := range s.Participants {
		if len(s.Participants) > 1 && p.ID == s.LastSpeaker {
			continue
		}
		candidates = append(candidates, p.ID)
	}
	if len(candidates) == 0 {
		for _, p := range s.Participants {
			candidates = append(candidates, p.ID)
		}
	}
	if len(candidates) == 0 {
		return domain.HumanID
	}

	minTurns := -1
	var fewest []string
	for _, id := range candidates {
		n := s.TurnCounts[id]
		switch {
		case minTurns < 0 || n < minTurns:
			minTurns = n
			fewest = []string{id}
		case n == minTurns:
			fewest = append(fewest, id)
		}
	}

	return fewest[sc.rng.IntN(len(fewest))]
}
