package handoff

import "github.com/ashureev/speakup-gd/internal/domain"

// BotCandidates lists every bot except the one with id exclude.
func BotCandidates(participants []domain.Participant, exclude string) []Candidate {
	out := make([]Candidate, 0, len(participants))
	for _, p := range participants {
		if p.ID == exclude {
			continue
		}
		out = append(out, Candidate{ID: p.ID, Names: p.Names()})
	}
	return out
}

// HumanCandidate is the human participant, addressable as "user" or by display name.
func HumanCandidate(displayName string) Candidate {
	names := []string{domain.HumanID}
	for _, n := range domain.AddressNames(displayName) {
		if n != domain.HumanID {
			names = append(names, n)
		}
	}
	return Candidate{ID: domain.HumanID, Names: names}
}
