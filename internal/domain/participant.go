// Package domain holds the core types shared by the discussion, evaluation and storage layers.
package domain

import "strings"

// HumanID is the fixed participant id of the human user.
const HumanID = "user"

// Role distinguishes the human from the bots in a transcript.
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// Participant is one AI discussant.
type Participant struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Personality string   `json:"personality" yaml:"personality"`
	Style       string   `json:"style,omitempty" yaml:"style,omitempty"`
	Aliases     []string `json:"aliases,omitempty" yaml:"aliases,omitempty"`
}

// Names returns the lowercased names used to recognise the participant when addressed.
func (p Participant) Names() []string {
	return AddressNames(p.Name, p.Aliases...)
}

// AddressNames lowercases name and aliases, dropping blanks and duplicates.
// A multi-word name is also addressable by its first word.
func AddressNames(name string, aliases ...string) []string {
	var names []string
	seen := make(map[string]bool)
	add := func(n string) {
		n = strings.Join(strings.Fields(strings.ToLower(n)), " ")
		if n != "" && !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	add(name)
	for _, a := range aliases {
		add(a)
	}
	if words := strings.Fields(name); len(words) > 1 {
		add(words[0])
	}
	return names
}

// DefaultParticipants returns the standard three-bot panel.
func DefaultParticipants() []Participant {
	return []Participant{
		{
			ID:          "alex",
			Name:        "Alex",
			Personality: "Analytical",
			Style:       "You reason from data, evidence and cause and effect. You ask for specifics.",
		},
		{
			ID:          "sarah",
			Name:        "Sarah",
			Personality: "Creative",
			Style:       "You offer fresh angles, analogies and unconventional solutions.",
		},
		{
			ID:          "mike",
			Name:        "Mike",
			Personality: "Critical",
			Style:       "You challenge assumptions, point out risks and play devil's advocate.",
		},
	}
}
