package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ashureev/speakup-gd/internal/domain"
)

type personaFile struct {
	Participants []domain.Participant `yaml:"participants"`
}

// LoadParticipants reads the bot panel from a YAML file. An empty path yields the default panel.
func LoadParticipants(path string) ([]domain.Participant, error) {
	if path == "" {
		return domain.DefaultParticipants(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read personas file: %w", err)
	}

	var pf personaFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parse personas file: %w", err)
	}
	if len(pf.Participants) == 0 {
		return nil, fmt.Errorf("personas file %s defines no participants", path)
	}

	seen := make(map[string]bool, len(pf.Participants))
	for i := range pf.Participants {
		p := &pf.Participants[i]
		p.Name = strings.TrimSpace(p.Name)
		if p.Name == "" {
			return nil, fmt.Errorf("participant %d has no name", i)
		}
		if p.ID == "" {
			p.ID = strings.ToLower(p.Name)
		}
		p.ID = strings.ToLower(strings.TrimSpace(p.ID))
		if p.ID == domain.HumanID {
			return nil, fmt.Errorf("participant id %q is reserved", p.ID)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("duplicate participant id %q", p.ID)
		}
		seen[p.ID] = true
		if p.Personality == "" {
			p.Personality = "Balanced"
		}
	}

	return pf.Participants, nil
}
