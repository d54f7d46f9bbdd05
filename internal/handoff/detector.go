// Package handoff decides whether an utterance hands the floor to a specific participant.
package handoff

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/ashureev/speakup-gd/internal/llm"
)

// Candidate is a participant that may be addressed.
type Candidate struct {
	ID    string
	Names []string // lowercased name and aliases
}

// Match is a detected handoff.
type Match struct {
	ParticipantID string
	Strategy      string
}

// Strategy is one detection technique. Strategies never return an error; a failure is a miss.
type Strategy interface {
	Name() string
	Detect(ctx context.Context, text string, candidates []Candidate) (string, bool)
}

// Detector tries its strategies in order and returns the first match.
type Detector struct {
	strategies []Strategy
	logger     *slog.Logger
}

// NewDetector creates a detector over an explicit strategy list.
func NewDetector(logger *slog.Logger, strategies ...Strategy) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{strategies: strategies, logger: logger}
}

// NewDefaultDetector wires direct address, LLM classification and the phrase fallback.
func NewDefaultDetector(client llm.Client, classifyTimeout time.Duration, logger *slog.Logger) *Detector {
	return NewDetector(logger,
		DirectAddress{},
		NewSemantic(client, classifyTimeout, logger),
		NewPatterns(),
	)
}

// Detect returns the addressed participant, if any.
func (d *Detector) Detect(ctx context.Context, text string, candidates []Candidate) (Match, bool) {
	if strings.TrimSpace(text) == "" || len(candidates) == 0 {
		return Match{}, false
	}
	for _, s := range d.strategies {
		if id, ok := s.Detect(ctx, text, candidates); ok {
			d.logger.Debug("Handoff detected", "participant", id, "strategy", s.Name())
			return Match{ParticipantID: id, Strategy: s.Name()}, true
		}
	}
	return Match{}, false
}
