package handoff

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ashureev/speakup-gd/internal/llm"
)

// Semantic asks the model which participant, if any, is being handed the floor.
type Semantic struct {
	client  llm.Client
	timeout time.Duration
	logger  *slog.Logger
}

// NewSemantic creates the classification strategy.
func NewSemantic(client llm.Client, timeout time.Duration, logger *slog.Logger) *Semantic {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Semantic{client: client, timeout: timeout, logger: logger}
}

// Name implements Strategy.
func (s *Semantic) Name() string { return "semantic" }

// Detect implements Strategy.
func (s *Semantic) Detect(ctx context.Context, text string, candidates []Candidate) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	reply, err := s.client.Generate(ctx, llm.Request{
		Messages:    []llm.Message{llm.System(classifierPrompt(candidates)), llm.User(text)},
		MaxTokens:   5,
		Temperature: 0,
	})
	if err != nil {
		s.logger.Debug("Handoff classification failed", "error", err)
		return "", false
	}

	answer := strings.ToLower(strings.Trim(strings.TrimSpace(reply), ".,;:!?\"'`*"))
	for _, c := range candidates {
		if answer == c.ID {
			return c.ID, true
		}
	}
	return "", false
}

func classifierPrompt(candidates []Candidate) string {
	var b strings.Builder
	b.WriteString("You classify one message from a group discussion. ")
	b.WriteString("Decide whether the speaker explicitly invites one specific participant to speak next.\n")
	b.WriteString("Participants:\n")
	for _, c := range candidates {
		fmt.Fprintf(&b, "- %s (addressed as: %s)\n", c.ID, strings.Join(c.Names, ", "))
	}
	b.WriteString("Answer with exactly one participant id from the list, or none. Output only that single word.")
	return b.String()
}
