// Package llm provides the text generation clients used by the discussion bots,
// the handoff classifier and the evaluator.
package llm

import (
	"context"
	"errors"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var (
	// ErrUnavailable wraps transport and provider failures.
	ErrUnavailable = errors.New("language generation unavailable")
	// ErrEmptyResponse is returned when the provider answered with no text.
	ErrEmptyResponse = errors.New("language generation returned empty text")
)

// Message is one chat message sent to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a single chat completion request.
type Request struct {
	Messages    []Message
	MaxTokens   int
	Temperature float32
}

// Client generates text from a list of chat messages.
// Implementations must not retry; callers bound each call with a context deadline.
type Client interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// System is a shorthand for a system message.
func System(content string) Message { return Message{Role: RoleSystem, Content: content} }

// User is a shorthand for a user message.
func User(content string) Message { return Message{Role: RoleUser, Content: content} }

// splitSystem separates system messages from the conversational ones for providers
// that take the system prompt out of band.
func splitSystem(msgs []Message) (string, []Message) {
	var system string
	rest := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}
