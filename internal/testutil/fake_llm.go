// Package testutil holds fakes shared by package tests.
package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/ashureev/speakup-gd/internal/llm"
)

// FakeLLM is a scripted llm.Client that records every request.
type FakeLLM struct {
	mu       sync.Mutex
	requests []llm.Request

	// Respond produces the reply. A nil Respond makes every call fail with llm.ErrUnavailable.
	Respond func(req llm.Request) (string, error)
}

// Generate implements llm.Client.
func (f *FakeLLM) Generate(ctx context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	respond := f.Respond
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if respond == nil {
		return "", llm.ErrUnavailable
	}
	return respond(req)
}

// Calls returns how many requests were made.
func (f *FakeLLM) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// Requests returns a copy of the recorded requests.
func (f *FakeLLM) Requests() []llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]llm.Request, len(f.requests))
	copy(out, f.requests)
	return out
}

// Reply returns a Respond func that always answers text.
func Reply(text string) func(llm.Request) (string, error) {
	return func(llm.Request) (string, error) { return text, nil }
}

// SystemPrompt returns the concatenated system messages of a request.
func SystemPrompt(req llm.Request) string {
	var parts []string
	for _, m := range req.Messages {
		if m.Role == llm.RoleSystem {
			parts = append(parts, m.Content)
		}
	}
	return strings.Join(parts, "\n")
}
