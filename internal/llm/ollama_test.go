package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOllamaClientGenerate(t *testing.T) {
	t.Parallel()

	var got ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(ollamaChatResponse{Message: Message{Role: RoleAssistant, Content: "  sarah \n"}})
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, "test-model")
	text, err := c.Generate(context.Background(), Request{
		Messages:    []Message{System("classify"), User("hello")},
		MaxTokens:   5,
		Temperature: 0,
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if text != "sarah" {
		t.Fatalf("expected trimmed text, got %q", text)
	}
	if got.Model != "test-model" || got.Stream {
		t.Fatalf("unexpected request: %+v", got)
	}
	if len(got.Messages) != 2 || got.Options.NumPredict != 5 {
		t.Fatalf("unexpected request body: %+v", got)
	}
}

func TestOllamaClientErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewOllamaClient(srv.URL, "missing").Generate(context.Background(), Request{Messages: []Message{User("hi")}})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestOfflineClientIsUnavailable(t *testing.T) {
	t.Parallel()

	if _, err := (OfflineClient{}).Generate(context.Background(), Request{}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
