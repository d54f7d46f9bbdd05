package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ashureev/speakup-gd/internal/config"
)

// New builds the client selected by cfg.Provider.
func New(ctx context.Context, cfg config.LLM) (Client, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAIClient(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.Model)
	case "azure":
		return NewAzureClient(cfg.AzureEndpoint, cfg.AzureKey, cfg.AzureAPIVersion, cfg.Model)
	case "gemini":
		return NewGeminiClient(ctx, cfg.GeminiKey, cfg.GCPProject, cfg.GCPLocation, cfg.Model)
	case "ollama":
		return NewOllamaClient(cfg.OllamaURL, cfg.Model), nil
	case "offline", "":
		slog.Warn("LLM provider is offline, bots and evaluation will use fallbacks")
		return OfflineClient{}, nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}
