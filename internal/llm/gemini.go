package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiClient generates text with Gemini, either through the Gemini API or Vertex AI.
type GeminiClient struct {
	client    *genai.Client
	modelName string
}

// NewGeminiClient creates a Gemini client. With a project and location set it uses
// Vertex AI; otherwise it needs an API key.
func NewGeminiClient(ctx context.Context, apiKey, project, location, model string) (*GeminiClient, error) {
	cc := &genai.ClientConfig{}
	switch {
	case project != "" && location != "":
		cc.Project = project
		cc.Location = location
		cc.Backend = genai.BackendVertexAI
	case apiKey != "":
		cc.APIKey = apiKey
		cc.Backend = genai.BackendGeminiAPI
	default:
		return nil, fmt.Errorf("GEMINI_API_KEY or GCP_PROJECT and GCP_LOCATION must be set")
	}

	if model == "" {
		model = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return &GeminiClient{client: client, modelName: model}, nil
}

// Generate implements Client.
func (g *GeminiClient) Generate(ctx context.Context, req Request) (string, error) {
	system, msgs := splitSystem(req.Messages)

	contents := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		role := genai.Role(genai.RoleUser)
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	temp := req.Temperature
	cfg := &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: int32(req.MaxTokens),
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	res, err := g.client.Models.GenerateContent(ctx, g.modelName, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("%w: gemini generate content: %w", ErrUnavailable, err)
	}

	text := strings.TrimSpace(res.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
