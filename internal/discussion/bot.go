package discussion

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/ashureev/speakup-gd/internal/domain"
	"github.com/ashureev/speakup-gd/internal/llm"
)

const (
	contextWindow  = 5
	botMaxTokens   = 150
	botTemperature = 0.8
)

// botTurn is everything a bot sees when asked to speak.
type botTurn struct {
	topic      string
	userName   string
	others     []string
	recent     []domain.Utterance
	directives []string
}

// Bot generates utterances for one participant.
type Bot struct {
	participant domain.Participant
	client      llm.Client
	timeout     time.Duration
	logger      *slog.Logger
}

func newBot(p domain.Participant, client llm.Client, timeout time.Duration, logger *slog.Logger) *Bot {
	return &Bot{participant: p, client: client, timeout: timeout, logger: logger}
}

// Generate returns the bot's next line. It always returns usable text.
func (b *Bot) Generate(ctx context.Context, t botTurn) string {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	start := time.Now()
	reply, err := b.client.Generate(ctx, llm.Request{
		Messages: []llm.Message{
			llm.System(personaPrompt(b.participant, t)),
			llm.User(transcriptPrompt(b.participant, t)),
		},
		MaxTokens:   botMaxTokens,
		Temperature: botTemperature,
	})
	if err != nil {
		b.logger.Warn("Bot generation failed, using fallback",
			"bot", b.participant.ID, "error", err, "duration", time.Since(start))
		return fallbackLine(b.participant, t.topic)
	}

	text := cleanReply(b.participant.Name, reply)
	if text == "" {
		return fallbackLine(b.participant, t.topic)
	}
	return text
}

// cleanReply strips a leading speaker label and wrapping quotes.
func cleanReply(name, reply string) string {
	text := strings.TrimSpace(reply)
	if len(text) > len(name)+1 && strings.EqualFold(text[:len(name)], name) && text[len(name)] == ':' {
		text = strings.TrimSpace(text[len(name)+1:])
	}
	text = strings.Trim(text, "\"“”")
	return strings.TrimSpace(text)
}
