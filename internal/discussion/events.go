package discussion

import (
	"context"
	"time"

	"github.com/ashureev/speakup-gd/internal/domain"
)

// EventType names a session lifecycle event.
type EventType string

const (
	EventStarted   EventType = "started"
	EventUtterance EventType = "utterance"
	EventPaused    EventType = "paused"
	EventConcluded EventType = "concluded"
	EventEnded     EventType = "ended"
	// EventEvicted is emitted when the sweeper drops a session, ended or not.
	EventEvicted EventType = "evicted"
)

// Event describes something that happened in a session.
type Event struct {
	Type       EventType          `json:"type"`
	SessionID  string             `json:"sessionId"`
	UserID     string             `json:"userId"`
	Topic      string             `json:"topic,omitempty"`
	Phase      domain.Phase       `json:"phase"`
	Utterance  *domain.Utterance  `json:"utterance,omitempty"`
	PauseCount int                `json:"pauseCount"`
	Evaluation *domain.Evaluation `json:"evaluation,omitempty"`
	Time       time.Time          `json:"time"`
}

// Observer receives session events. Observe is called while the session is
// locked, so implementations must hand work off instead of blocking.
type Observer interface {
	Observe(ctx context.Context, e Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, e Event)

// Observe implements Observer.
func (f ObserverFunc) Observe(ctx context.Context, e Event) { f(ctx, e) }
