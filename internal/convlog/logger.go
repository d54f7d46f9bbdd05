// Package convlog writes discussion transcripts as NDJSON, one file per user session.
package convlog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/speakup-gd/internal/config"
	"github.com/ashureev/speakup-gd/internal/discussion"
	"github.com/ashureev/speakup-gd/internal/domain"
)

// ConversationLogEvent is one line of a conversation log.
type ConversationLogEvent struct {
	Timestamp  string         `json:"ts"`
	UserID     string         `json:"user_id"`
	SessionID  string         `json:"session_id"`
	Channel    string         `json:"channel"`
	Direction  string         `json:"direction"`
	EventType  string         `json:"event_type"`
	Speaker    string         `json:"speaker,omitempty"`
	ContentRaw string         `json:"content_raw,omitempty"`
	Content    string         `json:"content,omitempty"`
	Meta       map[string]any `json:"meta,omitempty"`
}

// ConversationLogger records conversation events.
type ConversationLogger interface {
	Log(event ConversationLogEvent)
	Close() error
}

type noopConversationLogger struct{}

func (noopConversationLogger) Log(ConversationLogEvent) {}
func (noopConversationLogger) Close() error             { return nil }

// FileLogger appends events to per-session NDJSON files from a background goroutine.
type FileLogger struct {
	cfg    config.ConversationLogConfig
	queue  chan ConversationLogEvent
	files  map[string]*os.File
	global *os.File
	logger *slog.Logger

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewConversationLogger creates a logger. A disabled config yields a logger that drops everything.
func NewConversationLogger(cfg config.ConversationLogConfig, logger *slog.Logger) (ConversationLogger, error) {
	if !cfg.Enabled {
		return noopConversationLogger{}, nil
	}
	l, err := newFileLogger(cfg, logger)
	if err != nil {
		return nil, err
	}
	l.wg.Add(1)
	go l.run()
	return l, nil
}

func newFileLogger(cfg config.ConversationLogConfig, logger *slog.Logger) (*FileLogger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create conversation log dir: %w", err)
	}

	l := &FileLogger{
		cfg:    cfg,
		queue:  make(chan ConversationLogEvent, cfg.QueueSize),
		files:  make(map[string]*os.File),
		logger: logger,
	}

	if cfg.GlobalEnabled {
		if err := os.MkdirAll(filepath.Dir(cfg.GlobalPath), 0o755); err != nil {
			return nil, fmt.Errorf("create global conversation log dir: %w", err)
		}
		f, err := os.OpenFile(cfg.GlobalPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open global conversation log: %w", err)
		}
		l.global = f
	}
	return l, nil
}

// Log queues an event. Events are dropped when the queue is full.
func (l *FileLogger) Log(event ConversationLogEvent) {
	if event.Timestamp == "" {
		event.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	if event.Content == "" && event.ContentRaw != "" {
		event.Content = cleanForReadability(event.ContentRaw)
	}
	defer func() {
		// Log may race with Close during shutdown.
		_ = recover()
	}()
	select {
	case l.queue <- event:
	default:
		l.logger.Warn("Conversation log queue full, dropping event", "session_id", event.SessionID, "event_type", event.EventType)
	}
}

func (l *FileLogger) run() {
	defer l.wg.Done()
	for event := range l.queue {
		l.write(event)
	}
}

// write appends one event. The session file is released once the session
// has ended or been evicted.
func (l *FileLogger) write(event ConversationLogEvent) {
	line, err := json.Marshal(event)
	if err != nil {
		l.logger.Error("Failed to encode conversation event", "error", err)
		return
	}
	line = append(line, '\n')

	f, err := l.fileFor(event.UserID, event.SessionID)
	if err != nil {
		l.logger.Error("Failed to open conversation log", "session_id", event.SessionID, "error", err)
	} else if _, err := f.Write(line); err != nil {
		l.logger.Error("Failed to write conversation log", "session_id", event.SessionID, "error", err)
	}

	if l.global != nil {
		if _, err := l.global.Write(line); err != nil {
			l.logger.Error("Failed to write global conversation log", "error", err)
		}
	}

	switch discussion.EventType(event.EventType) {
	case discussion.EventEnded, discussion.EventEvicted:
		l.closeFile(event.UserID, event.SessionID)
	}
}

func (l *FileLogger) fileFor(userID, sessionID string) (*os.File, error) {
	key := userID + "/" + sessionID
	if f, ok := l.files[key]; ok {
		return f, nil
	}
	dir := filepath.Join(l.cfg.Dir, safeName(userID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(filepath.Join(dir, safeName(sessionID)+".ndjson"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	l.files[key] = f
	return f, nil
}

func (l *FileLogger) closeFile(userID, sessionID string) {
	key := userID + "/" + sessionID
	if f, ok := l.files[key]; ok {
		_ = f.Close()
		delete(l.files, key)
	}
}

// Close flushes queued events and closes every open file.
func (l *FileLogger) Close() error {
	l.closeOnce.Do(func() {
		close(l.queue)
		l.wg.Wait()
		for key, f := range l.files {
			_ = f.Close()
			delete(l.files, key)
		}
		if l.global != nil {
			_ = l.global.Close()
		}
	})
	return nil
}

// Observer adapts a ConversationLogger to discussion events.
func Observer(l ConversationLogger) discussion.Observer {
	return discussion.ObserverFunc(func(_ context.Context, e discussion.Event) {
		l.Log(fromEvent(e))
	})
}

func fromEvent(e discussion.Event) ConversationLogEvent {
	ev := ConversationLogEvent{
		Timestamp: e.Time.UTC().Format(time.RFC3339Nano),
		UserID:    e.UserID,
		SessionID: e.SessionID,
		Channel:   "discussion",
		Direction: "internal",
		EventType: string(e.Type),
		Meta:      map[string]any{"phase": e.Phase},
	}
	switch e.Type {
	case discussion.EventStarted:
		ev.Content = e.Topic
	case discussion.EventPaused:
		ev.Direction = "inbound"
		ev.Meta["pause_count"] = e.PauseCount
	case discussion.EventEnded:
		ev.Direction = "outbound"
		if e.Evaluation != nil {
			ev.Meta["overall_score"] = e.Evaluation.OverallScore
			ev.Meta["pause_penalty"] = e.Evaluation.PausePenalty
		}
	}
	if u := e.Utterance; u != nil {
		ev.Speaker = u.Speaker
		ev.ContentRaw = u.Text
		ev.Content = cleanForReadability(u.Text)
		ev.Direction = "outbound"
		if u.SpeakerID == domain.HumanID {
			ev.Direction = "inbound"
		}
	}
	return ev
}

var (
	ansiPattern  = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)
	spacePattern = regexp.MustCompile(`[ \t]+`)
	unsafeChars  = regexp.MustCompile(`[^A-Za-z0-9._-]`)
)

// cleanForReadability strips escape sequences and control characters and collapses runs of spaces.
func cleanForReadability(raw string) string {
	s := ansiPattern.ReplaceAllString(raw, "")
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
	s = spacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func safeName(s string) string {
	s = unsafeChars.ReplaceAllString(s, "_")
	if s == "" || strings.Trim(s, ".") == "" {
		return "unknown"
	}
	return s
}
