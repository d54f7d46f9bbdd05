package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"

	"github.com/ashureev/speakup-gd/internal/discussion"
	"github.com/ashureev/speakup-gd/internal/domain"
)

const (
	subscriberBuffer = 64
	streamWriteWait  = 5 * time.Second
)

type subscriber struct {
	events chan discussion.Event
	once   sync.Once
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.events) })
}

// StreamHub fans session events out to websocket subscribers.
type StreamHub struct {
	mu             sync.RWMutex
	subs           map[string]map[*subscriber]struct{}
	originPatterns []string
	logger         *slog.Logger
}

// NewStreamHub creates a hub. originPatterns is passed to the websocket handshake;
// an empty list only accepts same-origin requests.
func NewStreamHub(originPatterns []string, logger *slog.Logger) *StreamHub {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamHub{
		subs:           make(map[string]map[*subscriber]struct{}),
		originPatterns: originPatterns,
		logger:         logger,
	}
}

// Observe implements discussion.Observer. Slow subscribers miss events rather than stall the session.
func (h *StreamHub) Observe(_ context.Context, e discussion.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs[e.SessionID] {
		select {
		case sub.events <- e:
		default:
			h.logger.Warn("Stream subscriber lagging, dropping event", "session_id", e.SessionID, "type", e.Type)
		}
	}
}

func (h *StreamHub) register(sessionID string) *subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[sessionID]; !ok {
		h.subs[sessionID] = make(map[*subscriber]struct{})
	}
	sub := &subscriber{events: make(chan discussion.Event, subscriberBuffer)}
	h.subs[sessionID][sub] = struct{}{}
	h.logger.Info("Stream subscriber registered", "session_id", sessionID)
	return sub
}

func (h *StreamHub) unregister(sessionID string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subs, ok := h.subs[sessionID]; ok {
		if _, exists := subs[sub]; exists {
			delete(subs, sub)
			sub.close()
			if len(subs) == 0 {
				delete(h.subs, sessionID)
			}
			h.logger.Info("Stream subscriber unregistered", "session_id", sessionID)
		}
	}
}

// CloseSession disconnects every subscriber of a session.
func (h *StreamHub) CloseSession(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.subs[sessionID]
	if !ok {
		return
	}
	for sub := range subs {
		sub.close()
	}
	delete(h.subs, sessionID)
	h.logger.Info("Stream closed", "session_id", sessionID)
}

// Len returns the number of sessions with live subscribers.
func (h *StreamHub) Len() int {
	if h == nil {
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Stream upgrades to a websocket and pushes the session snapshot followed by live events.
// The subscriber is registered before the snapshot is taken so nothing falls
// between the two; utterances already in the snapshot are not sent again.
func (h *DiscussionHandler) Stream(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")
	if _, err := h.svc.View(r.Context(), sessionID); err != nil {
		h.serviceError(w, "stream", sessionID, err)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.hub.originPatterns,
	})
	if err != nil {
		h.logger.Error("Failed to accept WebSocket", "error", err, "session_id", sessionID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "stream ended"); closeErr != nil {
			h.logger.Debug("Failed to close websocket", "error", closeErr, "session_id", sessionID)
		}
	}()

	sub := h.hub.register(sessionID)
	defer h.hub.unregister(sessionID, sub)

	// The stream is one-way; CloseRead cancels ctx once the client goes away.
	ctx := ws.CloseRead(r.Context())

	view, err := h.svc.View(ctx, sessionID)
	if err != nil {
		h.logger.Debug("Session gone before snapshot", "error", err, "session_id", sessionID)
		return
	}
	sent := snapshotUtterances(view)
	if err := writeEvent(ctx, ws, map[string]interface{}{"type": "snapshot", "session": view}); err != nil {
		return
	}

	for {
		select {
		case e, ok := <-sub.events:
			if !ok {
				return
			}
			if e.Utterance != nil && sent[utteranceKey(*e.Utterance)] {
				continue
			}
			if err := writeEvent(ctx, ws, e); err != nil {
				h.logger.Debug("WebSocket write error", "error", err, "session_id", sessionID)
				return
			}
			if e.Type == discussion.EventEnded {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func snapshotUtterances(v *discussion.View) map[string]bool {
	sent := make(map[string]bool, len(v.Transcript))
	for _, u := range v.Transcript {
		sent[utteranceKey(u)] = true
	}
	return sent
}

func utteranceKey(u domain.Utterance) string {
	return u.SpeakerID + "|" + strconv.FormatInt(u.Timestamp.UnixNano(), 10) + "|" + u.Text
}

func writeEvent(ctx context.Context, ws *websocket.Conn, v interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, streamWriteWait)
	defer cancel()
	return wsjson.Write(ctx, ws, v)
}
