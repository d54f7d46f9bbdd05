package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/speakup-gd/internal/discussion"
	"github.com/ashureev/speakup-gd/internal/domain"
	"github.com/ashureev/speakup-gd/internal/identity"
	"github.com/ashureev/speakup-gd/internal/store"
)

// DiscussionHandler handles the group discussion endpoints.
type DiscussionHandler struct {
	*Handler
	limit func(http.Handler) http.Handler
}

// NewDiscussionHandler creates the handler. limit throttles the endpoints that call the model; it may be nil.
func NewDiscussionHandler(base *Handler, limit func(http.Handler) http.Handler) *DiscussionHandler {
	if limit == nil {
		limit = func(next http.Handler) http.Handler { return next }
	}
	return &DiscussionHandler{Handler: base, limit: limit}
}

// RegisterRoutes registers discussion routes.
func (h *DiscussionHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/gd", func(r chi.Router) {
		r.Get("/participants", h.Participants)
		r.Get("/history/{userId}", h.History)
		r.Get("/{sessionId}", h.Session)
		r.Get("/{sessionId}/stream", h.Stream)

		r.Group(func(r chi.Router) {
			r.Use(h.limit)
			r.Post("/start", h.Start)
			r.Post("/message", h.Message)
			r.Post("/feedback", h.Feedback)
			r.Post("/end", h.End)
		})
	})
}

type startRequest struct {
	UserID     string `json:"userId"`
	UserName   string `json:"userName"`
	Topic      string `json:"topic"`
	Difficulty string `json:"difficulty"`
	Duration   int    `json:"duration"` // seconds
}

type messageRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
	Action    string `json:"action"`
}

type sessionRequest struct {
	SessionID string `json:"sessionId"`
}

// Participants returns the bot panel.
func (h *DiscussionHandler) Participants(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{"participants": h.svc.Participants()})
}

// Start opens a new discussion.
func (h *DiscussionHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if !decode(w, r, &req) {
		return
	}

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		userID = identity.UserIDFromContext(r.Context())
	}

	res, err := h.svc.StartSession(r.Context(), discussionStart(userID, req))
	if err != nil {
		h.serviceError(w, "start", "", err)
		return
	}
	JSON(w, http.StatusOK, res)
}

// Message applies one user action to a discussion.
func (h *DiscussionHandler) Message(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if !decode(w, r, &req) {
		return
	}
	if req.SessionID == "" {
		Error(w, http.StatusBadRequest, "sessionId is required")
		return
	}
	action, ok := domain.ParseAction(req.Action)
	if !ok {
		Error(w, http.StatusBadRequest, "unknown action")
		return
	}

	res, err := h.svc.HandleMessage(r.Context(), req.SessionID, action, req.Message)
	if err != nil {
		h.serviceError(w, "message", req.SessionID, err)
		return
	}
	JSON(w, http.StatusOK, res)
}

// Feedback returns a mid-discussion evaluation.
func (h *DiscussionHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if !decode(w, r, &req) {
		return
	}
	if req.SessionID == "" {
		Error(w, http.StatusBadRequest, "sessionId is required")
		return
	}

	res, err := h.svc.Feedback(r.Context(), req.SessionID)
	if err != nil {
		h.serviceError(w, "feedback", req.SessionID, err)
		return
	}
	JSON(w, http.StatusOK, res)
}

// End evaluates the discussion. Repeated calls return the same evaluation.
func (h *DiscussionHandler) End(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if !decode(w, r, &req) {
		return
	}
	if req.SessionID == "" {
		Error(w, http.StatusBadRequest, "sessionId is required")
		return
	}

	res, err := h.svc.EndSession(r.Context(), req.SessionID)
	if err != nil {
		h.serviceError(w, "end", req.SessionID, err)
		return
	}
	JSON(w, http.StatusOK, res)
}

// Session returns the current state of a discussion.
func (h *DiscussionHandler) Session(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")
	v, err := h.svc.View(r.Context(), sessionID)
	if err != nil {
		h.serviceError(w, "view", sessionID, err)
		return
	}
	JSON(w, http.StatusOK, v)
}

// History lists a user's stored results, newest first.
func (h *DiscussionHandler) History(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if userID == "" {
		Error(w, http.StatusBadRequest, "userId is required")
		return
	}

	limit := store.DefaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	results, err := h.repo.ListResults(r.Context(), userID, limit)
	if err != nil {
		h.logger.Error("Failed to list results", "user_id", userID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	if results == nil {
		results = []*domain.Result{}
	}
	JSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

func discussionStart(userID string, req startRequest) discussion.StartRequest {
	return discussion.StartRequest{
		UserID:     userID,
		UserName:   req.UserName,
		Topic:      req.Topic,
		Difficulty: req.Difficulty,
		Duration:   time.Duration(req.Duration) * time.Second,
	}
}
