// Package api provides HTTP handlers for the discussion API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/speakup-gd/internal/discussion"
	"github.com/ashureev/speakup-gd/internal/store"
)

const maxBodyBytes = 64 << 10

// Handler provides common handler utilities.
type Handler struct {
	svc    *discussion.Service
	repo   store.ResultRepository
	hub    *StreamHub
	logger *slog.Logger
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(svc *discussion.Service, repo store.ResultRepository, hub *StreamHub, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, repo: repo, hub: hub, logger: logger}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, discussion.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, discussion.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, discussion.ErrSessionEnded):
		return http.StatusConflict
	case errors.Is(err, discussion.ErrEndTimedOut), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) serviceError(w http.ResponseWriter, op, sessionID string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Discussion request failed", "op", op, "session_id", sessionID, "error", err)
	} else {
		h.logger.Debug("Discussion request rejected", "op", op, "session_id", sessionID, "error", err)
	}
	Error(w, status, err.Error())
}

// Heartbeat answers liveness probes.
func Heartbeat(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Health reports whether the result store is reachable.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if h.repo != nil {
		if err := h.repo.Ping(ctx); err != nil {
			h.logger.Warn("Health check failed", "error", err)
			JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "store": "unreachable"})
			return
		}
	}
	JSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "store": "ok", "streams": h.hub.Len()})
}
