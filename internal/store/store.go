// Package store persists finished discussion results.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/ashureev/speakup-gd/internal/config"
	"github.com/ashureev/speakup-gd/internal/domain"
)

// DefaultHistoryLimit caps history queries that do not name a limit.
const DefaultHistoryLimit = 50

// ErrInvalidResult is returned when a result is missing its identifiers.
var ErrInvalidResult = errors.New("result requires id, user id and session id")

// ResultRepository defines the interface for persisting discussion results.
type ResultRepository interface {
	// SaveResult stores a result. Saving the same result id twice is a no-op.
	SaveResult(ctx context.Context, r *domain.Result) error

	// ListResults returns a user's results, newest first.
	ListResults(ctx context.Context, userID string, limit int) ([]*domain.Result, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the backend connection.
	Close() error
}

// Open creates the repository selected by cfg.Backend.
func Open(ctx context.Context, cfg config.Storage) (ResultRepository, error) {
	switch cfg.Backend {
	case "sqlite":
		return NewSQLite(cfg.DBPath)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL)
	case "firestore":
		return NewFirestore(ctx, cfg.GCPProject)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func validate(r *domain.Result) error {
	if r == nil || r.ID == "" || r.UserID == "" || r.SessionID == "" {
		return ErrInvalidResult
	}
	return nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > DefaultHistoryLimit {
		return DefaultHistoryLimit
	}
	return limit
}
