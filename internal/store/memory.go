package store

import (
	"context"
	"sort"
	"sync"

	"github.com/ashureev/speakup-gd/internal/domain"
)

// MemoryStore keeps results in process memory. Used by the CLI and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	results map[string]*domain.Result
}

// NewMemory creates an empty in-memory repository.
func NewMemory() *MemoryStore {
	return &MemoryStore{results: make(map[string]*domain.Result)}
}

// SaveResult stores a copy of r.
func (m *MemoryStore) SaveResult(_ context.Context, r *domain.Result) error {
	if err := validate(r); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.results[r.ID]; ok {
		return nil
	}
	cp := *r
	m.results[r.ID] = &cp
	return nil
}

// ListResults returns a user's results, newest first.
func (m *MemoryStore) ListResults(_ context.Context, userID string, limit int) ([]*domain.Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*domain.Result
	for _, r := range m.results {
		if r.UserID == userID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if n := normalizeLimit(limit); len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// Ping always succeeds.
func (m *MemoryStore) Ping(context.Context) error { return nil }

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }
