package discussion

import (
	"context"
	"sync"
	"time"
)

// entry guards one session. The one-slot channel is the session's write lock;
// unlike a mutex it can be acquired with a deadline.
type entry struct {
	slot    chan struct{}
	session *Session
}

func newEntry(s *Session) *entry {
	return &entry{slot: make(chan struct{}, 1), session: s}
}

func (e *entry) acquire(ctx context.Context) error {
	select {
	case e.slot <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// acquireWithin waits at most wait for the slot.
func (e *entry) acquireWithin(ctx context.Context, wait time.Duration) error {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case e.slot <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrEndTimedOut
	}
}

func (e *entry) tryAcquire() bool {
	select {
	case e.slot <- struct{}{}:
		return true
	default:
		return false
	}
}

func (e *entry) release() {
	<-e.slot
}

// Registry maps session ids to their state.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

func (r *Registry) put(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[s.ID] = newEntry(s)
}

func (r *Registry) get(id string) (*entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	return e, ok
}

// Len returns the number of tracked sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// sweep removes sessions idle for longer than idleTTL and evaluated sessions
// older than retention. Sessions busy with a turn are skipped.
func (r *Registry) sweep(now time.Time, idleTTL, retention time.Duration) []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []*Session
	for id, e := range r.entries {
		if !e.tryAcquire() {
			continue
		}
		s := e.session
		expired := (idleTTL > 0 && now.Sub(s.lastActivity) > idleTTL) ||
			(s.Result != nil && now.Sub(s.EndedAt) > retention)
		e.release()

		if expired {
			delete(r.entries, id)
			removed = append(removed, s)
		}
	}
	return removed
}
