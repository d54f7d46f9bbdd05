package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/speakup-gd/internal/domain"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "nested", "gd.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func result(id, userID string, score int, at time.Time) *domain.Result {
	return &domain.Result{
		ID:              id,
		UserID:          userID,
		SessionID:       "session-" + id,
		Topic:           "Remote work",
		Difficulty:      domain.DifficultyMedium,
		DurationSeconds: 540,
		Score:           score,
		EvaluationJSON:  `{"overallScore":` + fmt.Sprint(score) + `}`,
		CreatedAt:       at,
	}
}

func TestSQLiteSaveAndList(t *testing.T) {
	t.Parallel()

	s := newTestSQLite(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i, r := range []*domain.Result{
		result("r1", "anon_a", 40, base),
		result("r2", "anon_a", 65, base.Add(time.Hour)),
		result("r3", "anon_b", 80, base.Add(2*time.Hour)),
	} {
		if err := s.SaveResult(ctx, r); err != nil {
			t.Fatalf("SaveResult %d failed: %v", i, err)
		}
	}

	got, err := s.ListResults(ctx, "anon_a", 10)
	if err != nil {
		t.Fatalf("ListResults failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if got[0].ID != "r2" || got[1].ID != "r1" {
		t.Fatalf("expected newest first, got %s, %s", got[0].ID, got[1].ID)
	}
	if !got[0].CreatedAt.Equal(base.Add(time.Hour)) || got[0].Score != 65 || got[0].Difficulty != domain.DifficultyMedium {
		t.Fatalf("unexpected stored result: %+v", got[0])
	}
	if got[0].EvaluationJSON != `{"overallScore":65}` {
		t.Fatalf("unexpected evaluation json %q", got[0].EvaluationJSON)
	}

	limited, err := s.ListResults(ctx, "anon_a", 1)
	if err != nil || len(limited) != 1 {
		t.Fatalf("expected limit to apply, got %d (%v)", len(limited), err)
	}
}

func TestSQLiteSaveIsIdempotent(t *testing.T) {
	t.Parallel()

	s := newTestSQLite(t)
	ctx := context.Background()
	r := result("dup", "anon_a", 50, time.Now())

	if err := s.SaveResult(ctx, r); err != nil {
		t.Fatalf("SaveResult failed: %v", err)
	}
	r.Score = 99
	if err := s.SaveResult(ctx, r); err != nil {
		t.Fatalf("second SaveResult failed: %v", err)
	}

	got, _ := s.ListResults(ctx, "anon_a", 0)
	if len(got) != 1 || got[0].Score != 50 {
		t.Fatalf("expected the first write to win, got %+v", got)
	}
}

func TestSQLiteRejectsIncompleteResult(t *testing.T) {
	t.Parallel()

	s := newTestSQLite(t)
	err := s.SaveResult(context.Background(), &domain.Result{ID: "x"})
	if !errors.Is(err, ErrInvalidResult) {
		t.Fatalf("expected ErrInvalidResult, got %v", err)
	}
}

func TestSQLiteConcurrentWrites(t *testing.T) {
	t.Parallel()

	s := newTestSQLite(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r := result(fmt.Sprintf("c%d", i), "anon_c", i, time.Now().Add(time.Duration(i)*time.Second))
			if err := s.SaveResult(ctx, r); err != nil {
				t.Errorf("SaveResult %d failed: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	got, err := s.ListResults(ctx, "anon_c", 0)
	if err != nil {
		t.Fatalf("ListResults failed: %v", err)
	}
	if len(got) != 20 {
		t.Fatalf("expected 20 results, got %d", len(got))
	}
}

func TestSQLitePing(t *testing.T) {
	t.Parallel()

	s := newTestSQLite(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
}

func TestIsSQLiteConflict(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("SQLITE_BUSY: database busy"), true},
		{fmt.Errorf("insert: %w", errors.New("database is locked (5)")), true},
		{errors.New("UNIQUE constraint failed"), false},
	}
	for _, tt := range tests {
		if got := isSQLiteConflict(tt.err); got != tt.want {
			t.Errorf("isSQLiteConflict(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
