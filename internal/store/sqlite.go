package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ashureev/speakup-gd/internal/domain"
	_ "modernc.org/sqlite"
)

const (
	saveRetries   = 3
	saveBaseDelay = 100 * time.Millisecond
)

// SQLiteStore implements ResultRepository using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	writeMu sync.Mutex // serializes writers to avoid SQLITE_BUSY
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS gd_results (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		session_id TEXT NOT NULL,
		topic TEXT NOT NULL,
		difficulty TEXT NOT NULL,
		duration INTEGER NOT NULL,
		score INTEGER NOT NULL,
		evaluation_json TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_gd_results_user ON gd_results(user_id, created_at DESC);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SaveResult inserts a result, retrying with exponential backoff while the database is locked.
func (s *SQLiteStore) SaveResult(ctx context.Context, r *domain.Result) error {
	if err := validate(r); err != nil {
		return err
	}

	for i := 0; i < saveRetries; i++ {
		err := s.saveOnce(ctx, r)
		if err == nil {
			return nil
		}
		if !isSQLiteConflict(err) || i == saveRetries-1 {
			return fmt.Errorf("save result %s after %d attempts: %w", r.ID, i+1, err)
		}

		delay := saveBaseDelay * time.Duration(1<<i)
		slog.Debug("SaveResult hit a locked database, retrying",
			"result_id", r.ID,
			"attempt", i+1,
			"delay", delay)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (s *SQLiteStore) saveOnce(ctx context.Context, r *domain.Result) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	query := `
	INSERT INTO gd_results (id, user_id, session_id, topic, difficulty, duration, score, evaluation_json, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO NOTHING`

	var evaluation interface{}
	if r.EvaluationJSON != "" {
		evaluation = r.EvaluationJSON
	}

	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.UserID, r.SessionID, r.Topic, string(r.Difficulty),
		r.DurationSeconds, r.Score, evaluation, r.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

// ListResults returns a user's results, newest first.
func (s *SQLiteStore) ListResults(ctx context.Context, userID string, limit int) ([]*domain.Result, error) {
	query := `
		SELECT id, user_id, session_id, topic, difficulty, duration, score, evaluation_json, created_at
		FROM gd_results WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, userID, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close result rows", "error", closeErr)
		}
	}()

	var out []*domain.Result
	for rows.Next() {
		var r domain.Result
		var difficulty string
		var evaluation sql.NullString
		var createdAt int64

		if err := rows.Scan(
			&r.ID, &r.UserID, &r.SessionID, &r.Topic, &difficulty,
			&r.DurationSeconds, &r.Score, &evaluation, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan result row: %w", err)
		}

		r.Difficulty = domain.Difficulty(difficulty)
		r.EvaluationJSON = evaluation.String
		r.CreatedAt = time.UnixMilli(createdAt).UTC()
		out = append(out, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}

	return out, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
