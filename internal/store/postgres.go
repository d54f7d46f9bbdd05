package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ashureev/speakup-gd/internal/domain"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS gd_results (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	session_id TEXT NOT NULL,
	topic TEXT NOT NULL,
	difficulty TEXT NOT NULL,
	duration INTEGER NOT NULL,
	score INTEGER NOT NULL,
	evaluation JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_gd_results_user ON gd_results (user_id, created_at DESC);
`

// PostgresStore implements ResultRepository on a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to databaseURL and ensures the results table exists.
func NewPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// SaveResult inserts a result.
func (s *PostgresStore) SaveResult(ctx context.Context, r *domain.Result) error {
	if err := validate(r); err != nil {
		return err
	}

	var evaluation any
	if r.EvaluationJSON != "" {
		evaluation = r.EvaluationJSON
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO gd_results (id, user_id, session_id, topic, difficulty, duration, score, evaluation, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING`,
		r.ID, r.UserID, r.SessionID, r.Topic, string(r.Difficulty),
		r.DurationSeconds, r.Score, evaluation, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}

	slog.Debug("stored discussion result", "result_id", r.ID, "session_id", r.SessionID)
	return nil
}

// ListResults returns a user's results, newest first.
func (s *PostgresStore) ListResults(ctx context.Context, userID string, limit int) ([]*domain.Result, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, session_id, topic, difficulty, duration, score,
		       COALESCE(evaluation::text, ''), created_at
		FROM gd_results
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		userID, normalizeLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var out []*domain.Result
	for rows.Next() {
		var r domain.Result
		var difficulty string
		if err := rows.Scan(&r.ID, &r.UserID, &r.SessionID, &r.Topic, &difficulty,
			&r.DurationSeconds, &r.Score, &r.EvaluationJSON, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		r.Difficulty = domain.Difficulty(difficulty)
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return out, nil
}

// Ping verifies database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
