package store

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ashureev/speakup-gd/internal/domain"
)

const resultsCollection = "gd_results"

// FirestoreStore implements ResultRepository on Cloud Firestore.
type FirestoreStore struct {
	client *firestore.Client
}

type resultDoc struct {
	UserID         string    `firestore:"user_id"`
	SessionID      string    `firestore:"session_id"`
	Topic          string    `firestore:"topic"`
	Difficulty     string    `firestore:"difficulty"`
	Duration       int       `firestore:"duration"`
	Score          int       `firestore:"score"`
	EvaluationJSON string    `firestore:"evaluation_json"`
	CreatedAt      time.Time `firestore:"created_at"`
}

// NewFirestore creates a Firestore store in projectID.
func NewFirestore(ctx context.Context, projectID string) (*FirestoreStore, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &FirestoreStore{client: client}, nil
}

func (s *FirestoreStore) results() *firestore.CollectionRef {
	return s.client.Collection(resultsCollection)
}

// SaveResult creates the result document. An existing document with the same id is left untouched.
func (s *FirestoreStore) SaveResult(ctx context.Context, r *domain.Result) error {
	if err := validate(r); err != nil {
		return err
	}

	doc := resultDoc{
		UserID:         r.UserID,
		SessionID:      r.SessionID,
		Topic:          r.Topic,
		Difficulty:     string(r.Difficulty),
		Duration:       r.DurationSeconds,
		Score:          r.Score,
		EvaluationJSON: r.EvaluationJSON,
		CreatedAt:      r.CreatedAt,
	}

	_, err := s.results().Doc(r.ID).Create(ctx, doc)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return nil
		}
		return fmt.Errorf("firestore SaveResult: %w", err)
	}
	return nil
}

// ListResults returns a user's results, newest first.
func (s *FirestoreStore) ListResults(ctx context.Context, userID string, limit int) ([]*domain.Result, error) {
	q := s.results().Where("user_id", "==", userID).OrderBy("created_at", firestore.Desc).Limit(normalizeLimit(limit))

	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []*domain.Result
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("firestore ListResults: %w", err)
		}

		var doc resultDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode resultDoc: %w", err)
		}

		out = append(out, &domain.Result{
			ID:              snap.Ref.ID,
			UserID:          doc.UserID,
			SessionID:       doc.SessionID,
			Topic:           doc.Topic,
			Difficulty:      domain.Difficulty(doc.Difficulty),
			DurationSeconds: doc.Duration,
			Score:           doc.Score,
			EvaluationJSON:  doc.EvaluationJSON,
			CreatedAt:       doc.CreatedAt,
		})
	}
	return out, nil
}

// Ping reads a single document to confirm the project is reachable.
func (s *FirestoreStore) Ping(ctx context.Context) error {
	iter := s.results().Limit(1).Documents(ctx)
	defer iter.Stop()
	if _, err := iter.Next(); err != nil && err != iterator.Done {
		return fmt.Errorf("firestore ping: %w", err)
	}
	return nil
}

// Close closes the Firestore client.
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}
