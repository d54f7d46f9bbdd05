package domain

import "time"

// Result is the stored summary of a finished discussion.
type Result struct {
	ID              string     `json:"id"`
	UserID          string     `json:"userId"`
	SessionID       string     `json:"sessionId"`
	Topic           string     `json:"topic"`
	Difficulty      Difficulty `json:"difficulty"`
	DurationSeconds int        `json:"duration"`
	Score           int        `json:"score"`
	EvaluationJSON  string     `json:"evaluation,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}
