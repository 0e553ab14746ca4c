// Package events publishes domain events to interested consumers.
package events

import (
	"context"
	"time"

	"github.com/vytor/quizflash/internal/models"
)

const TypeAttemptCompleted = "attempt.completed"

// AttemptCompleted is emitted once per session after its attempt commits.
type AttemptCompleted struct {
	Type            string      `json:"type"`
	SessionID       string      `json:"session_id"`
	UserID          int64       `json:"user_id"`
	Mode            models.Mode `json:"mode"`
	Categories      []int64     `json:"categories"`
	TotalQuestions  int         `json:"total_questions"`
	CorrectAnswers  int         `json:"correct_answers"`
	DurationSeconds int         `json:"duration_seconds"`
	CompletedAt     time.Time   `json:"completed_at"`
}

// NewAttemptCompleted builds the event for a stored attempt.
func NewAttemptCompleted(a models.Attempt) AttemptCompleted {
	return AttemptCompleted{
		Type:            TypeAttemptCompleted,
		SessionID:       a.SessionID,
		UserID:          a.UserID,
		Mode:            a.Mode,
		Categories:      a.Categories,
		TotalQuestions:  a.TotalQuestions,
		CorrectAnswers:  a.CorrectAnswers,
		DurationSeconds: a.DurationSeconds,
		CompletedAt:     a.CreatedAt,
	}
}

// Publisher delivers events. Publishing happens after the write commits, so
// a failure never undoes the write.
type Publisher interface {
	PublishAttemptCompleted(ctx context.Context, event AttemptCompleted) error
	Close() error
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

func (NoopPublisher) PublishAttemptCompleted(context.Context, AttemptCompleted) error { return nil }
func (NoopPublisher) Close() error                                                   { return nil }
