package repository

import (
	"context"
	"errors"
	"time"

	"github.com/vytor/quizflash/internal/models"
)

// ErrConflict is returned when a write loses a race: a duplicate answer for
// the same session slot, or a session saved from a stale copy.
var ErrConflict = errors.New("conflicting concurrent write")

type QuestionOrder int

const (
	// OrderNatural is the repository's insertion order (id ascending).
	OrderNatural QuestionOrder = iota
	OrderRandom
	OrderDifficultyAsc
)

// QuestionQuery filters questions. Zero values disable a filter.
type QuestionQuery struct {
	Categories []int64
	IDs        []int64
	Band       models.Band
	ExcludeIDs []int64
	// UnseenBy excludes questions the user answered at or after UnseenSince.
	UnseenBy    int64
	UnseenSince time.Time
	Limit       int
	Order       QuestionOrder
}

// QuestionRepository reads questions and applies difficulty changes.
type QuestionRepository interface {
	// Get loads a question with its answer body. Returns nil, nil when absent.
	Get(ctx context.Context, id int64) (*models.Question, error)
	// List returns matching questions without answer bodies.
	List(ctx context.Context, query QuestionQuery) ([]models.Question, error)
	// Closest returns the matching question whose difficulty is nearest to
	// target, ties broken by natural order. Returns nil, nil when none match.
	Closest(ctx context.Context, query QuestionQuery, target float64) (*models.Question, error)
	// AdjustDifficulty reads the stored difficulty, applies fn and writes the
	// clamped result back in one transaction.
	AdjustDifficulty(ctx context.Context, id int64, fn func(current float64) float64) (float64, error)
	Insert(ctx context.Context, q models.Question) (int64, error)
}

// Gateway persists scheduling cards and the append-only logs.
type Gateway interface {
	// GetCard returns nil, nil when the user has no card for the question.
	GetCard(ctx context.Context, userID, questionID int64) (*models.ReviewCard, error)
	UpsertCard(ctx context.Context, card models.ReviewCard) (int64, error)
	AppendReviewLog(ctx context.Context, entry models.ReviewLogEntry) (int64, error)
	AppendAnswerLog(ctx context.Context, entry models.AnswerLog) (int64, error)
	AppendAttempt(ctx context.Context, attempt models.Attempt) (int64, error)
	// DueCards returns cards with NextReviewAt <= now, most overdue first,
	// then easier questions first.
	DueCards(ctx context.Context, userID int64, categories []int64, now time.Time, limit int) ([]models.DueCard, error)
	// NewCardCandidates returns questions the user has no card for, easiest first.
	NewCardCandidates(ctx context.Context, userID int64, categories, excludeIDs []int64, limit int) ([]models.Question, error)
	AnswerStats(ctx context.Context, userID int64, start, end time.Time) (*models.AnswerStats, error)
	ListAttempts(ctx context.Context, userID int64, limit int) ([]models.Attempt, error)
}

// SessionStore keeps quiz sessions between requests.
type SessionStore interface {
	// GetSession returns nil, nil when the session does not exist.
	GetSession(ctx context.Context, id string) (*models.QuizSession, error)
	// SaveSession inserts a session with Version 0 and otherwise updates it
	// only if the stored version still matches, returning ErrConflict if not.
	// On success Version is incremented.
	SaveSession(ctx context.Context, session *models.QuizSession) error
}

// Store is the full persistence surface of the engine.
type Store interface {
	QuestionRepository
	Gateway
	SessionStore
	// Atomic runs fn against a transactional Store. Any error rolls back all
	// writes made through it. Nested calls join the outer transaction.
	Atomic(ctx context.Context, fn func(tx Store) error) error
}
