package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/vytor/quizflash/internal/models"
	"github.com/vytor/quizflash/internal/repository"
)

// MockStore is a mock implementation of repository.Store. Atomic runs fn
// against the mock itself unless the expectation returns an error.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Atomic(ctx context.Context, fn func(tx repository.Store) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(m)
}

func (m *MockStore) Get(ctx context.Context, id int64) (*models.Question, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Question), args.Error(1)
}

func (m *MockStore) List(ctx context.Context, query repository.QuestionQuery) ([]models.Question, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Question), args.Error(1)
}

func (m *MockStore) Closest(ctx context.Context, query repository.QuestionQuery, target float64) (*models.Question, error) {
	args := m.Called(ctx, query, target)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Question), args.Error(1)
}

func (m *MockStore) AdjustDifficulty(ctx context.Context, id int64, fn func(float64) float64) (float64, error) {
	args := m.Called(ctx, id, fn)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockStore) Insert(ctx context.Context, q models.Question) (int64, error) {
	args := m.Called(ctx, q)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) GetCard(ctx context.Context, userID, questionID int64) (*models.ReviewCard, error) {
	args := m.Called(ctx, userID, questionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReviewCard), args.Error(1)
}

func (m *MockStore) UpsertCard(ctx context.Context, card models.ReviewCard) (int64, error) {
	args := m.Called(ctx, card)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) AppendReviewLog(ctx context.Context, entry models.ReviewLogEntry) (int64, error) {
	args := m.Called(ctx, entry)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) AppendAnswerLog(ctx context.Context, entry models.AnswerLog) (int64, error) {
	args := m.Called(ctx, entry)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) AppendAttempt(ctx context.Context, attempt models.Attempt) (int64, error) {
	args := m.Called(ctx, attempt)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) DueCards(ctx context.Context, userID int64, categories []int64, now time.Time, limit int) ([]models.DueCard, error) {
	args := m.Called(ctx, userID, categories, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.DueCard), args.Error(1)
}

func (m *MockStore) NewCardCandidates(ctx context.Context, userID int64, categories, excludeIDs []int64, limit int) ([]models.Question, error) {
	args := m.Called(ctx, userID, categories, excludeIDs, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Question), args.Error(1)
}

func (m *MockStore) AnswerStats(ctx context.Context, userID int64, start, end time.Time) (*models.AnswerStats, error) {
	args := m.Called(ctx, userID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AnswerStats), args.Error(1)
}

func (m *MockStore) ListAttempts(ctx context.Context, userID int64, limit int) ([]models.Attempt, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Attempt), args.Error(1)
}

func (m *MockStore) GetSession(ctx context.Context, id string) (*models.QuizSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.QuizSession), args.Error(1)
}

func (m *MockStore) SaveSession(ctx context.Context, session *models.QuizSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}
