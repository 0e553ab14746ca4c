// Package scheduler keeps per-user SM-2 review cards.
package scheduler

import (
	"context"
	"time"

	"github.com/vytor/quizflash/internal/errors"
	"github.com/vytor/quizflash/internal/locks"
	"github.com/vytor/quizflash/internal/logger"
	"github.com/vytor/quizflash/internal/models"
	"github.com/vytor/quizflash/internal/repository"
)

// Scheduler creates and advances review cards.
type Scheduler interface {
	// InitializeCard returns the user's card for the question, creating it
	// if needed.
	InitializeCard(ctx context.Context, userID, questionID int64) (*models.ReviewCard, error)
	// ProcessReview applies a review of the given quality under the user's
	// lock in its own transaction.
	ProcessReview(ctx context.Context, userID, questionID int64, quality int) (*models.ReviewCard, error)
	// Record applies a review inside tx without taking the user lock. The
	// caller must hold it.
	Record(ctx context.Context, tx repository.Store, userID, questionID int64, quality int) (*models.ReviewCard, error)
	DueCards(ctx context.Context, userID int64, categories []int64, limit int) ([]models.DueCard, error)
	NewCards(ctx context.Context, userID int64, categories []int64, limit int) ([]models.Question, error)
}

type scheduler struct {
	store  repository.Store
	locker locks.Locker
	now    func() time.Time
}

type Option func(*scheduler)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *scheduler) {
		s.now = now
	}
}

// New creates a Scheduler.
func New(store repository.Store, locker locks.Locker, opts ...Option) Scheduler {
	s := &scheduler{store: store, locker: locker, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *scheduler) InitializeCard(ctx context.Context, userID, questionID int64) (*models.ReviewCard, error) {
	log := logger.FromContext(ctx).WithPrefix("scheduler")
	log.Debug("initializing card: user_id=%d, question_id=%d", userID, questionID)

	unlock, err := s.locker.Lock(ctx, locks.UserKey(userID))
	if err != nil {
		return nil, errors.NewPersistenceError("acquire user lock", err)
	}
	defer unlock()

	var card *models.ReviewCard
	err = s.store.Atomic(ctx, func(tx repository.Store) error {
		card, err = s.initialize(ctx, tx, userID, questionID)
		return err
	})
	if err != nil {
		log.Error("failed to initialize card: %v", err)
		return nil, errors.NewPersistenceError("initialize card", err)
	}
	return card, nil
}

func (s *scheduler) initialize(ctx context.Context, tx repository.Store, userID, questionID int64) (*models.ReviewCard, error) {
	existing, err := tx.GetCard(ctx, userID, questionID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	card := NewCard(userID, questionID, s.now())
	id, err := tx.UpsertCard(ctx, card)
	if err != nil {
		return nil, err
	}
	card.ID = id
	return &card, nil
}

func (s *scheduler) ProcessReview(ctx context.Context, userID, questionID int64, quality int) (*models.ReviewCard, error) {
	log := logger.FromContext(ctx).WithPrefix("scheduler")
	log.Debug("processing review: user_id=%d, question_id=%d, quality=%d", userID, questionID, quality)

	if quality < 0 || quality > 5 {
		return nil, errors.NewValidationError("quality", "must be between 0 and 5")
	}

	unlock, err := s.locker.Lock(ctx, locks.UserKey(userID))
	if err != nil {
		return nil, errors.NewPersistenceError("acquire user lock", err)
	}
	defer unlock()

	var card *models.ReviewCard
	err = s.store.Atomic(ctx, func(tx repository.Store) error {
		card, err = s.Record(ctx, tx, userID, questionID, quality)
		return err
	})
	if err != nil {
		log.Error("failed to process review: %v", err)
		return nil, errors.NewPersistenceError("process review", err)
	}
	return card, nil
}

func (s *scheduler) Record(ctx context.Context, tx repository.Store, userID, questionID int64, quality int) (*models.ReviewCard, error) {
	log := logger.FromContext(ctx).WithPrefix("scheduler")

	card, err := s.initialize(ctx, tx, userID, questionID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	updated := Apply(*card, quality, now)
	id, err := tx.UpsertCard(ctx, updated)
	if err != nil {
		return nil, err
	}
	updated.ID = id

	if _, err := tx.AppendReviewLog(ctx, models.ReviewLogEntry{
		CardID:          id,
		UserID:          userID,
		QuestionID:      questionID,
		Quality:         quality,
		EaseFactorAfter: updated.EaseFactor,
		IntervalAfter:   updated.IntervalDays,
		ReviewedAt:      now.UTC(),
	}); err != nil {
		return nil, err
	}

	log.Debug("applied review, new interval=%d days, ease_factor=%.2f, repetitions=%d",
		updated.IntervalDays, updated.EaseFactor, updated.Repetitions)
	return &updated, nil
}

func (s *scheduler) DueCards(ctx context.Context, userID int64, categories []int64, limit int) ([]models.DueCard, error) {
	due, err := s.store.DueCards(ctx, userID, categories, s.now(), limit)
	if err != nil {
		logger.FromContext(ctx).WithPrefix("scheduler").Error("failed to get due cards: %v", err)
		return nil, errors.NewPersistenceError("load due cards", err)
	}
	return due, nil
}

func (s *scheduler) NewCards(ctx context.Context, userID int64, categories []int64, limit int) ([]models.Question, error) {
	fresh, err := s.store.NewCardCandidates(ctx, userID, categories, nil, limit)
	if err != nil {
		logger.FromContext(ctx).WithPrefix("scheduler").Error("failed to get new cards: %v", err)
		return nil, errors.NewPersistenceError("load new cards", err)
	}
	return fresh, nil
}
