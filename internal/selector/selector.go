// Package selector decides which questions a quiz session serves.
package selector

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/vytor/quizflash/internal/errors"
	"github.com/vytor/quizflash/internal/logger"
	"github.com/vytor/quizflash/internal/models"
	"github.com/vytor/quizflash/internal/repository"
	"github.com/vytor/quizflash/internal/scheduler"
)

const (
	// QuickCount is the fixed length of a quick quiz.
	QuickCount = 10
	// AdaptiveStep is how far the target difficulty moves after an answer.
	AdaptiveStep = 0.5
	// SeenWindow hides recently answered questions from adaptive sessions.
	SeenWindow = 24 * time.Hour
	// DueShare is the fraction of a spaced-repetition session reserved for
	// due cards.
	DueShare = 0.7
)

// Selector picks questions for a session. Running out of questions is not
// an error: fewer questions are returned.
type Selector interface {
	// Initial returns the questions a session starts with. Adaptive sessions
	// get only their first question; the rest come from Next.
	Initial(ctx context.Context, session *models.QuizSession) ([]models.Question, error)
	// Next returns the question following the last one served, or nil when
	// none is eligible. Only adaptive sessions produce questions lazily.
	Next(ctx context.Context, session *models.QuizSession, lastCorrect bool) (*models.Question, error)
}

type selector struct {
	questions repository.QuestionRepository
	cards     scheduler.Scheduler
	now       func() time.Time

	mu  sync.Mutex
	rnd *rand.Rand
}

type Option func(*selector)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *selector) {
		s.now = now
	}
}

// WithRand sets the source used to shuffle spaced-repetition sessions.
func WithRand(rnd *rand.Rand) Option {
	return func(s *selector) {
		s.rnd = rnd
	}
}

// New creates a Selector.
func New(questions repository.QuestionRepository, cards scheduler.Scheduler, opts ...Option) Selector {
	s := &selector{
		questions: questions,
		cards:     cards,
		now:       time.Now,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *selector) Initial(ctx context.Context, session *models.QuizSession) ([]models.Question, error) {
	log := logger.FromContext(ctx).WithPrefix("selector")
	log.Debug("selecting questions: mode=%s, categories=%v, target=%d", session.Mode, session.Categories, session.TargetCount)

	var (
		questions []models.Question
		err       error
	)
	switch session.Mode {
	case models.ModeQuick:
		questions, err = s.random(ctx, session.Categories, models.BandAny, nil, QuickCount)
	case models.ModeTest:
		questions, err = s.random(ctx, session.Categories, session.Band, nil, session.TargetCount)
	case models.ModeAdaptive:
		questions, err = s.firstAdaptive(ctx, session)
	case models.ModeSpacedRepetition:
		questions, err = s.spacedRepetition(ctx, session)
	default:
		return nil, errors.NewValidationError("mode", "unknown quiz mode "+string(session.Mode))
	}
	if err != nil {
		return nil, err
	}

	if len(questions) < session.TargetCount && session.Mode != models.ModeAdaptive {
		log.Info("question pool exhausted: selected %d of %d", len(questions), session.TargetCount)
	}
	return questions, nil
}

func (s *selector) random(ctx context.Context, categories []int64, band models.Band, exclude []int64, limit int) ([]models.Question, error) {
	if limit <= 0 {
		return nil, nil
	}
	questions, err := s.questions.List(ctx, repository.QuestionQuery{
		Categories: categories,
		Band:       band,
		ExcludeIDs: exclude,
		Order:      repository.OrderRandom,
		Limit:      limit,
	})
	if err != nil {
		logger.FromContext(ctx).WithPrefix("selector").Error("failed to list questions: %v", err)
		return nil, errors.NewPersistenceError("select questions", err)
	}
	return questions, nil
}

func (s *selector) firstAdaptive(ctx context.Context, session *models.QuizSession) ([]models.Question, error) {
	questions, err := s.questions.List(ctx, repository.QuestionQuery{
		Categories:  session.Categories,
		ExcludeIDs:  session.QuestionIDs(),
		UnseenBy:    session.UserID,
		UnseenSince: s.now().Add(-SeenWindow),
		Order:       repository.OrderDifficultyAsc,
		Limit:       1,
	})
	if err != nil {
		logger.FromContext(ctx).WithPrefix("selector").Error("failed to select first adaptive question: %v", err)
		return nil, errors.NewPersistenceError("select questions", err)
	}
	return questions, nil
}

// NextTarget moves difficulty half a point up after a correct answer and
// down after a miss, staying within the difficulty range.
func NextTarget(difficulty float64, correct bool) float64 {
	if correct {
		return models.ClampDifficulty(difficulty + AdaptiveStep)
	}
	return models.ClampDifficulty(difficulty - AdaptiveStep)
}

func (s *selector) Next(ctx context.Context, session *models.QuizSession, lastCorrect bool) (*models.Question, error) {
	if session.Mode != models.ModeAdaptive || len(session.Questions) == 0 {
		return nil, nil
	}
	log := logger.FromContext(ctx).WithPrefix("selector")

	last := session.Questions[len(session.Questions)-1]
	target := NextTarget(last.Difficulty, lastCorrect)
	log.Debug("adaptive target %.2f after %.2f (correct=%v)", target, last.Difficulty, lastCorrect)

	q, err := s.questions.Closest(ctx, repository.QuestionQuery{
		Categories:  session.Categories,
		ExcludeIDs:  session.QuestionIDs(),
		UnseenBy:    session.UserID,
		UnseenSince: s.now().Add(-SeenWindow),
	}, target)
	if err != nil {
		log.Error("failed to select next adaptive question: %v", err)
		return nil, errors.NewPersistenceError("select next question", err)
	}
	if q == nil {
		log.Info("adaptive pool exhausted after %d questions", len(session.Questions))
	}
	return q, nil
}

// SplitTarget divides a spaced-repetition session between due and new cards.
func SplitTarget(target int) (due, fresh int) {
	due = int(math.Round(float64(target) * DueShare))
	return due, target - due
}

func (s *selector) spacedRepetition(ctx context.Context, session *models.QuizSession) ([]models.Question, error) {
	log := logger.FromContext(ctx).WithPrefix("selector")
	target := session.TargetCount
	dueLimit, newLimit := SplitTarget(target)

	due, err := s.cards.DueCards(ctx, session.UserID, session.Categories, dueLimit)
	if err != nil {
		return nil, err
	}
	if len(due) < dueLimit {
		newLimit += dueLimit - len(due)
	}

	var fresh []models.Question
	if newLimit > 0 {
		if fresh, err = s.cards.NewCards(ctx, session.UserID, session.Categories, newLimit); err != nil {
			return nil, err
		}
	}
	if len(fresh) < newLimit && len(due) == dueLimit {
		due, err = s.cards.DueCards(ctx, session.UserID, session.Categories, dueLimit+newLimit-len(fresh))
		if err != nil {
			return nil, err
		}
	}
	log.Debug("spaced repetition: %d due (limit %d), %d new (limit %d)", len(due), dueLimit, len(fresh), newLimit)

	selected := make([]models.Question, 0, target)
	for _, d := range due {
		selected = append(selected, models.Question{ID: d.QuestionID, Difficulty: d.Difficulty})
	}
	selected = append(selected, fresh...)

	if len(selected) < target {
		ids := make([]int64, len(selected))
		for i, q := range selected {
			ids[i] = q.ID
		}
		fill, err := s.random(ctx, session.Categories, models.BandAny, ids, target-len(selected))
		if err != nil {
			return nil, err
		}
		selected = append(selected, fill...)
	}
	if len(selected) > target {
		selected = selected[:target]
	}

	s.mu.Lock()
	s.rnd.Shuffle(len(selected), func(i, j int) { selected[i], selected[j] = selected[j], selected[i] })
	s.mu.Unlock()
	return selected, nil
}
