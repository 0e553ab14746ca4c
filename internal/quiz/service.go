// Package quiz runs quiz sessions: start, answer, rate, complete.
package quiz

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/vytor/quizflash/internal/errors"
	"github.com/vytor/quizflash/internal/events"
	"github.com/vytor/quizflash/internal/locks"
	"github.com/vytor/quizflash/internal/logger"
	"github.com/vytor/quizflash/internal/models"
	"github.com/vytor/quizflash/internal/repository"
	"github.com/vytor/quizflash/internal/scheduler"
	"github.com/vytor/quizflash/internal/selector"
)

const MaxQuestionCount = 100

type StartRequest struct {
	UserID        int64
	Mode          models.Mode
	Categories    []int64
	Band          models.Band
	QuestionCount int
}

type SubmitRequest struct {
	SessionID     string
	UserID        int64
	QuestionIndex int
	Submission    models.Submission
	Elapsed       time.Duration
}

// SubmitResult is the outcome of one answer. When FeedbackDeferred is set
// the presentation layer should hide Correct and the answer fields until the
// session completes.
type SubmitResult struct {
	SessionID        string          `json:"session_id"`
	QuestionIndex    int             `json:"question_index"`
	QuestionID       int64           `json:"question_id"`
	Correct          bool            `json:"correct"`
	FeedbackDeferred bool            `json:"feedback_deferred"`
	CorrectOptionID  *int64          `json:"correct_option_id,omitempty"`
	CorrectAnswer    string          `json:"correct_answer,omitempty"`
	Explanation      string          `json:"explanation,omitempty"`
	CorrectCount     int             `json:"correct_count"`
	Answered         int             `json:"answered"`
	Total            int             `json:"total"`
	Completed        bool            `json:"completed"`
	Attempt          *models.Attempt `json:"attempt,omitempty"`
}

type RateRequest struct {
	SessionID     string
	UserID        int64
	QuestionIndex int
	Rating        models.Rating
}

type RateResult struct {
	QuestionID        int64              `json:"question_id"`
	Rating            models.Rating      `json:"rating"`
	Difficulty        float64            `json:"difficulty"`
	DifficultyChanged bool               `json:"difficulty_changed"`
	Quality           *int               `json:"quality,omitempty"`
	Card              *models.ReviewCard `json:"card,omitempty"`
}

// Service drives quiz sessions through initializing → in_progress →
// completed.
type Service interface {
	Start(ctx context.Context, req StartRequest) (*models.QuizSession, error)
	// Current returns the question awaiting an answer. The question is nil
	// once the session is completed.
	Current(ctx context.Context, sessionID string) (*models.Question, *models.QuizSession, error)
	SubmitAnswer(ctx context.Context, req SubmitRequest) (*SubmitResult, error)
	Rate(ctx context.Context, req RateRequest) (*RateResult, error)
	Get(ctx context.Context, sessionID string) (*models.QuizSession, error)
	// Attempts lists the user's completed sessions, newest first.
	Attempts(ctx context.Context, userID int64, limit int) ([]models.Attempt, error)
}

type Config struct {
	DefaultQuestionCount int
	AnswerTimeLimit      time.Duration
}

type service struct {
	store     repository.Store
	selector  selector.Selector
	scheduler scheduler.Scheduler
	locker    locks.Locker
	publisher events.Publisher
	cfg       Config
	sanitizer *bluemonday.Policy
	now       func() time.Time
}

type Option func(*service)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		s.now = now
	}
}

// NewService creates a new quiz Service.
func NewService(
	store repository.Store,
	sel selector.Selector,
	sched scheduler.Scheduler,
	locker locks.Locker,
	publisher events.Publisher,
	cfg Config,
	opts ...Option,
) Service {
	if cfg.DefaultQuestionCount <= 0 {
		cfg.DefaultQuestionCount = selector.QuickCount
	}
	if cfg.AnswerTimeLimit <= 0 {
		cfg.AnswerTimeLimit = scheduler.DefaultTimeLimit
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	s := &service{
		store:     store,
		selector:  sel,
		scheduler: sched,
		locker:    locker,
		publisher: publisher,
		cfg:       cfg,
		sanitizer: bluemonday.StrictPolicy(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Start(ctx context.Context, req StartRequest) (*models.QuizSession, error) {
	log := logger.FromContext(ctx).WithPrefix("quiz")
	log.Debug("starting quiz: user_id=%d, mode=%s, categories=%v", req.UserID, req.Mode, req.Categories)

	if len(req.Categories) == 0 {
		return nil, errors.NewValidationError("categories", "at least one category is required")
	}
	if req.UserID <= 0 {
		return nil, errors.NewValidationError("user_id", "must be positive")
	}
	mode, err := models.ParseMode(string(req.Mode))
	if err != nil {
		return nil, errors.NewValidationError("mode", err.Error())
	}

	count := req.QuestionCount
	if count == 0 {
		count = s.cfg.DefaultQuestionCount
	}
	if count < 1 || count > MaxQuestionCount {
		return nil, errors.NewValidationError("question_count", "must be between 1 and 100")
	}
	if mode == models.ModeQuick {
		count = selector.QuickCount
	}

	band := models.BandAny
	if mode == models.ModeTest {
		if band, err = models.ParseBand(string(req.Band)); err != nil {
			return nil, errors.NewValidationError("band", err.Error())
		}
	}

	now := s.now().UTC()
	session := &models.QuizSession{
		ID:          uuid.NewString(),
		UserID:      req.UserID,
		Mode:        mode,
		Categories:  req.Categories,
		Band:        band,
		TargetCount: count,
		State:       models.StateInitializing,
		StartedAt:   now,
	}

	questions, err := s.selector.Initial(ctx, session)
	if err != nil {
		log.Error("failed to select questions: %v", err)
		return nil, err
	}
	session.Questions = make([]models.SessionQuestion, 0, len(questions))
	for _, q := range questions {
		session.Questions = append(session.Questions, models.SessionQuestion{QuestionID: q.ID, Difficulty: q.Difficulty})
	}
	session.CurrentIndex = 0
	session.CorrectCount = 0
	session.State = models.StateInProgress

	var attempt *models.Attempt
	if len(session.Questions) == 0 {
		log.Info("no questions available for categories %v, completing session %s", req.Categories, session.ID)
		attempt = complete(session, now)
	}

	err = s.store.Atomic(ctx, func(tx repository.Store) error {
		if err := tx.SaveSession(ctx, session); err != nil {
			return err
		}
		return appendAttempt(ctx, tx, attempt)
	})
	if err != nil {
		log.Error("failed to save new session: %v", err)
		return nil, errors.NewPersistenceError("start quiz", err)
	}

	s.publish(ctx, attempt)
	log.Info("quiz started: session_id=%s, mode=%s, questions=%d", session.ID, session.Mode, len(session.Questions))
	return session, nil
}

func (s *service) Get(ctx context.Context, sessionID string) (*models.QuizSession, error) {
	return s.load(ctx, sessionID)
}

func (s *service) Attempts(ctx context.Context, userID int64, limit int) ([]models.Attempt, error) {
	if limit <= 0 || limit > MaxQuestionCount {
		limit = 20
	}
	attempts, err := s.store.ListAttempts(ctx, userID, limit)
	if err != nil {
		logger.FromContext(ctx).WithPrefix("quiz").Error("failed to list attempts: %v", err)
		return nil, errors.NewPersistenceError("list attempts", err)
	}
	return attempts, nil
}

func (s *service) Current(ctx context.Context, sessionID string) (*models.Question, *models.QuizSession, error) {
	log := logger.FromContext(ctx).WithPrefix("quiz")

	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	slot := session.Current()
	if session.Completed() || slot == nil {
		return nil, session, nil
	}

	q, err := s.store.Get(ctx, slot.QuestionID)
	if err != nil {
		log.Error("failed to load question %d: %v", slot.QuestionID, err)
		return nil, nil, errors.NewPersistenceError("load question", err)
	}
	if q == nil {
		return nil, nil, errors.NewNotFoundError("question", slot.QuestionID)
	}
	return q, session, nil
}

func (s *service) load(ctx context.Context, sessionID string) (*models.QuizSession, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		logger.FromContext(ctx).WithPrefix("quiz").Error("failed to load session %s: %v", sessionID, err)
		return nil, errors.NewPersistenceError("load session", err)
	}
	if session == nil {
		return nil, errors.NewNotFoundError("session", sessionID)
	}
	return session, nil
}

// complete moves the session to completed and returns its attempt summary.
func complete(session *models.QuizSession, now time.Time) *models.Attempt {
	session.State = models.StateCompleted
	session.CompletedAt = &now
	return &models.Attempt{
		UserID:          session.UserID,
		SessionID:       session.ID,
		TotalQuestions:  len(session.Questions),
		CorrectAnswers:  session.CorrectCount,
		Categories:      session.Categories,
		Mode:            session.Mode,
		DurationSeconds: int(now.Sub(session.StartedAt).Seconds()),
		CreatedAt:       now,
	}
}

func appendAttempt(ctx context.Context, tx repository.Store, attempt *models.Attempt) error {
	if attempt == nil {
		return nil
	}
	id, err := tx.AppendAttempt(ctx, *attempt)
	if err != nil {
		return err
	}
	attempt.ID = id
	return nil
}

func (s *service) publish(ctx context.Context, attempt *models.Attempt) {
	if attempt == nil {
		return
	}
	if err := s.publisher.PublishAttemptCompleted(ctx, events.NewAttemptCompleted(*attempt)); err != nil {
		logger.FromContext(ctx).WithPrefix("quiz").Warn("failed to publish attempt for session %s: %v", attempt.SessionID, err)
	}
}

func (s *service) lockUser(ctx context.Context, userID int64) (func(), error) {
	unlock, err := s.locker.Lock(ctx, locks.UserKey(userID))
	if err != nil {
		logger.FromContext(ctx).WithPrefix("quiz").Error("failed to lock user %d: %v", userID, err)
		return nil, errors.NewPersistenceError("acquire user lock", err)
	}
	return unlock, nil
}

// writeError maps a failed transaction to the error returned to callers. A
// lost race on the session row or answer slot means the request was stale.
func writeError(err error, op, sessionID string, index, current int) error {
	if stderrors.Is(err, repository.ErrConflict) {
		return errors.NewStaleSubmissionError(sessionID, index, current)
	}
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return errors.NewPersistenceError(op, err)
}
