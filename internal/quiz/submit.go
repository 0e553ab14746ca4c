package quiz

import (
	"context"
	stderrors "errors"
	"html"
	"strings"

	"github.com/vytor/quizflash/internal/errors"
	"github.com/vytor/quizflash/internal/evaluator"
	"github.com/vytor/quizflash/internal/logger"
	"github.com/vytor/quizflash/internal/models"
	"github.com/vytor/quizflash/internal/repository"
)

func (s *service) SubmitAnswer(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	log := logger.FromContext(ctx).WithPrefix("quiz").WithFields(map[string]any{
		"session_id": req.SessionID,
		"index":      req.QuestionIndex,
	})
	log.Debug("submitting answer: user_id=%d", req.UserID)

	if req.Submission.Empty() {
		return nil, errors.NewValidationError("answer", "submission is empty")
	}

	unlock, err := s.lockUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	session, err := s.load(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != req.UserID {
		return nil, errors.NewValidationError("user_id", "session belongs to another user")
	}
	if session.Completed() || req.QuestionIndex != session.CurrentIndex {
		log.Warn("stale submission, current index is %d", session.CurrentIndex)
		return nil, errors.NewStaleSubmissionError(session.ID, req.QuestionIndex, session.CurrentIndex)
	}
	prevIndex := session.CurrentIndex

	slot := session.Current()
	question, err := s.store.Get(ctx, slot.QuestionID)
	if err != nil {
		log.Error("failed to load question %d: %v", slot.QuestionID, err)
		return nil, errors.NewPersistenceError("load question", err)
	}
	if question == nil {
		return nil, errors.NewNotFoundError("question", slot.QuestionID)
	}

	correct, err := evaluator.Evaluate(*question, req.Submission)
	if err != nil {
		var appErr *errors.AppError
		if stderrors.As(err, &appErr) {
			return nil, appErr
		}
		log.Error("failed to evaluate answer: %v", err)
		return nil, errors.NewInternalError(err)
	}

	now := s.now().UTC()
	answerLog := models.AnswerLog{
		UserID:        session.UserID,
		SessionID:     session.ID,
		QuestionIndex: prevIndex,
		QuestionID:    question.ID,
		IsCorrect:     correct,
		Mode:          session.Mode,
		TimeSeconds:   req.Elapsed.Seconds(),
		CreatedAt:     now,
	}
	switch question.Body.(type) {
	case models.MultipleChoice:
		answerLog.AnswerID = req.Submission.OptionID
	case models.WrittenResponse:
		written := s.cleanWritten(req.Submission.Text)
		answerLog.WrittenAnswer = &written
	}

	slot.Answered = true
	slot.Correct = correct
	slot.TimeSeconds = answerLog.TimeSeconds
	if correct {
		session.CorrectCount++
	}
	session.CurrentIndex++

	// Adaptive sessions grow one question at a time. Selection reads
	// outside the write transaction.
	if session.Mode == models.ModeAdaptive &&
		session.CurrentIndex == len(session.Questions) &&
		len(session.Questions) < session.TargetCount {
		next, err := s.selector.Next(ctx, session, correct)
		if err != nil {
			log.Error("failed to select next adaptive question: %v", err)
			return nil, err
		}
		if next != nil {
			session.Questions = append(session.Questions, models.SessionQuestion{QuestionID: next.ID, Difficulty: next.Difficulty})
		}
	}

	var attempt *models.Attempt
	if session.CurrentIndex == len(session.Questions) {
		attempt = complete(session, now)
	}

	err = s.store.Atomic(ctx, func(tx repository.Store) error {
		if _, err := tx.AppendAnswerLog(ctx, answerLog); err != nil {
			return err
		}
		if err := tx.SaveSession(ctx, session); err != nil {
			return err
		}
		return appendAttempt(ctx, tx, attempt)
	})
	if err != nil {
		log.Error("failed to record answer: %v", err)
		return nil, writeError(err, "submit answer", session.ID, prevIndex, prevIndex)
	}

	if attempt != nil {
		log.Info("quiz completed: %d/%d correct", attempt.CorrectAnswers, attempt.TotalQuestions)
		s.publish(ctx, attempt)
	}

	res := &SubmitResult{
		SessionID:        session.ID,
		QuestionIndex:    prevIndex,
		QuestionID:       question.ID,
		Correct:          correct,
		FeedbackDeferred: session.Mode.DefersFeedback(),
		Explanation:      question.Explanation,
		CorrectCount:     session.CorrectCount,
		Answered:         session.CurrentIndex,
		Total:            len(session.Questions),
		Completed:        session.Completed(),
		Attempt:          attempt,
	}
	switch body := question.Body.(type) {
	case models.MultipleChoice:
		if opt, ok := body.CorrectOption(); ok {
			id := opt.ID
			res.CorrectOptionID = &id
		}
	case models.WrittenResponse:
		if primary, ok := body.Primary(); ok {
			res.CorrectAnswer = primary.Text
		}
	}
	return res, nil
}

// cleanWritten strips markup from a written answer but keeps the learner's
// text as typed: the policy's entity escaping is undone before storage.
func (s *service) cleanWritten(text string) string {
	return strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(text)))
}
