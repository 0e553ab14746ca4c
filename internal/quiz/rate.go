package quiz

import (
	"context"
	"time"

	"github.com/vytor/quizflash/internal/difficulty"
	"github.com/vytor/quizflash/internal/errors"
	"github.com/vytor/quizflash/internal/logger"
	"github.com/vytor/quizflash/internal/models"
	"github.com/vytor/quizflash/internal/repository"
	"github.com/vytor/quizflash/internal/scheduler"
)

func (s *service) Rate(ctx context.Context, req RateRequest) (*RateResult, error) {
	log := logger.FromContext(ctx).WithPrefix("quiz").WithFields(map[string]any{
		"session_id": req.SessionID,
		"index":      req.QuestionIndex,
	})
	log.Debug("rating question: rating=%s", req.Rating)

	rating, err := models.ParseRating(string(req.Rating))
	if err != nil {
		return nil, errors.NewValidationError("rating", err.Error())
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
	if req.QuestionIndex < 0 || req.QuestionIndex >= len(session.Questions) {
		return nil, errors.NewValidationError("question_index", "out of range")
	}
	slot := &session.Questions[req.QuestionIndex]
	if !slot.Answered {
		return nil, errors.NewValidationError("question_index", "question has not been answered yet")
	}
	if slot.Rated {
		return nil, errors.NewValidationError("rating", "question has already been rated")
	}

	res := &RateResult{QuestionID: slot.QuestionID, Rating: rating, Difficulty: slot.Difficulty}
	err = s.store.Atomic(ctx, func(tx repository.Store) error {
		if rating != models.RatingUnrated {
			d, err := tx.AdjustDifficulty(ctx, slot.QuestionID, difficulty.Adjuster(rating))
			if err != nil {
				return err
			}
			res.Difficulty = d
			res.DifficultyChanged = true
		}

		if session.Mode == models.ModeSpacedRepetition {
			elapsed := time.Duration(slot.TimeSeconds * float64(time.Second))
			quality := scheduler.CalculateQuality(slot.Correct, scheduler.TimeFactor(elapsed, s.cfg.AnswerTimeLimit))
			card, err := s.scheduler.Record(ctx, tx, session.UserID, slot.QuestionID, quality)
			if err != nil {
				return err
			}
			res.Quality = &quality
			res.Card = card
		}

		slot.Rated = true
		return tx.SaveSession(ctx, session)
	})
	if err != nil {
		log.Error("failed to apply rating: %v", err)
		return nil, writeError(err, "rate question", session.ID, req.QuestionIndex, session.CurrentIndex)
	}

	log.Debug("question %d rated %s, difficulty %.2f", res.QuestionID, rating, res.Difficulty)
	return res, nil
}
