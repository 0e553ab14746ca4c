package sqlstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vytor/quizflash/internal/logger"
	"github.com/vytor/quizflash/internal/models"
	"github.com/vytor/quizflash/internal/repository"
)

func (s *store) AppendAnswerLog(ctx context.Context, e models.AnswerLog) (int64, error) {
	log := logger.FromContext(ctx).WithPrefix("answer_repo")

	var id int64
	err := s.q.QueryRowContext(ctx, s.rebind(`
INSERT INTO answer_logs (user_id, session_id, question_index, question_id, answer_id, written_answer, is_correct, mode, time_seconds, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id
`), e.UserID, e.SessionID, e.QuestionIndex, e.QuestionID, e.AnswerID, e.WrittenAnswer,
		e.IsCorrect, string(e.Mode), e.TimeSeconds, e.CreatedAt.UTC()).Scan(&id)
	if isUniqueViolation(err) {
		log.Warn("duplicate answer for session %s index %d", e.SessionID, e.QuestionIndex)
		return 0, repository.ErrConflict
	}
	if err != nil {
		log.Error("failed to append answer log: %v", err)
		return 0, err
	}
	return id, nil
}

func (s *store) AppendAttempt(ctx context.Context, a models.Attempt) (int64, error) {
	log := logger.FromContext(ctx).WithPrefix("answer_repo")

	categories, err := json.Marshal(a.Categories)
	if err != nil {
		return 0, err
	}

	var id int64
	err = s.q.QueryRowContext(ctx, s.rebind(`
INSERT INTO attempts (user_id, session_id, total_questions, correct_answers, categories, mode, duration_seconds, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id
`), a.UserID, a.SessionID, a.TotalQuestions, a.CorrectAnswers, string(categories),
		string(a.Mode), a.DurationSeconds, a.CreatedAt.UTC()).Scan(&id)
	if isUniqueViolation(err) {
		log.Warn("attempt for session %s already recorded", a.SessionID)
		return 0, repository.ErrConflict
	}
	if err != nil {
		log.Error("failed to append attempt: %v", err)
		return 0, err
	}
	log.Debug("attempt %d recorded: %d/%d correct", id, a.CorrectAnswers, a.TotalQuestions)
	return id, nil
}

func (s *store) AnswerStats(ctx context.Context, userID int64, start, end time.Time) (*models.AnswerStats, error) {
	log := logger.FromContext(ctx).WithPrefix("answer_repo")

	var stats models.AnswerStats
	err := s.q.QueryRowContext(ctx, s.rebind(`
SELECT
	COUNT(*),
	COALESCE(SUM(CASE WHEN a.is_correct THEN 1 ELSE 0 END), 0),
	COALESCE(AVG(q.difficulty), 0)
FROM answer_logs a
JOIN questions q ON q.id = a.question_id
WHERE a.user_id = ? AND a.created_at >= ? AND a.created_at < ?
`), userID, start.UTC(), end.UTC()).Scan(&stats.Total, &stats.Correct, &stats.AvgDifficulty)
	if err != nil {
		log.Error("failed to aggregate answers for user %d: %v", userID, err)
		return nil, err
	}
	return &stats, nil
}

func (s *store) ListAttempts(ctx context.Context, userID int64, limit int) ([]models.Attempt, error) {
	log := logger.FromContext(ctx).WithPrefix("answer_repo")

	query := s.sb.Select("id", "user_id", "session_id", "total_questions", "correct_answers", "categories", "mode", "duration_seconds", "created_at").
		From("attempts").
		Where("user_id = ?", userID).
		OrderBy("created_at DESC", "id DESC")
	if limit > 0 {
		query = query.Limit(uint64(limit))
	}
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.q.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		log.Error("failed to list attempts: %v", err)
		return nil, err
	}
	defer rows.Close()

	var attempts []models.Attempt
	for rows.Next() {
		var a models.Attempt
		var categories, mode string
		if err := rows.Scan(&a.ID, &a.UserID, &a.SessionID, &a.TotalQuestions, &a.CorrectAnswers,
			&categories, &mode, &a.DurationSeconds, &a.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(categories), &a.Categories); err != nil {
			return nil, fmt.Errorf("attempt %d categories: %w", a.ID, err)
		}
		a.Mode = models.Mode(mode)
		a.CreatedAt = a.CreatedAt.UTC()
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}
