package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/vytor/quizflash/internal/logger"
	"github.com/vytor/quizflash/internal/models"
)

const cardColumns = `c.id, c.user_id, c.question_id, c.ease_factor, c.interval_days, c.repetitions,
c.next_review_at, c.last_reviewed_at, c.created_at`

func scanCard(row rowScanner, extra ...any) (models.ReviewCard, error) {
	var c models.ReviewCard
	var lastReviewed sql.NullTime
	dest := []any{
		&c.ID, &c.UserID, &c.QuestionID, &c.EaseFactor, &c.IntervalDays, &c.Repetitions,
		&c.NextReviewAt, &lastReviewed, &c.CreatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return c, err
	}
	c.NextReviewAt = c.NextReviewAt.UTC()
	c.CreatedAt = c.CreatedAt.UTC()
	if lastReviewed.Valid {
		t := lastReviewed.Time.UTC()
		c.LastReviewedAt = &t
	}
	return c, nil
}

func (s *store) GetCard(ctx context.Context, userID, questionID int64) (*models.ReviewCard, error) {
	log := logger.FromContext(ctx).WithPrefix("card_repo")

	row := s.q.QueryRowContext(ctx, s.rebind(`SELECT `+cardColumns+`
FROM review_cards c WHERE c.user_id = ? AND c.question_id = ?`+s.forUpdate()), userID, questionID)
	c, err := scanCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		log.Error("failed to get card user=%d question=%d: %v", userID, questionID, err)
		return nil, err
	}
	return &c, nil
}

func (s *store) UpsertCard(ctx context.Context, c models.ReviewCard) (int64, error) {
	log := logger.FromContext(ctx).WithPrefix("card_repo")

	var lastReviewed any
	if c.LastReviewedAt != nil {
		lastReviewed = c.LastReviewedAt.UTC()
	}
	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = c.NextReviewAt
	}

	var id int64
	err := s.q.QueryRowContext(ctx, s.rebind(`
INSERT INTO review_cards (user_id, question_id, ease_factor, interval_days, repetitions, next_review_at, last_reviewed_at, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (user_id, question_id) DO UPDATE SET
	ease_factor = excluded.ease_factor,
	interval_days = excluded.interval_days,
	repetitions = excluded.repetitions,
	next_review_at = excluded.next_review_at,
	last_reviewed_at = excluded.last_reviewed_at
RETURNING id
`), c.UserID, c.QuestionID, c.EaseFactor, c.IntervalDays, c.Repetitions,
		c.NextReviewAt.UTC(), lastReviewed, createdAt.UTC()).Scan(&id)
	if err != nil {
		log.Error("failed to upsert card user=%d question=%d: %v", c.UserID, c.QuestionID, err)
		return 0, err
	}
	log.Debug("card %d saved: ef=%.2f interval=%d reps=%d", id, c.EaseFactor, c.IntervalDays, c.Repetitions)
	return id, nil
}

func (s *store) AppendReviewLog(ctx context.Context, e models.ReviewLogEntry) (int64, error) {
	var id int64
	err := s.q.QueryRowContext(ctx, s.rebind(`
INSERT INTO review_logs (card_id, user_id, question_id, quality, ease_factor_after, interval_after, reviewed_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING id
`), e.CardID, e.UserID, e.QuestionID, e.Quality, e.EaseFactorAfter, e.IntervalAfter, e.ReviewedAt.UTC()).Scan(&id)
	if err != nil {
		logger.FromContext(ctx).WithPrefix("card_repo").Error("failed to append review log: %v", err)
		return 0, err
	}
	return id, nil
}

func (s *store) DueCards(ctx context.Context, userID int64, categories []int64, now time.Time, limit int) ([]models.DueCard, error) {
	log := logger.FromContext(ctx).WithPrefix("card_repo")

	query := s.sb.Select(cardColumns, "q.difficulty").
		From("review_cards c").
		Join("questions q ON q.id = c.question_id").
		Where(squirrel.Eq{"c.user_id": userID}).
		Where(squirrel.LtOrEq{"c.next_review_at": now.UTC()}).
		OrderBy("c.next_review_at ASC", "q.difficulty ASC", "c.id ASC")
	if len(categories) > 0 {
		query = query.Where(squirrel.Eq{"q.category_id": categories})
	}
	if limit > 0 {
		query = query.Limit(uint64(limit))
	}

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.q.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		log.Error("failed to query due cards: %v", err)
		return nil, err
	}
	defer rows.Close()

	var due []models.DueCard
	for rows.Next() {
		var d models.DueCard
		c, err := scanCard(rows, &d.Difficulty)
		if err != nil {
			log.Error("failed to scan due card: %v", err)
			return nil, err
		}
		d.ReviewCard = c
		due = append(due, d)
	}
	log.Debug("user %d has %d due cards", userID, len(due))
	return due, rows.Err()
}

func (s *store) NewCardCandidates(ctx context.Context, userID int64, categories, excludeIDs []int64, limit int) ([]models.Question, error) {
	query := s.sb.Select(questionColumns...).
		From("questions q").
		Where("NOT EXISTS (SELECT 1 FROM review_cards c WHERE c.question_id = q.id AND c.user_id = ?)", userID).
		OrderBy("q.difficulty ASC", "q.id ASC")
	if len(categories) > 0 {
		query = query.Where(squirrel.Eq{"q.category_id": categories})
	}
	if len(excludeIDs) > 0 {
		query = query.Where(squirrel.NotEq{"q.id": excludeIDs})
	}
	if limit > 0 {
		query = query.Limit(uint64(limit))
	}
	return s.queryQuestions(ctx, query)
}
