package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/vytor/quizflash/internal/logger"
	"github.com/vytor/quizflash/internal/models"
	"github.com/vytor/quizflash/internal/repository"
)

var questionColumns = []string{
	"q.id", "q.category_id", "q.text", "q.explanation", "q.image_path", "q.question_type", "q.difficulty",
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuestion(row rowScanner) (models.Question, error) {
	var q models.Question
	var imagePath sql.NullString
	var qType string
	if err := row.Scan(&q.ID, &q.CategoryID, &q.Text, &q.Explanation, &imagePath, &qType, &q.Difficulty); err != nil {
		return q, err
	}
	q.ImagePath = nullString(imagePath)
	switch models.QuestionType(qType) {
	case models.TypeMultipleChoice:
		q.Body = models.MultipleChoice{}
	case models.TypeWrittenResponse:
		q.Body = models.WrittenResponse{}
	default:
		return q, fmt.Errorf("question %d: unknown type %q", q.ID, qType)
	}
	return q, nil
}

func bandPredicate(b models.Band) squirrel.Sqlizer {
	switch b {
	case models.BandEasy:
		return squirrel.LtOrEq{"q.difficulty": 2.0}
	case models.BandMedium:
		return squirrel.And{squirrel.Gt{"q.difficulty": 2.0}, squirrel.Lt{"q.difficulty": 4.0}}
	case models.BandHard:
		return squirrel.GtOrEq{"q.difficulty": 4.0}
	default:
		return nil
	}
}

func applyQuestionFilters(query squirrel.SelectBuilder, f repository.QuestionQuery) squirrel.SelectBuilder {
	if len(f.Categories) > 0 {
		query = query.Where(squirrel.Eq{"q.category_id": f.Categories})
	}
	if len(f.IDs) > 0 {
		query = query.Where(squirrel.Eq{"q.id": f.IDs})
	}
	if pred := bandPredicate(f.Band); pred != nil {
		query = query.Where(pred)
	}
	if len(f.ExcludeIDs) > 0 {
		query = query.Where(squirrel.NotEq{"q.id": f.ExcludeIDs})
	}
	if f.UnseenBy != 0 {
		query = query.Where(squirrel.Expr(
			"q.id NOT IN (SELECT a.question_id FROM answer_logs a WHERE a.user_id = ? AND a.created_at >= ?)",
			f.UnseenBy, f.UnseenSince.UTC(),
		))
	}
	return query
}

func (s *store) Get(ctx context.Context, id int64) (*models.Question, error) {
	log := logger.FromContext(ctx).WithPrefix("question_repo")
	log.Debug("getting question: id=%d", id)

	query, args, err := s.sb.Select(questionColumns...).From("questions q").Where(squirrel.Eq{"q.id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	q, err := scanQuestion(s.q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		log.Debug("question not found: id=%d", id)
		return nil, nil
	}
	if err != nil {
		log.Error("failed to get question: %v", err)
		return nil, err
	}
	if err := s.loadBody(ctx, &q); err != nil {
		log.Error("failed to load answers for question %d: %v", id, err)
		return nil, err
	}
	return &q, nil
}

func (s *store) loadBody(ctx context.Context, q *models.Question) error {
	switch q.Body.(type) {
	case models.MultipleChoice:
		rows, err := s.q.QueryContext(ctx, s.rebind(`
SELECT id, question_id, text, is_correct FROM answer_options WHERE question_id = ? ORDER BY id
`), q.ID)
		if err != nil {
			return err
		}
		defer rows.Close()
		var mc models.MultipleChoice
		for rows.Next() {
			var o models.AnswerOption
			if err := rows.Scan(&o.ID, &o.QuestionID, &o.Text, &o.IsCorrect); err != nil {
				return err
			}
			mc.Options = append(mc.Options, o)
		}
		q.Body = mc
		return rows.Err()
	case models.WrittenResponse:
		rows, err := s.q.QueryContext(ctx, s.rebind(`
SELECT id, question_id, text, is_primary FROM acceptable_answers WHERE question_id = ? ORDER BY id
`), q.ID)
		if err != nil {
			return err
		}
		defer rows.Close()
		var wr models.WrittenResponse
		for rows.Next() {
			var a models.AcceptableAnswer
			if err := rows.Scan(&a.ID, &a.QuestionID, &a.Text, &a.IsPrimary); err != nil {
				return err
			}
			wr.Answers = append(wr.Answers, a)
		}
		q.Body = wr
		return rows.Err()
	default:
		return fmt.Errorf("question %d has no body type", q.ID)
	}
}

func (s *store) List(ctx context.Context, f repository.QuestionQuery) ([]models.Question, error) {
	log := logger.FromContext(ctx).WithPrefix("question_repo")
	log.Debug("listing questions: categories=%v, band=%q, exclude=%d, limit=%d", f.Categories, f.Band, len(f.ExcludeIDs), f.Limit)

	query := applyQuestionFilters(s.sb.Select(questionColumns...).From("questions q"), f)
	switch f.Order {
	case repository.OrderRandom:
		query = query.OrderBy("RANDOM()")
	case repository.OrderDifficultyAsc:
		query = query.OrderBy("q.difficulty ASC", "q.id ASC")
	default:
		query = query.OrderBy("q.id ASC")
	}
	if f.Limit > 0 {
		query = query.Limit(uint64(f.Limit))
	}
	return s.queryQuestions(ctx, query)
}

func (s *store) Closest(ctx context.Context, f repository.QuestionQuery, target float64) (*models.Question, error) {
	log := logger.FromContext(ctx).WithPrefix("question_repo")
	log.Debug("finding question closest to difficulty %.2f", target)

	query := applyQuestionFilters(s.sb.Select(questionColumns...).From("questions q"), f).
		OrderByClause("ABS(q.difficulty - ?) ASC", target).
		OrderBy("q.id ASC").
		Limit(1)
	questions, err := s.queryQuestions(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		log.Debug("no eligible question left")
		return nil, nil
	}
	return &questions[0], nil
}

func (s *store) queryQuestions(ctx context.Context, query squirrel.SelectBuilder) ([]models.Question, error) {
	log := logger.FromContext(ctx).WithPrefix("question_repo")
	sqlStr, args, err := query.ToSql()
	if err != nil {
		log.Error("failed to build query: %v", err)
		return nil, err
	}
	rows, err := s.q.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		log.Error("failed to query questions: %v", err)
		return nil, err
	}
	defer rows.Close()

	var questions []models.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			log.Error("failed to scan question row: %v", err)
			return nil, err
		}
		questions = append(questions, q)
	}
	log.Debug("found %d questions", len(questions))
	return questions, rows.Err()
}

func (s *store) AdjustDifficulty(ctx context.Context, id int64, fn func(float64) float64) (float64, error) {
	log := logger.FromContext(ctx).WithPrefix("question_repo")

	var next float64
	err := s.Atomic(ctx, func(tx repository.Store) error {
		t := tx.(*store)
		var current float64
		var version int
		err := t.q.QueryRowContext(ctx, t.rebind(`SELECT difficulty, version FROM questions WHERE id = ?`+t.forUpdate()), id).
			Scan(&current, &version)
		if err != nil {
			return fmt.Errorf("read difficulty of question %d: %w", id, err)
		}

		next = models.ClampDifficulty(fn(current))
		res, err := t.q.ExecContext(ctx, t.rebind(`
UPDATE questions SET difficulty = ?, version = version + 1 WHERE id = ? AND version = ?
`), next, id, version)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return repository.ErrConflict
		}
		log.Debug("question %d difficulty %.2f -> %.2f", id, current, next)
		return nil
	})
	if err != nil {
		log.Error("failed to adjust difficulty: %v", err)
		return 0, err
	}
	return next, nil
}

func (s *store) Insert(ctx context.Context, q models.Question) (int64, error) {
	log := logger.FromContext(ctx).WithPrefix("question_repo")
	if q.Body == nil {
		return 0, fmt.Errorf("question %q has no body", q.Text)
	}

	var id int64
	err := s.Atomic(ctx, func(tx repository.Store) error {
		t := tx.(*store)
		err := t.q.QueryRowContext(ctx, t.rebind(`
INSERT INTO questions (category_id, text, explanation, image_path, question_type, difficulty)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id
`), q.CategoryID, q.Text, q.Explanation, q.ImagePath, string(q.Type()), models.ClampDifficulty(q.Difficulty)).Scan(&id)
		if err != nil {
			return err
		}

		switch body := q.Body.(type) {
		case models.MultipleChoice:
			for _, o := range body.Options {
				if _, err := t.q.ExecContext(ctx, t.rebind(`
INSERT INTO answer_options (question_id, text, is_correct) VALUES (?, ?, ?)
`), id, o.Text, o.IsCorrect); err != nil {
					return err
				}
			}
		case models.WrittenResponse:
			for _, a := range body.Answers {
				if _, err := t.q.ExecContext(ctx, t.rebind(`
INSERT INTO acceptable_answers (question_id, text, is_primary) VALUES (?, ?, ?)
`), id, a.Text, a.IsPrimary); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		log.Error("failed to insert question: %v", err)
		return 0, err
	}
	log.Debug("question inserted: id=%d", id)
	return id, nil
}
