package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vytor/quizflash/internal/db"
	"github.com/vytor/quizflash/internal/models"
	"github.com/vytor/quizflash/internal/repository"
	"github.com/vytor/quizflash/internal/repository/sqlstore"
)

// NewTestDB creates an in-memory SQLite database with all migrations applied.
func NewTestDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return database
}

// NewTestStore returns a Store over a fresh in-memory database.
func NewTestStore(t *testing.T) repository.Store {
	t.Helper()
	return sqlstore.New(NewTestDB(t))
}

// SeedMultipleChoice inserts a question with three options, the first one
// correct. It returns the question id and the id of the correct option.
func SeedMultipleChoice(t *testing.T, repo repository.QuestionRepository, categoryID int64, difficulty float64) (int64, int64) {
	t.Helper()
	ctx := context.Background()
	id, err := repo.Insert(ctx, models.Question{
		CategoryID: categoryID,
		Text:       "Which one is right?",
		Difficulty: difficulty,
		Body: models.MultipleChoice{Options: []models.AnswerOption{
			{Text: "right", IsCorrect: true},
			{Text: "wrong"},
			{Text: "also wrong"},
		}},
	})
	require.NoError(t, err)

	q, err := repo.Get(ctx, id)
	require.NoError(t, err)
	opt, ok := q.Body.(models.MultipleChoice).CorrectOption()
	require.True(t, ok)
	return id, opt.ID
}

// SeedWrittenResponse inserts a written-response question accepting answers.
// The first answer is primary.
func SeedWrittenResponse(t *testing.T, repo repository.QuestionRepository, categoryID int64, difficulty float64, answers ...string) int64 {
	t.Helper()
	wr := models.WrittenResponse{}
	for i, a := range answers {
		wr.Answers = append(wr.Answers, models.AcceptableAnswer{Text: a, IsPrimary: i == 0})
	}
	id, err := repo.Insert(context.Background(), models.Question{
		CategoryID: categoryID,
		Text:       "Name it.",
		Difficulty: difficulty,
		Body:       wr,
	})
	require.NoError(t, err)
	return id
}

// SeedQuestions inserts one multiple-choice question per difficulty and
// returns their ids in the same order.
func SeedQuestions(t *testing.T, repo repository.QuestionRepository, categoryID int64, difficulties ...float64) []int64 {
	t.Helper()
	ids := make([]int64, len(difficulties))
	for i, d := range difficulties {
		ids[i], _ = SeedMultipleChoice(t, repo, categoryID, d)
	}
	return ids
}

// MustClose closes a resource and fails the test on error.
func MustClose(t *testing.T, closer interface{ Close() error }) {
	require.NoError(t, closer.Close())
}
