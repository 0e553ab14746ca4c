package evaluator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/quizflash/internal/errors"
	"github.com/vytor/quizflash/internal/evaluator"
	"github.com/vytor/quizflash/internal/models"
)

func answers(texts ...string) []models.AcceptableAnswer {
	out := make([]models.AcceptableAnswer, len(texts))
	for i, t := range texts {
		out[i] = models.AcceptableAnswer{ID: int64(i + 1), Text: t}
	}
	return out
}

func TestCheckWrittenAnswer(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		accepted []string
		want     bool
	}{
		{"case insensitive exact", "Paris", []string{"paris"}, true},
		{"one edit on short word", "Pari", []string{"Paris"}, true},
		{"long submission never fuzzy matches", "a completely different long sentence", []string{"short"}, false},
		{"hyphen removal absorbed by fuzzy match", "  the   Eiffel-Tower! ", []string{"The Eiffel Tower"}, true},
		{"punctuation stripped on both sides", "rock'n roll", []string{"rockn roll"}, true},
		{"whitespace collapsed", "new    york", []string{"New York"}, true},
		{"second acceptable answer matches", "NYC", []string{"New York", "nyc"}, true},
		{"too many edits", "London", []string{"Paris"}, false},
		{"only punctuation", "?!", []string{"Paris"}, false},
		{"four tokens exact still matches", "the quick brown fox", []string{"The quick brown fox."}, true},
		{"four tokens with typo rejected", "the quick brown fux", []string{"The quick brown fox"}, false},
		{"three tokens with typo accepted", "quick brown fux", []string{"quick brown fox"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, evaluator.CheckWrittenAnswer(tt.text, answers(tt.accepted...)))
		})
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "hello world", evaluator.Normalize("  Hello,   (World)! "))
	assert.Equal(t, "its a test", evaluator.Normalize(`"It's" a test.`))
	assert.Equal(t, "", evaluator.Normalize(" ... "))
}

func TestAllowedDistance(t *testing.T) {
	tests := []struct {
		length int
		want   int
	}{
		{3, 2},  // t = 1/3
		{5, 2},  // t = 0.6
		{9, 2},  // t = 7/9
		{10, 2}, // t capped at 0.8
		{15, 3},
		{20, 4},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, evaluator.AllowedDistance(tt.length), "length %d", tt.length)
	}
}

func TestFuzzyMatch(t *testing.T) {
	assert.True(t, evaluator.FuzzyMatch("pari", "paris"))
	assert.True(t, evaluator.FuzzyMatch("mississipi", "mississippi"))
	assert.False(t, evaluator.FuzzyMatch("berlin", "paris"))
}

func TestEvaluate_MultipleChoice(t *testing.T) {
	q := models.Question{
		ID: 1,
		Body: models.MultipleChoice{Options: []models.AnswerOption{
			{ID: 10, Text: "3", IsCorrect: false},
			{ID: 11, Text: "4", IsCorrect: true},
		}},
	}
	correctID, wrongID, unknownID := int64(11), int64(10), int64(99)

	ok, err := evaluator.Evaluate(q, models.Submission{OptionID: &correctID})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = evaluator.Evaluate(q, models.Submission{OptionID: &wrongID})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = evaluator.Evaluate(q, models.Submission{OptionID: &unknownID})
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = evaluator.Evaluate(q, models.Submission{})
	assert.True(t, errors.IsValidation(err))
}

func TestEvaluate_WrittenResponse(t *testing.T) {
	q := models.Question{
		ID:   2,
		Body: models.WrittenResponse{Answers: answers("Paris")},
	}

	ok, err := evaluator.Evaluate(q, models.Submission{Text: "paris"})
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = evaluator.Evaluate(q, models.Submission{Text: "   "})
	assert.True(t, errors.IsValidation(err))
}

func TestEvaluate_MissingBody(t *testing.T) {
	_, err := evaluator.Evaluate(models.Question{ID: 3}, models.Submission{Text: "x"})
	assert.ErrorIs(t, err, evaluator.ErrMissingBody)
}
