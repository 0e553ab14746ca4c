package models_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/quizflash/internal/models"
)

func TestBandFor(t *testing.T) {
	tests := []struct {
		difficulty float64
		want       models.Band
	}{
		{1.0, models.BandEasy},
		{2.0, models.BandEasy},
		{2.01, models.BandMedium},
		{3.99, models.BandMedium},
		{4.0, models.BandHard},
		{5.0, models.BandHard},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, models.BandFor(tt.difficulty), "difficulty %v", tt.difficulty)
	}
}

func TestParseMode(t *testing.T) {
	m, err := models.ParseMode(" Adaptive ")
	require.NoError(t, err)
	assert.Equal(t, models.ModeAdaptive, m)

	m, err = models.ParseMode("spaced-repetition")
	require.NoError(t, err)
	assert.Equal(t, models.ModeSpacedRepetition, m)

	_, err = models.ParseMode("marathon")
	assert.Error(t, err)

	assert.True(t, models.ModeTest.DefersFeedback())
	assert.False(t, models.ModeQuick.DefersFeedback())
}

func TestParseRatingAndBand(t *testing.T) {
	r, err := models.ParseRating("")
	require.NoError(t, err)
	assert.Equal(t, models.RatingUnrated, r)

	_, err = models.ParseRating("brutal")
	assert.Error(t, err)

	b, err := models.ParseBand("all")
	require.NoError(t, err)
	assert.Equal(t, models.BandAny, b)

	_, err = models.ParseBand("extreme")
	assert.Error(t, err)
}

func TestSubmissionEmpty(t *testing.T) {
	zero := int64(0)
	one := int64(1)

	assert.True(t, models.Submission{}.Empty())
	assert.True(t, models.Submission{OptionID: &zero, Text: "   "}.Empty())
	assert.False(t, models.Submission{OptionID: &one}.Empty())
	assert.False(t, models.Submission{Text: "paris"}.Empty())
}

func TestSessionCursor(t *testing.T) {
	s := &models.QuizSession{Questions: []models.SessionQuestion{{QuestionID: 4}, {QuestionID: 9}}}
	require.NotNil(t, s.Current())
	assert.Equal(t, int64(4), s.Current().QuestionID)
	assert.Equal(t, []int64{4, 9}, s.QuestionIDs())

	s.CurrentIndex = 2
	assert.Nil(t, s.Current())
}

func TestReviewCardIsDue(t *testing.T) {
	now := time.Now()
	assert.True(t, models.ReviewCard{NextReviewAt: now}.IsDue(now))
	assert.False(t, models.ReviewCard{NextReviewAt: now.Add(time.Second)}.IsDue(now))
}
