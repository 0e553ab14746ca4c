package scheduler_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/vytor/quizflash/internal/models"
	"github.com/vytor/quizflash/internal/scheduler"
)

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestApply_IntervalSequence(t *testing.T) {
	card := scheduler.NewCard(1, 1, now)

	var intervals []int
	for i := 0; i < 4; i++ {
		card = scheduler.Apply(card, 4, now)
		intervals = append(intervals, card.IntervalDays)
	}

	// quality 4 leaves the ease at 2.5
	assert.Equal(t, []int{1, 6, 15, 38}, intervals)
	assert.Equal(t, 4, card.Repetitions)
	assert.InDelta(t, 2.5, card.EaseFactor, 1e-9)
}

func TestApply_UsesEaseBeforeUpdate(t *testing.T) {
	card := scheduler.NewCard(1, 1, now)
	card = scheduler.Apply(card, 5, now)
	card = scheduler.Apply(card, 5, now)
	assert.Equal(t, 6, card.IntervalDays)
	assert.InDelta(t, 2.7, card.EaseFactor, 1e-9)

	card = scheduler.Apply(card, 5, now)
	assert.Equal(t, 16, card.IntervalDays)
	assert.InDelta(t, 2.8, card.EaseFactor, 1e-9)
}

func TestApply_FailureResetsStreak(t *testing.T) {
	card := models.ReviewCard{EaseFactor: 2.5, IntervalDays: 40, Repetitions: 7}

	for _, q := range []int{0, 1, 2} {
		updated := scheduler.Apply(card, q, now)
		assert.Equal(t, 0, updated.Repetitions, "quality %d", q)
		assert.Equal(t, 1, updated.IntervalDays, "quality %d", q)
		assert.Less(t, updated.EaseFactor, card.EaseFactor, "quality %d", q)
	}
}

func TestApply_Bounds(t *testing.T) {
	card := scheduler.NewCard(1, 1, now)
	for i := 0; i < 20; i++ {
		card = scheduler.Apply(card, 0, now)
		assert.GreaterOrEqual(t, card.EaseFactor, models.MinEaseFactor)
		assert.GreaterOrEqual(t, card.IntervalDays, 1)
	}
	assert.Equal(t, models.MinEaseFactor, card.EaseFactor)

	card = scheduler.Apply(card, 5, now)
	assert.Equal(t, now.Add(24*time.Hour), card.NextReviewAt)
	if assert.NotNil(t, card.LastReviewedAt) {
		assert.Equal(t, now, *card.LastReviewedAt)
	}
}

func TestNewCard(t *testing.T) {
	card := scheduler.NewCard(3, 9, now)
	assert.Equal(t, models.DefaultEaseFactor, card.EaseFactor)
	assert.Equal(t, 1, card.IntervalDays)
	assert.Equal(t, 0, card.Repetitions)
	assert.Equal(t, now.Add(24*time.Hour), card.NextReviewAt)
}

func TestCalculateQuality(t *testing.T) {
	tests := []struct {
		correct bool
		tf      float64
		want    int
	}{
		{false, 0, 0},
		{false, 0.5, 1},
		{false, 1, 2},
		{true, 0, 3},
		{true, 0.5, 4},
		{true, 1, 5},
		{true, 7, 5},
		{false, -1, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, scheduler.CalculateQuality(tt.correct, tt.tf), "correct=%v tf=%v", tt.correct, tt.tf)
	}
}

func TestTimeFactor(t *testing.T) {
	limit := scheduler.DefaultTimeLimit
	assert.Equal(t, 1.0, scheduler.TimeFactor(0, limit))
	assert.InDelta(t, 0.5, scheduler.TimeFactor(15*time.Second, limit), 1e-9)
	assert.Equal(t, 0.0, scheduler.TimeFactor(45*time.Second, limit))
	assert.Equal(t, 1.0, scheduler.TimeFactor(time.Minute, 0))
}
