package difficulty_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vytor/quizflash/internal/difficulty"
	"github.com/vytor/quizflash/internal/models"
)

func TestAdjust(t *testing.T) {
	tests := []struct {
		name    string
		current float64
		rating  models.Rating
		want    float64
	}{
		{"hard moves up one step", 3.0, models.RatingHard, 3.1},
		{"easy moves down one step", 3.0, models.RatingEasy, 2.9},
		{"challenging from above", 4.0, models.RatingChallenging, 3.9},
		{"challenging from below", 1.5, models.RatingChallenging, 1.6},
		{"at target stays", 3.0, models.RatingChallenging, 3.0},
		{"snaps to close target", 4.95, models.RatingHard, 5.0},
		{"unrated is a no-op", 2.7, models.RatingUnrated, 2.7},
		{"out of range input is clamped", 7.0, models.RatingHard, 5.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, difficulty.Adjust(tt.current, tt.rating), 1e-9)
		})
	}
}

func TestAdjust_ConvergesWithoutOvershoot(t *testing.T) {
	d := 3.0
	for i := 0; i < 40; i++ {
		next := difficulty.Adjust(d, models.RatingHard)
		assert.GreaterOrEqual(t, next, d, "hard ratings never lower difficulty")
		assert.LessOrEqual(t, next-d, difficulty.Step+1e-9, "step bounded")
		assert.LessOrEqual(t, next, 5.0, "never overshoots target")
		d = next
	}
	assert.Equal(t, 5.0, d)

	for i := 0; i < 40; i++ {
		d = difficulty.Adjust(d, models.RatingEasy)
		assert.GreaterOrEqual(t, d, 1.0)
	}
	assert.Equal(t, 1.0, d)
}

func TestAdjuster(t *testing.T) {
	fn := difficulty.Adjuster(models.RatingEasy)
	assert.InDelta(t, 2.4, fn(2.5), 1e-9)
}
