// Package difficulty moves a question's difficulty toward what learners
// report, one small step per rating.
package difficulty

import (
	"math"

	"github.com/vytor/quizflash/internal/models"
)

// Step is the largest change a single rating can make.
const Step = 0.1

// Target returns the difficulty a rating pulls toward. ok is false for
// RatingUnrated and unknown ratings.
func Target(r models.Rating) (float64, bool) {
	switch r {
	case models.RatingEasy:
		return 1.0, true
	case models.RatingChallenging:
		return 3.0, true
	case models.RatingHard:
		return 5.0, true
	default:
		return 0, false
	}
}

// Adjust returns the difficulty after applying one rating to current. The
// result moves at most Step toward the target and never past it.
func Adjust(current float64, r models.Rating) float64 {
	current = models.ClampDifficulty(current)
	target, ok := Target(r)
	if !ok {
		return current
	}

	diff := target - current
	var next float64
	switch {
	case math.Abs(diff) <= Step:
		next = target
	case diff > 0:
		next = current + Step
	default:
		next = current - Step
	}
	// two decimals stops float drift from accumulating across many ratings
	next = math.Round(next*100) / 100
	return models.ClampDifficulty(next)
}

// Adjuster returns Adjust bound to r, in the shape QuestionRepository
// expects for read-modify-write updates.
func Adjuster(r models.Rating) func(float64) float64 {
	return func(current float64) float64 {
		return Adjust(current, r)
	}
}
