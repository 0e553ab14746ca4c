package scheduler

import (
	"math"
	"time"

	"github.com/vytor/quizflash/internal/models"
)

// DefaultTimeLimit is the answer time at which the speed signal reaches zero.
const DefaultTimeLimit = 30 * time.Second

const day = 24 * time.Hour

// Apply runs one SM-2 review step on card.
// quality: 0-2 failed recall, 3=hard, 4=good, 5=easy
func Apply(card models.ReviewCard, quality int, now time.Time) models.ReviewCard {
	quality = clampInt(quality, 0, 5)
	ef := card.EaseFactor
	if ef == 0 {
		ef = models.DefaultEaseFactor
	}

	interval := card.IntervalDays
	if quality < 3 {
		card.Repetitions = 0
		interval = 1
	} else {
		card.Repetitions++
		switch card.Repetitions {
		case 1:
			interval = 1
		case 2:
			interval = 6
		default:
			interval = int(math.Round(float64(interval) * ef))
		}
	}
	if interval < 1 {
		interval = 1
	}

	d := float64(5 - quality)
	ef = ef + 0.1 - d*(0.08+d*0.02)
	if ef < models.MinEaseFactor {
		ef = models.MinEaseFactor
	}

	reviewed := now.UTC()
	card.EaseFactor = ef
	card.IntervalDays = interval
	card.NextReviewAt = reviewed.Add(time.Duration(interval) * day)
	card.LastReviewedAt = &reviewed
	return card
}

// NewCard returns the initial state of a card created at now.
func NewCard(userID, questionID int64, now time.Time) models.ReviewCard {
	now = now.UTC()
	return models.ReviewCard{
		UserID:       userID,
		QuestionID:   questionID,
		EaseFactor:   models.DefaultEaseFactor,
		IntervalDays: 1,
		NextReviewAt: now.Add(day),
		CreatedAt:    now,
	}
}

// CalculateQuality maps correctness and a speed signal in [0,1] to an SM-2
// quality. Incorrect answers land in 0-2, correct ones in 3-5.
func CalculateQuality(isCorrect bool, timeFactor float64) int {
	bonus := int(math.Round(clampFloat(timeFactor, 0, 1) * 2))
	if !isCorrect {
		return bonus
	}
	return 3 + bonus
}

// TimeFactor is 1 for an instant answer and falls linearly to 0 at limit.
func TimeFactor(elapsed, limit time.Duration) float64 {
	if limit <= 0 {
		return 1
	}
	return clampFloat(1-float64(elapsed)/float64(limit), 0, 1)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
