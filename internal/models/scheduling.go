package models

import "time"

const (
	DefaultEaseFactor = 2.5
	MinEaseFactor     = 1.3
)

// ReviewCard is the spaced-repetition state of one question for one user.
type ReviewCard struct {
	ID             int64      `json:"id"`
	UserID         int64      `json:"user_id"`
	QuestionID     int64      `json:"question_id"`
	EaseFactor     float64    `json:"ease_factor"`
	IntervalDays   int        `json:"interval_days"`
	Repetitions    int        `json:"repetitions"`
	NextReviewAt   time.Time  `json:"next_review_at"`
	LastReviewedAt *time.Time `json:"last_reviewed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// IsDue reports whether the card should be reviewed at now.
func (c ReviewCard) IsDue(now time.Time) bool {
	return !c.NextReviewAt.After(now)
}

type ReviewLogEntry struct {
	ID              int64     `json:"id"`
	CardID          int64     `json:"card_id"`
	UserID          int64     `json:"user_id"`
	QuestionID      int64     `json:"question_id"`
	Quality         int       `json:"quality"`
	EaseFactorAfter float64   `json:"ease_factor_after"`
	IntervalAfter   int       `json:"interval_after"`
	ReviewedAt      time.Time `json:"reviewed_at"`
}

// DueCard is a due review card joined with the difficulty of its question.
type DueCard struct {
	ReviewCard
	Difficulty float64 `json:"difficulty"`
}
