package models

import (
	"fmt"
	"strings"
	"time"
)

type Mode string

const (
	ModeQuick            Mode = "quick"
	ModeTest             Mode = "test"
	ModeAdaptive         Mode = "adaptive"
	ModeSpacedRepetition Mode = "spaced_repetition"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeQuick, ModeTest, ModeAdaptive, ModeSpacedRepetition:
		return m, nil
	case "spacedrepetition", "spaced-repetition", "review":
		return ModeSpacedRepetition, nil
	default:
		return "", fmt.Errorf("unknown quiz mode %q", s)
	}
}

// DefersFeedback reports whether correctness is hidden until the end.
func (m Mode) DefersFeedback() bool {
	return m == ModeTest || m == ModeAdaptive
}

// Rating is the learner's subjective difficulty for a question.
type Rating string

const (
	RatingUnrated     Rating = "unrated"
	RatingEasy        Rating = "easy"
	RatingChallenging Rating = "challenging"
	RatingHard        Rating = "hard"
)

func ParseRating(s string) (Rating, error) {
	switch r := Rating(strings.ToLower(strings.TrimSpace(s))); r {
	case RatingEasy, RatingChallenging, RatingHard, RatingUnrated:
		return r, nil
	case "":
		return RatingUnrated, nil
	default:
		return "", fmt.Errorf("unknown rating %q", s)
	}
}

type SessionState string

const (
	StateInitializing SessionState = "initializing"
	StateInProgress   SessionState = "in_progress"
	StateCompleted    SessionState = "completed"
)

// SessionQuestion is one served slot of a session.
type SessionQuestion struct {
	QuestionID  int64   `json:"question_id"`
	Difficulty  float64 `json:"difficulty"`
	Answered    bool    `json:"answered"`
	Correct     bool    `json:"correct"`
	Rated       bool    `json:"rated"`
	TimeSeconds float64 `json:"time_seconds"`
}

// QuizSession is the state of one quiz attempt. It is loaded, mutated and
// saved once per request; CurrentIndex never exceeds len(Questions).
type QuizSession struct {
	ID           string            `json:"id"`
	UserID       int64             `json:"user_id"`
	Mode         Mode              `json:"mode"`
	Categories   []int64           `json:"categories"`
	Band         Band              `json:"band,omitempty"`
	TargetCount  int               `json:"target_count"`
	Questions    []SessionQuestion `json:"questions"`
	CurrentIndex int               `json:"current_index"`
	CorrectCount int               `json:"correct_count"`
	State        SessionState      `json:"state"`
	StartedAt    time.Time         `json:"started_at"`
	CompletedAt  *time.Time        `json:"completed_at,omitempty"`
	Version      int               `json:"version"`
}

func (s *QuizSession) Completed() bool {
	return s.State == StateCompleted
}

// Current returns the slot awaiting an answer, or nil when none is left.
func (s *QuizSession) Current() *SessionQuestion {
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Questions) {
		return nil
	}
	return &s.Questions[s.CurrentIndex]
}

// QuestionIDs returns the ids of every question served so far.
func (s *QuizSession) QuestionIDs() []int64 {
	ids := make([]int64, len(s.Questions))
	for i, q := range s.Questions {
		ids[i] = q.QuestionID
	}
	return ids
}

// Attempt is the persisted summary of a completed session.
type Attempt struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"user_id"`
	SessionID       string    `json:"session_id"`
	TotalQuestions  int       `json:"total_questions"`
	CorrectAnswers  int       `json:"correct_answers"`
	Categories      []int64   `json:"categories"`
	Mode            Mode      `json:"mode"`
	DurationSeconds int       `json:"duration_seconds"`
	CreatedAt       time.Time `json:"created_at"`
}

// AnswerLog records one answered question.
type AnswerLog struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	SessionID     string    `json:"session_id"`
	QuestionIndex int       `json:"question_index"`
	QuestionID    int64     `json:"question_id"`
	AnswerID      *int64    `json:"answer_id,omitempty"`
	WrittenAnswer *string   `json:"written_answer,omitempty"`
	IsCorrect     bool      `json:"is_correct"`
	Mode          Mode      `json:"mode"`
	TimeSeconds   float64   `json:"time_seconds"`
	CreatedAt     time.Time `json:"created_at"`
}

// AnswerStats aggregates answer logs over a period.
type AnswerStats struct {
	Total         int     `json:"total"`
	Correct       int     `json:"correct"`
	AvgDifficulty float64 `json:"avg_difficulty"`
}
