package models

import (
	"fmt"
	"strings"
)

type QuestionType string

const (
	TypeMultipleChoice  QuestionType = "multiple_choice"
	TypeWrittenResponse QuestionType = "written_response"
)

// Body is the type-specific part of a question. It is either MultipleChoice
// or WrittenResponse; switches over it must handle both.
type Body interface {
	Type() QuestionType
	isBody()
}

// MultipleChoice questions are answered by picking one option. Exactly one
// option is expected to be correct.
type MultipleChoice struct {
	Options []AnswerOption `json:"options"`
}

func (MultipleChoice) Type() QuestionType { return TypeMultipleChoice }
func (MultipleChoice) isBody()            {}

// CorrectOption returns the option flagged correct, if any.
func (mc MultipleChoice) CorrectOption() (AnswerOption, bool) {
	for _, o := range mc.Options {
		if o.IsCorrect {
			return o, true
		}
	}
	return AnswerOption{}, false
}

// WrittenResponse questions are answered with free text compared against a
// list of acceptable answers.
type WrittenResponse struct {
	Answers []AcceptableAnswer `json:"answers"`
}

func (WrittenResponse) Type() QuestionType { return TypeWrittenResponse }
func (WrittenResponse) isBody()            {}

// Primary returns the answer shown to learners after a miss. Falls back to
// the first acceptable answer when none is marked primary.
func (wr WrittenResponse) Primary() (AcceptableAnswer, bool) {
	for _, a := range wr.Answers {
		if a.IsPrimary {
			return a, true
		}
	}
	if len(wr.Answers) > 0 {
		return wr.Answers[0], true
	}
	return AcceptableAnswer{}, false
}

type AnswerOption struct {
	ID         int64  `json:"id"`
	QuestionID int64  `json:"question_id"`
	Text       string `json:"text"`
	IsCorrect  bool   `json:"is_correct"`
}

type AcceptableAnswer struct {
	ID         int64  `json:"id"`
	QuestionID int64  `json:"question_id"`
	Text       string `json:"text"`
	IsPrimary  bool   `json:"is_primary"`
}

const (
	MinDifficulty = 1.0
	MaxDifficulty = 5.0
)

type Question struct {
	ID          int64   `json:"id"`
	CategoryID  int64   `json:"category_id"`
	Text        string  `json:"text"`
	Explanation string  `json:"explanation"`
	ImagePath   *string `json:"image_path,omitempty"`
	Difficulty  float64 `json:"difficulty"`
	Body        Body    `json:"-"`
}

// Type returns the question type, or "" when the body has not been loaded.
func (q Question) Type() QuestionType {
	if q.Body == nil {
		return ""
	}
	return q.Body.Type()
}

// Band returns the coarse difficulty band of the question.
func (q Question) Band() Band {
	return BandFor(q.Difficulty)
}

// ClampDifficulty bounds v to [MinDifficulty, MaxDifficulty].
func ClampDifficulty(v float64) float64 {
	if v < MinDifficulty {
		return MinDifficulty
	}
	if v > MaxDifficulty {
		return MaxDifficulty
	}
	return v
}

// Band partitions the difficulty range: easy ≤ 2.0 < medium < 4.0 ≤ hard.
type Band string

const (
	BandAny    Band = ""
	BandEasy   Band = "easy"
	BandMedium Band = "medium"
	BandHard   Band = "hard"
)

func BandFor(difficulty float64) Band {
	switch {
	case difficulty <= 2.0:
		return BandEasy
	case difficulty >= 4.0:
		return BandHard
	default:
		return BandMedium
	}
}

func ParseBand(s string) (Band, error) {
	switch b := Band(strings.ToLower(strings.TrimSpace(s))); b {
	case BandAny, BandEasy, BandMedium, BandHard:
		return b, nil
	case "all", "any":
		return BandAny, nil
	default:
		return BandAny, fmt.Errorf("unknown difficulty band %q", s)
	}
}

// Submission is a learner's answer. OptionID is set for multiple choice,
// Text for written responses.
type Submission struct {
	OptionID *int64 `json:"option_id,omitempty"`
	Text     string `json:"text,omitempty"`
}

// Empty reports whether nothing was submitted.
func (s Submission) Empty() bool {
	return (s.OptionID == nil || *s.OptionID == 0) && strings.TrimSpace(s.Text) == ""
}
