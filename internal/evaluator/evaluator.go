// Package evaluator decides whether a submitted answer is correct.
package evaluator

import (
	stderrors "errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/agext/levenshtein"
	"github.com/vytor/quizflash/internal/errors"
	"github.com/vytor/quizflash/internal/models"
)

// Fuzzy matching constants. They are kept as found; nothing documents how
// they were chosen.
const (
	maxFuzzyTokens  = 3
	maxThreshold    = 0.8
	thresholdFactor = 2.0
)

var ErrMissingBody = stderrors.New("question has no answer body")

var stripper = strings.NewReplacer(
	".", "", ",", "", ";", "", ":", "", "!", "", "?", "",
	"(", "", ")", "", "'", "", `"`, "", "-", "",
)

// Evaluate reports whether sub answers q correctly. An empty submission is a
// validation error; callers are expected to reject it before getting here.
func Evaluate(q models.Question, sub models.Submission) (bool, error) {
	switch body := q.Body.(type) {
	case models.MultipleChoice:
		if sub.OptionID == nil || *sub.OptionID == 0 {
			return false, errors.NewValidationError("answer", "an option must be selected")
		}
		return checkOption(*sub.OptionID, body.Options), nil
	case models.WrittenResponse:
		if strings.TrimSpace(sub.Text) == "" {
			return false, errors.NewValidationError("answer", "a written answer is required")
		}
		return CheckWrittenAnswer(sub.Text, body.Answers), nil
	case nil:
		return false, fmt.Errorf("question %d: %w", q.ID, ErrMissingBody)
	default:
		return false, fmt.Errorf("question %d: unsupported body %T", q.ID, body)
	}
}

func checkOption(id int64, options []models.AnswerOption) bool {
	for _, o := range options {
		if o.ID == id {
			return o.IsCorrect
		}
	}
	return false
}

// CheckWrittenAnswer compares text against every acceptable answer after
// normalization. Short submissions (up to three words) also accept answers
// within an edit-distance threshold that scales with the answer length.
func CheckWrittenAnswer(text string, answers []models.AcceptableAnswer) bool {
	submitted := Normalize(text)
	if submitted == "" {
		return false
	}

	for _, a := range answers {
		if submitted == Normalize(a.Text) {
			return true
		}
	}

	if len(strings.Fields(submitted)) > maxFuzzyTokens {
		return false
	}
	for _, a := range answers {
		expected := Normalize(a.Text)
		if expected == "" {
			continue
		}
		if FuzzyMatch(submitted, expected) {
			return true
		}
	}
	return false
}

// Normalize lowercases s, strips punctuation and collapses whitespace.
func Normalize(s string) string {
	s = stripper.Replace(strings.ToLower(s))
	return strings.Join(strings.Fields(s), " ")
}

// FuzzyMatch reports whether two normalized strings are within the allowed
// edit distance: with L the longer length and t = min(0.8, 1-2/L), at most
// floor(L*(1-t)) edits.
func FuzzyMatch(a, b string) bool {
	l := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > l {
		l = n
	}
	if l == 0 {
		return true
	}
	return levenshtein.Distance(a, b, nil) <= AllowedDistance(l)
}

// AllowedDistance is the edit budget for strings whose longer side has l runes.
func AllowedDistance(l int) int {
	length := float64(l)
	t := math.Min(maxThreshold, 1-thresholdFactor/length)
	// epsilon absorbs binary rounding, e.g. 10*(1-0.8) = 1.9999999999999996
	return int(math.Floor(length*(1-t) + 1e-9))
}
