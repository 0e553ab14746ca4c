package api

import (
	"time"

	"github.com/vytor/quizflash/internal/models"
	"github.com/vytor/quizflash/internal/quiz"
)

type startQuizRequest struct {
	UserID        int64   `json:"user_id" validate:"required,gt=0"`
	Mode          string  `json:"mode" validate:"required"`
	Categories    []int64 `json:"categories" validate:"required,min=1,dive,gt=0"`
	Band          string  `json:"band,omitempty" validate:"omitempty,oneof=easy medium hard all any"`
	QuestionCount int     `json:"question_count,omitempty" validate:"omitempty,min=1,max=100"`
}

type submitAnswerRequest struct {
	UserID        int64  `json:"user_id" validate:"required,gt=0"`
	QuestionIndex *int   `json:"question_index" validate:"required,gte=0"`
	OptionID      *int64 `json:"option_id,omitempty" validate:"omitempty,gt=0"`
	Text          string `json:"text,omitempty" validate:"max=500"`
	ElapsedMS     int64  `json:"elapsed_ms" validate:"gte=0"`
}

type rateRequest struct {
	UserID        int64  `json:"user_id" validate:"required,gt=0"`
	QuestionIndex *int   `json:"question_index" validate:"required,gte=0"`
	Rating        string `json:"rating" validate:"required,oneof=easy challenging hard unrated"`
}

type optionView struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

// questionView is a question as shown to a learner: no answer key.
type questionView struct {
	ID         int64               `json:"id"`
	CategoryID int64               `json:"category_id"`
	Type       models.QuestionType `json:"type"`
	Text       string              `json:"text"`
	ImagePath  *string             `json:"image_path,omitempty"`
	Difficulty float64             `json:"difficulty"`
	Options    []optionView        `json:"options,omitempty"`
}

func newQuestionView(q *models.Question) *questionView {
	if q == nil {
		return nil
	}
	v := &questionView{
		ID:         q.ID,
		CategoryID: q.CategoryID,
		Type:       q.Type(),
		Text:       q.Text,
		ImagePath:  q.ImagePath,
		Difficulty: q.Difficulty,
	}
	if mc, ok := q.Body.(models.MultipleChoice); ok {
		for _, o := range mc.Options {
			v.Options = append(v.Options, optionView{ID: o.ID, Text: o.Text})
		}
	}
	return v
}

type currentResponse struct {
	SessionID     string              `json:"session_id"`
	State         models.SessionState `json:"state"`
	QuestionIndex int                 `json:"question_index"`
	Total         int                 `json:"total"`
	Question      *questionView       `json:"question,omitempty"`
}

type submitResponse struct {
	SessionID       string          `json:"session_id"`
	QuestionIndex   int             `json:"question_index"`
	Answered        int             `json:"answered"`
	Total           int             `json:"total"`
	Completed       bool            `json:"completed"`
	Correct         *bool           `json:"correct,omitempty"`
	CorrectOptionID *int64          `json:"correct_option_id,omitempty"`
	CorrectAnswer   string          `json:"correct_answer,omitempty"`
	Explanation     string          `json:"explanation,omitempty"`
	CorrectCount    *int            `json:"correct_count,omitempty"`
	Attempt         *models.Attempt `json:"attempt,omitempty"`
}

// newSubmitResponse hides correctness for deferred-feedback modes until the
// session is over.
func newSubmitResponse(res *quiz.SubmitResult) submitResponse {
	out := submitResponse{
		SessionID:     res.SessionID,
		QuestionIndex: res.QuestionIndex,
		Answered:      res.Answered,
		Total:         res.Total,
		Completed:     res.Completed,
		Attempt:       res.Attempt,
	}
	if res.FeedbackDeferred && !res.Completed {
		return out
	}
	correct, count := res.Correct, res.CorrectCount
	out.Correct = &correct
	out.CorrectCount = &count
	out.CorrectOptionID = res.CorrectOptionID
	out.CorrectAnswer = res.CorrectAnswer
	out.Explanation = res.Explanation
	return out
}

func elapsed(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

type sessionSlotView struct {
	QuestionID  int64   `json:"question_id"`
	Difficulty  float64 `json:"difficulty"`
	Answered    bool    `json:"answered"`
	Correct     *bool   `json:"correct,omitempty"`
	Rated       bool    `json:"rated"`
	TimeSeconds float64 `json:"time_seconds"`
}

type sessionView struct {
	ID           string              `json:"id"`
	UserID       int64               `json:"user_id"`
	Mode         models.Mode         `json:"mode"`
	Categories   []int64             `json:"categories"`
	Band         models.Band         `json:"band,omitempty"`
	TargetCount  int                 `json:"target_count"`
	Questions    []sessionSlotView   `json:"questions"`
	CurrentIndex int                 `json:"current_index"`
	CorrectCount *int                `json:"correct_count,omitempty"`
	State        models.SessionState `json:"state"`
	StartedAt    time.Time           `json:"started_at"`
	CompletedAt  *time.Time          `json:"completed_at,omitempty"`
}

// newSessionView drops per-question correctness and the running score while
// a deferred-feedback session is still in progress.
func newSessionView(session *models.QuizSession) sessionView {
	reveal := !session.Mode.DefersFeedback() || session.Completed()
	v := sessionView{
		ID:           session.ID,
		UserID:       session.UserID,
		Mode:         session.Mode,
		Categories:   session.Categories,
		Band:         session.Band,
		TargetCount:  session.TargetCount,
		Questions:    make([]sessionSlotView, len(session.Questions)),
		CurrentIndex: session.CurrentIndex,
		State:        session.State,
		StartedAt:    session.StartedAt,
		CompletedAt:  session.CompletedAt,
	}
	for i, q := range session.Questions {
		v.Questions[i] = sessionSlotView{
			QuestionID:  q.QuestionID,
			Difficulty:  q.Difficulty,
			Answered:    q.Answered,
			Rated:       q.Rated,
			TimeSeconds: q.TimeSeconds,
		}
		if reveal && q.Answered {
			correct := q.Correct
			v.Questions[i].Correct = &correct
		}
	}
	if reveal {
		count := session.CorrectCount
		v.CorrectCount = &count
	}
	return v
}
