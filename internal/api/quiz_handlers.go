package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/vytor/quizflash/internal/errors"
	"github.com/vytor/quizflash/internal/logger"
	"github.com/vytor/quizflash/internal/models"
	"github.com/vytor/quizflash/internal/quiz"
)

func (s *Server) handleStartQuiz(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var req startQuizRequest
	if err := s.decode(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	session, err := s.Quiz.Start(r.Context(), quiz.StartRequest{
		UserID:        req.UserID,
		Mode:          models.Mode(req.Mode),
		Categories:    req.Categories,
		Band:          models.Band(req.Band),
		QuestionCount: req.QuestionCount,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}

	log.Debug("session %s created with %d questions", session.ID, len(session.Questions))
	writeJSON(w, http.StatusCreated, newSessionView(session))
}

func (s *Server) handleGetQuiz(w http.ResponseWriter, r *http.Request) {
	session, err := s.Quiz.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(session))
}

func (s *Server) handleCurrentQuestion(w http.ResponseWriter, r *http.Request) {
	q, session, err := s.Quiz.Current(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, currentResponse{
		SessionID:     session.ID,
		State:         session.State,
		QuestionIndex: session.CurrentIndex,
		Total:         len(session.Questions),
		Question:      newQuestionView(q),
	})
}

func (s *Server) handleSubmitAnswer(w http.ResponseWriter, r *http.Request) {
	var req submitAnswerRequest
	if err := s.decode(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	res, err := s.Quiz.SubmitAnswer(r.Context(), quiz.SubmitRequest{
		SessionID:     chi.URLParam(r, "id"),
		UserID:        req.UserID,
		QuestionIndex: *req.QuestionIndex,
		Submission:    models.Submission{OptionID: req.OptionID, Text: req.Text},
		Elapsed:       elapsed(req.ElapsedMS),
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSubmitResponse(res))
}

func (s *Server) handleRateQuestion(w http.ResponseWriter, r *http.Request) {
	var req rateRequest
	if err := s.decode(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	res, err := s.Quiz.Rate(r.Context(), quiz.RateRequest{
		SessionID:     chi.URLParam(r, "id"),
		UserID:        req.UserID,
		QuestionIndex: *req.QuestionIndex,
		Rating:        models.Rating(req.Rating),
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleUserAttempts(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt64(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	attempts, err := s.Quiz.Attempts(r.Context(), userID, limit)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if attempts == nil {
		attempts = []models.Attempt{}
	}
	writeJSON(w, http.StatusOK, attempts)
}

func (s *Server) handleUserMastery(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt64(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -30)
	if v := strings.TrimSpace(r.URL.Query().Get("end")); v != "" {
		if end, err = time.Parse(time.RFC3339, v); err != nil {
			handleError(w, r, errors.NewBadRequestError("end must be an RFC3339 timestamp"))
			return
		}
	}
	if v := strings.TrimSpace(r.URL.Query().Get("start")); v != "" {
		if start, err = time.Parse(time.RFC3339, v); err != nil {
			handleError(w, r, errors.NewBadRequestError("start must be an RFC3339 timestamp"))
			return
		}
	}

	res, err := s.Mastery.Score(r.Context(), userID, start, end)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
