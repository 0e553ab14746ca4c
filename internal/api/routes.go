package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(recoveryMiddleware)
	r.Use(loggingMiddleware)
	r.Use(securityHeadersMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Group(func(r chi.Router) {
		r.Use(timeoutMiddleware(15 * time.Second))

		r.Post("/quizzes", s.handleStartQuiz)
		r.Get("/quizzes/{id}", s.handleGetQuiz)
		r.Get("/quizzes/{id}/current", s.handleCurrentQuestion)
		r.Post("/quizzes/{id}/answers", s.handleSubmitAnswer)
		r.Post("/quizzes/{id}/ratings", s.handleRateQuestion)
		r.Get("/users/{id}/attempts", s.handleUserAttempts)
		r.Get("/users/{id}/mastery", s.handleUserMastery)
	})
	return r
}
