package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/vytor/quizflash/internal/logger"
	"github.com/vytor/quizflash/internal/models"
	"github.com/vytor/quizflash/internal/repository"
)

func (s *store) GetSession(ctx context.Context, id string) (*models.QuizSession, error) {
	log := logger.FromContext(ctx).WithPrefix("session_repo")

	var payload string
	var version int
	err := s.q.QueryRowContext(ctx, s.rebind(`SELECT payload, version FROM quiz_sessions WHERE id = ?`+s.forUpdate()), id).
		Scan(&payload, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		log.Error("failed to load session %s: %v", id, err)
		return nil, err
	}

	var session models.QuizSession
	if err := json.Unmarshal([]byte(payload), &session); err != nil {
		log.Error("corrupt session payload %s: %v", id, err)
		return nil, err
	}
	session.Version = version
	return &session, nil
}

func (s *store) SaveSession(ctx context.Context, session *models.QuizSession) error {
	log := logger.FromContext(ctx).WithPrefix("session_repo")

	next := *session
	next.Version = session.Version + 1
	payload, err := json.Marshal(next)
	if err != nil {
		return err
	}
	now := time.Now().UTC()

	if session.Version == 0 {
		_, err := s.q.ExecContext(ctx, s.rebind(`
INSERT INTO quiz_sessions (id, user_id, state, payload, version, updated_at) VALUES (?, ?, ?, ?, ?, ?)
`), session.ID, session.UserID, string(session.State), string(payload), next.Version, now)
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		if err != nil {
			log.Error("failed to insert session %s: %v", session.ID, err)
			return err
		}
		session.Version = next.Version
		return nil
	}

	res, err := s.q.ExecContext(ctx, s.rebind(`
UPDATE quiz_sessions SET state = ?, payload = ?, version = ?, updated_at = ?
WHERE id = ? AND version = ?
`), string(session.State), string(payload), next.Version, now, session.ID, session.Version)
	if err != nil {
		log.Error("failed to update session %s: %v", session.ID, err)
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		log.Warn("session %s was modified concurrently (version %d)", session.ID, session.Version)
		return repository.ErrConflict
	}
	session.Version = next.Version
	return nil
}
