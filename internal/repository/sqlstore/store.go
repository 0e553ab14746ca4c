// Package sqlstore implements repository.Store on database/sql for SQLite
// and PostgreSQL.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/vytor/quizflash/internal/db"
	"github.com/vytor/quizflash/internal/logger"
	"github.com/vytor/quizflash/internal/repository"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type store struct {
	db   *db.DB
	q    querier
	inTx bool
	sb   squirrel.StatementBuilderType
}

// New returns a Store backed by database.
func New(database *db.DB) repository.Store {
	return &store{
		db: database,
		q:  database.DB,
		sb: squirrel.StatementBuilder.PlaceholderFormat(database.Dialect.Placeholder()),
	}
}

func (s *store) Atomic(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}

	log := logger.FromContext(ctx).WithPrefix("repo")
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction: %v", err)
		return err
	}
	txStore := &store{db: s.db, q: tx, inTx: true, sb: s.sb}
	if err := fn(txStore); err != nil {
		_ = tx.Rollback()
		log.Debug("transaction rolled back due to error: %v", err)
		return err
	}
	if err := tx.Commit(); err != nil {
		log.Error("failed to commit transaction: %v", err)
		return err
	}
	log.Debug("transaction committed")
	return nil
}

func (s *store) rebind(query string) string {
	return s.db.Dialect.Rebind(query)
}

// forUpdate locks selected rows when running inside a transaction.
func (s *store) forUpdate() string {
	if !s.inTx {
		return ""
	}
	return s.db.Dialect.ForUpdate()
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrConstraint &&
			(se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey)
	}
	var pe *pq.Error
	if errors.As(err, &pe) {
		return pe.Code == "23505"
	}
	return false
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func nullInt64(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	v := ni.Int64
	return &v
}
