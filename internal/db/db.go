package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInvalidState      = errors.New("invalid state")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Store wraps the connection pool; every query method lives on it.
type Store struct {
	DB *sql.DB
}

func New(database *sql.DB) *Store {
	return &Store{DB: database}
}

// inTx runs fn in a read-committed transaction and commits when fn returns nil.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

type scanner interface {
	Scan(dest ...any) error
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// notFound turns sql.ErrNoRows into ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// pgCode extracts the SQLSTATE from either driver: pgx in production, lib/pq in integration tests.
func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

// mapWriteErr turns unique and foreign key violations into ErrConflict and check
// violations into ErrInvalidState.
func mapWriteErr(err error) error {
	switch pgCode(err) {
	case "23505", "23503":
		return errors.Join(ErrConflict, err)
	case "23514":
		return errors.Join(ErrInvalidState, err)
	}
	return err
}

func affected(res sql.Result) int64 {
	n, _ := res.RowsAffected()
	return n
}
