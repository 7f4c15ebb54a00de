package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dukerupert/billfold/internal/database"
)

var (
	// ErrNotFound is returned when a row does not exist or belongs to
	// another owner.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when an insert would violate a uniqueness rule.
	ErrDuplicate = errors.New("duplicate")
	// ErrConflict is returned when a conditional update finds the row
	// changed underneath it.
	ErrConflict = errors.New("conflict")
)

type scanner interface {
	Scan(dest ...any) error
}

// querier is satisfied by both *database.DB and *database.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	_ querier = (*database.DB)(nil)
	_ querier = (*database.Tx)(nil)
)

// insertReturningID runs an INSERT ... RETURNING id statement.
func insertReturningID(ctx context.Context, q querier, query string, args ...any) (int64, error) {
	var id int64
	if err := q.QueryRowContext(ctx, query+` RETURNING id`, args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// expectAffected maps a zero-row UPDATE or DELETE to ErrNotFound.
func expectAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", what, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
