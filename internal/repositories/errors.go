package repositories

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vidtweet/backend/internal/apperr"
)

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = apperr.Sentinel(apperr.NotFound, "record not found")
	// ErrConflict indicates the attempted write would violate a uniqueness constraint.
	ErrConflict = apperr.Sentinel(apperr.Conflict, "record already exists")
	// ErrConstraint indicates the write violates a check constraint.
	ErrConstraint = apperr.Sentinel(apperr.InvalidRequest, "record violates a constraint")
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// translate maps driver errors onto the package sentinels and wraps anything
// else with the failing operation.
func translate(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return ErrConflict
		case pgForeignKeyViolation:
			return ErrNotFound
		case pgCheckViolation:
			return ErrConstraint
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
