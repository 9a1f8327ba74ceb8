package repository

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Constraint names the class of integrity constraint a statement violated.
type Constraint string

const (
	ConstraintUnique     Constraint = "unique_violation"
	ConstraintForeignKey Constraint = "foreign_key_violation"
	ConstraintNotNull    Constraint = "not_null_violation"
	ConstraintCheck      Constraint = "check_violation"
)

var constraintCodes = map[string]Constraint{
	"23505": ConstraintUnique,
	"23503": ConstraintForeignKey,
	"23502": ConstraintNotNull,
	"23514": ConstraintCheck,
}

// MapError translates database errors to domain errors.
// It maps sql.ErrNoRows to notFoundErr and PostgreSQL unique violation (23505)
// to duplicateErr. Other errors are returned unchanged.
func MapError(err error, notFoundErr, duplicateErr error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return notFoundErr
	}

	if c, ok := ConstraintViolation(err); ok && c == ConstraintUnique {
		return duplicateErr
	}

	return err
}

// ConstraintViolation reports which integrity constraint class err violated,
// if err wraps a PostgreSQL integrity error.
func ConstraintViolation(err error) (Constraint, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", false
	}
	c, ok := constraintCodes[pgErr.Code]
	return c, ok
}
