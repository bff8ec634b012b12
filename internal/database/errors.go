package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/MrJamesThe3rd/tally/internal/apperr"
)

// Postgres error codes the API reports as client errors.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
	codeNotNullViolation    = "23502"
	codeInvalidText         = "22P02"
	codeNumericOutOfRange   = "22003"
)

// MapError classifies well-known database errors into apperr kinds, keeping
// the original error in the chain. Anything else is returned unchanged.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %w", apperr.ErrNotFound, err)
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case codeUniqueViolation:
		return fmt.Errorf("%w: %s", apperr.ErrConflict, describe(pgErr, "already exists"))
	case codeForeignKeyViolation:
		return fmt.Errorf("%w: %s", apperr.ErrNotFound, describe(pgErr, "referenced record does not exist"))
	case codeCheckViolation, codeNotNullViolation, codeInvalidText, codeNumericOutOfRange:
		return fmt.Errorf("%w: %s", apperr.ErrInvalidInput, describe(pgErr, "value rejected"))
	}

	return err
}

func describe(pgErr *pgconn.PgError, fallback string) string {
	if pgErr.ConstraintName != "" {
		return fmt.Sprintf("%s (%s)", fallback, pgErr.ConstraintName)
	}

	return fallback
}
