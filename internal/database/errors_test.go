package database_test

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/MrJamesThe3rd/tally/internal/apperr"
	"github.com/MrJamesThe3rd/tally/internal/database"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "NoRows", err: sql.ErrNoRows, want: apperr.ErrNotFound},
		{name: "Unique", err: &pgconn.PgError{Code: "23505", ConstraintName: "invoices_number_key"}, want: apperr.ErrConflict},
		{name: "ForeignKey", err: fmt.Errorf("creating payment: %w", &pgconn.PgError{Code: "23503"}), want: apperr.ErrNotFound},
		{name: "Check", err: &pgconn.PgError{Code: "23514"}, want: apperr.ErrInvalidInput},
		{name: "InvalidText", err: &pgconn.PgError{Code: "22P02"}, want: apperr.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, database.MapError(tt.err), tt.want)
		})
	}
}

func TestMapError_Passthrough(t *testing.T) {
	assert.NoError(t, database.MapError(nil))

	boom := errors.New("connection reset")
	assert.Same(t, boom, database.MapError(boom))

	serialization := &pgconn.PgError{Code: "40001"}
	assert.Nil(t, apperr.Kind(database.MapError(serialization)))
}

func TestMapError_ConstraintNameInMessage(t *testing.T) {
	err := database.MapError(&pgconn.PgError{Code: "23505", ConstraintName: "invoices_number_key"})
	assert.Contains(t, err.Error(), "invoices_number_key")
}
