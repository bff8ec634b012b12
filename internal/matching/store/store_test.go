package store_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/tally/internal/apperr"
	"github.com/MrJamesThe3rd/tally/internal/matching"
	"github.com/MrJamesThe3rd/tally/internal/matching/store"
)

var ruleColumns = []string{"id", "raw_pattern", "preferred_description", "category_id", "created_at"}

func newStore(t *testing.T) (*store.Store, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return store.New(db), mock
}

func TestStore_FindMatch(t *testing.T) {
	s, mock := newStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY LENGTH(raw_pattern) DESC")).
		WithArgs("COMPRA CONTINENTE").
		WillReturnRows(sqlmock.NewRows(ruleColumns).AddRow(int64(1), "CONTINENTE", "Groceries", int64(5), time.Now()))

	got, err := s.FindMatch(context.Background(), "COMPRA CONTINENTE")
	require.NoError(t, err)
	assert.Equal(t, "Groceries", got.PreferredDescription)
	assert.Equal(t, snowflake.ID(5), *got.CategoryID)
}

func TestStore_FindMatch_None(t *testing.T) {
	s, mock := newStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM description_rules")).
		WillReturnRows(sqlmock.NewRows(ruleColumns))

	got, err := s.FindMatch(context.Background(), "X")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_SaveRule_UnknownCategory(t *testing.T) {
	s, mock := newStore(t)
	cat := snowflake.ID(77)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO description_rules")).
		WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: "description_rules_category_id_fkey"})

	err := s.SaveRule(context.Background(), &matching.Rule{ID: 1, RawPattern: "A", PreferredDescription: "B", CategoryID: &cat})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestStore_DeleteRule_Missing(t *testing.T) {
	s, mock := newStore(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM description_rules")).
		WithArgs(snowflake.ID(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, s.DeleteRule(context.Background(), 3), apperr.ErrNotFound)
}
