package store_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/tally/internal/apperr"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
	"github.com/MrJamesThe3rd/tally/internal/transaction/store"
)

var transactionColumns = []string{
	"id", "type", "amount", "description", "raw_description", "date", "month", "year",
	"category_id", "category_name", "invoice_id", "created_by",
	"created_at", "updated_at", "deleted_at",
}

func newStore(t *testing.T) (*store.Store, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return store.New(db), mock
}

func TestStore_CreateTransaction(t *testing.T) {
	s, mock := newStore(t)
	now := time.Now()

	tx := &transaction.Transaction{
		ID:          11,
		Type:        transaction.TypeIncome,
		Amount:      decimal.RequireFromString("99.90"),
		Description: "Consulting",
		CategoryID:  new(snowflake.ID(3)),
	}
	tx.SetDate(time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC))

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO transactions")).
		WithArgs(snowflake.ID(11), transaction.TypeIncome, sqlmock.AnyArg(), "Consulting", nil,
			tx.Date, 5, 2024, sqlmock.AnyArg(), nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))

	require.NoError(t, s.CreateTransaction(context.Background(), tx))
	assert.Equal(t, now, tx.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetTransaction(t *testing.T) {
	s, mock := newStore(t)
	date := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE t.id = $1 AND t.deleted_at IS NULL")).
		WithArgs(snowflake.ID(11)).
		WillReturnRows(sqlmock.NewRows(transactionColumns).AddRow(
			int64(11), "INCOME", "99.90", "Consulting", nil, date, int64(5), int64(2024),
			int64(3), "Sales", int64(7), nil, now, nil, nil,
		))

	got, err := s.GetTransaction(context.Background(), 11)
	require.NoError(t, err)
	assert.Equal(t, snowflake.ID(11), got.ID)
	assert.Equal(t, transaction.TypeIncome, got.Type)
	assert.Equal(t, "99.9", got.Amount.String())
	assert.Equal(t, snowflake.ID(3), *got.CategoryID)
	assert.Equal(t, "Sales", got.CategoryName)
	assert.Equal(t, snowflake.ID(7), *got.InvoiceID)
	assert.Nil(t, got.CreatedBy)
	assert.Nil(t, got.UpdatedAt)
}

func TestStore_GetTransaction_NotFound(t *testing.T) {
	s, mock := newStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE t.id = $1")).
		WillReturnRows(sqlmock.NewRows(transactionColumns))

	_, err := s.GetTransaction(context.Background(), 11)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestStore_ListTransactions_Filters(t *testing.T) {
	s, mock := newStore(t)
	typ := transaction.TypeExpense
	invoiceID := snowflake.ID(8)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("AND t.type = $1 AND t.invoice_id = $2 AND t.date >= $3 ORDER BY t.date ASC")).
		WithArgs(typ, invoiceID, start).
		WillReturnRows(sqlmock.NewRows(transactionColumns))

	got, err := s.ListTransactions(context.Background(), transaction.ListFilter{
		Type:      &typ,
		InvoiceID: &invoiceID,
		StartDate: &start,
	})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_DeleteTransaction_Missing(t *testing.T) {
	s, mock := newStore(t)

	mock.ExpectExec(regexp.QuoteMeta("SET deleted_at = NOW()")).
		WithArgs(snowflake.ID(4)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, s.DeleteTransaction(context.Background(), 4), apperr.ErrNotFound)
}

func TestStore_MonthlyTotals(t *testing.T) {
	s, mock := newStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY month")).
		WithArgs(2024).
		WillReturnRows(sqlmock.NewRows([]string{"month", "income", "expense"}).
			AddRow(int64(1), "1000.00", "250.50").
			AddRow(int64(2), "0", "12.00"))

	got, err := s.MonthlyTotals(context.Background(), 2024)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Month)
	assert.Equal(t, "250.5", got[0].Expense.String())
}

func TestStore_BeginImport(t *testing.T) {
	s, mock := newStore(t)
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock($1)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("t.date >= $1 AND t.date <= $2")).
		WithArgs(date, date).
		WillReturnRows(sqlmock.NewRows(transactionColumns).
			AddRow(int64(1), "EXPENSE", "10.00", "Coffee", "COFFEE SHOP", date, int64(1), int64(2024),
				nil, nil, nil, nil, date, nil, nil).
			AddRow(int64(2), "EXPENSE", "4.00", "Bus", "BUS", date, int64(1), int64(2024),
				nil, nil, nil, nil, date, nil, nil))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO transactions")).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(date))
	mock.ExpectCommit()

	itx, err := s.BeginImport(context.Background(), date, date)
	require.NoError(t, err)

	dups, err := itx.FindDuplicates(context.Background(), []transaction.CreateParams{
		{Type: transaction.TypeExpense, Amount: decimal.NewFromInt(10), RawDescription: "COFFEE SHOP", Date: date},
	})
	require.NoError(t, err)
	require.Len(t, dups, 1)
	assert.Equal(t, snowflake.ID(1), dups[0].ID)

	tx := &transaction.Transaction{ID: 3, Type: transaction.TypeExpense, Amount: decimal.NewFromInt(7), Description: "Tea"}
	tx.SetDate(date)
	require.NoError(t, itx.CreateTransactions(context.Background(), []*transaction.Transaction{tx}))
	require.NoError(t, itx.Commit())
	require.NoError(t, itx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}
