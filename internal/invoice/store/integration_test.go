package store_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/tally/internal/apperr"
	"github.com/MrJamesThe3rd/tally/internal/category"
	categorystore "github.com/MrJamesThe3rd/tally/internal/category/store"
	"github.com/MrJamesThe3rd/tally/internal/database"
	"github.com/MrJamesThe3rd/tally/internal/ids"
	"github.com/MrJamesThe3rd/tally/internal/invoice"
	"github.com/MrJamesThe3rd/tally/internal/invoice/store"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
	transactionstore "github.com/MrJamesThe3rd/tally/internal/transaction/store"
)

func TestPostgres_ConcurrentPayments(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}

	require.NoError(t, database.Migrate(dsn, database.Up))

	db, err := database.New(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	node, err := ids.NewNode(7)
	require.NoError(t, err)

	ctx := context.Background()
	svc := invoice.NewService(store.New(db), node)

	categories := category.NewService(categorystore.New(db), node)
	sales, err := categories.Create(ctx, category.Params{Name: "Sales " + node.Generate().String(), Type: category.TypeIncome})
	require.NoError(t, err)

	inv, err := svc.Create(ctx, invoice.CreateParams{
		Number: "IT-" + node.Generate().String(),
		Items: []invoice.ItemParams{
			{Description: "Work", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(1000)},
		},
	})
	require.NoError(t, err)

	_, err = svc.RecordPayment(ctx, inv.ID, invoice.PaymentParams{Amount: decimal.NewFromInt(1)})
	require.ErrorIs(t, err, apperr.ErrInvalidState)

	inv, err = svc.Issue(ctx, inv.ID, invoice.IssueParams{})
	require.NoError(t, err)

	_, err = svc.Issue(ctx, inv.ID, invoice.IssueParams{})
	require.ErrorIs(t, err, apperr.ErrInvalidState)

	var wg sync.WaitGroup

	errs := make([]error, 2)
	start := make(chan struct{})

	for i := range errs {
		wg.Add(1)

		go func() {
			defer wg.Done()
			<-start

			_, errs[i] = svc.RecordPayment(ctx, inv.ID, invoice.PaymentParams{
				Amount:            decimal.NewFromInt(600),
				CreateTransaction: true,
				CategoryID:        &sales.ID,
			})
		}()
	}

	close(start)
	wg.Wait()

	var ok, rejected int

	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, apperr.ErrInvalidInput):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, rejected)

	payments, err := svc.ListPayments(ctx, inv.ID)
	require.NoError(t, err)
	require.Len(t, payments, 1)

	got, err := svc.Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, invoice.StatusPartial, got.Status)

	linked, err := transactionstore.New(db).ListTransactions(ctx, transaction.ListFilter{InvoiceID: &inv.ID})
	require.NoError(t, err)
	require.Len(t, linked, 1)
	assert.Equal(t, transaction.TypeIncome, linked[0].Type)
	assert.Equal(t, time.Now().Year(), linked[0].Year)
}
