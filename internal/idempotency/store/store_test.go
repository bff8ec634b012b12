package store_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/tally/internal/apperr"
	"github.com/MrJamesThe3rd/tally/internal/idempotency"
	"github.com/MrJamesThe3rd/tally/internal/idempotency/store"
)

func TestStore_Reserve_New(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (key) DO NOTHING")).
		WithArgs("k1", "h1", "POST", "/api/v1/invoices").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

	rec, created, err := store.New(db).Reserve(context.Background(), &idempotency.Record{
		Key: "k1", RequestHash: "h1", Method: "POST", Path: "/api/v1/invoices",
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "k1", rec.Key)
}

func TestStore_Reserve_Existing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	done := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO idempotency_keys")).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}))
	mock.ExpectQuery(regexp.QuoteMeta("FROM idempotency_keys")).
		WithArgs("k1").
		WillReturnRows(sqlmock.NewRows([]string{
			"key", "request_hash", "method", "path", "response_status", "response_content_type", "response_body", "created_at", "completed_at",
		}).AddRow("k1", "h1", "POST", "/p", 201, "application/zip", []byte(`{"ok":true}`), done, done))

	rec, created, err := store.New(db).Reserve(context.Background(), &idempotency.Record{Key: "k1", RequestHash: "h1"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 201, rec.Status)
	assert.Equal(t, "application/zip", rec.ContentType)
	assert.True(t, rec.Completed())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Reserve_KeyReleasedBeforeRead(t *testing.T) {
	recordColumns := []string{
		"key", "request_hash", "method", "path", "response_status", "response_content_type", "response_body", "created_at", "completed_at",
	}

	tests := []struct {
		name        string
		secondClaim bool
		wantCreated bool
		wantErr     error
	}{
		{name: "ClaimedOnRetry", secondClaim: true, wantCreated: true},
		{name: "LostTwice", wantErr: apperr.ErrConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO idempotency_keys")).
				WillReturnRows(sqlmock.NewRows([]string{"created_at"}))
			mock.ExpectQuery(regexp.QuoteMeta("FROM idempotency_keys")).
				WithArgs("k1").
				WillReturnRows(sqlmock.NewRows(recordColumns))

			if tt.secondClaim {
				mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO idempotency_keys")).
					WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
			} else {
				mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO idempotency_keys")).
					WillReturnRows(sqlmock.NewRows([]string{"created_at"}))
				mock.ExpectQuery(regexp.QuoteMeta("FROM idempotency_keys")).
					WillReturnRows(sqlmock.NewRows(recordColumns))
			}

			rec, created, err := store.New(db).Reserve(context.Background(), &idempotency.Record{Key: "k1", RequestHash: "h1"})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "k1", rec.Key)
			}

			assert.Equal(t, tt.wantCreated, created)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStore_Complete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("SET response_status = $1, response_content_type = $2")).
		WithArgs(201, "application/zip", []byte("PK"), "k1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = store.New(db).Complete(context.Background(), "k1", idempotency.Response{
		Status: 201, ContentType: "application/zip", Body: []byte("PK"),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
