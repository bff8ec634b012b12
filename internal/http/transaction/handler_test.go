package transaction_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/tally/internal/apperr"
	"github.com/MrJamesThe3rd/tally/internal/category"
	transactionhttp "github.com/MrJamesThe3rd/tally/internal/http/transaction"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

type seqIDs struct{ next snowflake.ID }

func (g *seqIDs) Generate() snowflake.ID {
	g.next++
	return g.next
}

type mocks struct {
	repo       *transaction.MockRepository
	categories *transaction.MockCategoryLookup
	itx        *transaction.MockImportTx
}

func setup(t *testing.T) (http.Handler, mocks) {
	t.Helper()

	ctrl := gomock.NewController(t)
	m := mocks{
		repo:       transaction.NewMockRepository(ctrl),
		categories: transaction.NewMockCategoryLookup(ctrl),
		itx:        transaction.NewMockImportTx(ctrl),
	}

	svc := transaction.NewService(m.repo, m.categories, &seqIDs{})

	r := chi.NewRouter()
	r.Route("/transactions", transactionhttp.NewHandler(svc).Routes)

	return r, m
}

func send(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func TestHandler_Create(t *testing.T) {
	type testCase struct {
		name       string
		body       string
		setupMock  func(m mocks)
		wantStatus int
	}

	tests := []testCase{
		{
			name: "Success",
			body: `{"type":"EXPENSE","amount":"12.50","description":"Paper","date":"2024-03-05","categoryId":"200"}`,
			setupMock: func(m mocks) {
				m.categories.EXPECT().Get(gomock.Any(), snowflake.ID(200)).
					Return(&category.Category{ID: 200, Name: "Office", Type: category.TypeExpense}, nil)
				m.repo.EXPECT().CreateTransaction(gomock.Any(), gomock.Any()).Return(nil)
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "CategoryTypeMismatch",
			body: `{"type":"EXPENSE","amount":"12.50","description":"Paper","date":"2024-03-05","categoryId":"100"}`,
			setupMock: func(m mocks) {
				m.categories.EXPECT().Get(gomock.Any(), snowflake.ID(100)).
					Return(&category.Category{ID: 100, Name: "Sales", Type: category.TypeIncome}, nil)
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "UnknownType",
			body:       `{"type":"TRANSFER","amount":"1","description":"x","date":"2024-03-05"}`,
			setupMock:  func(mocks) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "NumericID",
			body:       `{"type":"EXPENSE","amount":"1","description":"x","date":"2024-03-05","categoryId":200}`,
			setupMock:  func(mocks) {},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, m := setup(t)
			tt.setupMock(m)

			rec := send(h, http.MethodPost, "/transactions", tt.body)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())

			if tt.wantStatus == http.StatusCreated {
				var body map[string]any
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Equal(t, "2024-03-05", body["date"])
				assert.Equal(t, "12.5", body["amount"])
				assert.Equal(t, "200", body["categoryId"])
				assert.Equal(t, "Office", body["categoryName"])
				assert.EqualValues(t, 3, body["month"])
			}
		})
	}
}

func TestHandler_CreateBatch(t *testing.T) {
	h, m := setup(t)

	m.repo.EXPECT().BeginImport(gomock.Any(), gomock.Any(), gomock.Any()).Return(m.itx, nil)
	m.itx.EXPECT().CreateTransactions(gomock.Any(), gomock.Len(2)).Return(nil)
	m.itx.EXPECT().Commit().Return(nil)
	m.itx.EXPECT().Rollback().Return(nil)

	body := `{"transactions":[
		{"type":"INCOME","amount":"100","description":"A","date":"2024-01-02"},
		{"type":"EXPENSE","amount":"40","description":"B","date":"2024-01-03"}
	]}`

	rec := send(h, http.MethodPost, "/transactions/batch", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var got []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got, 2)
}

func TestHandler_Summary(t *testing.T) {
	h, m := setup(t)

	m.repo.EXPECT().MonthlyTotals(gomock.Any(), 2024).Return([]transaction.MonthTotal{
		{Month: 2, Income: decimal.RequireFromString("100"), Expense: decimal.RequireFromString("30")},
	}, nil)

	rec := send(h, http.MethodGet, "/transactions/summary?year=2024", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Year   int `json:"year"`
		Months []struct {
			Month int    `json:"month"`
			Net   string `json:"net"`
		} `json:"months"`
		Net string `json:"net"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2024, body.Year)
	assert.Len(t, body.Months, 12)
	assert.Equal(t, "70", body.Months[1].Net)
	assert.Equal(t, "70", body.Net)

	rec = send(h, http.MethodGet, "/transactions/summary?year=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_List_Filters(t *testing.T) {
	h, m := setup(t)

	m.repo.EXPECT().ListTransactions(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, f transaction.ListFilter) ([]*transaction.Transaction, error) {
			assert.Equal(t, transaction.TypeIncome, *f.Type)
			assert.Equal(t, "2024-01-01", f.StartDate.Format("2006-01-02"))
			assert.Equal(t, snowflake.ID(1<<60), *f.InvoiceID)
			return []*transaction.Transaction{}, nil
		})

	rec := send(h, http.MethodGet, fmt.Sprintf("/transactions?type=INCOME&startDate=2024-01-01&invoiceId=%d", snowflake.ID(1<<60)), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())

	rec = send(h, http.MethodGet, "/transactions?startDate=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_Delete(t *testing.T) {
	h, m := setup(t)

	m.repo.EXPECT().DeleteTransaction(gomock.Any(), snowflake.ID(5)).Return(nil)
	m.repo.EXPECT().DeleteTransaction(gomock.Any(), snowflake.ID(6)).Return(fmt.Errorf("%w: transaction 6", apperr.ErrNotFound))

	assert.Equal(t, http.StatusNoContent, send(h, http.MethodDelete, "/transactions/5", "").Code)
	assert.Equal(t, http.StatusNotFound, send(h, http.MethodDelete, "/transactions/6", "").Code)
}
