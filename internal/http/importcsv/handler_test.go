package importcsv_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/tally/internal/category"
	"github.com/MrJamesThe3rd/tally/internal/http/importcsv"
	"github.com/MrJamesThe3rd/tally/internal/importer"
	"github.com/MrJamesThe3rd/tally/internal/matching"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

const statement = "Data mov.;Descrição;Montante\n30-01-2026;COMPRA CONTINENTE PORTO;-42,10\n"

type fixedIDs snowflake.ID

func (f fixedIDs) Generate() snowflake.ID { return snowflake.ID(f) }

type mocks struct {
	txRepo    *transaction.MockRepository
	itx       *transaction.MockImportTx
	matchRepo *matching.MockRepository
	catRepo   *category.MockRepository
}

func newRouter(t *testing.T) (chi.Router, mocks) {
	t.Helper()

	ctrl := gomock.NewController(t)
	m := mocks{
		txRepo:    transaction.NewMockRepository(ctrl),
		itx:       transaction.NewMockImportTx(ctrl),
		matchRepo: matching.NewMockRepository(ctrl),
		catRepo:   category.NewMockRepository(ctrl),
	}

	categories := category.NewService(m.catRepo, fixedIDs(1))
	h := importcsv.NewHandler(
		importer.NewService(),
		transaction.NewService(m.txRepo, categories, fixedIDs(77)),
		matching.NewService(m.matchRepo, fixedIDs(2)),
		categories,
	)

	r := chi.NewRouter()
	r.Route("/import", h.Routes)

	return r, m
}

func upload(t *testing.T, bank, content string) *http.Request {
	t.Helper()

	var body bytes.Buffer

	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("bank", bank))

	fw, err := mw.CreateFormFile("file", "statement.csv")
	require.NoError(t, err)

	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return req
}

func TestHandler_Import(t *testing.T) {
	groceries := snowflake.ID(3)
	salary := snowflake.ID(4)

	type testCase struct {
		name       string
		bank       string
		setupMock  func(m mocks)
		wantStatus int
		wantBody   []string
	}

	tests := []testCase{
		{
			name: "AppliesMatchingRule",
			bank: "cgd",
			setupMock: func(m mocks) {
				m.matchRepo.EXPECT().FindMatch(gomock.Any(), "COMPRA CONTINENTE PORTO").
					Return(&matching.Rule{PreferredDescription: "Groceries", CategoryID: &groceries}, nil)
				m.catRepo.EXPECT().GetCategory(gomock.Any(), groceries).
					Return(&category.Category{ID: groceries, Name: "Groceries", Type: category.TypeExpense}, nil).Times(2)
				m.txRepo.EXPECT().BeginImport(gomock.Any(), gomock.Any(), gomock.Any()).Return(m.itx, nil)
				m.itx.EXPECT().FindDuplicates(gomock.Any(), gomock.Any()).Return(nil, nil)
				m.itx.EXPECT().CreateTransactions(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ any, txs []*transaction.Transaction) error {
						require.Len(t, txs, 1)
						assert.Equal(t, "Groceries", txs[0].Description)
						assert.Equal(t, "COMPRA CONTINENTE PORTO", txs[0].RawDescription)
						assert.Equal(t, &groceries, txs[0].CategoryID)
						assert.Equal(t, "42.10", txs[0].Amount.StringFixed(2))

						return nil
					})
				m.itx.EXPECT().Commit().Return(nil)
				m.itx.EXPECT().Rollback().Return(nil)
			},
			wantStatus: http.StatusCreated,
			wantBody:   []string{`"imported":1`, `"description":"Groceries"`, `"categoryId":"3"`, `"date":"2026-01-30"`},
		},
		{
			name: "DropsCategoryOfOtherType",
			bank: "cgd",
			setupMock: func(m mocks) {
				m.matchRepo.EXPECT().FindMatch(gomock.Any(), gomock.Any()).
					Return(&matching.Rule{PreferredDescription: "Shop", CategoryID: &salary}, nil)
				m.catRepo.EXPECT().GetCategory(gomock.Any(), salary).
					Return(&category.Category{ID: salary, Type: category.TypeIncome}, nil)
				m.txRepo.EXPECT().BeginImport(gomock.Any(), gomock.Any(), gomock.Any()).Return(m.itx, nil)
				m.itx.EXPECT().FindDuplicates(gomock.Any(), gomock.Any()).Return(nil, nil)
				m.itx.EXPECT().CreateTransactions(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ any, txs []*transaction.Transaction) error {
						assert.Nil(t, txs[0].CategoryID)
						return nil
					})
				m.itx.EXPECT().Commit().Return(nil)
				m.itx.EXPECT().Rollback().Return(nil)
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "ReportsConflicts",
			bank: "cgd",
			setupMock: func(m mocks) {
				m.matchRepo.EXPECT().FindMatch(gomock.Any(), gomock.Any()).Return(nil, nil)
				m.txRepo.EXPECT().BeginImport(gomock.Any(), gomock.Any(), gomock.Any()).Return(m.itx, nil)
				m.itx.EXPECT().FindDuplicates(gomock.Any(), gomock.Any()).Return([]*transaction.Transaction{{
					ID:             9,
					Type:           transaction.TypeExpense,
					Amount:         decimal.RequireFromString("42.10"),
					Description:    "Continente",
					RawDescription: "COMPRA CONTINENTE PORTO",
					Date:           time.Date(2026, 1, 30, 0, 0, 0, 0, time.UTC),
				}}, nil)
				m.itx.EXPECT().Rollback().Return(nil)
			},
			wantStatus: http.StatusConflict,
			wantBody:   []string{`"conflicts":[{`, `"existing":{"id":"9"`, `"new":[]`},
		},
		{
			name:       "UnknownBank",
			bank:       "bpi",
			setupMock:  func(m mocks) {},
			wantStatus: http.StatusBadRequest,
			wantBody:   []string{"unknown bank"},
		},
		{
			name:       "MissingBank",
			bank:       "",
			setupMock:  func(m mocks) {},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, m := newRouter(t)
			tt.setupMock(m)

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, upload(t, tt.bank, statement))

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())

			for _, want := range tt.wantBody {
				assert.Contains(t, rec.Body.String(), want)
			}
		})
	}
}

func TestHandler_Confirm(t *testing.T) {
	r, m := newRouter(t)

	m.txRepo.EXPECT().BeginImport(gomock.Any(), gomock.Any(), gomock.Any()).Return(m.itx, nil)
	m.itx.EXPECT().CreateTransactions(gomock.Any(), gomock.Len(1)).Return(nil)
	m.itx.EXPECT().Commit().Return(nil)
	m.itx.EXPECT().Rollback().Return(nil)

	body := `{"params":[{"type":"EXPENSE","amount":"42.10","description":"Groceries","rawDescription":"COMPRA","date":"2026-01-30"}]}`

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/import/confirm", strings.NewReader(body)))

	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"imported":1`)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/import/confirm", strings.NewReader(`{"params":[]}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
