package customer_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/tally/internal/apperr"
	"github.com/MrJamesThe3rd/tally/internal/customer"
	customerhttp "github.com/MrJamesThe3rd/tally/internal/http/customer"
)

type fixedIDs snowflake.ID

func (f fixedIDs) Generate() snowflake.ID { return snowflake.ID(f) }

func newRouter(t *testing.T) (*chi.Mux, *customer.MockRepository) {
	ctrl := gomock.NewController(t)
	repo := customer.NewMockRepository(ctrl)

	r := chi.NewRouter()
	r.Route("/customers", customerhttp.NewHandler(customer.NewService(repo, fixedIDs(1<<53+1))).Routes)

	return r, repo
}

func TestHandler_Create(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setup      func(repo *customer.MockRepository)
		wantStatus int
		wantBody   string
	}{
		{
			name: "Created",
			body: `{"name":"  Acme Lda ","email":"billing@acme.pt","taxId":"PT500"}`,
			setup: func(repo *customer.MockRepository) {
				repo.EXPECT().CreateCustomer(gomock.Any(), gomock.Any()).
					Do(func(_ any, c *customer.Customer) {
						assert.Equal(t, "Acme Lda", c.Name)
					}).
					Return(nil)
			},
			wantStatus: http.StatusCreated,
			wantBody:   `"id":"9007199254740993"`,
		},
		{
			name:       "MissingName",
			body:       `{"email":"billing@acme.pt"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "InvalidEmail",
			body:       `{"name":"Acme","email":"nope"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "MalformedJSON",
			body:       `{"name":`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, repo := newRouter(t)
			if tt.setup != nil {
				tt.setup(repo)
			}

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/customers", strings.NewReader(tt.body)))

			assert.Equal(t, tt.wantStatus, rec.Code)

			if tt.wantBody != "" {
				assert.Contains(t, rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestHandler_ListGetDelete(t *testing.T) {
	r, repo := newRouter(t)

	repo.EXPECT().ListCustomers(gomock.Any(), "acme").
		Return([]*customer.Customer{{ID: 5, Name: "Acme"}}, nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/customers?search=+acme+", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"5"`)
	assert.NotContains(t, rec.Body.String(), "email")

	repo.EXPECT().GetCustomer(gomock.Any(), snowflake.ID(6)).Return(nil, apperr.ErrNotFound)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/customers/6", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/customers/abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	repo.EXPECT().DeleteCustomer(gomock.Any(), snowflake.ID(5)).Return(apperr.ErrConflict)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/customers/5", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)

	repo.EXPECT().DeleteCustomer(gomock.Any(), snowflake.ID(7)).Return(nil)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/customers/7", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestHandler_Update(t *testing.T) {
	r, repo := newRouter(t)

	repo.EXPECT().GetCustomer(gomock.Any(), snowflake.ID(5)).Return(&customer.Customer{ID: 5, Name: "Old"}, nil)
	repo.EXPECT().UpdateCustomer(gomock.Any(), gomock.Any()).Return(nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/customers/5", strings.NewReader(`{"name":"New"}`)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"New"`)
}
