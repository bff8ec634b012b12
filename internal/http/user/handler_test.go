package user_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"

	"github.com/MrJamesThe3rd/tally/internal/apperr"
	"github.com/MrJamesThe3rd/tally/internal/auth"
	userhttp "github.com/MrJamesThe3rd/tally/internal/http/user"
	"github.com/MrJamesThe3rd/tally/internal/user"
)

func TestHandler_Login(t *testing.T) {
	issuer, err := auth.NewIssuer(strings.Repeat("x", 32), time.Hour)
	require.NoError(t, err)

	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)

	stored := &user.User{ID: uuid.New(), Email: "ana@example.com", Name: "Ana", PasswordHash: string(hash), Role: user.RoleAdmin}

	type testCase struct {
		name       string
		body       string
		setupMock  func(m *user.MockRepository)
		wantStatus int
	}

	tests := []testCase{
		{
			name: "Success",
			body: `{"email":"ANA@example.com","password":"correct horse"}`,
			setupMock: func(m *user.MockRepository) {
				m.EXPECT().GetUserByEmail(gomock.Any(), "ana@example.com").Return(stored, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "WrongPassword",
			body: `{"email":"ana@example.com","password":"nope"}`,
			setupMock: func(m *user.MockRepository) {
				m.EXPECT().GetUserByEmail(gomock.Any(), "ana@example.com").Return(stored, nil)
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "UnknownEmail",
			body: `{"email":"bob@example.com","password":"whatever"}`,
			setupMock: func(m *user.MockRepository) {
				m.EXPECT().GetUserByEmail(gomock.Any(), "bob@example.com").Return(nil, apperr.ErrNotFound)
			},
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			repo := user.NewMockRepository(ctrl)
			tt.setupMock(repo)

			r := chi.NewRouter()
			r.Route("/auth", userhttp.NewHandler(user.NewService(repo), issuer).AuthRoutes)

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(tt.body)))
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())

			if tt.wantStatus != http.StatusOK {
				return
			}

			var body struct {
				Token string `json:"token"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

			_, id, err := issuer.Parse(body.Token)
			require.NoError(t, err)
			assert.Equal(t, stored.ID, id)
		})
	}
}

func TestHandler_Me(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := user.NewMockRepository(ctrl)

	id := uuid.New()
	repo.EXPECT().GetUser(gomock.Any(), id).Return(&user.User{ID: id, Email: "a@example.com", Role: user.RoleMember}, nil)

	r := chi.NewRouter()
	r.Route("/users", userhttp.NewHandler(user.NewService(repo), nil).Routes)

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req = req.WithContext(auth.WithUserID(context.Background(), id))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), id.String())
	assert.NotContains(t, rec.Body.String(), "password")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
