package user_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"

	"github.com/MrJamesThe3rd/tally/internal/apperr"
	"github.com/MrJamesThe3rd/tally/internal/user"
)

func TestService_Register(t *testing.T) {
	type testCase struct {
		name      string
		params    user.RegisterParams
		setupMock func(m *user.MockRepository)
		wantErr   error
		wantRole  user.Role
	}

	tests := []testCase{
		{
			name:   "Success",
			params: user.RegisterParams{Email: " Ana@Example.COM ", Name: "Ana", Password: "correct horse"},
			setupMock: func(m *user.MockRepository) {
				m.EXPECT().CreateUser(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, u *user.User) error {
						assert.Equal(t, "ana@example.com", u.Email)
						assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("correct horse")))
						return nil
					})
			},
			wantRole: user.RoleMember,
		},
		{
			name:   "Admin",
			params: user.RegisterParams{Email: "root@example.com", Name: "Root", Password: "long enough", Role: user.RoleAdmin},
			setupMock: func(m *user.MockRepository) {
				m.EXPECT().CreateUser(gomock.Any(), gomock.Any()).Return(nil)
			},
			wantRole: user.RoleAdmin,
		},
		{
			name:    "BadEmail",
			params:  user.RegisterParams{Email: "ana", Name: "Ana", Password: "correct horse"},
			wantErr: apperr.ErrInvalidInput,
		},
		{
			name:    "ShortPassword",
			params:  user.RegisterParams{Email: "ana@example.com", Name: "Ana", Password: "short"},
			wantErr: apperr.ErrInvalidInput,
		},
		{
			name:    "TooLongPassword",
			params:  user.RegisterParams{Email: "ana@example.com", Name: "Ana", Password: strings.Repeat("x", 80)},
			wantErr: apperr.ErrInvalidInput,
		},
		{
			name:    "UnknownRole",
			params:  user.RegisterParams{Email: "ana@example.com", Name: "Ana", Password: "correct horse", Role: "owner"},
			wantErr: apperr.ErrInvalidInput,
		},
		{
			name:   "DuplicateEmail",
			params: user.RegisterParams{Email: "ana@example.com", Name: "Ana", Password: "correct horse"},
			setupMock: func(m *user.MockRepository) {
				m.EXPECT().CreateUser(gomock.Any(), gomock.Any()).Return(apperr.ErrConflict)
			},
			wantErr: apperr.ErrConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)

			repo := user.NewMockRepository(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			svc := user.NewService(repo, user.WithBcryptCost(bcrypt.MinCost))
			got, err := svc.Register(context.Background(), tt.params)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantRole, got.Role)
			assert.NotEmpty(t, got.ID)
		})
	}
}

func TestService_Authenticate(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)

	stored := &user.User{Email: "ana@example.com", PasswordHash: string(hash), Role: user.RoleMember}

	tests := []struct {
		name      string
		email     string
		password  string
		setupMock func(m *user.MockRepository)
		wantErr   error
	}{
		{
			name:     "Success",
			email:    "ANA@example.com",
			password: "correct horse",
			setupMock: func(m *user.MockRepository) {
				m.EXPECT().GetUserByEmail(gomock.Any(), "ana@example.com").Return(stored, nil)
			},
		},
		{
			name:     "WrongPassword",
			email:    "ana@example.com",
			password: "battery staple",
			setupMock: func(m *user.MockRepository) {
				m.EXPECT().GetUserByEmail(gomock.Any(), "ana@example.com").Return(stored, nil)
			},
			wantErr: apperr.ErrUnauthorized,
		},
		{
			name:     "UnknownEmail",
			email:    "bob@example.com",
			password: "correct horse",
			setupMock: func(m *user.MockRepository) {
				m.EXPECT().GetUserByEmail(gomock.Any(), "bob@example.com").Return(nil, apperr.ErrNotFound)
			},
			wantErr: apperr.ErrUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)

			repo := user.NewMockRepository(ctrl)
			tt.setupMock(repo)

			got, err := user.NewService(repo).Authenticate(context.Background(), tt.email, tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, stored, got)
		})
	}
}
