package settings_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/tally/internal/apperr"
	"github.com/MrJamesThe3rd/tally/internal/settings"
)

func TestService_Get(t *testing.T) {
	type testCase struct {
		name      string
		setupMock func(m *settings.MockRepository)
		want      *settings.Settings
		wantErr   error
	}

	stored := &settings.Settings{CompanyName: "Acme", Currency: "USD"}

	tests := []testCase{
		{
			name: "Stored",
			setupMock: func(m *settings.MockRepository) {
				m.EXPECT().GetSettings(gomock.Any()).Return(stored, nil)
			},
			want: stored,
		},
		{
			name: "DefaultsWhenMissing",
			setupMock: func(m *settings.MockRepository) {
				m.EXPECT().GetSettings(gomock.Any()).Return(nil, fmt.Errorf("%w: settings", apperr.ErrNotFound))
			},
			want: &settings.Settings{Currency: "EUR"},
		},
		{
			name: "RepoError",
			setupMock: func(m *settings.MockRepository) {
				m.EXPECT().GetSettings(gomock.Any()).Return(nil, assert.AnError)
			},
			wantErr: assert.AnError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			repo := settings.NewMockRepository(ctrl)
			tt.setupMock(repo)

			got, err := settings.NewService(repo).Get(context.Background())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestService_Update(t *testing.T) {
	type args struct {
		input settings.Settings
	}

	type testCase struct {
		name      string
		args      args
		setupMock func(m *settings.MockRepository)
		want      *settings.Settings
		wantErr   error
	}

	tests := []testCase{
		{
			name: "NormalizesAndSaves",
			args: args{input: settings.Settings{CompanyName: "  Acme  ", Currency: "usd", Email: "billing@acme.test"}},
			setupMock: func(m *settings.MockRepository) {
				m.EXPECT().SaveSettings(gomock.Any(), gomock.Any()).Return(nil)
			},
			want: &settings.Settings{CompanyName: "Acme", Currency: "USD", Email: "billing@acme.test"},
		},
		{
			name: "DefaultCurrency",
			args: args{input: settings.Settings{CompanyName: "Acme"}},
			setupMock: func(m *settings.MockRepository) {
				m.EXPECT().SaveSettings(gomock.Any(), gomock.Any()).Return(nil)
			},
			want: &settings.Settings{CompanyName: "Acme", Currency: "EUR"},
		},
		{
			name:      "UnknownCurrency",
			args:      args{input: settings.Settings{Currency: "XYZ"}},
			setupMock: func(*settings.MockRepository) {},
			wantErr:   apperr.ErrInvalidInput,
		},
		{
			name:      "BadEmail",
			args:      args{input: settings.Settings{Email: "not-an-email"}},
			setupMock: func(*settings.MockRepository) {},
			wantErr:   apperr.ErrInvalidInput,
		},
		{
			name:      "BadLogoURL",
			args:      args{input: settings.Settings{LogoURL: "::nope"}},
			setupMock: func(*settings.MockRepository) {},
			wantErr:   apperr.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			repo := settings.NewMockRepository(ctrl)
			tt.setupMock(repo)

			got, err := settings.NewService(repo).Update(context.Background(), tt.args.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
