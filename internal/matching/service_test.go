package matching_test

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/tally/internal/apperr"
	"github.com/MrJamesThe3rd/tally/internal/matching"
)

type fixedIDs snowflake.ID

func (f fixedIDs) Generate() snowflake.ID { return snowflake.ID(f) }

func TestService_Suggest(t *testing.T) {
	type testCase struct {
		name      string
		raw       string
		setupMock func(m *matching.MockRepository)
		want      *matching.Suggestion
	}

	cat := snowflake.ID(9)

	tests := []testCase{
		{
			name: "Match",
			raw:  "COMPRA CONTINENTE LISBOA",
			setupMock: func(m *matching.MockRepository) {
				m.EXPECT().FindMatch(gomock.Any(), "COMPRA CONTINENTE LISBOA").
					Return(&matching.Rule{PreferredDescription: "Groceries", CategoryID: &cat}, nil)
			},
			want: &matching.Suggestion{Description: "Groceries", CategoryID: &cat},
		},
		{
			name: "NoMatch",
			raw:  "UNKNOWN",
			setupMock: func(m *matching.MockRepository) {
				m.EXPECT().FindMatch(gomock.Any(), "UNKNOWN").Return(nil, nil)
			},
		},
		{
			name:      "Blank",
			raw:       "   ",
			setupMock: func(*matching.MockRepository) {},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			repo := matching.NewMockRepository(ctrl)
			tt.setupMock(repo)

			got, err := matching.NewService(repo, fixedIDs(1)).Suggest(context.Background(), tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestService_Learn(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := matching.NewMockRepository(ctrl)
	svc := matching.NewService(repo, fixedIDs(42))

	repo.EXPECT().SaveRule(gomock.Any(), &matching.Rule{
		ID: 42, RawPattern: "CONTINENTE", PreferredDescription: "Groceries",
	}).Return(nil)

	rule, err := svc.Learn(context.Background(), " CONTINENTE ", "Groceries", nil)
	require.NoError(t, err)
	assert.Equal(t, snowflake.ID(42), rule.ID)

	_, err = svc.Learn(context.Background(), "", "Groceries", nil)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}
