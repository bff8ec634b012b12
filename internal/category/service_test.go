package category_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/tally/internal/apperr"
	"github.com/MrJamesThe3rd/tally/internal/category"
)

type seqIDs struct{ next snowflake.ID }

func (g *seqIDs) Generate() snowflake.ID {
	g.next++
	return g.next
}

func TestService_Create(t *testing.T) {
	type args struct {
		params category.Params
	}

	type testCase struct {
		name      string
		args      args
		setupMock func(m *category.MockRepository)
		wantErr   error
	}

	tests := []testCase{
		{
			name: "Success",
			args: args{params: category.Params{Name: "  Consulting ", Type: category.TypeIncome}},
			setupMock: func(m *category.MockRepository) {
				m.EXPECT().
					CreateCategory(gomock.Any(), &category.Category{ID: 1, Name: "Consulting", Type: category.TypeIncome}).
					Return(nil)
			},
		},
		{
			name:    "MissingName",
			args:    args{params: category.Params{Type: category.TypeIncome}},
			wantErr: apperr.ErrInvalidInput,
		},
		{
			name:    "BadType",
			args:    args{params: category.Params{Name: "Rent", Type: "income"}},
			wantErr: apperr.ErrInvalidInput,
		},
		{
			name: "Duplicate",
			args: args{params: category.Params{Name: "Rent", Type: category.TypeExpense}},
			setupMock: func(m *category.MockRepository) {
				m.EXPECT().CreateCategory(gomock.Any(), gomock.Any()).Return(apperr.ErrConflict)
			},
			wantErr: apperr.ErrConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)

			repo := category.NewMockRepository(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			svc := category.NewService(repo, &seqIDs{})
			got, err := svc.Create(context.Background(), tt.args.params)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, snowflake.ID(1), got.ID)
		})
	}
}

func TestService_Update(t *testing.T) {
	type testCase struct {
		name      string
		params    category.Params
		setupMock func(repo *category.MockRepository)
		wantName  string
		wantErr   error
	}

	tests := []testCase{
		{
			name:   "Rename",
			params: category.Params{Name: " Office ", Type: category.TypeExpense},
			setupMock: func(repo *category.MockRepository) {
				repo.EXPECT().GetCategory(gomock.Any(), snowflake.ID(5)).
					Return(&category.Category{ID: 5, Name: "Old", Type: category.TypeExpense}, nil)
				repo.EXPECT().UpdateCategory(gomock.Any(), gomock.Any()).Return(nil)
			},
			wantName: "Office",
		},
		{
			name:   "TypeChangeOnUsedCategory",
			params: category.Params{Name: "Sales", Type: category.TypeExpense},
			setupMock: func(repo *category.MockRepository) {
				repo.EXPECT().GetCategory(gomock.Any(), snowflake.ID(5)).
					Return(&category.Category{ID: 5, Name: "Sales", Type: category.TypeIncome}, nil)
				repo.EXPECT().UpdateCategory(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, c *category.Category) error {
						assert.Equal(t, category.TypeExpense, c.Type)
						return fmt.Errorf("%w: category 5 is used by transactions", apperr.ErrConflict)
					})
			},
			wantErr: apperr.ErrConflict,
		},
		{
			name:    "InvalidType",
			params:  category.Params{Name: "Sales", Type: "OTHER"},
			wantErr: apperr.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			repo := category.NewMockRepository(ctrl)
			svc := category.NewService(repo, &seqIDs{})

			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			got, err := svc.Update(context.Background(), 5, tt.params)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantName, got.Name)
		})
	}
}

func TestService_Update_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := category.NewMockRepository(ctrl)
	svc := category.NewService(repo, &seqIDs{})

	repo.EXPECT().GetCategory(gomock.Any(), snowflake.ID(5)).Return(nil, apperr.ErrNotFound)

	_, err := svc.Update(context.Background(), 5, category.Params{Name: "Office", Type: category.TypeExpense})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestService_List(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := category.NewMockRepository(ctrl)
	svc := category.NewService(repo, &seqIDs{})

	typ := category.TypeIncome
	repo.EXPECT().ListCategories(gomock.Any(), &typ).Return([]*category.Category{{ID: 1}}, nil)

	got, err := svc.List(context.Background(), &typ)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	bad := category.Type("other")
	_, err = svc.List(context.Background(), &bad)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestService_Delete(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := category.NewMockRepository(ctrl)
	svc := category.NewService(repo, &seqIDs{})

	repo.EXPECT().DeleteCategory(gomock.Any(), snowflake.ID(9)).Return(errors.New("db down"))

	assert.Error(t, svc.Delete(context.Background(), 9))
}
