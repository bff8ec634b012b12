package matching_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/tally/internal/category"
	"github.com/MrJamesThe3rd/tally/internal/matching"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

type categoryMap map[snowflake.ID]*category.Category

func (c categoryMap) Get(_ context.Context, id snowflake.ID) (*category.Category, error) {
	if cat, ok := c[id]; ok {
		return cat, nil
	}

	return nil, errors.New("missing")
}

func TestService_Apply(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := matching.NewMockRepository(ctrl)

	fuel := snowflake.ID(1)
	salary := snowflake.ID(2)
	gone := snowflake.ID(3)

	categories := categoryMap{
		fuel:   {ID: fuel, Name: "Fuel", Type: category.TypeExpense},
		salary: {ID: salary, Name: "Salary", Type: category.TypeIncome},
	}

	repo.EXPECT().FindMatch(gomock.Any(), "GALP 123").
		Return(&matching.Rule{PreferredDescription: "Fuel", CategoryID: &fuel}, nil)
	repo.EXPECT().FindMatch(gomock.Any(), "GALP REFUND").
		Return(&matching.Rule{PreferredDescription: "Fuel refund", CategoryID: &fuel}, nil)
	repo.EXPECT().FindMatch(gomock.Any(), "OLD RULE").
		Return(&matching.Rule{PreferredDescription: "Old", CategoryID: &gone}, nil)
	repo.EXPECT().FindMatch(gomock.Any(), "UNKNOWN").Return(nil, nil)
	repo.EXPECT().FindMatch(gomock.Any(), "BROKEN").Return(nil, errors.New("db down"))

	row := func(typ transaction.Type, raw string) transaction.CreateParams {
		return transaction.CreateParams{
			Type:           typ,
			Amount:         decimal.NewFromInt(10),
			Description:    raw,
			RawDescription: raw,
			Date:           time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
		}
	}

	params := []transaction.CreateParams{
		row(transaction.TypeExpense, "GALP 123"),
		row(transaction.TypeIncome, "GALP REFUND"),
		row(transaction.TypeExpense, "OLD RULE"),
		row(transaction.TypeExpense, "UNKNOWN"),
		row(transaction.TypeExpense, "BROKEN"),
	}

	matching.NewService(repo, nil).Apply(context.Background(), params, categories)

	assert.Equal(t, "Fuel", params[0].Description)
	assert.Equal(t, &fuel, params[0].CategoryID)

	assert.Equal(t, "Fuel refund", params[1].Description)
	assert.Nil(t, params[1].CategoryID)

	assert.Equal(t, "Old", params[2].Description)
	assert.Nil(t, params[2].CategoryID)

	assert.Equal(t, "UNKNOWN", params[3].Description)
	assert.Equal(t, "BROKEN", params[4].Description)
}
