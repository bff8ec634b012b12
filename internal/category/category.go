package category

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Type is the ledger side a category belongs to. Transactions reuse it.
type Type string

const (
	TypeIncome  Type = "INCOME"
	TypeExpense Type = "EXPENSE"
)

func (t Type) Valid() bool {
	return t == TypeIncome || t == TypeExpense
}

type Category struct {
	ID        snowflake.ID
	Name      string
	Type      Type
	CreatedAt time.Time
}
