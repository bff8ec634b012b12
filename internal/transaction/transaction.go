package transaction

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/category"
)

// Type is shared with categories: a category only classifies entries of its own type.
type Type = category.Type

const (
	TypeIncome  = category.TypeIncome
	TypeExpense = category.TypeExpense
)

// Transaction is a single ledger entry.
type Transaction struct {
	ID             snowflake.ID
	Type           Type
	Amount         decimal.Decimal
	Description    string
	RawDescription string
	Date           time.Time
	Month          int
	Year           int
	CategoryID     *snowflake.ID
	CategoryName   string // Loaded via JOIN
	InvoiceID      *snowflake.ID
	CreatedBy      *uuid.UUID
	CreatedAt      time.Time
	UpdatedAt      *time.Time
	DeletedAt      *time.Time
}

// SetDate stores the calendar day of d and keeps Month and Year in step with it.
func (t *Transaction) SetDate(d time.Time) {
	t.Date = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	t.Month = int(t.Date.Month())
	t.Year = t.Date.Year()
}

// MonthTotal is the income and expense sum of one calendar month.
type MonthTotal struct {
	Month   int
	Income  decimal.Decimal
	Expense decimal.Decimal
}

type MonthSummary struct {
	Month   int
	Income  decimal.Decimal
	Expense decimal.Decimal
	Net     decimal.Decimal
}

type Summary struct {
	Year    int
	Months  []MonthSummary
	Income  decimal.Decimal
	Expense decimal.Decimal
	Net     decimal.Decimal
}
