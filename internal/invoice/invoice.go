package invoice

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of an invoice.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusIssued    Status = "ISSUED"
	StatusPartial   Status = "PARTIAL"
	StatusPaid      Status = "PAID"
	StatusCancelled Status = "CANCELLED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusIssued, StatusPartial, StatusPaid, StatusCancelled:
		return true
	}

	return false
}

// Method is how a payment was made.
type Method string

const (
	MethodCash     Method = "CASH"
	MethodTransfer Method = "TRANSFER"
	MethodCard     Method = "CARD"
	MethodCheque   Method = "CHEQUE"
	MethodOther    Method = "OTHER"
)

func (m Method) Valid() bool {
	switch m {
	case MethodCash, MethodTransfer, MethodCard, MethodCheque, MethodOther:
		return true
	}

	return false
}

// Item is one invoice line. Net, Tax and Gross are derived and rounded to cents.
type Item struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	TaxRate     decimal.Decimal
	Net         decimal.Decimal
	Tax         decimal.Decimal
	Gross       decimal.Decimal
}

type Invoice struct {
	ID           snowflake.ID
	Number       string
	CustomerID   *snowflake.ID
	CustomerName string // Loaded via JOIN
	Items        []Item
	Subtotal     decimal.Decimal
	TaxTotal     decimal.Decimal
	Total        decimal.Decimal
	Status       Status
	IssueDate    *time.Time
	DueDate      *time.Time
	Notes        string
	CreatedBy    *uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Payment is an immutable record of money received against an invoice.
type Payment struct {
	ID          snowflake.ID
	InvoiceID   snowflake.ID
	Amount      decimal.Decimal
	Method      Method
	ReferenceNo string
	PaidAt      time.Time
	CreatedBy   *uuid.UUID
	CreatedAt   time.Time
}
