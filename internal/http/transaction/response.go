package transaction

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/http/render"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

type transactionResponse struct {
	ID             snowflake.ID     `json:"id"`
	Type           transaction.Type `json:"type"`
	Amount         decimal.Decimal  `json:"amount"`
	Description    string           `json:"description"`
	RawDescription string           `json:"rawDescription,omitempty"`
	Date           render.Date      `json:"date"`
	Month          int              `json:"month"`
	Year           int              `json:"year"`
	CategoryID     *snowflake.ID    `json:"categoryId,omitempty"`
	CategoryName   string           `json:"categoryName,omitempty"`
	InvoiceID      *snowflake.ID    `json:"invoiceId,omitempty"`
	CreatedBy      *uuid.UUID       `json:"createdBy,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      *time.Time       `json:"updatedAt,omitempty"`
}

type monthResponse struct {
	Month   int             `json:"month"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Net     decimal.Decimal `json:"net"`
}

type summaryResponse struct {
	Year    int             `json:"year"`
	Months  []monthResponse `json:"months"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Net     decimal.Decimal `json:"net"`
}

func toResponse(tx *transaction.Transaction) transactionResponse {
	return transactionResponse{
		ID:             tx.ID,
		Type:           tx.Type,
		Amount:         tx.Amount,
		Description:    tx.Description,
		RawDescription: tx.RawDescription,
		Date:           render.Date{Time: tx.Date},
		Month:          tx.Month,
		Year:           tx.Year,
		CategoryID:     tx.CategoryID,
		CategoryName:   tx.CategoryName,
		InvoiceID:      tx.InvoiceID,
		CreatedBy:      tx.CreatedBy,
		CreatedAt:      tx.CreatedAt,
		UpdatedAt:      tx.UpdatedAt,
	}
}

func toResponseList(txs []*transaction.Transaction) []transactionResponse {
	resp := make([]transactionResponse, len(txs))
	for i, tx := range txs {
		resp[i] = toResponse(tx)
	}

	return resp
}

func toSummaryResponse(s *transaction.Summary) summaryResponse {
	months := make([]monthResponse, len(s.Months))
	for i, m := range s.Months {
		months[i] = monthResponse{Month: m.Month, Income: m.Income, Expense: m.Expense, Net: m.Net}
	}

	return summaryResponse{Year: s.Year, Months: months, Income: s.Income, Expense: s.Expense, Net: s.Net}
}
