package invoice

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/http/render"
	"github.com/MrJamesThe3rd/tally/internal/invoice"
)

type itemResponse struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	TaxRate     decimal.Decimal `json:"taxRate"`
	Net         decimal.Decimal `json:"net"`
	Tax         decimal.Decimal `json:"tax"`
	Gross       decimal.Decimal `json:"gross"`
}

type invoiceResponse struct {
	ID           snowflake.ID    `json:"id"`
	Number       string          `json:"number"`
	CustomerID   *snowflake.ID   `json:"customerId,omitempty"`
	CustomerName string          `json:"customerName,omitempty"`
	Items        []itemResponse  `json:"items"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	TaxTotal     decimal.Decimal `json:"taxTotal"`
	Total        decimal.Decimal `json:"total"`
	Status       invoice.Status  `json:"status"`
	IssueDate    *render.Date    `json:"issueDate,omitempty"`
	DueDate      *render.Date    `json:"dueDate,omitempty"`
	Notes        string          `json:"notes,omitempty"`
	CreatedBy    *uuid.UUID      `json:"createdBy,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

type paymentResponse struct {
	ID          snowflake.ID    `json:"id"`
	InvoiceID   snowflake.ID    `json:"invoiceId"`
	Amount      decimal.Decimal `json:"amount"`
	Method      invoice.Method  `json:"paymentMethod"`
	ReferenceNo string          `json:"referenceNo,omitempty"`
	PaidAt      time.Time       `json:"paidAt"`
	CreatedBy   *uuid.UUID      `json:"createdBy,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type paymentResultResponse struct {
	Payment   paymentResponse `json:"payment"`
	Status    invoice.Status  `json:"status"`
	TotalPaid decimal.Decimal `json:"totalPaid"`
	Remaining decimal.Decimal `json:"remaining"`
}

func toDate(t *time.Time) *render.Date {
	if t == nil {
		return nil
	}

	return &render.Date{Time: *t}
}

func toResponse(inv *invoice.Invoice) invoiceResponse {
	items := make([]itemResponse, len(inv.Items))
	for i, it := range inv.Items {
		items[i] = itemResponse{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			TaxRate:     it.TaxRate,
			Net:         it.Net,
			Tax:         it.Tax,
			Gross:       it.Gross,
		}
	}

	return invoiceResponse{
		ID:           inv.ID,
		Number:       inv.Number,
		CustomerID:   inv.CustomerID,
		CustomerName: inv.CustomerName,
		Items:        items,
		Subtotal:     inv.Subtotal,
		TaxTotal:     inv.TaxTotal,
		Total:        inv.Total,
		Status:       inv.Status,
		IssueDate:    toDate(inv.IssueDate),
		DueDate:      toDate(inv.DueDate),
		Notes:        inv.Notes,
		CreatedBy:    inv.CreatedBy,
		CreatedAt:    inv.CreatedAt,
		UpdatedAt:    inv.UpdatedAt,
	}
}

func toResponseList(invs []*invoice.Invoice) []invoiceResponse {
	res := make([]invoiceResponse, len(invs))
	for i, inv := range invs {
		res[i] = toResponse(inv)
	}

	return res
}

func toPaymentResponse(p *invoice.Payment) paymentResponse {
	return paymentResponse{
		ID:          p.ID,
		InvoiceID:   p.InvoiceID,
		Amount:      p.Amount,
		Method:      p.Method,
		ReferenceNo: p.ReferenceNo,
		PaidAt:      p.PaidAt,
		CreatedBy:   p.CreatedBy,
		CreatedAt:   p.CreatedAt,
	}
}

func toPaymentList(ps []*invoice.Payment) []paymentResponse {
	res := make([]paymentResponse, len(ps))
	for i, p := range ps {
		res[i] = toPaymentResponse(p)
	}

	return res
}
