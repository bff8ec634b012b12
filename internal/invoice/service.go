package invoice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/apperr"
	"github.com/MrJamesThe3rd/tally/internal/category"
	"github.com/MrJamesThe3rd/tally/internal/ids"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=invoice
type Repository interface {
	CreateInvoice(ctx context.Context, inv *Invoice) error
	GetInvoice(ctx context.Context, id snowflake.ID) (*Invoice, error)
	ListInvoices(ctx context.Context, filter ListFilter) ([]*Invoice, error)
	ListPayments(ctx context.Context, invoiceID snowflake.ID) ([]*Payment, error)

	// Lock opens a database transaction holding a row lock on the invoice.
	Lock(ctx context.Context, id snowflake.ID) (LockedTx, error)
}

// LockedTx is a transaction scoped to one locked invoice. Every read and write
// of the payment flow goes through it so they observe a consistent total.
type LockedTx interface {
	Invoice() *Invoice
	TotalPaid(ctx context.Context) (decimal.Decimal, error)
	CreatePayment(ctx context.Context, p *Payment) error
	UpdateStatus(ctx context.Context, status Status) error
	SetIssued(ctx context.Context, issueDate time.Time, dueDate *time.Time) error
	ReplaceDraft(ctx context.Context, inv *Invoice) error
	Delete(ctx context.Context) error
	GetCategory(ctx context.Context, id snowflake.ID) (*category.Category, error)
	CreateTransaction(ctx context.Context, tx *transaction.Transaction) error
	Commit() error
	Rollback() error
}

type Service struct {
	repo     Repository
	ids      ids.Generator
	now      func() time.Time
	observer Observer
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithObserver(o Observer) Option {
	return func(s *Service) { s.observer = o }
}

func NewService(repo Repository, gen ids.Generator, opts ...Option) *Service {
	s := &Service{repo: repo, ids: gen, now: time.Now, observer: nopObserver{}}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

type CreateParams struct {
	Number     string
	CustomerID *snowflake.ID
	Items      []ItemParams
	Notes      string
	CreatedBy  *uuid.UUID
}

// UpdateParams changes a draft. Nil fields are left as they are.
type UpdateParams struct {
	Number        *string
	CustomerID    *snowflake.ID
	ClearCustomer bool
	Items         []ItemParams
	Notes         *string
}

type ListFilter struct {
	Status     *Status
	CustomerID *snowflake.ID
}

type IssueParams struct {
	IssueDate *time.Time
	DueDate   *time.Time
}

type PaymentParams struct {
	Amount            decimal.Decimal
	Method            Method
	ReferenceNo       string
	PaidAt            *time.Time
	CreatedBy         *uuid.UUID
	CreateTransaction bool
	CategoryID        *snowflake.ID
}

type PaymentResult struct {
	Payment   *Payment
	Status    Status
	TotalPaid decimal.Decimal
	Remaining decimal.Decimal
}

func normalizeNumber(n string) (string, error) {
	n = strings.TrimSpace(n)
	if n == "" {
		return "", fmt.Errorf("%w: invoice number is required", apperr.ErrInvalidInput)
	}

	if len(n) > 64 {
		return "", fmt.Errorf("%w: invoice number is too long", apperr.ErrInvalidInput)
	}

	return n, nil
}

func applyItems(inv *Invoice, params []ItemParams) error {
	items, t, err := buildItems(params)
	if err != nil {
		return err
	}

	inv.Items = items
	inv.Subtotal = t.subtotal
	inv.TaxTotal = t.tax
	inv.Total = t.total

	return nil
}

func (s *Service) Create(ctx context.Context, params CreateParams) (*Invoice, error) {
	number, err := normalizeNumber(params.Number)
	if err != nil {
		return nil, err
	}

	inv := &Invoice{
		ID:         s.ids.Generate(),
		Number:     number,
		CustomerID: params.CustomerID,
		Status:     StatusDraft,
		Notes:      strings.TrimSpace(params.Notes),
		CreatedBy:  params.CreatedBy,
	}

	if err := applyItems(inv, params.Items); err != nil {
		return nil, err
	}

	if err := s.repo.CreateInvoice(ctx, inv); err != nil {
		return nil, err
	}

	return s.repo.GetInvoice(ctx, inv.ID)
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*Invoice, error) {
	return s.repo.GetInvoice(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Invoice, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown invoice status %q", apperr.ErrInvalidInput, *filter.Status)
	}

	return s.repo.ListInvoices(ctx, filter)
}

// ListPayments returns the payments of an existing invoice, newest first.
func (s *Service) ListPayments(ctx context.Context, id snowflake.ID) ([]*Payment, error) {
	if _, err := s.repo.GetInvoice(ctx, id); err != nil {
		return nil, err
	}

	return s.repo.ListPayments(ctx, id)
}

func (s *Service) UpdateDraft(ctx context.Context, id snowflake.ID, params UpdateParams) (*Invoice, error) {
	ltx, err := s.repo.Lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer ltx.Rollback()

	inv := ltx.Invoice()
	if inv.Status != StatusDraft {
		return nil, fmt.Errorf("%w: only draft invoices can be edited", apperr.ErrInvalidState)
	}

	if params.Number != nil {
		number, err := normalizeNumber(*params.Number)
		if err != nil {
			return nil, err
		}

		inv.Number = number
	}

	switch {
	case params.ClearCustomer:
		inv.CustomerID = nil
	case params.CustomerID != nil:
		inv.CustomerID = params.CustomerID
	}

	if params.Notes != nil {
		inv.Notes = strings.TrimSpace(*params.Notes)
	}

	if params.Items != nil {
		if err := applyItems(inv, params.Items); err != nil {
			return nil, err
		}
	}

	if err := ltx.ReplaceDraft(ctx, inv); err != nil {
		return nil, fmt.Errorf("updating draft: %w", err)
	}

	if err := ltx.Commit(); err != nil {
		return nil, fmt.Errorf("committing draft: %w", err)
	}

	return s.repo.GetInvoice(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id snowflake.ID) error {
	ltx, err := s.repo.Lock(ctx, id)
	if err != nil {
		return err
	}
	defer ltx.Rollback()

	if ltx.Invoice().Status != StatusDraft {
		return fmt.Errorf("%w: only draft invoices can be deleted", apperr.ErrInvalidState)
	}

	if err := ltx.Delete(ctx); err != nil {
		return fmt.Errorf("deleting invoice: %w", err)
	}

	return ltx.Commit()
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Issue moves a draft to ISSUED. The issue date defaults to today.
func (s *Service) Issue(ctx context.Context, id snowflake.ID, params IssueParams) (*Invoice, error) {
	ltx, err := s.repo.Lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer ltx.Rollback()

	inv := ltx.Invoice()
	if inv.Status != StatusDraft {
		return nil, fmt.Errorf("%w: only draft invoices can be issued, invoice is %s", apperr.ErrInvalidState, inv.Status)
	}

	issueDate := dateOnly(s.now())
	if params.IssueDate != nil {
		issueDate = dateOnly(*params.IssueDate)
	}

	var dueDate *time.Time

	if params.DueDate != nil {
		d := dateOnly(*params.DueDate)
		if d.Before(issueDate) {
			return nil, fmt.Errorf("%w: due date is before issue date", apperr.ErrInvalidInput)
		}

		dueDate = &d
	}

	if err := ltx.SetIssued(ctx, issueDate, dueDate); err != nil {
		return nil, fmt.Errorf("issuing invoice: %w", err)
	}

	if err := ltx.Commit(); err != nil {
		return nil, fmt.Errorf("committing issue: %w", err)
	}

	inv.Status = StatusIssued
	inv.IssueDate = &issueDate
	inv.DueDate = dueDate

	return inv, nil
}

// Cancel voids an invoice that has not received any payment.
func (s *Service) Cancel(ctx context.Context, id snowflake.ID) (*Invoice, error) {
	ltx, err := s.repo.Lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer ltx.Rollback()

	inv := ltx.Invoice()
	if inv.Status != StatusDraft && inv.Status != StatusIssued {
		return nil, fmt.Errorf("%w: cannot cancel a %s invoice", apperr.ErrInvalidState, inv.Status)
	}

	paid, err := ltx.TotalPaid(ctx)
	if err != nil {
		return nil, fmt.Errorf("summing payments: %w", err)
	}

	if paid.IsPositive() {
		return nil, fmt.Errorf("%w: invoice has payments", apperr.ErrInvalidState)
	}

	if err := ltx.UpdateStatus(ctx, StatusCancelled); err != nil {
		return nil, fmt.Errorf("cancelling invoice: %w", err)
	}

	if err := ltx.Commit(); err != nil {
		return nil, fmt.Errorf("committing cancel: %w", err)
	}

	inv.Status = StatusCancelled

	return inv, nil
}

// RecordPayment appends a payment and moves the invoice to PARTIAL or PAID.
// The sum of payments is read under the invoice row lock, so concurrent
// payments cannot together exceed the total.
func (s *Service) RecordPayment(ctx context.Context, id snowflake.ID, params PaymentParams) (*PaymentResult, error) {
	res, err := s.recordPayment(ctx, id, params)
	if err != nil {
		s.observer.PaymentRejected(rejectReason(err))
		return nil, err
	}

	amount, _ := res.Payment.Amount.Float64()
	s.observer.PaymentRecorded(string(res.Status), amount)

	return res, nil
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, apperr.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, apperr.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperr.ErrInvalidState):
		return "invalid_state"
	default:
		return "error"
	}
}

func (p PaymentParams) validate() (Method, error) {
	if !p.Amount.IsPositive() {
		return "", fmt.Errorf("%w: amount must be greater than zero", apperr.ErrInvalidInput)
	}

	if !hasAtMostPlaces(p.Amount, 2) {
		return "", fmt.Errorf("%w: amount must not have more than two decimal places", apperr.ErrInvalidInput)
	}

	method := p.Method
	if method == "" {
		method = MethodTransfer
	}

	if !method.Valid() {
		return "", fmt.Errorf("%w: unknown payment method %q", apperr.ErrInvalidInput, p.Method)
	}

	return method, nil
}

func (s *Service) recordPayment(ctx context.Context, id snowflake.ID, params PaymentParams) (*PaymentResult, error) {
	method, err := params.validate()
	if err != nil {
		return nil, err
	}

	ltx, err := s.repo.Lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer ltx.Rollback()

	inv := ltx.Invoice()

	switch inv.Status {
	case StatusDraft:
		return nil, fmt.Errorf("%w: cannot pay a draft invoice", apperr.ErrInvalidState)
	case StatusCancelled:
		return nil, fmt.Errorf("%w: cannot pay a cancelled invoice", apperr.ErrInvalidState)
	}

	totalPaid, err := ltx.TotalPaid(ctx)
	if err != nil {
		return nil, fmt.Errorf("summing payments: %w", err)
	}

	newTotalPaid := totalPaid.Add(params.Amount)
	if newTotalPaid.GreaterThan(inv.Total) {
		return nil, fmt.Errorf("%w: payment exceeds invoice total (remaining %s)", apperr.ErrInvalidInput, inv.Total.Sub(totalPaid).StringFixed(2))
	}

	var incomeCategory *category.Category

	if params.CreateTransaction && params.CategoryID != nil {
		incomeCategory, err = ltx.GetCategory(ctx, *params.CategoryID)
		if err != nil {
			return nil, err
		}

		if incomeCategory.Type != category.TypeIncome {
			return nil, fmt.Errorf("%w: category %q is not an income category", apperr.ErrInvalidInput, incomeCategory.Name)
		}
	}

	paidAt := s.now()
	if params.PaidAt != nil {
		paidAt = *params.PaidAt
	}

	payment := &Payment{
		ID:          s.ids.Generate(),
		InvoiceID:   inv.ID,
		Amount:      params.Amount,
		Method:      method,
		ReferenceNo: strings.TrimSpace(params.ReferenceNo),
		PaidAt:      paidAt,
		CreatedBy:   params.CreatedBy,
	}

	if err := ltx.CreatePayment(ctx, payment); err != nil {
		return nil, fmt.Errorf("creating payment: %w", err)
	}

	status := DeriveStatus(inv.Status, newTotalPaid, inv.Total)
	if err := ltx.UpdateStatus(ctx, status); err != nil {
		return nil, fmt.Errorf("updating invoice status: %w", err)
	}

	if incomeCategory != nil {
		tx := &transaction.Transaction{
			ID:           s.ids.Generate(),
			Type:         transaction.TypeIncome,
			Amount:       params.Amount,
			Description:  paymentDescription(inv),
			CategoryID:   &incomeCategory.ID,
			CategoryName: incomeCategory.Name,
			InvoiceID:    &inv.ID,
			CreatedBy:    params.CreatedBy,
		}
		tx.SetDate(paidAt)

		if err := ltx.CreateTransaction(ctx, tx); err != nil {
			return nil, fmt.Errorf("creating linked transaction: %w", err)
		}
	}

	if err := ltx.Commit(); err != nil {
		return nil, fmt.Errorf("committing payment: %w", err)
	}

	return &PaymentResult{
		Payment:   payment,
		Status:    status,
		TotalPaid: newTotalPaid,
		Remaining: inv.Total.Sub(newTotalPaid),
	}, nil
}

func paymentDescription(inv *Invoice) string {
	desc := "Payment for invoice " + inv.Number
	if inv.CustomerID != nil && inv.CustomerName != "" {
		desc += " - " + inv.CustomerName
	}

	return desc
}
