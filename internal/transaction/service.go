package transaction

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/apperr"
	"github.com/MrJamesThe3rd/tally/internal/category"
	"github.com/MrJamesThe3rd/tally/internal/ids"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=transaction
type Repository interface {
	CreateTransaction(ctx context.Context, tx *Transaction) error
	GetTransaction(ctx context.Context, id snowflake.ID) (*Transaction, error)
	UpdateTransaction(ctx context.Context, tx *Transaction) error
	ListTransactions(ctx context.Context, filter ListFilter) ([]*Transaction, error)
	DeleteTransaction(ctx context.Context, id snowflake.ID) error
	MonthlyTotals(ctx context.Context, year int) ([]MonthTotal, error)

	BeginImport(ctx context.Context, minDate, maxDate time.Time) (ImportTx, error)
}

type ImportTx interface {
	FindDuplicates(ctx context.Context, params []CreateParams) ([]*Transaction, error)
	CreateTransactions(ctx context.Context, txs []*Transaction) error
	Commit() error
	Rollback() error
}

// CategoryLookup resolves the category a transaction is filed under.
type CategoryLookup interface {
	Get(ctx context.Context, id snowflake.ID) (*category.Category, error)
}

type Service struct {
	repo       Repository
	categories CategoryLookup
	ids        ids.Generator
	strict     bool
}

type Option func(*Service)

// WithStrictCategoryType controls whether single creates and updates reject
// a category whose type differs from the transaction type. Batches always do.
func WithStrictCategoryType(strict bool) Option {
	return func(s *Service) { s.strict = strict }
}

func NewService(repo Repository, categories CategoryLookup, gen ids.Generator, opts ...Option) *Service {
	s := &Service{repo: repo, categories: categories, ids: gen, strict: true}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

type CreateParams struct {
	Type           Type
	Amount         decimal.Decimal
	Description    string
	RawDescription string
	Date           time.Time
	CategoryID     *snowflake.ID
	InvoiceID      *snowflake.ID
	CreatedBy      *uuid.UUID
}

type UpdateParams struct {
	Type          *Type
	Amount        *decimal.Decimal
	Description   *string
	Date          *time.Time
	CategoryID    *snowflake.ID
	ClearCategory bool
}

type ListFilter struct {
	Type       *Type
	CategoryID *snowflake.ID
	InvoiceID  *snowflake.ID
	StartDate  *time.Time
	EndDate    *time.Time
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be greater than zero", apperr.ErrInvalidInput)
	}

	if !amount.Equal(amount.Round(2)) {
		return fmt.Errorf("%w: amount must not have more than two decimal places", apperr.ErrInvalidInput)
	}

	return nil
}

func (p CreateParams) validate() error {
	if !p.Type.Valid() {
		return fmt.Errorf("%w: type must be INCOME or EXPENSE", apperr.ErrInvalidInput)
	}

	if err := validateAmount(p.Amount); err != nil {
		return err
	}

	if p.Date.IsZero() {
		return fmt.Errorf("%w: date is required", apperr.ErrInvalidInput)
	}

	if strings.TrimSpace(p.Description) == "" && strings.TrimSpace(p.RawDescription) == "" {
		return fmt.Errorf("%w: description is required", apperr.ErrInvalidInput)
	}

	return nil
}

// checkCategory loads the category and, when strict, rejects a type mismatch.
func (s *Service) checkCategory(ctx context.Context, id snowflake.ID, typ Type, strict bool) (*category.Category, error) {
	c, err := s.categories.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("resolving category: %w", err)
	}

	if strict && c.Type != typ {
		return nil, fmt.Errorf("%w: category %q is %s, transaction is %s", apperr.ErrInvalidInput, c.Name, c.Type, typ)
	}

	return c, nil
}

func (s *Service) newTransaction(p CreateParams) *Transaction {
	description := strings.TrimSpace(p.Description)
	if description == "" {
		description = strings.TrimSpace(p.RawDescription)
	}

	tx := &Transaction{
		ID:             s.ids.Generate(),
		Type:           p.Type,
		Amount:         p.Amount,
		Description:    description,
		RawDescription: p.RawDescription,
		CategoryID:     p.CategoryID,
		InvoiceID:      p.InvoiceID,
		CreatedBy:      p.CreatedBy,
	}
	tx.SetDate(p.Date)

	return tx
}

func (s *Service) Create(ctx context.Context, params CreateParams) (*Transaction, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	tx := s.newTransaction(params)

	if params.CategoryID != nil {
		c, err := s.checkCategory(ctx, *params.CategoryID, params.Type, s.strict)
		if err != nil {
			return nil, err
		}

		tx.CategoryName = c.Name
	}

	if err := s.repo.CreateTransaction(ctx, tx); err != nil {
		return nil, err
	}

	return tx, nil
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Transaction, error) {
	if filter.Type != nil && !filter.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown transaction type %q", apperr.ErrInvalidInput, *filter.Type)
	}

	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return nil, fmt.Errorf("%w: end date is before start date", apperr.ErrInvalidInput)
	}

	return s.repo.ListTransactions(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*Transaction, error) {
	return s.repo.GetTransaction(ctx, id)
}

func (s *Service) Update(ctx context.Context, id snowflake.ID, params UpdateParams) (*Transaction, error) {
	tx, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}

	if params.Type != nil {
		if !params.Type.Valid() {
			return nil, fmt.Errorf("%w: type must be INCOME or EXPENSE", apperr.ErrInvalidInput)
		}

		tx.Type = *params.Type
	}

	if params.Amount != nil {
		if err := validateAmount(*params.Amount); err != nil {
			return nil, err
		}

		tx.Amount = *params.Amount
	}

	if params.Description != nil {
		if strings.TrimSpace(*params.Description) == "" {
			return nil, fmt.Errorf("%w: description is required", apperr.ErrInvalidInput)
		}

		tx.Description = strings.TrimSpace(*params.Description)
	}

	if params.Date != nil {
		tx.SetDate(*params.Date)
	}

	switch {
	case params.ClearCategory:
		tx.CategoryID = nil
		tx.CategoryName = ""
	case params.CategoryID != nil:
		tx.CategoryID = params.CategoryID
	}

	if tx.CategoryID != nil {
		c, err := s.checkCategory(ctx, *tx.CategoryID, tx.Type, s.strict)
		if err != nil {
			return nil, err
		}

		tx.CategoryName = c.Name
	}

	if err := s.repo.UpdateTransaction(ctx, tx); err != nil {
		return nil, err
	}

	return tx, nil
}

func (s *Service) Delete(ctx context.Context, id snowflake.ID) error {
	return s.repo.DeleteTransaction(ctx, id)
}

// Summary returns income, expense and net totals for every month of year.
func (s *Service) Summary(ctx context.Context, year int) (*Summary, error) {
	if year < 1900 || year > 9999 {
		return nil, fmt.Errorf("%w: year %d out of range", apperr.ErrInvalidInput, year)
	}

	totals, err := s.repo.MonthlyTotals(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("loading monthly totals: %w", err)
	}

	summary := &Summary{Year: year, Months: make([]MonthSummary, 12)}
	for i := range summary.Months {
		summary.Months[i] = MonthSummary{Month: i + 1}
	}

	for _, t := range totals {
		if t.Month < 1 || t.Month > 12 {
			continue
		}

		m := &summary.Months[t.Month-1]
		m.Income = t.Income
		m.Expense = t.Expense
		m.Net = t.Income.Sub(t.Expense)

		summary.Income = summary.Income.Add(t.Income)
		summary.Expense = summary.Expense.Add(t.Expense)
	}

	summary.Net = summary.Income.Sub(summary.Expense)

	return summary, nil
}

type ImportResult struct {
	Imported  []*Transaction
	New       []CreateParams
	Conflicts []Conflict
}

type Conflict struct {
	Incoming CreateParams
	Existing *Transaction
}

type dupKey struct {
	Date           string
	Amount         string
	Type           Type
	RawDescription string
}

func keyOf(date time.Time, amount decimal.Decimal, typ Type, raw string) dupKey {
	return dupKey{
		Date:           date.Format(time.DateOnly),
		Amount:         amount.StringFixed(2),
		Type:           typ,
		RawDescription: raw,
	}
}

// validateBatch checks every row, category types included, before anything is written.
func (s *Service) validateBatch(ctx context.Context, params []CreateParams) error {
	seen := make(map[snowflake.ID]*category.Category)

	for i, p := range params {
		if err := p.validate(); err != nil {
			return fmt.Errorf("row %d: %w", i+1, err)
		}

		if p.CategoryID == nil {
			continue
		}

		c, ok := seen[*p.CategoryID]
		if !ok {
			var err error

			c, err = s.checkCategory(ctx, *p.CategoryID, p.Type, false)
			if err != nil {
				return fmt.Errorf("row %d: %w", i+1, err)
			}

			seen[*p.CategoryID] = c
		}

		if c.Type != p.Type {
			return fmt.Errorf("row %d: %w: category %q is %s, transaction is %s", i+1, apperr.ErrInvalidInput, c.Name, c.Type, p.Type)
		}
	}

	return nil
}

func (s *Service) ImportBatch(ctx context.Context, params []CreateParams) (*ImportResult, error) {
	if len(params) == 0 {
		return &ImportResult{}, nil
	}

	if err := s.validateBatch(ctx, params); err != nil {
		return nil, err
	}

	minDate, maxDate := dateRange(params)

	itx, err := s.repo.BeginImport(ctx, minDate, maxDate)
	if err != nil {
		return nil, fmt.Errorf("begin import: %w", err)
	}
	defer itx.Rollback()

	duplicates, err := itx.FindDuplicates(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("find duplicates: %w", err)
	}

	lookup := make(map[dupKey]*Transaction, len(duplicates))
	for _, d := range duplicates {
		lookup[keyOf(d.Date, d.Amount, d.Type, d.RawDescription)] = d
	}

	var newParams []CreateParams

	var conflicts []Conflict

	for _, p := range params {
		existing, found := lookup[keyOf(p.Date, p.Amount, p.Type, p.RawDescription)]
		if found {
			conflicts = append(conflicts, Conflict{Incoming: p, Existing: existing})
			continue
		}

		newParams = append(newParams, p)
	}

	if len(conflicts) > 0 {
		return &ImportResult{New: newParams, Conflicts: conflicts}, nil
	}

	txs := s.paramsToTransactions(newParams)
	if err := itx.CreateTransactions(ctx, txs); err != nil {
		return nil, fmt.Errorf("create transactions: %w", err)
	}

	if err := itx.Commit(); err != nil {
		return nil, fmt.Errorf("commit import: %w", err)
	}

	return &ImportResult{Imported: txs}, nil
}

// CreateBatch inserts all rows atomically without duplicate detection; used
// once the caller has resolved import conflicts.
func (s *Service) CreateBatch(ctx context.Context, params []CreateParams) ([]*Transaction, error) {
	if len(params) == 0 {
		return nil, nil
	}

	if err := s.validateBatch(ctx, params); err != nil {
		return nil, err
	}

	minDate, maxDate := dateRange(params)

	itx, err := s.repo.BeginImport(ctx, minDate, maxDate)
	if err != nil {
		return nil, fmt.Errorf("begin import: %w", err)
	}
	defer itx.Rollback()

	txs := s.paramsToTransactions(params)
	if err := itx.CreateTransactions(ctx, txs); err != nil {
		return nil, fmt.Errorf("create transactions: %w", err)
	}

	if err := itx.Commit(); err != nil {
		return nil, fmt.Errorf("commit import: %w", err)
	}

	return txs, nil
}

func dateRange(params []CreateParams) (time.Time, time.Time) {
	minDate := params[0].Date
	maxDate := params[0].Date

	for _, p := range params[1:] {
		if p.Date.Before(minDate) {
			minDate = p.Date
		}

		if p.Date.After(maxDate) {
			maxDate = p.Date
		}
	}

	return minDate, maxDate
}

func (s *Service) paramsToTransactions(params []CreateParams) []*Transaction {
	txs := make([]*Transaction, len(params))
	for i, p := range params {
		txs[i] = s.newTransaction(p)
	}

	return txs
}
