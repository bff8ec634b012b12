package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/apperr"
	"github.com/MrJamesThe3rd/tally/internal/category"
	categorystore "github.com/MrJamesThe3rd/tally/internal/category/store"
	"github.com/MrJamesThe3rd/tally/internal/database"
	"github.com/MrJamesThe3rd/tally/internal/invoice"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
	transactionstore "github.com/MrJamesThe3rd/tally/internal/transaction/store"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

const selectInvoiceColumns = `
	i.id, i.number, i.customer_id, cu.name AS customer_name, i.subtotal, i.tax_total, i.total,
	i.status, i.issue_date, i.due_date, i.notes, i.created_by, i.created_at, i.updated_at
`

const fromInvoices = `
	FROM invoices i
	LEFT JOIN customers cu ON i.customer_id = cu.id
`

func scanInvoice(s scanner) (*invoice.Invoice, error) {
	var inv invoice.Invoice

	var status string

	var customerID sql.NullInt64

	var customerName sql.NullString

	var createdBy uuid.NullUUID

	if err := s.Scan(
		&inv.ID, &inv.Number, &customerID, &customerName, &inv.Subtotal, &inv.TaxTotal, &inv.Total,
		&status, &inv.IssueDate, &inv.DueDate, &inv.Notes, &createdBy, &inv.CreatedAt, &inv.UpdatedAt,
	); err != nil {
		return nil, err
	}

	inv.Status = invoice.Status(status)
	inv.CustomerName = customerName.String

	if customerID.Valid {
		inv.CustomerID = new(snowflake.ID(customerID.Int64))
	}

	if createdBy.Valid {
		inv.CreatedBy = &createdBy.UUID
	}

	return &inv, nil
}

const selectPaymentColumns = `id, invoice_id, amount, payment_method, reference_no, paid_at, created_by, created_at`

func scanPayment(s scanner) (*invoice.Payment, error) {
	var p invoice.Payment

	var method string

	var reference sql.NullString

	var createdBy uuid.NullUUID

	if err := s.Scan(&p.ID, &p.InvoiceID, &p.Amount, &method, &reference, &p.PaidAt, &createdBy, &p.CreatedAt); err != nil {
		return nil, err
	}

	p.Method = invoice.Method(method)
	p.ReferenceNo = reference.String

	if createdBy.Valid {
		p.CreatedBy = &createdBy.UUID
	}

	return &p, nil
}

func notFound(id snowflake.ID) error {
	return fmt.Errorf("%w: invoice %s", apperr.ErrNotFound, id)
}

// getInvoice loads the header and items. With forUpdate the invoice row stays
// locked until q's transaction ends.
func getInvoice(ctx context.Context, q database.Querier, id snowflake.ID, forUpdate bool) (*invoice.Invoice, error) {
	query := `SELECT ` + selectInvoiceColumns + fromInvoices + ` WHERE i.id = $1`
	if forUpdate {
		query += ` FOR UPDATE OF i`
	}

	inv, err := scanInvoice(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound(id)
		}

		return nil, fmt.Errorf("getting invoice: %w", err)
	}

	if inv.Items, err = listItems(ctx, q, id); err != nil {
		return nil, err
	}

	return inv, nil
}

func listItems(ctx context.Context, q database.Querier, invoiceID snowflake.ID) ([]invoice.Item, error) {
	query := `
		SELECT description, quantity, unit_price, tax_rate, net, tax, gross
		FROM invoice_items
		WHERE invoice_id = $1
		ORDER BY position
	`

	rows, err := q.QueryContext(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("listing invoice items: %w", err)
	}
	defer rows.Close()

	items := []invoice.Item{}

	for rows.Next() {
		var it invoice.Item
		if err := rows.Scan(&it.Description, &it.Quantity, &it.UnitPrice, &it.TaxRate, &it.Net, &it.Tax, &it.Gross); err != nil {
			return nil, fmt.Errorf("scanning invoice item: %w", err)
		}

		items = append(items, it)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating invoice items: %w", err)
	}

	return items, nil
}

func insertItems(ctx context.Context, q database.Querier, invoiceID snowflake.ID, items []invoice.Item) error {
	query := `
		INSERT INTO invoice_items (invoice_id, position, description, quantity, unit_price, tax_rate, net, tax, gross)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	for i, it := range items {
		if _, err := q.ExecContext(ctx, query,
			invoiceID, i+1, it.Description, it.Quantity, it.UnitPrice, it.TaxRate, it.Net, it.Tax, it.Gross,
		); err != nil {
			return fmt.Errorf("creating invoice item: %w", database.MapError(err))
		}
	}

	return nil
}

func (s *Store) CreateInvoice(ctx context.Context, inv *invoice.Invoice) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer dbTx.Rollback()

	query := `
		INSERT INTO invoices (id, number, customer_id, subtotal, tax_total, total, status, notes, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING created_at, updated_at
	`

	err = dbTx.QueryRowContext(ctx, query,
		inv.ID,
		inv.Number,
		inv.CustomerID,
		inv.Subtotal,
		inv.TaxTotal,
		inv.Total,
		inv.Status,
		inv.Notes,
		inv.CreatedBy,
	).Scan(&inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating invoice: %w", database.MapError(err))
	}

	if err := insertItems(ctx, dbTx, inv.ID, inv.Items); err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

func (s *Store) GetInvoice(ctx context.Context, id snowflake.ID) (*invoice.Invoice, error) {
	return getInvoice(ctx, s.db, id, false)
}

// ListInvoices returns headers only, newest first.
func (s *Store) ListInvoices(ctx context.Context, filter invoice.ListFilter) ([]*invoice.Invoice, error) {
	query := `SELECT ` + selectInvoiceColumns + fromInvoices + ` WHERE TRUE`

	var args []any

	argIdx := 1

	if filter.Status != nil {
		query += fmt.Sprintf(" AND i.status = $%d", argIdx)

		args = append(args, *filter.Status)
		argIdx++
	}

	if filter.CustomerID != nil {
		query += fmt.Sprintf(" AND i.customer_id = $%d", argIdx)

		args = append(args, *filter.CustomerID)
	}

	query += " ORDER BY i.created_at DESC, i.id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing invoices: %w", err)
	}
	defer rows.Close()

	invoices := []*invoice.Invoice{}

	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning invoice: %w", err)
		}

		invoices = append(invoices, inv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating invoices: %w", err)
	}

	return invoices, nil
}

// ListPayments returns the payments of an invoice, newest first.
func (s *Store) ListPayments(ctx context.Context, invoiceID snowflake.ID) ([]*invoice.Payment, error) {
	query := `SELECT ` + selectPaymentColumns + `
		FROM payments
		WHERE invoice_id = $1
		ORDER BY paid_at DESC, created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("listing payments: %w", err)
	}
	defer rows.Close()

	payments := []*invoice.Payment{}

	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning payment: %w", err)
		}

		payments = append(payments, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating payments: %w", err)
	}

	return payments, nil
}

type lockedTx struct {
	tx  *sql.Tx
	inv *invoice.Invoice
}

// Lock begins a transaction and takes SELECT ... FOR UPDATE on the invoice
// row, so concurrent payments against the same invoice run one at a time.
func (s *Store) Lock(ctx context.Context, id snowflake.ID) (invoice.LockedTx, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}

	inv, err := getInvoice(ctx, dbTx, id, true)
	if err != nil {
		dbTx.Rollback()
		return nil, err
	}

	return &lockedTx{tx: dbTx, inv: inv}, nil
}

func (l *lockedTx) Invoice() *invoice.Invoice { return l.inv }

func (l *lockedTx) TotalPaid(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal

	query := `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE invoice_id = $1`
	if err := l.tx.QueryRowContext(ctx, query, l.inv.ID).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("summing payments: %w", err)
	}

	return total, nil
}

func (l *lockedTx) CreatePayment(ctx context.Context, p *invoice.Payment) error {
	query := `
		INSERT INTO payments (id, invoice_id, amount, payment_method, reference_no, paid_at, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING created_at
	`

	reference := sql.NullString{String: p.ReferenceNo, Valid: p.ReferenceNo != ""}

	err := l.tx.QueryRowContext(ctx, query,
		p.ID, p.InvoiceID, p.Amount, p.Method, reference, p.PaidAt, p.CreatedBy,
	).Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating payment: %w", database.MapError(err))
	}

	return nil
}

func (l *lockedTx) UpdateStatus(ctx context.Context, status invoice.Status) error {
	query := `UPDATE invoices SET status = $1, updated_at = NOW() WHERE id = $2 RETURNING updated_at`

	if err := l.tx.QueryRowContext(ctx, query, status, l.inv.ID).Scan(&l.inv.UpdatedAt); err != nil {
		return fmt.Errorf("updating invoice status: %w", database.MapError(err))
	}

	return nil
}

func (l *lockedTx) SetIssued(ctx context.Context, issueDate time.Time, dueDate *time.Time) error {
	query := `
		UPDATE invoices
		SET status = $1, issue_date = $2, due_date = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING updated_at
	`

	if err := l.tx.QueryRowContext(ctx, query, invoice.StatusIssued, issueDate, dueDate, l.inv.ID).Scan(&l.inv.UpdatedAt); err != nil {
		return fmt.Errorf("issuing invoice: %w", database.MapError(err))
	}

	return nil
}

func (l *lockedTx) ReplaceDraft(ctx context.Context, inv *invoice.Invoice) error {
	query := `
		UPDATE invoices
		SET number = $1, customer_id = $2, subtotal = $3, tax_total = $4, total = $5, notes = $6, updated_at = NOW()
		WHERE id = $7
	`

	if _, err := l.tx.ExecContext(ctx, query,
		inv.Number, inv.CustomerID, inv.Subtotal, inv.TaxTotal, inv.Total, inv.Notes, l.inv.ID,
	); err != nil {
		return fmt.Errorf("updating invoice: %w", database.MapError(err))
	}

	if _, err := l.tx.ExecContext(ctx, `DELETE FROM invoice_items WHERE invoice_id = $1`, l.inv.ID); err != nil {
		return fmt.Errorf("clearing invoice items: %w", err)
	}

	return insertItems(ctx, l.tx, l.inv.ID, inv.Items)
}

func (l *lockedTx) Delete(ctx context.Context) error {
	if _, err := l.tx.ExecContext(ctx, `DELETE FROM invoices WHERE id = $1`, l.inv.ID); err != nil {
		return fmt.Errorf("deleting invoice: %w", database.MapError(err))
	}

	return nil
}

func (l *lockedTx) GetCategory(ctx context.Context, id snowflake.ID) (*category.Category, error) {
	return categorystore.GetCategory(ctx, l.tx, id)
}

func (l *lockedTx) CreateTransaction(ctx context.Context, tx *transaction.Transaction) error {
	return transactionstore.Insert(ctx, l.tx, tx)
}

func (l *lockedTx) Commit() error { return l.tx.Commit() }

func (l *lockedTx) Rollback() error {
	if err := l.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}

	return nil
}
