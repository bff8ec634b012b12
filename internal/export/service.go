// Package export renders invoices as PDF and bundles ledger extracts.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bwmarrin/snowflake"

	"github.com/MrJamesThe3rd/tally/internal/customer"
	"github.com/MrJamesThe3rd/tally/internal/invoice"
	"github.com/MrJamesThe3rd/tally/internal/settings"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

const ledgerFile = "transactions.csv"

type TransactionSource interface {
	List(ctx context.Context, filter transaction.ListFilter) ([]*transaction.Transaction, error)
}

type InvoiceSource interface {
	Get(ctx context.Context, id snowflake.ID) (*invoice.Invoice, error)
	ListPayments(ctx context.Context, id snowflake.ID) ([]*invoice.Payment, error)
}

type CustomerSource interface {
	Get(ctx context.Context, id snowflake.ID) (*customer.Customer, error)
}

type SettingsSource interface {
	Get(ctx context.Context) (*settings.Settings, error)
}

// Item is one exported transaction and the invoice PDF written for it, if any.
type Item struct {
	Transaction *transaction.Transaction
	FilePath    string
}

type Service struct {
	transactions TransactionSource
	invoices     InvoiceSource
	customers    CustomerSource
	settings     SettingsSource
	compress     bool
}

func NewService(transactions TransactionSource, invoices InvoiceSource, customers CustomerSource, settings SettingsSource) *Service {
	return &Service{
		transactions: transactions,
		invoices:     invoices,
		customers:    customers,
		settings:     settings,
		compress:     true,
	}
}

// Export writes the ledger rows matching filter to dir as transactions.csv,
// plus one PDF per invoice linked from those rows.
func (s *Service) Export(ctx context.Context, filter transaction.ListFilter, outputDir string) ([]Item, error) {
	txs, err := s.transactions.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	items := make([]Item, 0, len(txs))
	written := make(map[snowflake.ID]string)

	for _, tx := range txs {
		item := Item{Transaction: tx}

		if tx.InvoiceID != nil {
			path, ok := written[*tx.InvoiceID]
			if !ok {
				path, err = s.writeInvoice(ctx, *tx.InvoiceID, outputDir)
				if err != nil {
					return nil, fmt.Errorf("rendering invoice for transaction %s: %w", tx.ID, err)
				}

				written[*tx.InvoiceID] = path
			}

			item.FilePath = path
		}

		items = append(items, item)
	}

	if err := writeLedger(filepath.Join(outputDir, ledgerFile), items); err != nil {
		return nil, err
	}

	return items, nil
}

func (s *Service) writeInvoice(ctx context.Context, id snowflake.ID, dir string) (string, error) {
	inv, err := s.invoices.Get(ctx, id)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, InvoiceFilename(inv))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	if err := s.renderInvoice(ctx, inv, f); err != nil {
		return "", err
	}

	return path, f.Close()
}

// InvoiceFilename is the file name an invoice PDF is written under.
func InvoiceFilename(inv *invoice.Invoice) string {
	name := inv.Number
	if name == "" {
		name = inv.ID.String()
	}

	safe := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}

		return '_'
	}, name)

	return "invoice_" + safe + ".pdf"
}

func writeLedger(path string, items []Item) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating ledger: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	_ = w.Write([]string{"id", "date", "type", "amount", "description", "raw_description", "category", "invoice_id", "invoice_file"})

	for _, item := range items {
		tx := item.Transaction

		var invoiceID, invoiceFile string
		if tx.InvoiceID != nil {
			invoiceID = tx.InvoiceID.String()
		}

		if item.FilePath != "" {
			invoiceFile = filepath.Base(item.FilePath)
		}

		_ = w.Write([]string{
			tx.ID.String(),
			tx.Date.Format("2006-01-02"),
			string(tx.Type),
			tx.Amount.StringFixed(2),
			tx.Description,
			tx.RawDescription,
			tx.CategoryName,
			invoiceID,
			invoiceFile,
		})
	}

	w.Flush()

	if err := w.Error(); err != nil {
		return fmt.Errorf("writing ledger: %w", err)
	}

	return f.Close()
}

// GenerateSummary renders one line per item, suitable for an email body.
func (s *Service) GenerateSummary(items []Item) string {
	var sb strings.Builder

	for _, item := range items {
		tx := item.Transaction

		sign := "-"
		if tx.Type == transaction.TypeIncome {
			sign = "+"
		}

		file := "no invoice"
		if item.FilePath != "" {
			file = filepath.Base(item.FilePath)
		}

		fmt.Fprintf(&sb, "* %s | %s | %s%s | %s\n", tx.Date.Format("2006-01-02"), tx.Description, sign, tx.Amount.StringFixed(2), file)
	}

	return sb.String()
}
