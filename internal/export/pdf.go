package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/apperr"
	"github.com/MrJamesThe3rd/tally/internal/customer"
	"github.com/MrJamesThe3rd/tally/internal/invoice"
	"github.com/MrJamesThe3rd/tally/internal/settings"
)

const (
	pageMargin = 15.0
	lineHeight = 6.0
)

var itemColumns = []struct {
	title string
	width float64
	align string
}{
	{"Description", 70, "L"},
	{"Qty", 15, "R"},
	{"Unit price", 25, "R"},
	{"Tax %", 15, "R"},
	{"Net", 20, "R"},
	{"Tax", 15, "R"},
	{"Gross", 20, "R"},
}

// invoiceDoc is everything printed on an invoice.
type invoiceDoc struct {
	invoice  *invoice.Invoice
	payments []*invoice.Payment
	customer *customer.Customer
	company  *settings.Settings
}

func (d invoiceDoc) paid() decimal.Decimal {
	sum := decimal.Zero
	for _, p := range d.payments {
		sum = sum.Add(p.Amount)
	}

	return sum
}

func (d invoiceDoc) money(v decimal.Decimal) string {
	return v.StringFixed(2) + " " + d.company.Currency
}

// RenderInvoicePDF writes the invoice with company details, customer, lines,
// totals, payments received and the balance still due.
func (s *Service) RenderInvoicePDF(ctx context.Context, id snowflake.ID, w io.Writer) error {
	inv, err := s.invoices.Get(ctx, id)
	if err != nil {
		return err
	}

	return s.renderInvoice(ctx, inv, w)
}

func (s *Service) renderInvoice(ctx context.Context, inv *invoice.Invoice, w io.Writer) error {
	doc := invoiceDoc{invoice: inv}

	var err error

	if doc.company, err = s.settings.Get(ctx); err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}

	if doc.company.Currency == "" {
		doc.company.Currency = settings.DefaultCurrency
	}

	if doc.payments, err = s.invoices.ListPayments(ctx, inv.ID); err != nil {
		return fmt.Errorf("loading payments: %w", err)
	}

	if inv.CustomerID != nil {
		doc.customer, err = s.customers.Get(ctx, *inv.CustomerID)

		switch {
		case errors.Is(err, apperr.ErrNotFound):
			slog.WarnContext(ctx, "invoice customer missing", "invoice_id", inv.ID.String(), "customer_id", inv.CustomerID.String())
		case err != nil:
			return fmt.Errorf("loading customer: %w", err)
		}
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(s.compress)
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetTitle("Invoice "+inv.Number, true)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")

	writeHeader(pdf, tr, doc)
	writeParties(pdf, tr, doc)
	writeItems(pdf, tr, doc)
	writeTotals(pdf, doc)
	writePayments(pdf, tr, doc)
	writeFooter(pdf, tr, doc)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("rendering pdf: %w", err)
	}

	return nil
}

func writeHeader(pdf *gofpdf.Fpdf, tr func(string) string, doc invoiceDoc) {
	inv := doc.invoice

	title := "INVOICE " + inv.Number
	if inv.Number == "" {
		title = "DRAFT INVOICE"
	}

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(110, 10, tr(doc.company.CompanyName), "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, tr(title), "", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)

	for _, line := range []string{doc.company.Address, labelled("Tax ID", doc.company.TaxID), doc.company.Email} {
		if line != "" {
			pdf.MultiCell(0, 4.5, tr(line), "", "L", false)
		}
	}

	pdf.Ln(2)

	meta := []string{"Status: " + string(inv.Status)}
	if inv.IssueDate != nil {
		meta = append(meta, "Issued: "+inv.IssueDate.Format("2006-01-02"))
	}

	if inv.DueDate != nil {
		meta = append(meta, "Due: "+inv.DueDate.Format("2006-01-02"))
	}

	pdf.CellFormat(0, 5, strings.Join(meta, "   "), "", 1, "R", false, 0, "")
	pdf.Ln(4)
}

func labelled(label, value string) string {
	if value == "" {
		return ""
	}

	return label + ": " + value
}

func writeParties(pdf *gofpdf.Fpdf, tr func(string) string, doc invoiceDoc) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(0, lineHeight, "Bill to", "B", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)

	c := doc.customer
	if c == nil {
		name := doc.invoice.CustomerName
		if name == "" {
			name = "-"
		}

		pdf.CellFormat(0, lineHeight, tr(name), "", 1, "L", false, 0, "")
		pdf.Ln(4)

		return
	}

	pdf.CellFormat(0, lineHeight, tr(c.Name), "", 1, "L", false, 0, "")

	for _, line := range []string{c.Address, labelled("Tax ID", c.TaxID), c.Email, c.Phone} {
		if line != "" {
			pdf.MultiCell(0, 5, tr(line), "", "L", false)
		}
	}

	pdf.Ln(4)
}

func writeItems(pdf *gofpdf.Fpdf, tr func(string) string, doc invoiceDoc) {
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(235, 235, 235)

	for _, col := range itemColumns {
		pdf.CellFormat(col.width, 7, col.title, "1", 0, col.align, true, 0, "")
	}

	pdf.Ln(-1)
	pdf.SetFont("Helvetica", "", 9)

	for _, it := range doc.invoice.Items {
		cells := []string{
			tr(it.Description),
			it.Quantity.String(),
			it.UnitPrice.StringFixed(2),
			it.TaxRate.String(),
			it.Net.StringFixed(2),
			it.Tax.StringFixed(2),
			it.Gross.StringFixed(2),
		}

		for i, col := range itemColumns {
			text := cells[i]
			if i == 0 {
				text = truncate(pdf, text, col.width-2)
			}

			pdf.CellFormat(col.width, lineHeight, text, "1", 0, col.align, false, 0, "")
		}

		pdf.Ln(-1)
	}

	pdf.Ln(3)
}

// truncate shortens s with an ellipsis until it fits width at the current font.
func truncate(pdf *gofpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}

	for len(s) > 0 && pdf.GetStringWidth(s+"...") > width {
		s = s[:len(s)-1]
	}

	return s + "..."
}

func writeTotals(pdf *gofpdf.Fpdf, doc invoiceDoc) {
	inv := doc.invoice

	rows := []struct {
		label string
		value decimal.Decimal
		bold  bool
	}{
		{"Subtotal", inv.Subtotal, false},
		{"Tax", inv.TaxTotal, false},
		{"Total", inv.Total, true},
	}

	for _, row := range rows {
		style := ""
		if row.bold {
			style = "B"
		}

		pdf.SetFont("Helvetica", style, 10)
		pdf.CellFormat(140, lineHeight, row.label, "", 0, "R", false, 0, "")
		pdf.CellFormat(40, lineHeight, doc.money(row.value), "", 1, "R", false, 0, "")
	}

	pdf.Ln(4)
}

func writePayments(pdf *gofpdf.Fpdf, tr func(string) string, doc invoiceDoc) {
	inv := doc.invoice

	if len(doc.payments) > 0 {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(0, lineHeight, "Payments received", "B", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)

		for _, p := range doc.payments {
			pdf.CellFormat(30, lineHeight, p.PaidAt.Format("2006-01-02"), "", 0, "L", false, 0, "")
			pdf.CellFormat(30, lineHeight, string(p.Method), "", 0, "L", false, 0, "")
			pdf.CellFormat(80, lineHeight, tr(p.ReferenceNo), "", 0, "L", false, 0, "")
			pdf.CellFormat(40, lineHeight, doc.money(p.Amount), "", 1, "R", false, 0, "")
		}

		pdf.Ln(2)
	}

	paid := doc.paid()
	balance := inv.Total.Sub(paid)

	if inv.Status == invoice.StatusCancelled {
		balance = decimal.Zero
	}

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(140, lineHeight, "Paid", "", 0, "R", false, 0, "")
	pdf.CellFormat(40, lineHeight, doc.money(paid), "", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(140, lineHeight, "Balance due", "", 0, "R", false, 0, "")
	pdf.CellFormat(40, lineHeight, doc.money(balance), "", 1, "R", false, 0, "")
	pdf.Ln(6)
}

func writeFooter(pdf *gofpdf.Fpdf, tr func(string) string, doc invoiceDoc) {
	pdf.SetFont("Helvetica", "", 9)

	if doc.invoice.Notes != "" {
		pdf.MultiCell(0, 4.5, tr(doc.invoice.Notes), "", "L", false)
		pdf.Ln(2)
	}

	if doc.company.InvoiceFooter != "" {
		pdf.SetFont("Helvetica", "I", 8)
		pdf.MultiCell(0, 4, tr(doc.company.InvoiceFooter), "T", "C", false)
	}
}
