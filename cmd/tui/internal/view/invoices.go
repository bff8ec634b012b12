package view

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/category"
	"github.com/MrJamesThe3rd/tally/internal/export"
	"github.com/MrJamesThe3rd/tally/internal/invoice"
)

type invoiceState int

const (
	invoiceStateBrowse invoiceState = iota
	invoiceStatePayment
)

var (
	statusFilters = []*invoice.Status{
		nil,
		new(invoice.StatusDraft),
		new(invoice.StatusIssued),
		new(invoice.StatusPartial),
		new(invoice.StatusPaid),
		new(invoice.StatusCancelled),
	}
	statusLabels = []string{"All", "Draft", "Issued", "Partial", "Paid", "Cancelled"}
	methods      = []invoice.Method{
		invoice.MethodTransfer,
		invoice.MethodCash,
		invoice.MethodCard,
		invoice.MethodCheque,
		invoice.MethodOther,
	}
)

type paymentInput struct {
	Amount            string
	Method            invoice.Method
	ReferenceNo       string
	CreateTransaction bool
	CategoryID        snowflake.ID
}

// InvoiceModel lists invoices and drives their lifecycle: issue, cancel,
// record payments and render PDFs.
type InvoiceModel struct {
	CommonModel
	invoiceService  *invoice.Service
	categoryService *category.Service
	exportService   *export.Service
	outputDir       string

	state    invoiceState
	table    table.Model
	invoices []*invoice.Invoice
	form     *huh.Form
	payment  *paymentInput
	target   *invoice.Invoice

	statusFilterIdx int
	loading         bool
	err             error
	status          string
}

func NewInvoiceModel(invSvc *invoice.Service, catSvc *category.Service, expSvc *export.Service) InvoiceModel {
	columns := []table.Column{
		{Title: "Number", Width: 14},
		{Title: "Customer", Width: 24},
		{Title: "Status", Width: 10},
		{Title: "Issued", Width: 12},
		{Title: "Due", Width: 12},
		{Title: "Total", Width: 12},
	}

	t := newStyledTable(columns)

	return InvoiceModel{
		invoiceService:  invSvc,
		categoryService: catSvc,
		exportService:   expSvc,
		outputDir:       "./exports",
		table:           t,
		loading:         true,
	}
}

func (m InvoiceModel) Title() string { return "Invoices" }

func (m InvoiceModel) ShortHelp() string {
	if m.state == invoiceStatePayment {
		return "Navigate form | Esc: cancel"
	}

	return "Esc: back | p: payment | i: issue | c: cancel | f: PDF | s: status filter | r: refresh"
}

func (m InvoiceModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m InvoiceModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadInvoicesMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.err = nil
		m.invoices = msg.invoices
		m.refreshTable()

		return m, nil

	case paymentFormMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Error: %v", msg.err)
			return m, nil
		}

		return m.startPaymentForm(msg.categories)

	case invoiceActionMsg:
		m.state = invoiceStateBrowse
		m.form = nil
		m.table.Focus()

		if msg.err != nil {
			m.status = errorStyle.Render(fmt.Sprintf("Error: %v", msg.err))
			return m, nil
		}

		m.status = successStyle.Render(msg.status)

		return m, m.loadCmd()

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 10)
		return m, nil
	}

	if m.state == invoiceStatePayment {
		return m.updatePayment(msg)
	}

	return m.updateBrowse(msg)
}

func (m InvoiceModel) selected() *invoice.Invoice {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.invoices) {
		return nil
	}

	return m.invoices[idx]
}

func (m InvoiceModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)

		return m, cmd
	}

	switch keyMsg.String() {
	case "esc":
		return m, Back
	case "r":
		m.loading = true
		return m, m.loadCmd()
	case "s":
		m.statusFilterIdx = (m.statusFilterIdx + 1) % len(statusFilters)
		m.loading = true

		return m, m.loadCmd()
	case "i":
		if inv := m.selected(); inv != nil {
			return m, m.issueCmd(inv)
		}

		return m, nil
	case "c":
		if inv := m.selected(); inv != nil {
			return m, m.cancelCmd(inv)
		}

		return m, nil
	case "f":
		if inv := m.selected(); inv != nil {
			return m, m.pdfCmd(inv)
		}

		return m, nil
	case "p":
		inv := m.selected()
		if inv == nil {
			return m, nil
		}

		m.target = inv

		return m, m.loadIncomeCategoriesCmd()
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m InvoiceModel) startPaymentForm(categories []*category.Category) (tea.Model, tea.Cmd) {
	m.payment = &paymentInput{Method: invoice.MethodTransfer, CreateTransaction: len(categories) > 0}

	methodOptions := make([]huh.Option[invoice.Method], 0, len(methods))
	for _, method := range methods {
		methodOptions = append(methodOptions, huh.NewOption(string(method), method))
	}

	categoryOptions := []huh.Option[snowflake.ID]{huh.NewOption("(none)", snowflake.ID(0))}
	for _, c := range categories {
		categoryOptions = append(categoryOptions, huh.NewOption(c.Name, c.ID))
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("amount").
				Title("Amount").
				Placeholder("0.00").
				Value(&m.payment.Amount).
				Validate(validatePaymentAmount),

			huh.NewSelect[invoice.Method]().
				Key("method").
				Title("Method").
				Options(methodOptions...).
				Value(&m.payment.Method),

			huh.NewInput().
				Key("reference").
				Title("Reference").
				Value(&m.payment.ReferenceNo),

			huh.NewConfirm().
				Key("create_transaction").
				Title("Record income in the ledger?").
				Value(&m.payment.CreateTransaction),

			huh.NewSelect[snowflake.ID]().
				Key("category").
				Title("Income category").
				Options(categoryOptions...).
				Value(&m.payment.CategoryID),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = invoiceStatePayment
	m.table.Blur()

	return m, m.form.Init()
}

func validatePaymentAmount(s string) error {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return errors.New("enter an amount like 120.50")
	}

	if !d.IsPositive() {
		return errors.New("amount must be greater than zero")
	}

	return nil
}

func (m InvoiceModel) updatePayment(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.state = invoiceStateBrowse
		m.form = nil
		m.table.Focus()

		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	return m, m.paymentCmd(m.target, *m.payment)
}

func (m InvoiceModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading invoices...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	}

	header := fmt.Sprintf("Filter: [s] Status: %s", activeStyle(statusLabels[m.statusFilterIdx]))

	tableView := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(m.table.View())

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		tableView,
	)

	if m.state == invoiceStatePayment && m.form != nil && m.target != nil {
		panel := lipgloss.NewStyle().
			Padding(1, 2).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Width(48).
			Render(fmt.Sprintf("Record Payment\n\nInvoice %s (total %s)\n\n%s",
				m.target.Number, FormatAmount(m.target.Total), m.form.View()))

		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel)
	}

	if m.status != "" {
		content = m.status + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func optionalDate(inv *invoice.Invoice, due bool) string {
	d := inv.IssueDate
	if due {
		d = inv.DueDate
	}

	if d == nil {
		return ""
	}

	return FormatDate(*d)
}

func (m *InvoiceModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.invoices))
	for _, inv := range m.invoices {
		rows = append(rows, table.Row{
			inv.Number,
			inv.CustomerName,
			string(inv.Status),
			optionalDate(inv, false),
			optionalDate(inv, true),
			FormatAmount(inv.Total),
		})
	}

	m.table.SetRows(rows)
}

// Messages

type loadInvoicesMsg struct {
	invoices []*invoice.Invoice
	err      error
}

type paymentFormMsg struct {
	categories []*category.Category
	err        error
}

type invoiceActionMsg struct {
	status string
	err    error
}

func (m InvoiceModel) loadCmd() tea.Cmd {
	filter := invoice.ListFilter{Status: statusFilters[m.statusFilterIdx]}

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		invoices, err := m.invoiceService.List(ctx, filter)

		return loadInvoicesMsg{invoices: invoices, err: err}
	}
}

func (m InvoiceModel) loadIncomeCategoriesCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		cats, err := m.categoryService.List(ctx, new(category.TypeIncome))

		return paymentFormMsg{categories: cats, err: err}
	}
}

func (m InvoiceModel) issueCmd(inv *invoice.Invoice) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		if _, err := m.invoiceService.Issue(ctx, inv.ID, invoice.IssueParams{}); err != nil {
			return invoiceActionMsg{err: err}
		}

		return invoiceActionMsg{status: fmt.Sprintf("Invoice %s issued.", inv.Number)}
	}
}

func (m InvoiceModel) cancelCmd(inv *invoice.Invoice) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		if _, err := m.invoiceService.Cancel(ctx, inv.ID); err != nil {
			return invoiceActionMsg{err: err}
		}

		return invoiceActionMsg{status: fmt.Sprintf("Invoice %s cancelled.", inv.Number)}
	}
}

func (m InvoiceModel) paymentCmd(inv *invoice.Invoice, in paymentInput) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		amount, err := decimal.NewFromString(strings.TrimSpace(in.Amount))
		if err != nil {
			return invoiceActionMsg{err: err}
		}

		params := invoice.PaymentParams{
			Amount:            amount,
			Method:            in.Method,
			ReferenceNo:       strings.TrimSpace(in.ReferenceNo),
			CreateTransaction: in.CreateTransaction,
		}

		if in.CategoryID != 0 {
			params.CategoryID = &in.CategoryID
		}

		res, err := m.invoiceService.RecordPayment(ctx, inv.ID, params)
		if err != nil {
			return invoiceActionMsg{err: err}
		}

		return invoiceActionMsg{status: fmt.Sprintf(
			"Payment of %s recorded on %s. Status %s, remaining %s.",
			FormatAmount(res.Payment.Amount), inv.Number, res.Status, FormatAmount(res.Remaining),
		)}
	}
}

func (m InvoiceModel) pdfCmd(inv *invoice.Invoice) tea.Cmd {
	dir := m.outputDir

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		if err := os.MkdirAll(dir, 0o750); err != nil {
			return invoiceActionMsg{err: err}
		}

		path := filepath.Join(dir, export.InvoiceFilename(inv))

		f, err := os.Create(path)
		if err != nil {
			return invoiceActionMsg{err: err}
		}
		defer f.Close()

		if err := m.exportService.RenderInvoicePDF(ctx, inv.ID, f); err != nil {
			return invoiceActionMsg{err: err}
		}

		return invoiceActionMsg{status: "Wrote " + path}
	}
}
