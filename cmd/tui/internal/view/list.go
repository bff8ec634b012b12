package view

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/category"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

var (
	typeCycle  = []transaction.Type{"", transaction.TypeIncome, transaction.TypeExpense}
	rangeCycle = []Timeframe{TimeframeAll, TimeframeThisMonth, TimeframeLastMonth, TimeframeThisYear}
)

type ledgerMode int

const (
	ledgerBrowse ledgerMode = iota
	ledgerEdit
	ledgerDelete
)

type ledgerInput struct {
	Description string
	CategoryID  snowflake.ID
	Confirm     bool
}

// ListModel is the ledger browser. Filters cycle in place and every change
// reloads from the database.
type ListModel struct {
	CommonModel
	txService       *transaction.Service
	categoryService *category.Service
	now             func() time.Time

	mode       ledgerMode
	table      table.Model
	txs        []*transaction.Transaction
	categories []*category.Category

	typeIdx     int
	rangeIdx    int
	categoryIdx int // 0 is every category, i is categories[i-1]

	form *huh.Form
	edit *ledgerInput

	loading bool
	err     error
	status  string
}

func NewListModel(txSvc *transaction.Service, catSvc *category.Service) ListModel {
	return ListModel{
		txService:       txSvc,
		categoryService: catSvc,
		now:             time.Now,
		table: newStyledTable([]table.Column{
			{Title: "Date", Width: 12},
			{Title: "Type", Width: 8},
			{Title: "Amount", Width: 12},
			{Title: "Category", Width: 18},
			{Title: "Description", Width: 40},
			{Title: "Invoice", Width: 20},
		}),
		loading: true,
	}
}

func (m ListModel) Title() string { return "Ledger" }

func (m ListModel) ShortHelp() string {
	if m.mode != ledgerBrowse {
		return "Navigate form | Esc: cancel"
	}

	return "Esc: back | e: edit | x: delete | t/d/c: filters | r: refresh"
}

func (m ListModel) Init() tea.Cmd {
	return m.loadCmd()
}

// filter builds the ledger query for the current filter positions.
func (m ListModel) filter() transaction.ListFilter {
	f := transaction.ListFilter{}

	if typ := typeCycle[m.typeIdx]; typ != "" {
		f.Type = &typ
	}

	if tf := rangeCycle[m.rangeIdx]; tf != TimeframeAll {
		start, end := tf.Range(m.now())
		f.StartDate, f.EndDate = &start, &end
	}

	if m.categoryIdx > 0 && m.categoryIdx <= len(m.categories) {
		id := m.categories[m.categoryIdx-1].ID
		f.CategoryID = &id
	}

	return f
}

func (m ListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ledgerLoadedMsg:
		m.loading = false
		m.err = msg.err

		if msg.err == nil {
			m.txs = msg.txs
			m.categories = msg.categories
			m.refreshTable()
		}

		return m, nil

	case ledgerSavedMsg:
		m.mode = ledgerBrowse
		m.form, m.edit = nil, nil
		m.table.Focus()
		m.status = successStyle.Render(msg.status)

		if msg.err != nil {
			m.status = errorStyle.Render(fmt.Sprintf("Error: %v", msg.err))
		}

		return m, m.loadCmd()

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 10)
		return m, nil
	}

	if m.mode != ledgerBrowse {
		return m.updateForm(msg)
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch keyMsg.String() {
	case "esc":
		return m, Back
	case "r":
		return m.reload()
	case "t":
		m.typeIdx = (m.typeIdx + 1) % len(typeCycle)
		return m.reload()
	case "d":
		m.rangeIdx = (m.rangeIdx + 1) % len(rangeCycle)
		return m.reload()
	case "c":
		m.categoryIdx = (m.categoryIdx + 1) % (len(m.categories) + 1)
		return m.reload()
	case "e":
		return m.openForm(ledgerEdit)
	case "x":
		return m.openForm(ledgerDelete)
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m ListModel) reload() (tea.Model, tea.Cmd) {
	m.loading = true
	return m, m.loadCmd()
}

func (m ListModel) current() *transaction.Transaction {
	if i := m.table.Cursor(); i >= 0 && i < len(m.txs) {
		return m.txs[i]
	}

	return nil
}

func (m ListModel) openForm(mode ledgerMode) (tea.Model, tea.Cmd) {
	tx := m.current()
	if tx == nil {
		return m, nil
	}

	m.edit = &ledgerInput{Description: tx.Description}
	if tx.CategoryID != nil {
		m.edit.CategoryID = *tx.CategoryID
	}

	var group *huh.Group

	if mode == ledgerDelete {
		group = huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete %s %s on %s?", tx.Description, FormatAmount(tx.Amount), FormatDate(tx.Date))).
				Affirmative("Delete").
				Negative("Keep").
				Value(&m.edit.Confirm),
		)
	} else {
		options := []huh.Option[snowflake.ID]{huh.NewOption("(none)", snowflake.ID(0))}
		for _, c := range m.categories {
			if c.Type == tx.Type {
				options = append(options, huh.NewOption(c.Name, c.ID))
			}
		}

		group = huh.NewGroup(
			huh.NewInput().
				Title("Description").
				Value(&m.edit.Description).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("description cannot be empty")
					}

					return nil
				}),
			huh.NewSelect[snowflake.ID]().
				Title("Category").
				Options(options...).
				Value(&m.edit.CategoryID),
		)
	}

	m.mode = mode
	m.form = huh.NewForm(group).WithWidth(45).WithShowHelp(false)
	m.table.Blur()

	return m, m.form.Init()
}

func (m ListModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.mode = ledgerBrowse
		m.form, m.edit = nil, nil
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

	tx := m.current()
	if tx == nil {
		return m, nil
	}

	if m.mode == ledgerDelete {
		if !m.edit.Confirm {
			return m, func() tea.Msg { return ledgerSavedMsg{} }
		}

		return m, m.deleteCmd(tx)
	}

	return m, m.saveCmd(tx, *m.edit)
}

func (m ListModel) totals() (income, expense decimal.Decimal) {
	for _, tx := range m.txs {
		if tx.Type == transaction.TypeIncome {
			income = income.Add(tx.Amount)
		} else {
			expense = expense.Add(tx.Amount)
		}
	}

	return income, expense
}

func (m ListModel) filterLine() string {
	typeLabel := "All"
	if typ := typeCycle[m.typeIdx]; typ != "" {
		typeLabel = string(typ)
	}

	categoryLabel := "All"
	if m.categoryIdx > 0 && m.categoryIdx <= len(m.categories) {
		categoryLabel = m.categories[m.categoryIdx-1].Name
	}

	income, expense := m.totals()

	return fmt.Sprintf("[t] %s  [d] %s  [c] %s    in %s  out %s  net %s",
		activeStyle(typeLabel),
		activeStyle(rangeCycle[m.rangeIdx].String()),
		activeStyle(categoryLabel),
		FormatAmount(income), FormatAmount(expense), FormatAmount(income.Sub(expense)),
	)
}

func (m ListModel) View() string {
	pad := lipgloss.NewStyle().Padding(1)

	if m.loading {
		return pad.Render("Loading transactions...")
	}

	if m.err != nil {
		return pad.Render(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n\n(Esc to go back)")
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		m.filterLine(),
		"",
		lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240")).
			Render(m.table.View()),
	)

	if m.form != nil {
		raw := ""
		if tx := m.current(); tx != nil {
			raw = tx.RawDescription
		}

		panel := lipgloss.NewStyle().
			Padding(1, 2).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Width(48).
			Render(fmt.Sprintf("Bank text: %s\n\n%s", raw, m.form.View()))

		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel)
	}

	if m.status != "" {
		content = m.status + "\n" + content
	}

	return pad.Render(content)
}

func activeStyle(s string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Render(s)
}

func (m *ListModel) refreshTable() {
	rows := make([]table.Row, len(m.txs))
	for i, tx := range m.txs {
		invoice := ""
		if tx.InvoiceID != nil {
			invoice = tx.InvoiceID.String()
		}

		rows[i] = table.Row{
			FormatDate(tx.Date),
			string(tx.Type),
			FormatAmount(tx.Amount),
			tx.CategoryName,
			tx.Description,
			invoice,
		}
	}

	m.table.SetRows(rows)
}

type ledgerLoadedMsg struct {
	txs        []*transaction.Transaction
	categories []*category.Category
	err        error
}

type ledgerSavedMsg struct {
	status string
	err    error
}

func (m ListModel) loadCmd() tea.Cmd {
	filter := m.filter()

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		cats, err := m.categoryService.List(ctx, nil)
		if err != nil {
			return ledgerLoadedMsg{err: err}
		}

		txs, err := m.txService.List(ctx, filter)

		return ledgerLoadedMsg{txs: txs, categories: cats, err: err}
	}
}

func (m ListModel) saveCmd(tx *transaction.Transaction, in ledgerInput) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		desc := strings.TrimSpace(in.Description)
		params := transaction.UpdateParams{Description: &desc}

		switch {
		case in.CategoryID != 0:
			params.CategoryID = &in.CategoryID
		case tx.CategoryID != nil:
			params.ClearCategory = true
		}

		if _, err := m.txService.Update(ctx, tx.ID, params); err != nil {
			return ledgerSavedMsg{err: err}
		}

		return ledgerSavedMsg{status: "Saved."}
	}
}

func (m ListModel) deleteCmd(tx *transaction.Transaction) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		if err := m.txService.Delete(ctx, tx.ID); err != nil {
			return ledgerSavedMsg{err: err}
		}

		return ledgerSavedMsg{status: "Deleted."}
	}
}
