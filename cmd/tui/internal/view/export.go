package view

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/tally/internal/export"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

const exportTimeout = 2 * time.Minute

type exportStep int

const (
	exportStepRange exportStep = iota
	exportStepOptions
	exportStepRunning
	exportStepDone
)

type exportOptions struct {
	Dir  string
	Type string
}

// ExportModel writes the ledger CSV and the linked invoice PDFs of a
// timeframe to a directory.
type ExportModel struct {
	CommonModel
	exportService *export.Service

	step    exportStep
	picker  TimeframePicker
	filter  transaction.ListFilter
	label   string
	options *exportOptions
	form    *huh.Form
	spinner spinner.Model

	summary string
	count   int
	err     error
}

func NewExportModel(svc *export.Service) ExportModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return ExportModel{
		exportService: svc,
		picker:        NewTimeframePicker(TimeframeLastMonth),
		options:       &exportOptions{Dir: "./exports"},
		spinner:       s,
	}
}

func (m ExportModel) Title() string { return "Export Ledger" }

func (m ExportModel) ShortHelp() string {
	switch m.step {
	case exportStepRunning:
		return "Exporting..."
	case exportStepDone:
		return "Esc: back to menu"
	}

	return "Esc: back | Enter: confirm"
}

func (m ExportModel) Init() tea.Cmd {
	return nil
}

func (m ExportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case TimeframeSelectedMsg:
		m.filter = msg.Filter()
		m.label = "all time"

		if !msg.All {
			m.label = FormatDate(msg.Start) + " to " + FormatDate(msg.End)
		}

		m.form = m.optionsForm()
		m.step = exportStepOptions

		return m, m.form.Init()

	case exportDoneMsg:
		m.step = exportStepDone
		m.err = msg.err
		m.summary = msg.summary
		m.count = msg.count

		return m, nil
	}

	keyMsg, isKey := msg.(tea.KeyMsg)
	esc := isKey && keyMsg.Type == tea.KeyEsc

	switch m.step {
	case exportStepRange:
		if esc && m.picker.IsSelecting() {
			return m, Back
		}

		var cmd tea.Cmd
		m.picker, cmd = m.picker.Update(msg)

		return m, cmd

	case exportStepOptions:
		if esc {
			m.step = exportStepRange
			m.picker.Reset()

			return m, nil
		}

		return m.updateOptions(msg)

	case exportStepRunning:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd

	case exportStepDone:
		if esc {
			return m, Back
		}
	}

	return m, nil
}

func (m ExportModel) updateOptions(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	filter := m.filter
	if m.options.Type != "" {
		typ := transaction.Type(m.options.Type)
		filter.Type = &typ
	}

	m.step = exportStepRunning

	return m, tea.Batch(m.spinner.Tick, m.exportCmd(filter, m.options.Dir))
}

func (m ExportModel) optionsForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Output directory").
				Description("Created if missing").
				Value(&m.options.Dir),
			huh.NewSelect[string]().
				Title("Transactions").
				Options(
					huh.NewOption("All", ""),
					huh.NewOption("Income only", string(transaction.TypeIncome)),
					huh.NewOption("Expenses only", string(transaction.TypeExpense)),
				).
				Value(&m.options.Type),
		),
	).WithWidth(50).WithShowHelp(false)
}

func (m ExportModel) View() string {
	style := lipgloss.NewStyle().Padding(1)

	switch m.step {
	case exportStepRange:
		return style.Render(m.picker.View())
	case exportStepOptions:
		return style.Render(fmt.Sprintf("Export %s\n\n%s", m.label, m.form.View()))
	case exportStepRunning:
		return style.Render(fmt.Sprintf("%s Writing ledger and invoice PDFs (%s)...", m.spinner.View(), m.label))
	}

	if m.err != nil {
		return style.Render(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n\n(Esc to go back)")
	}

	if m.count == 0 {
		return style.Render("No transactions in " + m.label + ".\n\n(Esc to go back)")
	}

	header := successStyle.Bold(true).Render(fmt.Sprintf("Exported %d transactions to %s", m.count, m.options.Dir))

	return style.Render(lipgloss.JoinVertical(lipgloss.Left, header, "", m.summary, "", faintStyle.Render("(Esc to go back)")))
}

type exportDoneMsg struct {
	summary string
	count   int
	err     error
}

func (m ExportModel) exportCmd(filter transaction.ListFilter, dir string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), exportTimeout)
		defer cancel()

		items, err := m.exportService.Export(ctx, filter, dir)
		if err != nil {
			return exportDoneMsg{err: err}
		}

		return exportDoneMsg{summary: m.exportService.GenerateSummary(items), count: len(items)}
	}
}
