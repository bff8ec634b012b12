package view

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/tally/internal/importer"
	"github.com/MrJamesThe3rd/tally/internal/matching"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

const importTimeout = 2 * time.Minute

type importStep int

const (
	importStepBank importStep = iota
	importStepFile
	importStepWorking
	importStepPreview
	importStepConflicts
	importStepDone
)

// ImportModel reads a bank export, applies learned rules, previews the rows
// and resolves duplicates before anything is written.
type ImportModel struct {
	CommonModel
	txService     *transaction.Service
	importService *importer.Service
	matchService  *matching.Service
	categories    transaction.CategoryLookup

	step       importStep
	bankCursor int
	bank       importer.Bank
	picker     filepicker.Model

	params  []transaction.CreateParams
	matched int
	preview table.Model

	fresh     []transaction.CreateParams
	conflicts []transaction.Conflict
	keep      map[int]bool
	conflictT table.Model

	message string
	err     error
}

func NewImportModel(
	txSvc *transaction.Service,
	impSvc *importer.Service,
	matchSvc *matching.Service,
	categories transaction.CategoryLookup,
) ImportModel {
	fp := filepicker.New()
	fp.CurrentDirectory, _ = os.Getwd()
	fp.AllowedTypes = []string{".csv", ".CSV"}
	fp.DirAllowed = false
	fp.FileAllowed = true
	fp.SetHeight(15)

	return ImportModel{
		txService:     txSvc,
		importService: impSvc,
		matchService:  matchSvc,
		categories:    categories,
		picker:        fp,
	}
}

func (m ImportModel) Title() string { return "Import Bank Export" }

func (m ImportModel) ShortHelp() string {
	switch m.step {
	case importStepPreview:
		return "Enter: import | Esc: cancel"
	case importStepConflicts:
		return "Space: keep/drop | a: keep all | n: drop all | Enter: confirm | Esc: cancel"
	}

	return "Esc: back | Enter: select"
}

func (m ImportModel) Init() tea.Cmd {
	return nil
}

func (m ImportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case parsedMsg:
		if msg.err != nil {
			return m.finish("", msg.err), nil
		}

		if len(msg.params) == 0 {
			return m.finish("The file has no movements.", nil), nil
		}

		m.params = msg.params
		m.matched = msg.matched
		m.preview = previewTable(msg.params)
		m.step = importStepPreview

		return m, nil

	case batchMsg:
		if msg.err != nil {
			return m.finish("", msg.err), nil
		}

		if len(msg.result.Conflicts) == 0 {
			return m.finish(fmt.Sprintf("Imported %d transactions.", len(msg.result.Imported)), nil), nil
		}

		m.fresh = msg.result.New
		m.conflicts = msg.result.Conflicts
		m.keep = make(map[int]bool)
		m.conflictT = newStyledTable([]table.Column{
			{Title: "Keep", Width: 5},
			{Title: "Date", Width: 12},
			{Title: "Type", Width: 8},
			{Title: "Amount", Width: 12},
			{Title: "Incoming", Width: 32},
			{Title: "Already in ledger as", Width: 32},
		})
		m.refreshConflicts()
		m.step = importStepConflicts

		return m, nil

	case committedMsg:
		if msg.err != nil {
			return m.finish("", msg.err), nil
		}

		return m.finish(fmt.Sprintf("Imported %d transactions.", msg.count), nil), nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc {
			return m.back()
		}
	}

	switch m.step {
	case importStepBank:
		return m.updateBank(msg)
	case importStepFile:
		return m.updateFile(msg)
	case importStepPreview:
		return m.updatePreview(msg)
	case importStepConflicts:
		return m.updateConflicts(msg)
	}

	return m, nil
}

func (m ImportModel) finish(message string, err error) ImportModel {
	m.step = importStepDone
	m.message = message
	m.err = err

	return m
}

func (m ImportModel) back() (tea.Model, tea.Cmd) {
	switch m.step {
	case importStepBank:
		return m, Back
	case importStepWorking:
		return m, nil
	}

	m.step = importStepBank
	m.params, m.fresh, m.conflicts = nil, nil, nil
	m.err = nil
	m.message = ""

	return m, nil
}

func (m ImportModel) updateBank(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch keyMsg.Type {
	case tea.KeyUp:
		m.bankCursor = max(m.bankCursor-1, 0)
	case tea.KeyDown:
		m.bankCursor = min(m.bankCursor+1, len(importer.Banks)-1)
	case tea.KeyEnter:
		m.bank = importer.Banks[m.bankCursor]
		m.step = importStepFile

		return m, m.picker.Init()
	}

	return m, nil
}

func (m ImportModel) updateFile(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)

	if ok, path := m.picker.DidSelectFile(msg); ok {
		m.step = importStepWorking
		m.message = "Reading " + path + "..."

		return m, m.parseCmd(path)
	}

	return m, cmd
}

func (m ImportModel) updatePreview(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEnter {
		m.step = importStepWorking
		m.message = "Checking for duplicates..."

		return m, m.batchCmd(m.params)
	}

	var cmd tea.Cmd
	m.preview, cmd = m.preview.Update(msg)

	return m, cmd
}

func (m ImportModel) updateConflicts(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case " ":
			i := m.conflictT.Cursor()
			m.keep[i] = !m.keep[i]
			m.refreshConflicts()

			return m, nil
		case "a", "n":
			for i := range m.conflicts {
				m.keep[i] = keyMsg.String() == "a"
			}

			m.refreshConflicts()

			return m, nil
		case "enter":
			params := append([]transaction.CreateParams{}, m.fresh...)
			for i, c := range m.conflicts {
				if m.keep[i] {
					params = append(params, c.Incoming)
				}
			}

			m.step = importStepWorking
			m.message = "Saving..."

			return m, m.commitCmd(params)
		}
	}

	var cmd tea.Cmd
	m.conflictT, cmd = m.conflictT.Update(msg)

	return m, cmd
}

func (m *ImportModel) refreshConflicts() {
	rows := make([]table.Row, len(m.conflicts))
	for i, c := range m.conflicts {
		mark := "[ ]"
		if m.keep[i] {
			mark = "[x]"
		}

		rows[i] = table.Row{
			mark,
			FormatDate(c.Incoming.Date),
			string(c.Incoming.Type),
			FormatAmount(c.Incoming.Amount),
			c.Incoming.Description,
			c.Existing.Description,
		}
	}

	m.conflictT.SetRows(rows)
}

func previewTable(params []transaction.CreateParams) table.Model {
	t := newStyledTable([]table.Column{
		{Title: "Date", Width: 12},
		{Title: "Type", Width: 8},
		{Title: "Amount", Width: 12},
		{Title: "Description", Width: 36},
		{Title: "Rule", Width: 5},
	})

	rows := make([]table.Row, len(params))
	for i, p := range params {
		rule := ""
		if ruleApplied(p) {
			rule = "yes"
		}

		rows[i] = table.Row{FormatDate(p.Date), string(p.Type), FormatAmount(p.Amount), p.Description, rule}
	}

	t.SetRows(rows)

	return t
}

func ruleApplied(p transaction.CreateParams) bool {
	return p.CategoryID != nil || p.Description != p.RawDescription
}

func (m ImportModel) View() string {
	style := lipgloss.NewStyle().Padding(1, 2)

	switch m.step {
	case importStepBank:
		s := "Select bank:\n\n"

		for i, bank := range importer.Banks {
			cursor := " "
			if i == m.bankCursor {
				cursor = ">"
			}

			s += fmt.Sprintf("%s %s\n", cursor, bank)
		}

		return style.Render(s)

	case importStepFile:
		return style.Render(fmt.Sprintf("Select the %s export:\n\n%s", m.bank, m.picker.View()))

	case importStepWorking:
		return style.Render(m.message)

	case importStepPreview:
		header := fmt.Sprintf("%d movements, %d matched by rules. Enter to import.", len(m.params), m.matched)
		return style.Render(header + "\n\n" + m.preview.View())

	case importStepConflicts:
		header := fmt.Sprintf("%d new, %d already in the ledger. Mark the ones to import anyway.", len(m.fresh), len(m.conflicts))
		return style.Render(header + "\n\n" + m.conflictT.View())
	}

	if m.err != nil {
		return style.Render(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n\n(Esc to go back)")
	}

	return style.Render(successStyle.Render(m.message) + "\n\n(Esc to go back)")
}

type parsedMsg struct {
	params  []transaction.CreateParams
	matched int
	err     error
}

type batchMsg struct {
	result *transaction.ImportResult
	err    error
}

type committedMsg struct {
	count int
	err   error
}

func (m ImportModel) parseCmd(path string) tea.Cmd {
	bank := m.bank

	return func() tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return parsedMsg{err: err}
		}
		defer f.Close()

		params, err := m.importService.Import(bank, f)
		if err != nil {
			return parsedMsg{err: err}
		}

		ctx, cancel := context.WithTimeout(context.Background(), importTimeout)
		defer cancel()

		m.matchService.Apply(ctx, params, m.categories)

		matched := 0
		for _, p := range params {
			if ruleApplied(p) {
				matched++
			}
		}

		return parsedMsg{params: params, matched: matched}
	}
}

func (m ImportModel) batchCmd(params []transaction.CreateParams) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), importTimeout)
		defer cancel()

		result, err := m.txService.ImportBatch(ctx, params)

		return batchMsg{result: result, err: err}
	}
}

func (m ImportModel) commitCmd(params []transaction.CreateParams) tea.Cmd {
	return func() tea.Msg {
		if len(params) == 0 {
			return committedMsg{}
		}

		ctx, cancel := context.WithTimeout(context.Background(), importTimeout)
		defer cancel()

		txs, err := m.txService.CreateBatch(ctx, params)

		return committedMsg{count: len(txs), err: err}
	}
}
