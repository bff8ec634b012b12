package view

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/tally/internal/category"
	"github.com/MrJamesThe3rd/tally/internal/matching"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

type reviewState int

const (
	reviewStateTimeframe reviewState = iota
	reviewStateLoading
	reviewStateReviewing
	reviewStateDone
)

// reviewInput holds the form bindings for the entry under review. It lives
// behind a pointer so the huh form and the model copies share it.
type reviewInput struct {
	Description string
	CategoryID  snowflake.ID
	Remember    bool
}

// ReviewModel walks the uncategorized ledger entries of a timeframe, one
// form per entry, and learns a matching rule from each answer on request.
type ReviewModel struct {
	CommonModel
	txService       *transaction.Service
	categoryService *category.Service
	matchingService *matching.Service

	state           reviewState
	timeframePicker TimeframePicker

	categories []*category.Category
	queue      []*transaction.Transaction
	current    *transaction.Transaction
	input      *reviewInput
	form       *huh.Form

	total   int
	saved   int
	skipped int
	status  string
}

func NewReviewModel(txSvc *transaction.Service, catSvc *category.Service, matchSvc *matching.Service) ReviewModel {
	return ReviewModel{
		txService:       txSvc,
		categoryService: catSvc,
		matchingService: matchSvc,
		timeframePicker: NewTimeframePicker(TimeframeThisMonth),
	}
}

func (m ReviewModel) Title() string { return "Categorize Transactions" }

func (m ReviewModel) ShortHelp() string {
	if m.state == reviewStateReviewing {
		return "Enter: next field / save | ctrl+n: skip | Esc: stop"
	}

	return "Esc: back | Enter: confirm"
}

func (m ReviewModel) Init() tea.Cmd {
	return nil
}

func (m ReviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case TimeframeSelectedMsg:
		m.state = reviewStateLoading
		return m, m.loadCmd(msg.Filter())

	case reviewLoadMsg:
		if msg.err != nil {
			m.state = reviewStateDone
			m.status = fmt.Sprintf("Error loading transactions: %v", msg.err)

			return m, nil
		}

		m.categories = msg.categories
		m.queue = msg.txs
		m.total = len(msg.txs)

		return m.next()

	case reviewSuggestMsg:
		return m.startForm(newReviewInput(m.current, msg.suggestion))

	case reviewSaveMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Error saving: %v", msg.err)
			return m.startForm(m.input)
		}

		m.saved++
		m.status = msg.warning

		return m.next()
	}

	switch m.state {
	case reviewStateTimeframe:
		return m.updateTimeframe(msg)
	case reviewStateReviewing:
		return m.updateForm(msg)
	case reviewStateDone:
		if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
			return m, Back
		}
	}

	return m, nil
}

func (m ReviewModel) updateTimeframe(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if keyMsg.Type == tea.KeyEsc && m.timeframePicker.IsSelecting() {
			return m, Back
		}
	}

	var cmd tea.Cmd
	m.timeframePicker, cmd = m.timeframePicker.Update(msg)

	return m, cmd
}

func (m ReviewModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			m.state = reviewStateDone
			m.status = "Review stopped."

			return m, nil
		case "ctrl+n":
			m.skipped++
			m.status = ""

			return m.next()
		}
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	return m, m.saveCmd(m.current, *m.input)
}

// next pops the queue and asks the matcher for a suggestion.
func (m ReviewModel) next() (tea.Model, tea.Cmd) {
	if len(m.queue) == 0 {
		m.current = nil
		m.form = nil
		m.state = reviewStateDone

		if m.total == 0 {
			m.status = "No uncategorized transactions in range."
		} else {
			m.status = fmt.Sprintf("Done. %d categorized, %d skipped.", m.saved, m.skipped)
		}

		return m, nil
	}

	m.current = m.queue[0]
	m.queue = m.queue[1:]
	m.state = reviewStateLoading

	return m, m.suggestCmd(m.current.RawDescription)
}

func newReviewInput(tx *transaction.Transaction, s *matching.Suggestion) *reviewInput {
	in := &reviewInput{Description: tx.Description, Remember: tx.RawDescription != ""}
	if s == nil {
		return in
	}

	in.Description = s.Description
	if s.CategoryID != nil {
		in.CategoryID = *s.CategoryID
	}

	return in
}

func (m ReviewModel) startForm(in *reviewInput) (tea.Model, tea.Cmd) {
	tx := m.current

	options := []huh.Option[snowflake.ID]{huh.NewOption("(none)", snowflake.ID(0))}
	for _, c := range m.categories {
		if c.Type == tx.Type {
			options = append(options, huh.NewOption(c.Name, c.ID))
		}
	}

	fields := []huh.Field{
		huh.NewInput().
			Key("description").
			Title("Description").
			Value(&in.Description).
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return fmt.Errorf("description cannot be empty")
				}

				return nil
			}),
		huh.NewSelect[snowflake.ID]().
			Key("category").
			Title("Category").
			Options(options...).
			Value(&in.CategoryID),
	}

	if tx.RawDescription != "" {
		fields = append(fields, huh.NewConfirm().
			Key("remember").
			Title("Remember for future imports?").
			Value(&in.Remember))
	}

	m.input = in
	m.form = huh.NewForm(huh.NewGroup(fields...)).WithWidth(60).WithShowHelp(false)
	m.state = reviewStateReviewing

	return m, m.form.Init()
}

func (m ReviewModel) View() string {
	style := lipgloss.NewStyle().Padding(1, 2)

	switch m.state {
	case reviewStateTimeframe:
		return style.Render(m.timeframePicker.View())
	case reviewStateLoading:
		return style.Render("Loading...")
	case reviewStateDone:
		return style.Render(m.status + "\n\n(Esc to go back)")
	}

	tx := m.current
	position := m.total - len(m.queue)

	info := fmt.Sprintf(
		"Reviewing %d/%d\n\nDate:   %s\nType:   %s\nAmount: %s\nRaw:    %s\n",
		position, m.total,
		FormatDate(tx.Date),
		tx.Type,
		FormatAmount(tx.Amount),
		tx.RawDescription,
	)

	content := info + "\n" + m.form.View()
	if m.status != "" {
		content = errorStyle.Render(m.status) + "\n\n" + content
	}

	return style.Render(content)
}

type reviewLoadMsg struct {
	txs        []*transaction.Transaction
	categories []*category.Category
	err        error
}

func (m ReviewModel) loadCmd(filter transaction.ListFilter) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		cats, err := m.categoryService.List(ctx, nil)
		if err != nil {
			return reviewLoadMsg{err: err}
		}

		txs, err := m.txService.List(ctx, filter)
		if err != nil {
			return reviewLoadMsg{err: err}
		}

		pending := make([]*transaction.Transaction, 0, len(txs))
		for _, tx := range txs {
			if tx.CategoryID == nil {
				pending = append(pending, tx)
			}
		}

		return reviewLoadMsg{txs: pending, categories: cats}
	}
}

type reviewSuggestMsg struct {
	suggestion *matching.Suggestion
}

// suggestCmd never fails the review: a lookup error just means no suggestion.
func (m ReviewModel) suggestCmd(raw string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		s, err := m.matchingService.Suggest(ctx, raw)
		if err != nil {
			return reviewSuggestMsg{}
		}

		return reviewSuggestMsg{suggestion: s}
	}
}

type reviewSaveMsg struct {
	err     error
	warning string
}

func (m ReviewModel) saveCmd(tx *transaction.Transaction, in reviewInput) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		desc := strings.TrimSpace(in.Description)
		params := transaction.UpdateParams{Description: &desc}

		var categoryID *snowflake.ID
		if in.CategoryID != 0 {
			categoryID = &in.CategoryID
			params.CategoryID = categoryID
		}

		if _, err := m.txService.Update(ctx, tx.ID, params); err != nil {
			return reviewSaveMsg{err: err}
		}

		if in.Remember && tx.RawDescription != "" {
			if _, err := m.matchingService.Learn(ctx, tx.RawDescription, desc, categoryID); err != nil {
				return reviewSaveMsg{warning: fmt.Sprintf("Saved, but learning the rule failed: %v", err)}
			}
		}

		return reviewSaveMsg{}
	}
}
