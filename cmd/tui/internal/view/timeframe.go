package view

import (
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

type Timeframe int

const (
	TimeframeThisMonth Timeframe = iota
	TimeframeLastMonth
	TimeframeThisQuarter
	TimeframeThisYear
	TimeframeLastYear
	TimeframeAll
	TimeframeCustom
)

var timeframeNames = map[Timeframe]string{
	TimeframeThisMonth:   "This Month",
	TimeframeLastMonth:   "Last Month",
	TimeframeThisQuarter: "This Quarter",
	TimeframeThisYear:    "This Year",
	TimeframeLastYear:    "Last Year",
	TimeframeAll:         "All Time",
	TimeframeCustom:      "Custom Range",
}

func (t Timeframe) String() string {
	if name, ok := timeframeNames[t]; ok {
		return name
	}

	return "Unknown"
}

// Range returns the inclusive calendar days covered by a preset relative to
// now. All and Custom have no preset range.
func (t Timeframe) Range(now time.Time) (start, end time.Time) {
	y, m, _ := now.Date()
	monthStart := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)

	switch t {
	case TimeframeThisMonth:
		return monthStart, monthStart.AddDate(0, 1, -1)
	case TimeframeLastMonth:
		return monthStart.AddDate(0, -1, 0), monthStart.AddDate(0, 0, -1)
	case TimeframeThisQuarter:
		qStart := time.Date(y, m-(m-1)%3, 1, 0, 0, 0, 0, time.UTC)
		return qStart, qStart.AddDate(0, 3, -1)
	case TimeframeThisYear:
		return time.Date(y, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(y, 12, 31, 0, 0, 0, 0, time.UTC)
	case TimeframeLastYear:
		return time.Date(y-1, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(y-1, 12, 31, 0, 0, 0, 0, time.UTC)
	}

	return time.Time{}, time.Time{}
}

// TimeframeSelectedMsg is emitted once a range is chosen. Start and End are
// zero when All is set.
type TimeframeSelectedMsg struct {
	Start time.Time
	End   time.Time
	All   bool
}

// Filter returns a ledger filter covering the selected range.
func (msg TimeframeSelectedMsg) Filter() transaction.ListFilter {
	if msg.All {
		return transaction.ListFilter{}
	}

	start, end := msg.Start, msg.End

	return transaction.ListFilter{StartDate: &start, EndDate: &end}
}

type customRange struct {
	Start string
	End   string
}

func parseDay(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, errors.New("use YYYY-MM-DD")
	}

	return t, nil
}

// TimeframePicker lets the user pick a preset or type a custom range.
type TimeframePicker struct {
	initial  Timeframe
	selected Timeframe
	now      func() time.Time

	custom *customRange
	form   *huh.Form
}

func NewTimeframePicker(initial Timeframe) TimeframePicker {
	return TimeframePicker{initial: initial, selected: initial, now: time.Now}
}

// IsSelecting reports whether the preset list is showing.
func (m TimeframePicker) IsSelecting() bool {
	return m.form == nil
}

func (m *TimeframePicker) Reset() {
	m.selected = m.initial
	m.form = nil
	m.custom = nil
}

func (m TimeframePicker) Update(msg tea.Msg) (TimeframePicker, tea.Cmd) {
	if m.form != nil {
		return m.updateCustom(msg)
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch keyMsg.Type {
	case tea.KeyUp:
		if m.selected > TimeframeThisMonth {
			m.selected--
		}
	case tea.KeyDown:
		if m.selected < TimeframeCustom {
			m.selected++
		}
	case tea.KeyEnter:
		return m.choose()
	}

	return m, nil
}

func (m TimeframePicker) choose() (TimeframePicker, tea.Cmd) {
	switch m.selected {
	case TimeframeAll:
		return m, func() tea.Msg { return TimeframeSelectedMsg{All: true} }
	case TimeframeCustom:
		start, end := TimeframeThisMonth.Range(m.now())
		m.custom = &customRange{Start: FormatDate(start), End: FormatDate(end)}
		m.form = m.customForm()

		return m, m.form.Init()
	}

	start, end := m.selected.Range(m.now())

	return m, func() tea.Msg { return TimeframeSelectedMsg{Start: start, End: end} }
}

func (m TimeframePicker) customForm() *huh.Form {
	custom := m.custom

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Start date").
				Value(&custom.Start).
				Validate(func(s string) error {
					_, err := parseDay(s)
					return err
				}),
			huh.NewInput().
				Title("End date").
				Value(&custom.End).
				Validate(func(s string) error {
					end, err := parseDay(s)
					if err != nil {
						return err
					}

					if start, err := parseDay(custom.Start); err == nil && end.Before(start) {
						return errors.New("end date is before start date")
					}

					return nil
				}),
		),
	).WithWidth(40).WithShowHelp(false)
}

func (m TimeframePicker) updateCustom(msg tea.Msg) (TimeframePicker, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.form = nil
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	start, _ := parseDay(m.custom.Start)
	end, _ := parseDay(m.custom.End)
	m.form = nil

	return m, func() tea.Msg { return TimeframeSelectedMsg{Start: start, End: end} }
}

func (m TimeframePicker) View() string {
	if m.form != nil {
		return "Custom range\n\n" + m.form.View() + faintStyle.Render("\n(Esc to go back)")
	}

	var b strings.Builder

	b.WriteString("Select timeframe:\n\n")

	for tf := TimeframeThisMonth; tf <= TimeframeCustom; tf++ {
		cursor := " "
		if tf == m.selected {
			cursor = ">"
		}

		fmt.Fprintf(&b, "%s %s\n", cursor, tf)
	}

	b.WriteString(faintStyle.Render("\n(Enter to select, Esc to go back)"))

	return b.String()
}
