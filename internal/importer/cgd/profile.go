package cgd

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

// layout is the header set of one CGD export. Exactly one of signed or the
// debit/credit pair is used for the amount.
type layout struct {
	name   string
	date   string
	desc   string
	signed string
	debit  string
	credit string
}

// layouts are tried in order; the card export is the most specific.
var layouts = []layout{
	{name: "cartão", date: "Data", desc: "Descrição", debit: "Débito", credit: "Crédito"},
	{name: "extrato", date: "Data mov.", desc: "Descrição", signed: "Movimento"},
	{name: "conta", date: "Data mov.", desc: "Descrição", signed: "Montante"},
}

func layoutNames() string {
	names := make([]string, len(layouts))
	for i, l := range layouts {
		names[i] = l.name
	}

	return strings.Join(names, ", ")
}

func (l layout) headers() []string {
	if l.signed != "" {
		return []string{l.date, l.desc, l.signed}
	}

	return []string{l.date, l.desc, l.debit, l.credit}
}

// header maps trimmed column names to their position in the header row.
type header map[string]int

func newHeader(row []string) header {
	h := make(header, len(row))

	for i, cell := range row {
		if name := strings.TrimSpace(cell); name != "" {
			h[name] = i
		}
	}

	return h
}

func (h header) has(l layout) bool {
	for _, name := range l.headers() {
		if _, ok := h[name]; !ok {
			return false
		}
	}

	return true
}

func (h header) cell(row []string, name string) string {
	idx, ok := h[name]
	if !ok || idx >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[idx])
}

// movement reads the amount of a row as an unsigned value and a direction.
// ok is false for rows without a non-zero amount.
func (l layout) movement(h header, row []string) (amount decimal.Decimal, typ transaction.Type, ok bool) {
	if l.signed != "" {
		d, ok := nonZero(h.cell(row, l.signed))
		switch {
		case !ok:
			return decimal.Zero, "", false
		case d.IsNegative():
			return d.Neg(), transaction.TypeExpense, true
		default:
			return d, transaction.TypeIncome, true
		}
	}

	if d, ok := nonZero(h.cell(row, l.debit)); ok {
		return d.Abs(), transaction.TypeExpense, true
	}

	if d, ok := nonZero(h.cell(row, l.credit)); ok {
		return d.Abs(), transaction.TypeIncome, true
	}

	return decimal.Zero, "", false
}
