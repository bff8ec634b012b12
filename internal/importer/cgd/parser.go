// Package cgd reads Caixa Geral de Depósitos CSV exports.
package cgd

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/MrJamesThe3rd/tally/internal/apperr"
	enc "github.com/MrJamesThe3rd/tally/internal/encoding"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

const dateLayout = "02-01-2006"

// Importer finds the header row of a conta, extrato or cartão export and
// turns each movement below it into transaction params.
type Importer struct{}

func New() *Importer {
	return &Importer{}
}

func (i *Importer) Parse(r io.Reader) ([]transaction.CreateParams, error) {
	utf8r, err := enc.NewUTF8Reader(r)
	if err != nil {
		return nil, fmt.Errorf("detect encoding: %w", err)
	}

	reader := csv.NewReader(utf8r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: read csv: %w", apperr.ErrInvalidInput, err)
	}

	for idx, row := range rows {
		h := newHeader(row)

		for _, l := range layouts {
			if h.has(l) {
				return l.parse(h, rows[idx+1:], idx+2)
			}
		}
	}

	return nil, fmt.Errorf("%w: not a CGD export: no header for %s", apperr.ErrInvalidInput, layoutNames())
}

// parse skips rows without a date or a non-zero amount, which covers totals
// and page footers. firstRow is the 1-based line number of rows[0].
func (l layout) parse(h header, rows [][]string, firstRow int) ([]transaction.CreateParams, error) {
	var params []transaction.CreateParams

	for i, row := range rows {
		date, err := time.Parse(dateLayout, h.cell(row, l.date))
		if err != nil {
			continue
		}

		amount, typ, ok := l.movement(h, row)
		if !ok {
			continue
		}

		desc := h.cell(row, l.desc)
		if desc == "" {
			return nil, fmt.Errorf("%w: row %d: missing description", apperr.ErrInvalidInput, firstRow+i)
		}

		params = append(params, transaction.CreateParams{
			Type:           typ,
			Amount:         amount,
			Description:    desc,
			RawDescription: desc,
			Date:           date,
		})
	}

	return params, nil
}
