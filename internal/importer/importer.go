// Package importer turns bank statement exports into transaction params.
package importer

import (
	"io"

	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

type Bank string

const (
	BankCGD Bank = "cgd"
)

// Banks lists the supported statement sources.
var Banks = []Bank{BankCGD}

type Importer interface {
	Parse(r io.Reader) ([]transaction.CreateParams, error)
}
