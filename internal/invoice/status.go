package invoice

import "github.com/shopspring/decimal"

// StatusEpsilon is the tolerance within which an invoice counts as fully paid.
var StatusEpsilon = decimal.New(1, -2)

// DeriveStatus returns the status an invoice moves to once paid has been
// received against total.
func DeriveStatus(current Status, paid, total decimal.Decimal) Status {
	if paid.Sub(total).Abs().LessThan(StatusEpsilon) {
		return StatusPaid
	}

	if paid.IsPositive() {
		return StatusPartial
	}

	return current
}
