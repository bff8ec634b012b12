package invoice

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/apperr"
)

type ItemParams struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	TaxRate     decimal.Decimal
}

type totals struct {
	subtotal decimal.Decimal
	tax      decimal.Decimal
	total    decimal.Decimal
}

func hasAtMostPlaces(d decimal.Decimal, places int32) bool {
	return d.Equal(d.Round(places))
}

// buildItems validates the lines and prices each one: net = quantity × unit
// price, tax = net × rate, both rounded to cents.
func buildItems(params []ItemParams) ([]Item, totals, error) {
	if len(params) == 0 {
		return nil, totals{}, fmt.Errorf("%w: at least one item is required", apperr.ErrInvalidInput)
	}

	items := make([]Item, len(params))

	var t totals

	for i, p := range params {
		line := i + 1

		description := strings.TrimSpace(p.Description)
		if description == "" {
			return nil, totals{}, fmt.Errorf("%w: item %d: description is required", apperr.ErrInvalidInput, line)
		}

		if !p.Quantity.IsPositive() || !hasAtMostPlaces(p.Quantity, 3) {
			return nil, totals{}, fmt.Errorf("%w: item %d: quantity must be positive with at most three decimals", apperr.ErrInvalidInput, line)
		}

		if p.UnitPrice.IsNegative() || !hasAtMostPlaces(p.UnitPrice, 2) {
			return nil, totals{}, fmt.Errorf("%w: item %d: unit price must be non-negative with at most two decimals", apperr.ErrInvalidInput, line)
		}

		if p.TaxRate.IsNegative() || p.TaxRate.GreaterThan(decimal.NewFromInt(1)) || !hasAtMostPlaces(p.TaxRate, 4) {
			return nil, totals{}, fmt.Errorf("%w: item %d: tax rate must be between 0 and 1", apperr.ErrInvalidInput, line)
		}

		net := p.Quantity.Mul(p.UnitPrice).Round(2)
		tax := net.Mul(p.TaxRate).Round(2)

		items[i] = Item{
			Description: description,
			Quantity:    p.Quantity,
			UnitPrice:   p.UnitPrice,
			TaxRate:     p.TaxRate,
			Net:         net,
			Tax:         tax,
			Gross:       net.Add(tax),
		}

		t.subtotal = t.subtotal.Add(net)
		t.tax = t.tax.Add(tax)
	}

	t.total = t.subtotal.Add(t.tax)

	return items, t, nil
}
