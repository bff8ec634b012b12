package settings

import "time"

const DefaultCurrency = "EUR"

// Settings is the company profile printed on invoices.
type Settings struct {
	CompanyName   string
	Address       string
	TaxID         string
	Email         string
	Currency      string
	LogoURL       string
	InvoiceFooter string
	UpdatedAt     time.Time
}

func Defaults() *Settings {
	return &Settings{Currency: DefaultCurrency}
}
