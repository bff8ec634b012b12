package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MrJamesThe3rd/tally/internal/apperr"
	"github.com/MrJamesThe3rd/tally/internal/database"
	"github.com/MrJamesThe3rd/tally/internal/settings"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) GetSettings(ctx context.Context) (*settings.Settings, error) {
	query := `
		SELECT company_name, address, tax_id, email, currency, logo_url, invoice_footer, updated_at
		FROM settings
		WHERE id = 1
	`

	var st settings.Settings

	err := s.db.QueryRowContext(ctx, query).Scan(
		&st.CompanyName, &st.Address, &st.TaxID, &st.Email, &st.Currency, &st.LogoURL, &st.InvoiceFooter, &st.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: settings", apperr.ErrNotFound)
		}

		return nil, fmt.Errorf("getting settings: %w", err)
	}

	return &st, nil
}

func (s *Store) SaveSettings(ctx context.Context, st *settings.Settings) error {
	query := `
		INSERT INTO settings (id, company_name, address, tax_id, email, currency, logo_url, invoice_footer, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (id) DO UPDATE SET
			company_name = EXCLUDED.company_name,
			address = EXCLUDED.address,
			tax_id = EXCLUDED.tax_id,
			email = EXCLUDED.email,
			currency = EXCLUDED.currency,
			logo_url = EXCLUDED.logo_url,
			invoice_footer = EXCLUDED.invoice_footer,
			updated_at = NOW()
		RETURNING updated_at
	`

	err := s.db.QueryRowContext(ctx, query,
		st.CompanyName, st.Address, st.TaxID, st.Email, st.Currency, st.LogoURL, st.InvoiceFooter,
	).Scan(&st.UpdatedAt)
	if err != nil {
		return fmt.Errorf("saving settings: %w", database.MapError(err))
	}

	return nil
}
