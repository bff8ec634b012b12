package importer_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/tally/internal/apperr"
	"github.com/MrJamesThe3rd/tally/internal/importer"
)

func TestService_Import(t *testing.T) {
	svc := importer.NewService()

	t.Run("KnownBankCaseInsensitive", func(t *testing.T) {
		params, err := svc.Import("CGD", strings.NewReader("Data mov.;Descrição;Montante\n30-01-2026;TEST;-10,00\n"))
		require.NoError(t, err)
		assert.Len(t, params, 1)
	})

	t.Run("UnknownBank", func(t *testing.T) {
		_, err := svc.Import("bpi", strings.NewReader(""))
		assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	})

	t.Run("UnparseableFile", func(t *testing.T) {
		_, err := svc.Import(importer.BankCGD, strings.NewReader("nothing;here\n"))
		assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	})
}
