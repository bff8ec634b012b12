package importer

import (
	"fmt"
	"io"
	"strings"

	"github.com/MrJamesThe3rd/tally/internal/apperr"
	"github.com/MrJamesThe3rd/tally/internal/importer/cgd"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

type Service struct {
	importers map[Bank]Importer
}

func NewService() *Service {
	return &Service{
		importers: map[Bank]Importer{
			BankCGD: cgd.New(),
		},
	}
}

func (s *Service) Import(bank Bank, r io.Reader) ([]transaction.CreateParams, error) {
	imp, ok := s.importers[Bank(strings.ToLower(string(bank)))]
	if !ok {
		return nil, fmt.Errorf("%w: unknown bank %q", apperr.ErrInvalidInput, bank)
	}

	params, err := imp.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing %s export: %w", bank, err)
	}

	return params, nil
}
