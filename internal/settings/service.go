package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/MrJamesThe3rd/tally/internal/apperr"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=settings
type Repository interface {
	GetSettings(ctx context.Context) (*Settings, error)
	SaveSettings(ctx context.Context, s *Settings) error
}

var validate = validator.New()

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get returns the stored settings, or the defaults if none were saved yet.
func (s *Service) Get(ctx context.Context) (*Settings, error) {
	st, err := s.repo.GetSettings(ctx)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return Defaults(), nil
		}

		return nil, err
	}

	return st, nil
}

func (s *Service) Update(ctx context.Context, st Settings) (*Settings, error) {
	st.CompanyName = strings.TrimSpace(st.CompanyName)
	st.Email = strings.TrimSpace(st.Email)
	st.Currency = strings.ToUpper(strings.TrimSpace(st.Currency))

	if st.Currency == "" {
		st.Currency = DefaultCurrency
	}

	if err := validate.Var(st.Currency, "iso4217"); err != nil {
		return nil, fmt.Errorf("%w: unknown currency %q", apperr.ErrInvalidInput, st.Currency)
	}

	if st.Email != "" {
		if err := validate.Var(st.Email, "email"); err != nil {
			return nil, fmt.Errorf("%w: invalid email %q", apperr.ErrInvalidInput, st.Email)
		}
	}

	if st.LogoURL != "" {
		if err := validate.Var(st.LogoURL, "url"); err != nil {
			return nil, fmt.Errorf("%w: invalid logo url", apperr.ErrInvalidInput)
		}
	}

	if err := s.repo.SaveSettings(ctx, &st); err != nil {
		return nil, err
	}

	return &st, nil
}
