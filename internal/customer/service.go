package customer

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/go-playground/validator/v10"

	"github.com/MrJamesThe3rd/tally/internal/apperr"
	"github.com/MrJamesThe3rd/tally/internal/ids"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=customer
type Repository interface {
	CreateCustomer(ctx context.Context, c *Customer) error
	GetCustomer(ctx context.Context, id snowflake.ID) (*Customer, error)
	ListCustomers(ctx context.Context, search string) ([]*Customer, error)
	UpdateCustomer(ctx context.Context, c *Customer) error
	DeleteCustomer(ctx context.Context, id snowflake.ID) error
}

var validate = validator.New()

type Service struct {
	repo Repository
	ids  ids.Generator
}

func NewService(repo Repository, gen ids.Generator) *Service {
	return &Service{repo: repo, ids: gen}
}

type Params struct {
	Name    string
	Email   string
	Phone   string
	Address string
	TaxID   string
}

func (p Params) normalize() (Params, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.Email = strings.TrimSpace(p.Email)
	p.Phone = strings.TrimSpace(p.Phone)
	p.Address = strings.TrimSpace(p.Address)
	p.TaxID = strings.TrimSpace(p.TaxID)

	if p.Name == "" {
		return p, fmt.Errorf("%w: name is required", apperr.ErrInvalidInput)
	}

	if p.Email != "" {
		if err := validate.Var(p.Email, "email"); err != nil {
			return p, fmt.Errorf("%w: invalid email %q", apperr.ErrInvalidInput, p.Email)
		}
	}

	return p, nil
}

func (p Params) apply(c *Customer) {
	c.Name = p.Name
	c.Email = p.Email
	c.Phone = p.Phone
	c.Address = p.Address
	c.TaxID = p.TaxID
}

func (s *Service) Create(ctx context.Context, params Params) (*Customer, error) {
	params, err := params.normalize()
	if err != nil {
		return nil, err
	}

	c := &Customer{ID: s.ids.Generate()}
	params.apply(c)

	if err := s.repo.CreateCustomer(ctx, c); err != nil {
		return nil, err
	}

	return c, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*Customer, error) {
	return s.repo.GetCustomer(ctx, id)
}

// List returns customers ordered by name; search filters on name or email.
func (s *Service) List(ctx context.Context, search string) ([]*Customer, error) {
	return s.repo.ListCustomers(ctx, strings.TrimSpace(search))
}

func (s *Service) Update(ctx context.Context, id snowflake.ID, params Params) (*Customer, error) {
	params, err := params.normalize()
	if err != nil {
		return nil, err
	}

	c, err := s.repo.GetCustomer(ctx, id)
	if err != nil {
		return nil, err
	}

	params.apply(c)

	if err := s.repo.UpdateCustomer(ctx, c); err != nil {
		return nil, err
	}

	return c, nil
}

func (s *Service) Delete(ctx context.Context, id snowflake.ID) error {
	return s.repo.DeleteCustomer(ctx, id)
}
