package category

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"

	"github.com/MrJamesThe3rd/tally/internal/apperr"
	"github.com/MrJamesThe3rd/tally/internal/ids"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=category
type Repository interface {
	CreateCategory(ctx context.Context, c *Category) error
	GetCategory(ctx context.Context, id snowflake.ID) (*Category, error)
	ListCategories(ctx context.Context, typ *Type) ([]*Category, error)
	UpdateCategory(ctx context.Context, c *Category) error
	DeleteCategory(ctx context.Context, id snowflake.ID) error
}

type Service struct {
	repo Repository
	ids  ids.Generator
}

func NewService(repo Repository, gen ids.Generator) *Service {
	return &Service{repo: repo, ids: gen}
}

type Params struct {
	Name string
	Type Type
}

func (p Params) validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", apperr.ErrInvalidInput)
	}

	if !p.Type.Valid() {
		return fmt.Errorf("%w: type must be INCOME or EXPENSE", apperr.ErrInvalidInput)
	}

	return nil
}

func (s *Service) Create(ctx context.Context, params Params) (*Category, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	c := &Category{
		ID:   s.ids.Generate(),
		Name: strings.TrimSpace(params.Name),
		Type: params.Type,
	}
	if err := s.repo.CreateCategory(ctx, c); err != nil {
		return nil, err
	}

	return c, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*Category, error) {
	return s.repo.GetCategory(ctx, id)
}

func (s *Service) List(ctx context.Context, typ *Type) ([]*Category, error) {
	if typ != nil && !typ.Valid() {
		return nil, fmt.Errorf("%w: unknown category type %q", apperr.ErrInvalidInput, *typ)
	}

	return s.repo.ListCategories(ctx, typ)
}

// Update renames or retypes a category. The store rejects a type change with
// ErrConflict while live transactions use the category.
func (s *Service) Update(ctx context.Context, id snowflake.ID, params Params) (*Category, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	c, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}

	c.Name = strings.TrimSpace(params.Name)
	c.Type = params.Type

	if err := s.repo.UpdateCategory(ctx, c); err != nil {
		return nil, err
	}

	return c, nil
}

func (s *Service) Delete(ctx context.Context, id snowflake.ID) error {
	return s.repo.DeleteCategory(ctx, id)
}
