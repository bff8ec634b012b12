package matching

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"

	"github.com/MrJamesThe3rd/tally/internal/apperr"
	"github.com/MrJamesThe3rd/tally/internal/ids"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=matching
type Repository interface {
	FindMatch(ctx context.Context, rawDescription string) (*Rule, error)
	SaveRule(ctx context.Context, rule *Rule) error
	ListRules(ctx context.Context) ([]*Rule, error)
	DeleteRule(ctx context.Context, id snowflake.ID) error
}

type Service struct {
	repo Repository
	ids  ids.Generator
}

func NewService(repo Repository, gen ids.Generator) *Service {
	return &Service{repo: repo, ids: gen}
}

// Suggest returns the rule with the longest pattern contained in rawDescription.
// A nil suggestion means nothing matched.
func (s *Service) Suggest(ctx context.Context, rawDescription string) (*Suggestion, error) {
	rawDescription = strings.TrimSpace(rawDescription)
	if rawDescription == "" {
		return nil, nil
	}

	rule, err := s.repo.FindMatch(ctx, rawDescription)
	if err != nil || rule == nil {
		return nil, err
	}

	return &Suggestion{Description: rule.PreferredDescription, CategoryID: rule.CategoryID}, nil
}

// Learn remembers a mapping. Learning an existing pattern replaces it.
func (s *Service) Learn(ctx context.Context, rawPattern, preferredDescription string, categoryID *snowflake.ID) (*Rule, error) {
	rawPattern = strings.TrimSpace(rawPattern)
	preferredDescription = strings.TrimSpace(preferredDescription)

	if rawPattern == "" || preferredDescription == "" {
		return nil, fmt.Errorf("%w: pattern and description are required", apperr.ErrInvalidInput)
	}

	rule := &Rule{
		ID:                   s.ids.Generate(),
		RawPattern:           rawPattern,
		PreferredDescription: preferredDescription,
		CategoryID:           categoryID,
	}

	if err := s.repo.SaveRule(ctx, rule); err != nil {
		return nil, err
	}

	return rule, nil
}

func (s *Service) List(ctx context.Context) ([]*Rule, error) {
	return s.repo.ListRules(ctx)
}

func (s *Service) Delete(ctx context.Context, id snowflake.ID) error {
	return s.repo.DeleteRule(ctx, id)
}
