package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"

	"github.com/MrJamesThe3rd/tally/internal/apperr"
	"github.com/MrJamesThe3rd/tally/internal/database"
	"github.com/MrJamesThe3rd/tally/internal/matching"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

const selectRuleColumns = `id, raw_pattern, preferred_description, category_id, created_at`

func scanRule(s scanner) (*matching.Rule, error) {
	var r matching.Rule

	var categoryID sql.NullInt64
	if err := s.Scan(&r.ID, &r.RawPattern, &r.PreferredDescription, &categoryID, &r.CreatedAt); err != nil {
		return nil, err
	}

	if categoryID.Valid {
		r.CategoryID = new(snowflake.ID(categoryID.Int64))
	}

	return &r, nil
}

func (s *Store) FindMatch(ctx context.Context, rawDescription string) (*matching.Rule, error) {
	query := `
		SELECT ` + selectRuleColumns + `
		FROM description_rules
		WHERE $1 ILIKE '%' || raw_pattern || '%'
		ORDER BY LENGTH(raw_pattern) DESC, created_at DESC
		LIMIT 1
	`

	r, err := scanRule(s.db.QueryRowContext(ctx, query, rawDescription))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("finding match: %w", err)
	}

	return r, nil
}

// SaveRule inserts the rule, replacing any rule with the same pattern.
func (s *Store) SaveRule(ctx context.Context, r *matching.Rule) error {
	query := `
		INSERT INTO description_rules (id, raw_pattern, preferred_description, category_id, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (raw_pattern) DO UPDATE SET
			preferred_description = EXCLUDED.preferred_description,
			category_id = EXCLUDED.category_id
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query, r.ID, r.RawPattern, r.PreferredDescription, r.CategoryID).
		Scan(&r.ID, &r.CreatedAt)
	if err != nil {
		return fmt.Errorf("saving rule: %w", database.MapError(err))
	}

	return nil
}

func (s *Store) ListRules(ctx context.Context) ([]*matching.Rule, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+selectRuleColumns+` FROM description_rules ORDER BY raw_pattern`)
	if err != nil {
		return nil, fmt.Errorf("listing rules: %w", err)
	}
	defer rows.Close()

	rules := []*matching.Rule{}

	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning rule: %w", err)
		}

		rules = append(rules, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rules: %w", err)
	}

	return rules, nil
}

func (s *Store) DeleteRule(ctx context.Context, id snowflake.ID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM description_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting rule: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting rule: %w", err)
	}

	if n == 0 {
		return fmt.Errorf("%w: rule %s", apperr.ErrNotFound, id)
	}

	return nil
}
