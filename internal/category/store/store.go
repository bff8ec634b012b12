package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/MrJamesThe3rd/tally/internal/apperr"
	"github.com/MrJamesThe3rd/tally/internal/category"
	"github.com/MrJamesThe3rd/tally/internal/database"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const selectCategoryColumns = `id, name, type, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanCategory(s scanner) (*category.Category, error) {
	var c category.Category

	var typ string
	if err := s.Scan(&c.ID, &c.Name, &typ, &c.CreatedAt); err != nil {
		return nil, err
	}

	c.Type = category.Type(typ)

	return &c, nil
}

func (s *Store) CreateCategory(ctx context.Context, c *category.Category) error {
	query := `
		INSERT INTO categories (id, name, type, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING created_at
	`

	if err := s.db.QueryRowContext(ctx, query, c.ID, c.Name, c.Type).Scan(&c.CreatedAt); err != nil {
		return fmt.Errorf("creating category: %w", database.MapError(err))
	}

	return nil
}

// GetCategory accepts any Querier so payment recording can check the
// category inside its locked transaction.
func GetCategory(ctx context.Context, q database.Querier, id snowflake.ID) (*category.Category, error) {
	query := `SELECT ` + selectCategoryColumns + ` FROM categories WHERE id = $1`

	c, err := scanCategory(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: category %s", apperr.ErrNotFound, id)
		}

		return nil, fmt.Errorf("getting category: %w", err)
	}

	return c, nil
}

func (s *Store) GetCategory(ctx context.Context, id snowflake.ID) (*category.Category, error) {
	return GetCategory(ctx, s.db, id)
}

func (s *Store) ListCategories(ctx context.Context, typ *category.Type) ([]*category.Category, error) {
	query := `SELECT ` + selectCategoryColumns + ` FROM categories`

	var args []any
	if typ != nil {
		query += ` WHERE type = $1`

		args = append(args, *typ)
	}

	query += ` ORDER BY type, name`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()

	categories := []*category.Category{}

	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}

		categories = append(categories, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating categories: %w", err)
	}

	return categories, nil
}

// UpdateCategory refuses to change the type of a category that live
// transactions still reference.
func (s *Store) UpdateCategory(ctx context.Context, c *category.Category) error {
	query := `
		UPDATE categories SET name = $1, type = $2
		WHERE id = $3
		  AND (type = $2 OR NOT EXISTS (
		      SELECT 1 FROM transactions WHERE category_id = $3 AND deleted_at IS NULL
		  ))
	`

	res, err := s.db.ExecContext(ctx, query, c.Name, c.Type, c.ID)
	if err != nil {
		return fmt.Errorf("updating category: %w", database.MapError(err))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}

	if n > 0 {
		return nil
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM categories WHERE id = $1)`, c.ID).Scan(&exists); err != nil {
		return fmt.Errorf("checking category: %w", err)
	}

	if exists {
		return fmt.Errorf("%w: category %s is used by transactions, its type cannot change", apperr.ErrConflict, c.ID)
	}

	return fmt.Errorf("%w: category %s", apperr.ErrNotFound, c.ID)
}

func (s *Store) DeleteCategory(ctx context.Context, id snowflake.ID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return fmt.Errorf("%w: category %s is in use", apperr.ErrConflict, id)
		}

		return fmt.Errorf("deleting category: %w", err)
	}

	return expectAffected(res, id)
}

func expectAffected(res sql.Result, id snowflake.ID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}

	if n == 0 {
		return fmt.Errorf("%w: category %s", apperr.ErrNotFound, id)
	}

	return nil
}
