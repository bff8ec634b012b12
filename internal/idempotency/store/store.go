package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MrJamesThe3rd/tally/internal/apperr"
	"github.com/MrJamesThe3rd/tally/internal/idempotency"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Reserve inserts rec or returns the record already holding its key. A key
// released between the insert and the read is claimed again once; losing that
// race too reports the key as in use.
func (s *Store) Reserve(ctx context.Context, rec *idempotency.Record) (*idempotency.Record, bool, error) {
	for range 2 {
		created, err := s.insert(ctx, rec)
		if err != nil {
			return nil, false, err
		}

		if created {
			return rec, true, nil
		}

		existing, err := s.get(ctx, rec.Key)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}

		if err != nil {
			return nil, false, fmt.Errorf("reading idempotency key: %w", err)
		}

		return existing, false, nil
	}

	return nil, false, fmt.Errorf("%w: idempotency key %q is being reused concurrently, retry", apperr.ErrConflict, rec.Key)
}

func (s *Store) insert(ctx context.Context, rec *idempotency.Record) (bool, error) {
	query := `
		INSERT INTO idempotency_keys (key, request_hash, method, path, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (key) DO NOTHING
		RETURNING created_at
	`

	err := s.db.QueryRowContext(ctx, query, rec.Key, rec.RequestHash, rec.Method, rec.Path).Scan(&rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("reserving idempotency key: %w", err)
	}

	return true, nil
}

func (s *Store) get(ctx context.Context, key string) (*idempotency.Record, error) {
	query := `
		SELECT key, request_hash, method, path, COALESCE(response_status, 0),
		       COALESCE(response_content_type, ''), response_body, created_at, completed_at
		FROM idempotency_keys
		WHERE key = $1
	`

	var rec idempotency.Record

	err := s.db.QueryRowContext(ctx, query, key).Scan(
		&rec.Key, &rec.RequestHash, &rec.Method, &rec.Path,
		&rec.Status, &rec.ContentType, &rec.Body, &rec.CreatedAt, &rec.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	return &rec, nil
}

func (s *Store) Complete(ctx context.Context, key string, resp idempotency.Response) error {
	query := `
		UPDATE idempotency_keys
		SET response_status = $1, response_content_type = $2, response_body = $3, completed_at = NOW()
		WHERE key = $4
	`

	if _, err := s.db.ExecContext(ctx, query, resp.Status, resp.ContentType, resp.Body, key); err != nil {
		return fmt.Errorf("completing idempotency key: %w", err)
	}

	return nil
}

func (s *Store) Release(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM idempotency_keys WHERE key = $1 AND completed_at IS NULL`, key); err != nil {
		return fmt.Errorf("releasing idempotency key: %w", err)
	}

	return nil
}
