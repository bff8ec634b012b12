package idempotency

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MrJamesThe3rd/tally/internal/apperr"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=idempotency
type Repository interface {
	// Reserve inserts rec unless the key exists. It returns the stored record
	// and whether this call created it.
	Reserve(ctx context.Context, rec *Record) (*Record, bool, error)
	Complete(ctx context.Context, key string, resp Response) error
	Release(ctx context.Context, key string) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Begin claims key for the request. A nil record means the caller owns the
// key and must Finish it; a non-nil record is a stored response to replay.
func (s *Service) Begin(ctx context.Context, key, hash, method, path string) (*Record, error) {
	if len(key) > MaxKeyLength {
		return nil, fmt.Errorf("%w: idempotency key longer than %d characters", apperr.ErrInvalidInput, MaxKeyLength)
	}

	rec, created, err := s.repo.Reserve(ctx, &Record{Key: key, RequestHash: hash, Method: method, Path: path})
	if err != nil {
		return nil, err
	}

	if created {
		return nil, nil
	}

	if rec.RequestHash != hash {
		return nil, fmt.Errorf("%w: idempotency key reused with a different request", apperr.ErrConflict)
	}

	if !rec.Completed() {
		return nil, fmt.Errorf("%w: request with this idempotency key is still in progress", apperr.ErrConflict)
	}

	return rec, nil
}

// Response is what gets replayed for a completed key.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

// Finish stores the response for key. Server errors release the key so the
// request can be retried.
func (s *Service) Finish(ctx context.Context, key string, resp Response) {
	var err error
	if resp.Status >= 500 {
		err = s.repo.Release(ctx, key)
	} else {
		err = s.repo.Complete(ctx, key, resp)
	}

	if err != nil {
		slog.Error("failed to finish idempotent request", "key", key, "status", resp.Status, "error", err)
	}
}
