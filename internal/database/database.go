package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const pingTimeout = 5 * time.Second

// Pool sizes the connection pool. Zero values keep the defaults.
type Pool struct {
	MaxOpen     int
	MaxIdle     int
	MaxLifetime time.Duration
}

var defaultPool = Pool{MaxOpen: 25, MaxIdle: 5, MaxLifetime: 5 * time.Minute}

type Option func(*Pool)

func WithPool(p Pool) Option {
	return func(dst *Pool) {
		if p.MaxOpen > 0 {
			dst.MaxOpen = p.MaxOpen
		}

		if p.MaxIdle > 0 {
			dst.MaxIdle = p.MaxIdle
		}

		if p.MaxLifetime > 0 {
			dst.MaxLifetime = p.MaxLifetime
		}
	}
}

// New opens a pgx-backed pool and checks that the server answers.
func New(connStr string, opts ...Option) (*sql.DB, error) {
	pool := defaultPool
	for _, opt := range opts {
		opt(&pool)
	}

	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(pool.MaxOpen)
	db.SetMaxIdleConns(min(pool.MaxIdle, pool.MaxOpen))
	db.SetConnMaxLifetime(pool.MaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return db, nil
}

// Querier is satisfied by both *sql.DB and *sql.Tx, so stores can share
// statements between plain calls and locked transactions.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
