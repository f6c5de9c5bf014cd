// internal/database/db.go
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrCorruptRow indicates a stored payload failed schema decoding. The core
// never operates on unchecked shapes; a decode failure is surfaced as this
// distinct error kind rather than a zero value.
var ErrCorruptRow = errors.New("stored row failed schema decode")

// ErrStaleTurn indicates a conditional state write lost the fencing race:
// the row's turn_count no longer matched the expected value at commit time.
var ErrStaleTurn = errors.New("turn_count precondition failed")

// ErrNotFound indicates the requested row does not exist.
var ErrNotFound = errors.New("row not found")

// Store wraps a pgx connection pool. It is constructed explicitly and
// passed to its consumers; there is no package-level pool.
type Store struct {
	pool *pgxpool.Pool
}

// New connects a Store to the given postgres DSN and verifies the
// connection with a bounded ping.
func New(ctx context.Context, connStr string) (*Store, error) {
	config, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to parse pgx config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}
