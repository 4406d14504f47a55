package db

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	sq "github.com/Masterminds/squirrel"
	trmpgx "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/avito-tech/go-transaction-manager/trm/v2"
	"github.com/avito-tech/go-transaction-manager/trm/v2/manager"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// psql builds queries with PostgreSQL placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Store is the persistence layer behind the engine and the HTTP
// boundary. Writes that must be atomic run inside the transaction
// manager; every query goes through db() so it joins an ambient
// transaction when one is open on the context.
type Store struct {
	pool      *pgxpool.Pool
	txManager trm.Manager
	getter    *trmpgx.CtxGetter
	cache     *redis.Client
}

// NewStore wires a Store over the shared pool and Redis client. cache
// may be nil; everything then reads straight from Postgres.
func NewStore(pool *pgxpool.Pool, cache *redis.Client) (*Store, error) {
	m, err := manager.New(trmpgx.NewDefaultFactory(pool))
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction manager: %w", err)
	}

	return &Store{
		pool:      pool,
		txManager: m,
		getter:    trmpgx.DefaultCtxGetter,
		cache:     cache,
	}, nil
}

// db returns the ambient transaction if the context carries one, else
// the pool.
func (s *Store) db(ctx context.Context) trmpgx.Tr {
	return s.getter.DefaultTrOrDB(ctx, s.pool)
}

const txAttempts = 3

// inTx runs fn inside a transaction, retrying serialization failures
// and deadlocks a bounded number of times.
func (s *Store) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 1; attempt <= txAttempts; attempt++ {
		err = s.txManager.Do(ctx, fn)
		if err == nil || !retryablePgError(err) {
			return err
		}
		log.Printf("⚠️ Transaction conflict (attempt %d/%d): %v", attempt, txAttempts, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 20 * time.Millisecond):
		}
	}
	return err
}

// retryablePgError reports serialization failures (40001) and
// deadlocks (40P01).
func retryablePgError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}

// checkViolation reports a CHECK constraint rejection, which is how
// the balance guard surfaces an overdraft.
func checkViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23514"
}
