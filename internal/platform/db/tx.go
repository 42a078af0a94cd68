package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type contextKey string

const txKey contextKey = "tx"

// Querier is the subset of pgx operations shared by pools, connections and
// transactions. Repositories accept it so the same code runs inside or
// outside a transaction.
type Querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// ConnFromContext returns the transaction bound to ctx, or nil when the
// caller is not running inside one.
func ConnFromContext(ctx context.Context) Querier {
	q, _ := ctx.Value(txKey).(Querier)
	return q
}

// TxRunner runs a function inside a database transaction whose connection is
// made available to repositories through the context.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// PoolRunner is the pgx-backed TxRunner. Transactions run at repeatable
// read so conflict and capacity checks observe the same snapshot as the
// write they guard.
type PoolRunner struct {
	pool *pgxpool.Pool
}

// NewPoolRunner creates a TxRunner backed by the given pool.
func NewPoolRunner(pool *pgxpool.Pool) *PoolRunner {
	return &PoolRunner{pool: pool}
}

// InTx runs fn inside a transaction, committing on success and rolling back
// on error. Nested calls join the transaction already bound to ctx.
func (r *PoolRunner) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ConnFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(context.WithValue(ctx, txKey, Querier(tx))); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
