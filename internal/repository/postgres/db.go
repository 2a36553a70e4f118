package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is satisfied by both the pool and an open transaction, so every repo
// runs unchanged inside or outside a unit of work.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool: pool,
	}
}

var (
	writeTx = pgx.TxOptions{IsoLevel: pgx.Serializable, AccessMode: pgx.ReadWrite}
	readTx  = pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}
)

// RunTx runs fn in a transaction, serializable read-write unless opts says
// otherwise, and commits when fn returns nil.
func (s *Store) RunTx(
	ctx context.Context,
	opts *pgx.TxOptions,
	fn func(ctx context.Context, tx DB) error,
) error {
	const op = "postgres.Store.RunTx"

	txOpts := writeTx
	if opts != nil {
		txOpts = *opts
	}

	tx, err := s.pool.BeginTx(ctx, txOpts)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", op, err)
	}

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return errors.Join(err, fmt.Errorf("%s: rollback: %w", op, rbErr))
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}

	return nil
}

// RunReadTx runs fn against one read-only snapshot, for reads spanning
// several statements.
func (s *Store) RunReadTx(ctx context.Context, fn func(ctx context.Context, tx DB) error) error {
	return s.RunTx(ctx, &readTx, fn)
}

// Ping checks that a pooled connection is usable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres.Store.Ping: %w", err)
	}
	return nil
}

func (s *Store) Query() *QueryRepo     { return &QueryRepo{pool: s.pool} }
func (s *Store) Ledgers() *LedgerRepo  { return &LedgerRepo{pool: s.pool} }
func (s *Store) Tickets() *TicketRepo  { return &TicketRepo{pool: s.pool} }
func (s *Store) Journal() *JournalRepo { return &JournalRepo{pool: s.pool} }
