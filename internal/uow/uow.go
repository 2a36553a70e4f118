package uow

import (
	"context"

	postgres "github.com/kirinyoku/tix-ledger/internal/repository/postgres"
)

// AfterCommit is a function that runs after a successful transaction commit.
type AfterCommit func(ctx context.Context)

// TxFunc is the body of a unit of work. Hooks passed to after run only once
// the surrounding transaction has committed.
type TxFunc func(ctx context.Context, tx postgres.DB, after func(AfterCommit)) error

// UoW represents a unit of work.
type UoW struct {
	store *postgres.Store
}

func NewUoW(store *postgres.Store) *UoW {
	return &UoW{store: store}
}

// Do runs fn inside a serializable transaction. After a successful commit,
// it executes all after-commit hooks.
func (u *UoW) Do(ctx context.Context, fn TxFunc) error {
	var hooks []AfterCommit

	err := u.store.RunTx(ctx, nil, func(ctx context.Context, tx postgres.DB) error {
		return fn(ctx, tx, func(h AfterCommit) {
			hooks = append(hooks, h)
		})
	})
	if err != nil {
		return err
	}

	for _, h := range hooks {
		h(ctx)
	}

	return nil
}

// DoRetry runs Do up to attempts times while the failure is a serialization
// failure or deadlock. Hooks registered by a failed attempt never run.
// onRetry, when set, is called before each new attempt.
func (u *UoW) DoRetry(
	ctx context.Context,
	attempts int,
	onRetry func(attempt int, err error),
	fn TxFunc,
) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = u.Do(ctx, fn)
		if err == nil || !postgres.IsRetryable(err) || ctx.Err() != nil {
			return err
		}

		if attempt < attempts && onRetry != nil {
			onRetry(attempt, err)
		}
	}

	return err
}
