package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/tix-ledger/internal/domain"
	"github.com/kirinyoku/tix-ledger/internal/ledger"
	"github.com/kirinyoku/tix-ledger/internal/metrics"
	"github.com/kirinyoku/tix-ledger/internal/repository"
	postgresrepo "github.com/kirinyoku/tix-ledger/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/tix-ledger/internal/repository/redis"
	"github.com/kirinyoku/tix-ledger/internal/uow"
)

const (
	maxAttempts   = 3
	commitTimeout = 10 * time.Second
)

// detach keeps ctx values but not its cancellation. Once a transition is sent
// to Postgres the caller going away must not decide whether it committed.
func detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), commitTimeout)
}

// Journal is the durable side of every ledger: it writes each transition in
// one serializable transaction and, once committed, invalidates cached reads
// and publishes the notification.
type Journal struct {
	store  *postgresrepo.Store
	uow    *uow.UoW
	cache  *redisrepo.Cache
	pubsub *redisrepo.NotificationsPubSub
	logger *slog.Logger
}

func New(
	store *postgresrepo.Store,
	cache *redisrepo.Cache,
	pubsub *redisrepo.NotificationsPubSub,
	logger *slog.Logger,
) *Journal {
	if logger == nil {
		logger = slog.Default()
	}

	return &Journal{
		store:  store,
		uow:    uow.NewUoW(store),
		cache:  cache,
		pubsub: pubsub,
		logger: logger,
	}
}

// CreateLedger persists a newly created ledger.
//
// Parameters:
//   - ctx: request-scoped context.
//   - st: initial state of the ledger.
//
// Returns:
//   - error: wrapping repository.ErrConflict if the ledger already exists.
func (j *Journal) CreateLedger(ctx context.Context, st ledger.State) error {
	const op = "journal.CreateLedger"

	ctx, cancel := detach(ctx)
	defer cancel()

	err := j.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		return j.store.Ledgers().With(tx).Create(ctx, st)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Commit implements ledger.Committer. Serialization failures are retried;
// the transition is fully determined before the call so a retry writes the
// same rows. The transaction and its after-commit hooks run detached from
// the caller's cancellation. A stored sequence that moved on is reported as
// ledger.ErrOutOfSync.
func (j *Journal) Commit(ctx context.Context, tr ledger.Transition) error {
	const op = "journal.Commit"

	ctx, cancel := detach(ctx)
	defer cancel()

	start := time.Now()

	err := j.uow.DoRetry(ctx, maxAttempts,
		func(attempt int, err error) {
			j.logger.Warn("retrying ledger commit",
				"ledger_id", tr.LedgerID, "seq", tr.Seq, "attempt", attempt, "error", err)
		},
		func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
			return j.write(ctx, tx, tr, after)
		},
	)
	if err != nil {
		j.logger.Error("ledger commit failed",
			"ledger_id", tr.LedgerID, "seq", tr.Seq, "kind", tr.Notification.Kind, "error", err)
		if errors.Is(err, repository.ErrStaleSequence) {
			return fmt.Errorf("%s: %w: %w", op, ledger.ErrOutOfSync, err)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	metrics.ObserveCommit(tr.Notification.Kind, time.Since(start), tr.Payouts)

	return nil
}

func (j *Journal) write(ctx context.Context, tx postgresrepo.DB, tr ledger.Transition, after func(uow.AfterCommit)) error {
	if tr.Put != nil {
		if err := j.store.Tickets().With(tx).Put(ctx, tr.LedgerID, *tr.Put); err != nil {
			return err
		}
	}

	if tr.Delete != 0 {
		if err := j.store.Tickets().With(tx).Delete(ctx, tr.LedgerID, tr.Delete); err != nil {
			return err
		}
	}

	if err := j.store.Journal().With(tx).AppendNotification(ctx, tr.Notification); err != nil {
		return err
	}

	if err := j.store.Journal().With(tx).AddPayouts(ctx, tr.Payouts); err != nil {
		return err
	}

	if err := j.store.Ledgers().With(tx).Advance(ctx, tr.LedgerID, tr.IssuedCount, tr.Seq); err != nil {
		return err
	}

	after(func(ctx context.Context) {
		j.fanOut(ctx, tr.Notification)
	})

	return nil
}

func (j *Journal) fanOut(ctx context.Context, n domain.Notification) {
	if j.cache != nil {
		if err := j.cache.InvalidateNotification(ctx, n); err != nil {
			j.logger.Warn("cache invalidation failed", "ledger_id", n.LedgerID, "seq", n.Seq, "error", err)
		}
	}

	if j.pubsub != nil {
		if err := j.pubsub.Publish(ctx, n); err != nil {
			j.logger.Warn("notification publish failed", "ledger_id", n.LedgerID, "seq", n.Seq, "error", err)
		}
	}
}

// Restore loads every persisted ledger into reg, wiring this journal as the
// committer of each.
//
// Returns:
//   - int: number of restored ledgers.
//   - error: if loading fails or a stored state violates ledger invariants.
func (j *Journal) Restore(ctx context.Context, reg *ledger.Registry, opts ...ledger.Option) (int, error) {
	const op = "journal.Restore"

	var states []ledger.State
	err := j.store.RunReadTx(ctx, func(ctx context.Context, tx postgresrepo.DB) error {
		var err error
		states, err = j.store.Ledgers().With(tx).LoadAll(ctx)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	for _, st := range states {
		lopts := append([]ledger.Option{ledger.WithCommitter(j), ledger.WithReloader(j.LoadLedger)}, opts...)

		l, err := ledger.Restore(st, lopts...)
		if err != nil {
			return 0, fmt.Errorf("%s: ledger %s: %w", op, st.ID, err)
		}

		if err := reg.Add(l); err != nil {
			return 0, fmt.Errorf("%s: ledger %s: %w", op, st.ID, err)
		}
	}

	return len(states), nil
}

// LoadLedger reads the stored state of one ledger from a single snapshot.
// It implements ledger.Reloader.
func (j *Journal) LoadLedger(ctx context.Context, id uuid.UUID) (ledger.State, error) {
	const op = "journal.LoadLedger"

	ctx, cancel := detach(ctx)
	defer cancel()

	var st ledger.State
	err := j.store.RunReadTx(ctx, func(ctx context.Context, tx postgresrepo.DB) error {
		var err error
		st, err = j.store.Ledgers().With(tx).Load(ctx, id)
		return err
	})
	if err != nil {
		return ledger.State{}, fmt.Errorf("%s: %w", op, err)
	}

	j.logger.Warn("ledger reloaded from journal", "ledger_id", id, "seq", st.LastSeq)

	return st, nil
}
