package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/tix-ledger/internal/domain"
)

// JournalRepo appends notifications and payouts. Rows are never updated.
type JournalRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *JournalRepo) With(db DB) *JournalRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *JournalRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// AppendNotification records a ledger notification.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - n: notification to append.
//
// Returns:
//   - error: repository.ErrConflict if the (ledger, seq) pair already exists.
func (r *JournalRepo) AppendNotification(ctx context.Context, n domain.Notification) error {
	const op = "postgres.JournalRepo.AppendNotification"

	db := r.handle()

	if _, err := db.Exec(ctx,
		`INSERT INTO ledger_events(ledger_id, seq, kind, ticket_id, from_identity,
		                           to_identity, amount, royalty, category, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		n.LedgerID,
		int64(n.Seq),
		string(n.Kind),
		int64(n.TicketID),
		string(n.From),
		string(n.To),
		n.Amount,
		n.Royalty,
		n.Category,
		n.OccurredAt,
	); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// AddPayouts records the fund transfers of one transition.
func (r *JournalRepo) AddPayouts(ctx context.Context, payouts []domain.Payout) error {
	const op = "postgres.JournalRepo.AddPayouts"

	if len(payouts) == 0 {
		return nil
	}

	db := r.handle()

	batch := &pgx.Batch{}
	for _, p := range payouts {
		batch.Queue(
			`INSERT INTO payouts(ledger_id, seq, recipient, amount, reason, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			p.LedgerID, int64(p.Seq), string(p.Recipient), p.Amount, string(p.Reason), p.CreatedAt,
		)
	}
	if err := db.SendBatch(ctx, batch).Close(); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}
