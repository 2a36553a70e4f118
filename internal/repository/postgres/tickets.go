package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/tix-ledger/internal/domain"
	"github.com/kirinyoku/tix-ledger/internal/repository"
)

type TicketRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *TicketRepo) With(db DB) *TicketRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *TicketRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Put writes the current record of a ticket, inserting it on issuance and
// overwriting holder, price and admission on later transitions.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - ledgerID: ledger the ticket belongs to.
//   - t: ticket record after the transition.
//
// Returns:
//   - error: if the write fails.
func (r *TicketRepo) Put(ctx context.Context, ledgerID uuid.UUID, t domain.Ticket) error {
	const op = "postgres.TicketRepo.Put"

	db := r.handle()

	if _, err := db.Exec(ctx,
		`INSERT INTO tickets(ledger_id, ticket_id, holder, price, category, resellable, admitted)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (ledger_id, ticket_id)
		 DO UPDATE SET holder = EXCLUDED.holder,
		               price = EXCLUDED.price,
		               admitted = EXCLUDED.admitted,
		               updated_at = now()`,
		ledgerID,
		int64(t.ID),
		string(t.Holder),
		t.Price,
		t.Category,
		t.Resellable,
		t.Admitted,
	); err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

// Delete burns a ticket.
//
// Returns:
//   - error: repository.ErrNotFound if the ticket does not exist.
func (r *TicketRepo) Delete(ctx context.Context, ledgerID uuid.UUID, id domain.TicketID) error {
	const op = "postgres.TicketRepo.Delete"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`DELETE FROM tickets WHERE ledger_id = $1 AND ticket_id = $2`,
		ledgerID, int64(id),
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}
