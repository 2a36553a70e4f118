package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/tix-ledger/internal/domain"
)

type QueryRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *QueryRepo) With(db DB) *QueryRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *QueryRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// GetLedger retrieves the configuration and counters of a ledger.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - id: unique identifier of the ledger to retrieve.
//
// Returns:
//   - *domain.LedgerInfo: the ledger when found.
//   - error: repository.ErrNotFound if the ledger is not found.
func (r *QueryRepo) GetLedger(ctx context.Context, id uuid.UUID) (*domain.LedgerInfo, error) {
	const op = "postgres.QueryRepo.GetLedger"

	db := r.handle()

	var (
		info        domain.LedgerInfo
		admin       string
		totalSupply int64
		royalty     int16
		issued      int64
		lastSeq     int64
	)

	err := db.QueryRow(ctx,
		`SELECT id, event_name, administrator, total_supply, issued_count,
		        event_at, base_price, royalty_rate, last_seq
		 FROM ledgers WHERE id = $1`,
		id,
	).Scan(
		&info.ID,
		&info.EventName,
		&admin,
		&totalSupply,
		&issued,
		&info.EventAt,
		&info.BasePrice,
		&royalty,
		&lastSeq,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	info.Administrator = domain.Identity(admin)
	info.TotalSupply = uint64(totalSupply)
	info.IssuedCount = uint64(issued)
	info.RoyaltyRate = uint8(royalty)
	info.LastSeq = uint64(lastSeq)
	info.EventAt = info.EventAt.UTC()

	return &info, nil
}

// GetTicket retrieves the current record of a ticket.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - ledgerID: ledger the ticket belongs to.
//   - id: ticket identifier.
//
// Returns:
//   - *domain.Ticket: the ticket when found.
//   - error: repository.ErrNotFound if the ticket was never issued or was refunded.
func (r *QueryRepo) GetTicket(ctx context.Context, ledgerID uuid.UUID, id domain.TicketID) (*domain.Ticket, error) {
	const op = "postgres.QueryRepo.GetTicket"

	db := r.handle()

	t, err := scanTicket(db.QueryRow(ctx,
		`SELECT ticket_id, holder, price, category, resellable, admitted
		 FROM tickets
		 WHERE ledger_id = $1 AND ticket_id = $2`,
		ledgerID, int64(id),
	), nil)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &t, nil
}

// ListHolderTickets lists the ids currently held by a holder.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - ledgerID: ledger to search.
//   - holder: identity whose tickets are listed.
//
// Returns:
//   - []domain.TicketID: ticket ids, empty when the holder has none.
//   - error: if the query fails.
func (r *QueryRepo) ListHolderTickets(
	ctx context.Context,
	ledgerID uuid.UUID,
	holder domain.Identity,
) ([]domain.TicketID, error) {
	const op = "postgres.QueryRepo.ListHolderTickets"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT ticket_id
		 FROM tickets
		 WHERE ledger_id = $1 AND holder = $2
		 ORDER BY ticket_id`,
		ledgerID, string(holder),
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	out := []domain.TicketID{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		out = append(out, domain.TicketID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// ListNotifications lists notifications of a ledger in sequence order.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - ledgerID: ledger to read.
//   - afterSeq: only notifications with a greater sequence are returned.
//   - limit: page size.
//
// Returns:
//   - []domain.Notification: notifications ordered by sequence.
//   - error: if the query fails.
func (r *QueryRepo) ListNotifications(
	ctx context.Context,
	ledgerID uuid.UUID,
	afterSeq uint64,
	limit int,
) ([]domain.Notification, error) {
	const op = "postgres.QueryRepo.ListNotifications"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT ledger_id, seq, kind, ticket_id, from_identity, to_identity,
		        amount, royalty, category, occurred_at
		 FROM ledger_events
		 WHERE ledger_id = $1 AND seq > $2
		 ORDER BY seq
		 LIMIT $3`,
		ledgerID, int64(afterSeq), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	out := []domain.Notification{}
	for rows.Next() {
		var (
			n        domain.Notification
			seq      int64
			kind     string
			ticketID int64
			from, to string
		)

		if err := rows.Scan(
			&n.LedgerID,
			&seq,
			&kind,
			&ticketID,
			&from,
			&to,
			&n.Amount,
			&n.Royalty,
			&n.Category,
			&n.OccurredAt,
		); err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}

		n.Seq = uint64(seq)
		n.Kind = domain.NotificationKind(kind)
		n.TicketID = domain.TicketID(ticketID)
		n.From = domain.Identity(from)
		n.To = domain.Identity(to)
		n.OccurredAt = n.OccurredAt.UTC()
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// ListPayouts lists the fund transfers credited to a recipient, newest first.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - recipient: identity credited by the payouts.
//   - limit, offset: pagination parameters.
//
// Returns:
//   - []domain.Payout: list of payouts.
//   - error: if the query fails.
func (r *QueryRepo) ListPayouts(
	ctx context.Context,
	recipient domain.Identity,
	limit, offset int,
) ([]domain.Payout, error) {
	const op = "postgres.QueryRepo.ListPayouts"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT ledger_id, seq, recipient, amount, reason, created_at
		 FROM payouts
		 WHERE recipient = $1
		 ORDER BY id DESC
		 LIMIT $2 OFFSET $3`,
		string(recipient), limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	out := []domain.Payout{}
	for rows.Next() {
		var (
			p         domain.Payout
			seq       int64
			to        string
			reason    string
			createdAt time.Time
		)

		if err := rows.Scan(&p.LedgerID, &seq, &to, &p.Amount, &reason, &createdAt); err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}

		p.Seq = uint64(seq)
		p.Recipient = domain.Identity(to)
		p.Reason = domain.PayoutReason(reason)
		p.CreatedAt = createdAt.UTC()
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}
