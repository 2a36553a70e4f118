package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/tix-ledger/internal/domain"
	"github.com/kirinyoku/tix-ledger/internal/ledger"
	"github.com/kirinyoku/tix-ledger/internal/repository"
)

type LedgerRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *LedgerRepo) With(db DB) *LedgerRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *LedgerRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Create inserts the ledger row of a freshly created ledger.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - st: state of the new ledger, with no tickets issued.
//
// Returns:
//   - error: repository.ErrConflict if a ledger with the same ID exists.
func (r *LedgerRepo) Create(ctx context.Context, st ledger.State) error {
	const op = "postgres.LedgerRepo.Create"

	db := r.handle()

	_, err := db.Exec(ctx,
		`INSERT INTO ledgers(id, event_name, administrator, total_supply, event_at,
		                     base_price, royalty_rate, single_use_admission,
		                     issued_count, last_seq)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		st.ID,
		st.Config.EventName,
		string(st.Config.Administrator),
		int64(st.Config.TotalSupply),
		st.Config.EventAt,
		st.Config.BasePrice,
		int16(st.Config.RoyaltyRate),
		st.Policy.SingleUseAdmission,
		int64(st.IssuedCount),
		int64(st.LastSeq),
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// Advance moves the ledger counters forward by exactly one sequence step.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - id: ledger to advance.
//   - issued: issued count after the transition.
//   - seq: sequence of the transition, must be last_seq + 1.
//
// Returns:
//   - error: repository.ErrStaleSequence if the stored sequence is not seq - 1.
func (r *LedgerRepo) Advance(ctx context.Context, id uuid.UUID, issued, seq uint64) error {
	const op = "postgres.LedgerRepo.Advance"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE ledgers
		 SET issued_count = $2, last_seq = $3
		 WHERE id = $1 AND last_seq = $3 - 1`,
		id, int64(issued), int64(seq),
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrStaleSequence)
	}

	return nil
}

// LoadAll reads every ledger together with its live tickets.
//
// Returns:
//   - []ledger.State: one state per stored ledger.
//   - error: if any query fails.
func (r *LedgerRepo) LoadAll(ctx context.Context) ([]ledger.State, error) {
	const op = "postgres.LedgerRepo.LoadAll"

	states, err := r.load(ctx, nil)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return states, nil
}

// Load reads one ledger together with its live tickets.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - id: ledger to read.
//
// Returns:
//   - ledger.State: the stored state.
//   - error: repository.ErrNotFound if the ledger does not exist.
func (r *LedgerRepo) Load(ctx context.Context, id uuid.UUID) (ledger.State, error) {
	const op = "postgres.LedgerRepo.Load"

	states, err := r.load(ctx, &id)
	if err != nil {
		return ledger.State{}, wrapDBErr(op, err)
	}

	if len(states) == 0 {
		return ledger.State{}, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return states[0], nil
}

// load reads the ledger with the given id, or every ledger when id is nil.
func (r *LedgerRepo) load(ctx context.Context, id *uuid.UUID) ([]ledger.State, error) {
	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT id, event_name, administrator, total_supply, event_at,
		        base_price, royalty_rate, single_use_admission,
		        issued_count, last_seq
		 FROM ledgers
		 WHERE $1::uuid IS NULL OR id = $1
		 ORDER BY created_at`,
		id,
	)
	if err != nil {
		return nil, err
	}

	states, err := pgx.CollectRows(rows, scanLedgerState)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]int, len(states))
	for i := range states {
		byID[states[i].ID] = i
	}

	trows, err := db.Query(ctx,
		`SELECT ledger_id, ticket_id, holder, price, category, resellable, admitted
		 FROM tickets
		 WHERE $1::uuid IS NULL OR ledger_id = $1
		 ORDER BY ledger_id, ticket_id`,
		id,
	)
	if err != nil {
		return nil, err
	}

	defer trows.Close()

	for trows.Next() {
		var ledgerID uuid.UUID
		t, err := scanTicket(trows, &ledgerID)
		if err != nil {
			return nil, err
		}

		i, ok := byID[ledgerID]
		if !ok {
			continue
		}
		states[i].Tickets = append(states[i].Tickets, t)
	}

	return states, trows.Err()
}

func scanLedgerState(row pgx.CollectableRow) (ledger.State, error) {
	var (
		st          ledger.State
		admin       string
		totalSupply int64
		eventAt     time.Time
		royalty     int16
		issued      int64
		lastSeq     int64
	)

	if err := row.Scan(
		&st.ID,
		&st.Config.EventName,
		&admin,
		&totalSupply,
		&eventAt,
		&st.Config.BasePrice,
		&royalty,
		&st.Policy.SingleUseAdmission,
		&issued,
		&lastSeq,
	); err != nil {
		return ledger.State{}, err
	}

	st.Config.Administrator = domain.Identity(admin)
	st.Config.TotalSupply = uint64(totalSupply)
	st.Config.EventAt = eventAt.UTC()
	st.Config.RoyaltyRate = uint8(royalty)
	st.IssuedCount = uint64(issued)
	st.LastSeq = uint64(lastSeq)

	return st, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanTicket reads a tickets row. When ledgerID is non-nil the first column
// is expected to be the ledger id.
func scanTicket(row rowScanner, ledgerID *uuid.UUID) (domain.Ticket, error) {
	var (
		t      domain.Ticket
		id     int64
		holder string
	)

	dest := []any{&id, &holder, &t.Price, &t.Category, &t.Resellable, &t.Admitted}
	if ledgerID != nil {
		dest = append([]any{ledgerID}, dest...)
	}

	if err := row.Scan(dest...); err != nil {
		return domain.Ticket{}, err
	}

	t.ID = domain.TicketID(id)
	t.Holder = domain.Identity(holder)

	return t, nil
}
