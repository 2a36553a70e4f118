package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/kirinyoku/tix-ledger/internal/clock"
	"github.com/kirinyoku/tix-ledger/internal/domain"
	"github.com/kirinyoku/tix-ledger/internal/ledger"
	"github.com/kirinyoku/tix-ledger/internal/metrics"
	"github.com/kirinyoku/tix-ledger/internal/repository"
)

// Journal persists ledgers and commits their transitions.
type Journal interface {
	ledger.Committer
	CreateLedger(ctx context.Context, st ledger.State) error
	LoadLedger(ctx context.Context, id uuid.UUID) (ledger.State, error)
}

type Config struct {
	Policy ledger.Policy
}

type Service struct {
	registry *ledger.Registry
	journal  Journal
	clock    clock.Clock
	cfg      Config
}

func New(registry *ledger.Registry, journal Journal, clk clock.Clock, cfg Config) *Service {
	if clk == nil {
		clk = clock.NewSystem()
	}

	return &Service{
		registry: registry,
		journal:  journal,
		clock:    clk,
		cfg:      cfg,
	}
}

// CreateLedger validates the configuration, persists a new ledger and
// registers it for serving.
//
// Parameters:
//   - ctx: request-scoped context.
//   - cfg: event configuration.
//
// Returns:
//   - uuid.UUID: the created ledger ID.
//   - error: ledger.ErrInvalidConfiguration if a parameter is out of range.
//   - error: admin.ErrLedgerConflict if the ledger ID is already taken.
func (s *Service) CreateLedger(ctx context.Context, cfg domain.LedgerConfig) (uuid.UUID, error) {
	const op = "service.admin.CreateLedger"

	l, err := ledger.New(uuid.New(), cfg,
		ledger.WithClock(s.clock),
		ledger.WithCommitter(s.journal),
		ledger.WithReloader(s.journal.LoadLedger),
		ledger.WithPolicy(s.cfg.Policy),
	)
	if err != nil {
		metrics.ObserveOperation("create", err)
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.journal.CreateLedger(ctx, l.Snapshot()); err != nil {
		metrics.ObserveOperation("create", err)
		if errors.Is(err, repository.ErrConflict) {
			return uuid.Nil, fmt.Errorf("%s: %w", op, ErrLedgerConflict)
		}
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.registry.Add(l); err != nil {
		metrics.ObserveOperation("create", err)
		return uuid.Nil, fmt.Errorf("%s: %w", op, ErrLedgerConflict)
	}

	metrics.ObserveOperation("create", nil)
	metrics.SetLedgersServed(s.registry.Len())

	return l.ID(), nil
}

// Issue mints the next ticket of a ledger to buyer.
//
// Parameters:
//   - ctx: request-scoped context.
//   - ledgerID: ledger to issue from.
//   - caller: identity of the requester, must be the administrator.
//   - buyer: identity receiving the ticket.
//   - category: ticket category label.
//   - resellable: whether the ticket may be resold.
//
// Returns:
//   - domain.Ticket: the issued ticket.
//   - error: admin.ErrLedgerNotFound, ledger.ErrNotAdministrator,
//     ledger.ErrInvalidRecipient or ledger.ErrSoldOut.
func (s *Service) Issue(
	ctx context.Context,
	ledgerID uuid.UUID,
	caller, buyer domain.Identity,
	category string,
	resellable bool,
) (domain.Ticket, error) {
	const op = "service.admin.Issue"

	l, err := s.ledger(ledgerID)
	if err != nil {
		return domain.Ticket{}, fmt.Errorf("%s: %w", op, err)
	}

	t, err := l.Issue(ctx, caller, buyer, category, resellable)
	metrics.ObserveOperation("issue", err)
	if err != nil {
		return domain.Ticket{}, fmt.Errorf("%s: %w", op, err)
	}

	return t, nil
}

// Validate performs the admission check of a ticket.
//
// Parameters:
//   - ctx: request-scoped context.
//   - ledgerID: ledger the ticket belongs to.
//   - id: ticket presented at the gate.
//   - caller: identity of the requester, must be the administrator.
//
// Returns:
//   - domain.Ticket: the validated ticket and its holder.
//   - error: admin.ErrLedgerNotFound, ledger.ErrNotAdministrator,
//     ledger.ErrUnknownTicket or ledger.ErrAlreadyAdmitted.
func (s *Service) Validate(
	ctx context.Context,
	ledgerID uuid.UUID,
	id domain.TicketID,
	caller domain.Identity,
) (domain.Ticket, error) {
	const op = "service.admin.Validate"

	l, err := s.ledger(ledgerID)
	if err != nil {
		return domain.Ticket{}, fmt.Errorf("%s: %w", op, err)
	}

	t, err := l.Validate(ctx, id, caller)
	metrics.ObserveOperation("validate", err)
	if err != nil {
		return domain.Ticket{}, fmt.Errorf("%s: %w", op, err)
	}

	return t, nil
}

// Refund burns a ticket and pays its stored price back to the holder.
//
// Parameters:
//   - ctx: request-scoped context.
//   - ledgerID: ledger the ticket belongs to.
//   - id: ticket to refund.
//   - caller: identity of the requester, must be the administrator.
//
// Returns:
//   - ledger.Refund: the former holder and refunded amount.
//   - error: admin.ErrLedgerNotFound, ledger.ErrNotAdministrator or
//     ledger.ErrUnknownTicket.
func (s *Service) Refund(
	ctx context.Context,
	ledgerID uuid.UUID,
	id domain.TicketID,
	caller domain.Identity,
) (ledger.Refund, error) {
	const op = "service.admin.Refund"

	l, err := s.ledger(ledgerID)
	if err != nil {
		return ledger.Refund{}, fmt.Errorf("%s: %w", op, err)
	}

	r, err := l.Refund(ctx, id, caller)
	metrics.ObserveOperation("refund", err)
	if err != nil {
		return ledger.Refund{}, fmt.Errorf("%s: %w", op, err)
	}

	return r, nil
}

func (s *Service) ledger(id uuid.UUID) (*ledger.Ledger, error) {
	l, err := s.registry.Get(id)
	if err != nil {
		if errors.Is(err, ledger.ErrUnknownLedger) {
			return nil, ErrLedgerNotFound
		}
		return nil, err
	}
	return l, nil
}
