package resale

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/kirinyoku/tix-ledger/internal/domain"
	"github.com/kirinyoku/tix-ledger/internal/ledger"
	"github.com/kirinyoku/tix-ledger/internal/metrics"
	redisrepo "github.com/kirinyoku/tix-ledger/internal/repository/redis"
)

// Limiter throttles resale attempts per caller.
type Limiter interface {
	Allow(ctx context.Context, suffix string) (redisrepo.Decision, error)
}

type Service struct {
	registry *ledger.Registry
	limiter  Limiter
}

func New(registry *ledger.Registry, limiter Limiter) *Service {
	return &Service{
		registry: registry,
		limiter:  limiter,
	}
}

// Resell transfers a ticket from caller to newHolder at price and routes the
// royalty to the administrator.
//
// Parameters:
//   - ctx: request-scoped context.
//   - ledgerID: ledger the ticket belongs to.
//   - id: ticket to resell.
//   - price: resale price paid by newHolder.
//   - newHolder: identity receiving the ticket.
//   - caller: identity of the requester, must hold the ticket.
//
// Returns:
//   - ledger.Resale: the updated ticket with royalty and seller proceeds.
//   - error: resale.RateLimitedError when the caller exceeded the resale rate.
//   - error: resale.ErrLedgerNotFound, ledger.ErrUnknownTicket,
//     ledger.ErrNotOwner, ledger.ErrNotResellable, ledger.ErrInvalidRecipient
//     or ledger.ErrInvalidPrice.
func (s *Service) Resell(
	ctx context.Context,
	ledgerID uuid.UUID,
	id domain.TicketID,
	price int64,
	newHolder, caller domain.Identity,
) (ledger.Resale, error) {
	const op = "service.resale.Resell"

	l, err := s.ledger(ledgerID)
	if err != nil {
		return ledger.Resale{}, fmt.Errorf("%s: %w", op, err)
	}

	if s.limiter != nil && !caller.IsZero() {
		d, err := s.limiter.Allow(ctx, fmt.Sprintf("%s:%s", ledgerID, caller))
		if err != nil {
			return ledger.Resale{}, fmt.Errorf("%s: %w", op, err)
		}
		if !d.Allowed {
			return ledger.Resale{}, fmt.Errorf("%s: %w", op, RateLimitedError{RetryAfter: d.RetryAfter})
		}
	}

	r, err := l.Resell(ctx, id, price, newHolder, caller)
	metrics.ObserveOperation("resell", err)
	if err != nil {
		return ledger.Resale{}, fmt.Errorf("%s: %w", op, err)
	}

	return r, nil
}

// Quote returns the dynamic price of the next issuance of a ledger.
//
// Parameters:
//   - ledgerID: ledger to quote.
//
// Returns:
//   - int64: basePrice plus the scarcity premium.
//   - error: resale.ErrLedgerNotFound if the ledger is not served here.
func (s *Service) Quote(ledgerID uuid.UUID) (int64, error) {
	const op = "service.resale.Quote"

	l, err := s.ledger(ledgerID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return l.DynamicPrice(), nil
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
