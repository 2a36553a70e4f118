package query

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/tix-ledger/internal/domain"
	"github.com/kirinyoku/tix-ledger/internal/ledger"
	"github.com/kirinyoku/tix-ledger/internal/repository"
	redisrepo "github.com/kirinyoku/tix-ledger/internal/repository/redis"
)

// Reader is the read side of the journal.
type Reader interface {
	GetLedger(ctx context.Context, id uuid.UUID) (*domain.LedgerInfo, error)
	GetTicket(ctx context.Context, ledgerID uuid.UUID, id domain.TicketID) (*domain.Ticket, error)
	ListHolderTickets(ctx context.Context, ledgerID uuid.UUID, holder domain.Identity) ([]domain.TicketID, error)
	ListNotifications(ctx context.Context, ledgerID uuid.UUID, afterSeq uint64, limit int) ([]domain.Notification, error)
}

type Config struct {
	LedgerTTL         time.Duration
	TicketTTL         time.Duration
	HolderTTL         time.Duration
	DefaultEventsPage int
	MaxEventsPage     int
}

// Service answers reads. Ledgers held in the registry are served from memory,
// which is where every transition lands first; the journal and its cache
// only answer for ledgers this instance does not hold.
type Service struct {
	registry *ledger.Registry
	reader   Reader
	cache    *redisrepo.Cache
	cfg      Config
}

func New(registry *ledger.Registry, reader Reader, cache *redisrepo.Cache, cfg Config) *Service {
	if cfg.LedgerTTL <= 0 {
		cfg.LedgerTTL = 30 * time.Second
	}

	if cfg.TicketTTL <= 0 {
		cfg.TicketTTL = 60 * time.Second
	}

	if cfg.HolderTTL <= 0 {
		cfg.HolderTTL = 30 * time.Second
	}

	if cfg.DefaultEventsPage <= 0 {
		cfg.DefaultEventsPage = 100
	}

	if cfg.MaxEventsPage <= 0 {
		cfg.MaxEventsPage = 500
	}

	return &Service{
		registry: registry,
		reader:   reader,
		cache:    cache,
		cfg:      cfg,
	}
}

func (s *Service) live(id uuid.UUID) (*ledger.Ledger, bool) {
	if s.registry == nil {
		return nil, false
	}
	l, err := s.registry.Get(id)
	return l, err == nil
}

// GetLedger retrieves the configuration and counters of a ledger.
//
// Parameters:
//   - ctx: request-scoped context.
//   - id: ID of the ledger to retrieve.
//
// Returns:
//   - *domain.LedgerInfo: the retrieved ledger.
//   - error: query.ErrLedgerNotFound if the ledger is not found.
func (s *Service) GetLedger(ctx context.Context, id uuid.UUID) (*domain.LedgerInfo, error) {
	const op = "service.query.GetLedger"

	if l, ok := s.live(id); ok {
		info := l.Info()
		return &info, nil
	}

	info, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisrepo.KeyLedgerInfo(id),
		s.cfg.LedgerTTL,
		func(ctx context.Context) (domain.LedgerInfo, error) {
			li, err := s.reader.GetLedger(ctx, id)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return domain.LedgerInfo{}, ErrLedgerNotFound
				}

				return domain.LedgerInfo{}, err
			}

			return *li, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &info, nil
}

// GetTicket retrieves the current record of a ticket.
//
// Parameters:
//   - ctx: request-scoped context.
//   - ledgerID: ledger the ticket belongs to.
//   - id: ticket identifier.
//
// Returns:
//   - *domain.Ticket: the ticket with its current holder.
//   - error: query.ErrTicketNotFound if the ticket was never issued or has
//     been refunded.
func (s *Service) GetTicket(ctx context.Context, ledgerID uuid.UUID, id domain.TicketID) (*domain.Ticket, error) {
	const op = "service.query.GetTicket"

	if l, ok := s.live(ledgerID); ok {
		t, err := l.Ticket(id)
		if errors.Is(err, ledger.ErrUnknownTicket) {
			return nil, fmt.Errorf("%s: %w", op, ErrTicketNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return &t, nil
	}

	t, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisrepo.KeyTicket(ledgerID, id),
		s.cfg.TicketTTL,
		func(ctx context.Context) (domain.Ticket, error) {
			t, err := s.reader.GetTicket(ctx, ledgerID, id)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return domain.Ticket{}, ErrTicketNotFound
				}

				return domain.Ticket{}, err
			}

			return *t, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &t, nil
}

// ListHolderTickets lists the ticket ids currently held by an identity.
//
// Parameters:
//   - ctx: request-scoped context.
//   - ledgerID: ledger to search.
//   - holder: identity whose tickets are listed.
//
// Returns:
//   - []domain.TicketID: ticket ids, empty when the holder has none.
//   - error: if the lookup fails.
func (s *Service) ListHolderTickets(
	ctx context.Context,
	ledgerID uuid.UUID,
	holder domain.Identity,
) ([]domain.TicketID, error) {
	const op = "service.query.ListHolderTickets"

	if l, ok := s.live(ledgerID); ok {
		ids := l.TicketsOf(holder)
		slices.Sort(ids)
		return ids, nil
	}

	ids, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisrepo.KeyHolderTickets(ledgerID, holder),
		s.cfg.HolderTTL,
		func(ctx context.Context) ([]domain.TicketID, error) {
			return s.reader.ListHolderTickets(ctx, ledgerID, holder)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if ids == nil {
		ids = []domain.TicketID{}
	}

	return ids, nil
}

// ListNotifications pages through the notification log of a ledger.
//
// Parameters:
//   - ctx: request-scoped context.
//   - ledgerID: ledger to read.
//   - afterSeq: cursor, only later notifications are returned.
//   - limit: page size (default and max limits are enforced).
//
// Returns:
//   - []domain.Notification: notifications ordered by sequence.
//   - error: query.ErrLedgerNotFound if the ledger is not found.
func (s *Service) ListNotifications(
	ctx context.Context,
	ledgerID uuid.UUID,
	afterSeq uint64,
	limit int,
) ([]domain.Notification, error) {
	const op = "service.query.ListNotifications"

	if limit <= 0 {
		limit = s.cfg.DefaultEventsPage
	}

	if limit > s.cfg.MaxEventsPage {
		limit = s.cfg.MaxEventsPage
	}

	if _, err := s.GetLedger(ctx, ledgerID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	events, err := s.reader.ListNotifications(ctx, ledgerID, afterSeq, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return events, nil
}
