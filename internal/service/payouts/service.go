package payouts

import (
	"context"
	"fmt"

	"github.com/kirinyoku/tix-ledger/internal/domain"
)

const (
	defaultPage = 50
	maxPage     = 200
)

type Reader interface {
	ListPayouts(ctx context.Context, recipient domain.Identity, limit, offset int) ([]domain.Payout, error)
}

type Service struct {
	reader Reader
}

func New(reader Reader) *Service {
	return &Service{reader: reader}
}

// ListForRecipient retrieves the royalties and refunds credited to an identity,
// newest first.
//
// Parameters:
//   - ctx: request-scoped context.
//   - recipient: identity credited by the payouts.
//   - limit, offset: pagination parameters.
//
// Returns:
//   - []domain.Payout: the payouts page.
//   - error: payouts.ErrInvalidRecipient if recipient is empty.
func (s *Service) ListForRecipient(
	ctx context.Context,
	recipient domain.Identity,
	limit, offset int,
) ([]domain.Payout, error) {
	const op = "service.payouts.ListForRecipient"

	if recipient.IsZero() {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidRecipient)
	}

	if limit <= 0 {
		limit = defaultPage
	}
	if limit > maxPage {
		limit = maxPage
	}
	if offset < 0 {
		offset = 0
	}

	out, err := s.reader.ListPayouts(ctx, recipient, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}
