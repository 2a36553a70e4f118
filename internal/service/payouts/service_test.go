package payouts

import (
	"context"
	"testing"

	"github.com/kirinyoku/tix-ledger/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	limit, offset int
	out           []domain.Payout
}

func (f *fakeReader) ListPayouts(ctx context.Context, recipient domain.Identity, limit, offset int) ([]domain.Payout, error) {
	f.limit, f.offset = limit, offset
	return f.out, nil
}

func TestListForRecipient_ClampsPaging(t *testing.T) {
	r := &fakeReader{out: []domain.Payout{{Recipient: "admin", Amount: 20, Reason: domain.PayoutRoyalty}}}
	svc := New(r)

	got, err := svc.ListForRecipient(context.Background(), "admin", 0, -5)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, defaultPage, r.limit)
	assert.Equal(t, 0, r.offset)

	_, err = svc.ListForRecipient(context.Background(), "admin", 10_000, 20)
	require.NoError(t, err)
	assert.Equal(t, maxPage, r.limit)
	assert.Equal(t, 20, r.offset)
}

func TestListForRecipient_RequiresRecipient(t *testing.T) {
	svc := New(&fakeReader{})

	_, err := svc.ListForRecipient(context.Background(), "  ", 10, 0)
	assert.ErrorIs(t, err, ErrInvalidRecipient)
}
